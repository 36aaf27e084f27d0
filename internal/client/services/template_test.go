package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jobrefme/jobrefme-cli/internal/client/api"
	"github.com/jobrefme/jobrefme-cli/internal/common"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestTemplateFetchRequiresSession(t *testing.T) {
	e := newTestEnv(t)
	svc := NewTemplateService(e.client, e.state, e.log)

	_, err := svc.Fetch(context.Background())
	require.ErrorIs(t, err, common.ErrUnauthorized)
	require.Equal(t, "Authentication required. Please log in to continue.", svc.Err())
}

func TestTemplateFetchSelectsDefault(t *testing.T) {
	e := newTestEnv(t)
	e.logIn(t, true)
	e.client.listTemplatesFn = func(ctx context.Context) ([]api.Template, error) {
		return []api.Template{
			{ID: "t1", Name: "Casual"},
			{ID: "t2", Name: "Formal", IsDefault: true},
		}, nil
	}
	svc := NewTemplateService(e.client, e.state, e.log)

	templates, err := svc.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, templates, 2)
	require.Equal(t, "t2", svc.SelectedID())
	require.Empty(t, svc.Err())
}

func TestTemplateFetchFallsBackToFirst(t *testing.T) {
	e := newTestEnv(t)
	e.logIn(t, true)
	e.client.listTemplatesFn = func(ctx context.Context) ([]api.Template, error) {
		return []api.Template{{ID: "t1"}, {ID: "t2"}}, nil
	}
	svc := NewTemplateService(e.client, e.state, e.log)

	_, err := svc.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, "t1", svc.SelectedID())
}

func TestTemplateFetchKeepsExistingSelection(t *testing.T) {
	e := newTestEnv(t)
	e.logIn(t, true)
	e.state.SetSelectedTemplateID(context.Background(), "t2")
	e.client.listTemplatesFn = func(ctx context.Context) ([]api.Template, error) {
		return []api.Template{{ID: "t1", IsDefault: true}, {ID: "t2"}}, nil
	}
	svc := NewTemplateService(e.client, e.state, e.log)

	_, err := svc.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, "t2", svc.SelectedID())
}

func TestTemplateCreateDefaultClearsSiblings(t *testing.T) {
	e := newTestEnv(t)
	e.logIn(t, true)
	e.client.listTemplatesFn = func(ctx context.Context) ([]api.Template, error) {
		return []api.Template{{ID: "t1", IsDefault: true}, {ID: "t2"}}, nil
	}
	e.client.createTemplateFn = func(ctx context.Context, nt api.NewTemplate) (*api.Template, error) {
		return &api.Template{ID: "t3", Name: nt.Name, Content: nt.Content, IsDefault: nt.IsDefault}, nil
	}
	svc := NewTemplateService(e.client, e.state, e.log)
	_, err := svc.Fetch(context.Background())
	require.NoError(t, err)

	created, err := svc.Create(context.Background(), api.NewTemplate{Name: "Punchy", Content: "Hi {jobTitle}", IsDefault: true})
	require.NoError(t, err)
	require.True(t, created.IsDefault)

	for _, tpl := range svc.Templates() {
		require.Equal(t, tpl.ID == "t3", tpl.IsDefault, "only the new template may be default, got %q", tpl.ID)
	}
}

func TestTemplateUpdateDefaultClearsSiblings(t *testing.T) {
	e := newTestEnv(t)
	e.logIn(t, true)
	e.client.listTemplatesFn = func(ctx context.Context) ([]api.Template, error) {
		return []api.Template{{ID: "t1", IsDefault: true}, {ID: "t2"}}, nil
	}
	e.client.updateTemplateFn = func(ctx context.Context, id string, patch api.TemplatePatch) (*api.Template, error) {
		return &api.Template{ID: id, Name: "Formal", IsDefault: true}, nil
	}
	svc := NewTemplateService(e.client, e.state, e.log)
	_, err := svc.Fetch(context.Background())
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), "t2", api.TemplatePatch{IsDefault: boolPtr(true)})
	require.NoError(t, err)

	for _, tpl := range svc.Templates() {
		require.Equal(t, tpl.ID == "t2", tpl.IsDefault)
	}
}

func TestTemplateUpdateReplacesEntry(t *testing.T) {
	e := newTestEnv(t)
	e.logIn(t, true)
	e.client.listTemplatesFn = func(ctx context.Context) ([]api.Template, error) {
		return []api.Template{{ID: "t1", Name: "Old"}}, nil
	}
	e.client.updateTemplateFn = func(ctx context.Context, id string, patch api.TemplatePatch) (*api.Template, error) {
		return &api.Template{ID: id, Name: *patch.Name}, nil
	}
	svc := NewTemplateService(e.client, e.state, e.log)
	_, err := svc.Fetch(context.Background())
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), "t1", api.TemplatePatch{Name: strPtr("New")})
	require.NoError(t, err)
	require.Equal(t, "New", svc.Templates()[0].Name)
}

func TestTemplateDeleteReselects(t *testing.T) {
	e := newTestEnv(t)
	e.logIn(t, true)
	e.client.listTemplatesFn = func(ctx context.Context) ([]api.Template, error) {
		return []api.Template{
			{ID: "t1"},
			{ID: "t2", IsDefault: true},
			{ID: "t3"},
		}, nil
	}
	svc := NewTemplateService(e.client, e.state, e.log)
	_, err := svc.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, "t2", svc.SelectedID())

	require.NoError(t, svc.Delete(context.Background(), "t2"))
	require.Len(t, svc.Templates(), 2)
	// default is gone, first remaining wins
	require.Equal(t, "t1", svc.SelectedID())
}

func TestTemplateDeleteUnselectedKeepsSelection(t *testing.T) {
	e := newTestEnv(t)
	e.logIn(t, true)
	e.client.listTemplatesFn = func(ctx context.Context) ([]api.Template, error) {
		return []api.Template{{ID: "t1", IsDefault: true}, {ID: "t2"}}, nil
	}
	svc := NewTemplateService(e.client, e.state, e.log)
	_, err := svc.Fetch(context.Background())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), "t2"))
	require.Equal(t, "t1", svc.SelectedID())
}

func TestTemplateDeleteLastClearsSelection(t *testing.T) {
	e := newTestEnv(t)
	e.logIn(t, true)
	e.client.listTemplatesFn = func(ctx context.Context) ([]api.Template, error) {
		return []api.Template{{ID: "t1"}}, nil
	}
	svc := NewTemplateService(e.client, e.state, e.log)
	_, err := svc.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, "t1", svc.SelectedID())

	require.NoError(t, svc.Delete(context.Background(), "t1"))
	require.Empty(t, svc.Templates())
	require.Empty(t, svc.SelectedID())
}

func TestTemplateErrorIsScoped(t *testing.T) {
	e := newTestEnv(t)
	e.logIn(t, true)
	e.client.listTemplatesFn = func(ctx context.Context) ([]api.Template, error) {
		return nil, errors.New("boom")
	}
	svc := NewTemplateService(e.client, e.state, e.log)

	_, err := svc.Fetch(context.Background())
	require.Error(t, err)
	require.Equal(t, "Failed to fetch templates", svc.Err())
	// template failures never touch the shared notifier
	require.Empty(t, e.notifier.Error())
}

func TestTemplateUnauthorizedForcesLogout(t *testing.T) {
	e := newTestEnv(t)
	e.logIn(t, true)
	e.client.listTemplatesFn = func(ctx context.Context) ([]api.Template, error) {
		return nil, common.ErrUnauthorized
	}
	svc := NewTemplateService(e.client, e.state, e.log)

	_, err := svc.Fetch(context.Background())
	require.Error(t, err)
	require.False(t, e.state.IsSessionValid())
	require.Equal(t, "Authentication required. Please log in to continue.", svc.Err())
}
