package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jobrefme/jobrefme-cli/internal/client/api"
	"github.com/jobrefme/jobrefme-cli/internal/client/state"
	"github.com/jobrefme/jobrefme-cli/internal/common"
	"github.com/jobrefme/jobrefme-cli/internal/logging"
)

const errTemplateAuthRequired = "Authentication required. Please log in to continue."

// TemplateService owns the template list and the selection. Template errors
// stay inside this service (the Err field); they never touch the job state
// machine.
type TemplateService struct {
	client api.Client
	state  *state.Manager
	log    logging.Logger

	mu        sync.Mutex
	templates []api.Template
	lastErr   string
}

func NewTemplateService(client api.Client, st *state.Manager, log logging.Logger) *TemplateService {
	return &TemplateService{client: client, state: st, log: log}
}

// Templates returns the current local list.
func (t *TemplateService) Templates() []api.Template {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]api.Template, len(t.templates))
	copy(out, t.templates)
	return out
}

// Err returns the template-scoped error message, or "".
func (t *TemplateService) Err() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}

// SelectedID returns the currently selected template id, or "".
func (t *TemplateService) SelectedID() string {
	return t.state.SelectedTemplateID()
}

// Fetch loads the template list. When nothing is selected yet, the
// server-flagged default wins, else the first entry.
func (t *TemplateService) Fetch(ctx context.Context) ([]api.Template, error) {
	if !t.state.IsSessionValid() {
		t.setErr(errTemplateAuthRequired)
		return nil, common.ErrUnauthorized
	}

	templates, err := t.client.ListTemplates(ctx)
	if err != nil {
		t.fail(ctx, err, "Failed to fetch templates")
		return nil, fmt.Errorf("fetch templates: %w", err)
	}

	t.mu.Lock()
	t.templates = templates
	t.lastErr = ""
	t.mu.Unlock()

	if t.state.SelectedTemplateID() == "" && len(templates) > 0 {
		t.state.SetSelectedTemplateID(ctx, pickDefault(templates))
	}
	return templates, nil
}

// Create adds a template. When the new template is flagged default, every
// sibling loses the flag locally, matching server behavior.
func (t *TemplateService) Create(ctx context.Context, nt api.NewTemplate) (*api.Template, error) {
	if !t.state.IsSessionValid() {
		t.setErr(errTemplateAuthRequired)
		return nil, common.ErrUnauthorized
	}

	created, err := t.client.CreateTemplate(ctx, nt)
	if err != nil {
		t.fail(ctx, err, "Failed to create template")
		return nil, fmt.Errorf("create template: %w", err)
	}

	t.mu.Lock()
	t.templates = append(t.templates, *created)
	if created.IsDefault {
		t.templates = applyDefaultExclusivity(t.templates, created.ID)
	}
	t.lastErr = ""
	t.mu.Unlock()

	return created, nil
}

// Update applies a partial update to one template.
func (t *TemplateService) Update(ctx context.Context, id string, patch api.TemplatePatch) (*api.Template, error) {
	if !t.state.IsSessionValid() {
		t.setErr(errTemplateAuthRequired)
		return nil, common.ErrUnauthorized
	}

	updated, err := t.client.UpdateTemplate(ctx, id, patch)
	if err != nil {
		t.fail(ctx, err, "Failed to update template")
		return nil, fmt.Errorf("update template: %w", err)
	}

	t.mu.Lock()
	for i := range t.templates {
		if t.templates[i].ID == id {
			t.templates[i] = *updated
			break
		}
	}
	if updated.IsDefault {
		t.templates = applyDefaultExclusivity(t.templates, updated.ID)
	}
	t.lastErr = ""
	t.mu.Unlock()

	return updated, nil
}

// Delete removes a template. If it was selected, selection falls back to
// the remaining default, else the first remaining entry, else nothing.
func (t *TemplateService) Delete(ctx context.Context, id string) error {
	if !t.state.IsSessionValid() {
		t.setErr(errTemplateAuthRequired)
		return common.ErrUnauthorized
	}

	if err := t.client.DeleteTemplate(ctx, id); err != nil {
		t.fail(ctx, err, "Failed to delete template")
		return fmt.Errorf("delete template: %w", err)
	}

	t.mu.Lock()
	kept := t.templates[:0]
	for _, tpl := range t.templates {
		if tpl.ID != id {
			kept = append(kept, tpl)
		}
	}
	t.templates = kept
	remaining := make([]api.Template, len(kept))
	copy(remaining, kept)
	t.lastErr = ""
	t.mu.Unlock()

	if t.state.SelectedTemplateID() == id {
		t.state.SetSelectedTemplateID(ctx, pickDefault(remaining))
	}
	return nil
}

// SetSelected is a pure local state change; no network involved.
func (t *TemplateService) SetSelected(ctx context.Context, id string) {
	t.state.SetSelectedTemplateID(ctx, id)
}

func (t *TemplateService) setErr(msg string) {
	t.mu.Lock()
	t.lastErr = msg
	t.mu.Unlock()
}

func (t *TemplateService) fail(ctx context.Context, err error, msg string) {
	if errors.Is(err, common.ErrUnauthorized) {
		t.log.Warn(ctx, "template operation unauthorized, forcing logout")
		t.state.ClearSession(ctx)
		t.setErr(errTemplateAuthRequired)
		return
	}
	t.setErr(msg)
}

// applyDefaultExclusivity clears IsDefault on every template except keepID.
// Centralized so create and update cannot drift apart.
func applyDefaultExclusivity(templates []api.Template, keepID string) []api.Template {
	for i := range templates {
		if templates[i].ID != keepID {
			templates[i].IsDefault = false
		}
	}
	return templates
}

// pickDefault returns the id of the default template, else the first, else "".
func pickDefault(templates []api.Template) string {
	for _, t := range templates {
		if t.IsDefault {
			return t.ID
		}
	}
	if len(templates) > 0 {
		return templates[0].ID
	}
	return ""
}
