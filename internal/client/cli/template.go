package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/jobrefme/jobrefme-cli/internal/client/api"
)

// Templates fetches and lists the message templates. The selected one is
// marked with '*', the server default with '(default)'.
func (a *App) Templates(ctx context.Context) error {
	templates, err := a.templates.Fetch(ctx)
	if err != nil {
		fmt.Println(a.templates.Err())
		return err
	}
	if len(templates) == 0 {
		fmt.Println("No templates yet. Use 'addtemplate' to create one.")
		return nil
	}

	selected := a.templates.SelectedID()
	for _, t := range templates {
		marker := " "
		if t.ID == selected {
			marker = "*"
		}
		suffix := ""
		if t.IsDefault {
			suffix = " (default)"
		}
		fmt.Printf("%s %s  %s%s\n", marker, t.ID, t.Name, suffix)
	}
	return nil
}

// AddTemplate interactively creates a template. The content may embed the
// {jobTitle}, {companyName} and {skills} placeholders.
func (a *App) AddTemplate(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Template name", os.Stdout)
	if err != nil {
		return err
	}
	content, err := GetMultiline(a.reader, "Template content ({jobTitle}, {companyName}, {skills} are substituted)", os.Stdout)
	if err != nil {
		return err
	}
	isDefault, err := GetYesNo(a.reader, "Make this the default template?", os.Stdout)
	if err != nil {
		return err
	}

	created, err := a.templates.Create(ctx, api.NewTemplate{Name: name, Content: content, IsDefault: isDefault})
	if err != nil {
		fmt.Println(a.templates.Err())
		return err
	}
	fmt.Printf("Created template %s\n", created.ID)
	return nil
}

// EditTemplate interactively updates one template. Empty answers leave the
// corresponding field unchanged.
func (a *App) EditTemplate(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Println("Usage: edittemplate <id>")
		return nil
	}
	id := args[0]

	name, err := getSimpleText(a.reader, "New name (empty to keep)", os.Stdout)
	if err != nil {
		return err
	}
	content, err := GetMultiline(a.reader, "New content (empty to keep)", os.Stdout)
	if err != nil {
		return err
	}
	makeDefault, err := GetYesNo(a.reader, "Make this the default template?", os.Stdout)
	if err != nil {
		return err
	}

	patch := api.TemplatePatch{}
	if name != "" {
		patch.Name = &name
	}
	if content != "" {
		patch.Content = &content
	}
	if makeDefault {
		patch.IsDefault = &makeDefault
	}

	if _, err := a.templates.Update(ctx, id, patch); err != nil {
		fmt.Println(a.templates.Err())
		return err
	}
	fmt.Println("Template updated.")
	return nil
}

// DelTemplate deletes a template; selection falls back per the service rules.
func (a *App) DelTemplate(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Println("Usage: deltemplate <id>")
		return nil
	}
	if err := a.templates.Delete(ctx, args[0]); err != nil {
		fmt.Println(a.templates.Err())
		return err
	}
	fmt.Println("Template deleted.")
	return nil
}

// Select marks a template as the one used for generation. Pure local state;
// the agent surface sees it through the store.
func (a *App) Select(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Println("Usage: select <id>")
		return nil
	}
	a.templates.SetSelected(ctx, args[0])
	fmt.Printf("Selected template %s\n", args[0])
	return nil
}
