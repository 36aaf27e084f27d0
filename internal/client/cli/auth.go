package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/jobrefme/jobrefme-cli/internal/client/detect"
)

// getSimpleText and getSecret are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getSecret = GetSecret

// Login opens the Google sign-in page in the browser. The identity provider
// redirects to the configured callback URL with a token; the user pastes it
// back via the callback command.
func (a *App) Login(ctx context.Context) error {
	if err := a.auth.Login(ctx); err != nil {
		fmt.Println(a.notifier.Error())
		return err
	}
	fmt.Println("Opening browser for Google sign-in...")
	fmt.Println("After signing in, paste the token here with: callback <token>")
	return nil
}

// Callback installs the token from the OAuth redirect and bootstraps the
// profile and template list.
func (a *App) Callback(ctx context.Context, args []string) error {
	token := ""
	if len(args) > 0 {
		token = args[0]
	} else {
		t, err := getSimpleText(a.reader, "Paste the token from the redirect URL", os.Stdout)
		if err != nil {
			return err
		}
		token = t
	}
	if token == "" {
		fmt.Println("Usage: callback <token>")
		return nil
	}

	if !a.auth.HandleAuthCallback(ctx, token) {
		fmt.Println(a.notifier.Error())
		return nil
	}

	if u := a.state.User(); u != nil {
		fmt.Printf("Logged in as %s (%s)\n", u.DisplayName, u.Email)
	}
	if _, err := a.templates.Fetch(ctx); err != nil {
		a.log.Warn(ctx, "template fetch after login failed", "error", err)
	}
	if !a.state.HasAPIKey() {
		fmt.Println("No Gemini API key configured yet. Use 'apikey' to add one.")
	}
	return nil
}

// Logout clears the session everywhere, including the other surface.
func (a *App) Logout(ctx context.Context) error {
	a.auth.Logout(ctx)
	fmt.Println("Logged out.")
	return nil
}

// Status prints a one-screen summary of session, detection and workflow state.
func (a *App) Status(ctx context.Context) error {
	snap := a.state.Snapshot()
	if snap.SessionValid {
		name := "unknown"
		if snap.User != nil {
			name = snap.User.Email
		}
		fmt.Printf("Session:  valid (%s), expires %s\n", name, snap.TokenExpiry.Format("2006-01-02 15:04"))
	} else {
		fmt.Println("Session:  not logged in")
	}
	fmt.Printf("API key:  configured=%v\n", snap.HasAPIKey)
	if snap.SelectedTemplateID != "" {
		fmt.Printf("Template: %s\n", snap.SelectedTemplateID)
	}

	if url, supported := detect.Current(ctx, a.store); url != "" {
		fmt.Printf("Page:     %s (job posting: %v)\n", url, supported)
	}
	if a.jobs.CheckForSelectedContent(ctx) {
		fmt.Println("Capture:  selected job content waiting (use 'generate')")
	}

	task := a.jobs.Snapshot()
	fmt.Printf("Workflow: %s\n", task.Status)
	if task.ErrorMessage != "" {
		fmt.Printf("Error:    %s\n", task.ErrorMessage)
	}
	if task.Referral != nil {
		fmt.Printf("Result:   %s at %s\n", task.Referral.JobTitle, task.Referral.CompanyName)
	}
	if msg := a.notifier.Success(); msg != "" {
		fmt.Println(msg)
	}
	return nil
}

// Profile refreshes and prints the user profile.
func (a *App) Profile(ctx context.Context) error {
	p, err := a.user.FetchProfile(ctx)
	if err != nil {
		fmt.Printf("Failed to fetch profile: %v\n", err)
		return err
	}
	fmt.Printf("Name:     %s\n", p.DisplayName)
	fmt.Printf("Email:    %s\n", p.Email)
	fmt.Printf("API key:  configured=%v\n", p.HasAPIKey)
	if p.ProfilePicture != "" {
		fmt.Printf("Picture:  %s\n", p.ProfilePicture)
	}
	return nil
}
