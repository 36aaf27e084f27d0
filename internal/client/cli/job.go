package cli

import (
	"context"
	"fmt"

	"github.com/jobrefme/jobrefme-cli/internal/client/detect"
)

// Generate runs the referral workflow. With an explicit URL argument it
// generates for that posting; without one it prefers captured page content,
// falling back to the last detected job page.
func (a *App) Generate(ctx context.Context, args []string) error {
	if len(args) > 0 {
		return a.generateForURL(ctx, args[0])
	}

	if a.jobs.CheckForSelectedContent(ctx) {
		fmt.Println("Generating from captured job content...")
		if err := a.jobs.GenerateFromContent(ctx); err != nil {
			fmt.Println(a.jobs.Snapshot().ErrorMessage)
			return err
		}
		a.printReferral()
		return nil
	}

	url, supported := detect.Current(ctx, a.store)
	if url == "" || !supported {
		fmt.Println("No job posting detected. Open a HireJobs job page or pass a URL: generate <url>")
		return nil
	}
	return a.generateForURL(ctx, url)
}

func (a *App) generateForURL(ctx context.Context, url string) error {
	fmt.Printf("Generating referral for %s ...\n", url)
	if err := a.jobs.GenerateFromURL(ctx, url); err != nil {
		fmt.Println(a.jobs.Snapshot().ErrorMessage)
		return err
	}
	a.printReferral()
	return nil
}

// Retry clears the backend's cached extraction for the failed job URL and
// generates again from scratch.
func (a *App) Retry(ctx context.Context) error {
	fmt.Println("Clearing cached data and retrying...")
	if err := a.jobs.ClearCacheAndRetry(ctx); err != nil {
		fmt.Println(a.jobs.Snapshot().ErrorMessage)
		return err
	}
	a.printReferral()
	return nil
}

// Reset returns the workflow to idle, dropping result and error state.
func (a *App) Reset(ctx context.Context) error {
	a.jobs.Reset()
	fmt.Println("Workflow reset.")
	return nil
}

// ClearCache drops the cached extraction for the current or failed job URL
// without regenerating.
func (a *App) ClearCache(ctx context.Context) error {
	task := a.jobs.Snapshot()
	url := task.ErrorJobURL
	if url == "" {
		url = task.JobURL
	}
	if url == "" {
		fmt.Println("Nothing to clear: no job URL in the current workflow.")
		return nil
	}

	// reuse the retry path's cache clear without the regeneration
	ok, err := a.jobs.ClearCacheOnly(ctx, url)
	if err != nil || !ok {
		fmt.Println("Failed to clear cache for this job URL")
		return err
	}
	fmt.Println("Cache cleared.")
	return nil
}

func (a *App) printReferral() {
	task := a.jobs.Snapshot()
	if task.Referral == nil {
		return
	}
	fmt.Println()
	if task.Referral.JobTitle != "" {
		fmt.Printf("--- %s at %s ---\n", task.Referral.JobTitle, task.Referral.CompanyName)
	}
	fmt.Println(task.Referral.Message)
	fmt.Println()
}
