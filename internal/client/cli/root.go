package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
)

// getStatus renders the prompt decoration: user name when logged in, and
// the workflow phase when something is running.
func (a *App) getStatus() string {
	s := ""
	if u := a.state.User(); u != nil && u.DisplayName != "" {
		s = u.DisplayName
	} else if a.isLoggedIn() {
		s = "authenticated"
	}
	if task := a.jobs.Snapshot(); task.Status.InFlight() {
		if s != "" {
			s += " "
		}
		s += string(task.Status)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

func (a *App) Root(ctx context.Context) {
	fmt.Println("Welcome to JobRefMe CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	if a.isLoggedIn() {
		// refresh profile and templates in the background of the first prompt
		if _, err := a.user.FetchProfile(ctx); err != nil {
			a.log.Warn(ctx, "initial profile refresh failed", "error", err)
		}
		if _, err := a.templates.Fetch(ctx); err != nil {
			a.log.Warn(ctx, "initial template fetch failed", "error", err)
		}
	}

	runREPL(ctx, a, a.getStatus, scanner)
}
