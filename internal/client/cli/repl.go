package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Callback(ctx context.Context, args []string) error
	Logout(ctx context.Context) error
	Status(ctx context.Context) error
	Profile(ctx context.Context) error
	Generate(ctx context.Context, args []string) error
	Retry(ctx context.Context) error
	Reset(ctx context.Context) error
	Templates(ctx context.Context) error
	AddTemplate(ctx context.Context) error
	EditTemplate(ctx context.Context, args []string) error
	DelTemplate(ctx context.Context, args []string) error
	Select(ctx context.Context, args []string) error
	APIKey(ctx context.Context) error
	DelKey(ctx context.Context) error
	VerifyKey(ctx context.Context) error
	ClearCache(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the JobRefMe CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Any errors returned by command handlers are ignored here; handlers print
// their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		fmt.Printf("jrm %s> ", statusFn())
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: status, profile, generate [url], retry, reset, clearcache,")
				printlnFn("  templates, addtemplate, edittemplate <id>, deltemplate <id>, select <id>,")
				printlnFn("  apikey, delkey, verifykey, logout, exit")
			} else {
				printlnFn("Available commands: login, callback <token>, status, exit")
			}

		case "login":
			_ = a.Login(ctx)

		case "callback":
			_ = a.Callback(ctx, args)

		case "logout":
			_ = a.Logout(ctx)

		case "status":
			_ = a.Status(ctx)

		case "profile":
			_ = a.Profile(ctx)

		case "generate":
			_ = a.Generate(ctx, args)

		case "retry":
			_ = a.Retry(ctx)

		case "reset":
			_ = a.Reset(ctx)

		case "clearcache":
			_ = a.ClearCache(ctx)

		case "templates":
			_ = a.Templates(ctx)

		case "addtemplate":
			_ = a.AddTemplate(ctx)

		case "edittemplate":
			_ = a.EditTemplate(ctx, args)

		case "deltemplate":
			_ = a.DelTemplate(ctx, args)

		case "select":
			_ = a.Select(ctx, args)

		case "apikey":
			_ = a.APIKey(ctx)

		case "delkey":
			_ = a.DelKey(ctx)

		case "verifykey":
			_ = a.VerifyKey(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
