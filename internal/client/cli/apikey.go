package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/jobrefme/jobrefme-cli/internal/common"
)

// APIKey reads a Gemini API key without echo and stores it on the backend.
// The key itself never touches the local store, only the configured flag.
func (a *App) APIKey(ctx context.Context) error {
	key, err := getSecret(os.Stdout, "Enter Gemini API key")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(key)

	if len(key) == 0 {
		fmt.Println("Nothing entered.")
		return nil
	}

	if err := a.user.StoreAPIKey(ctx, string(key)); err != nil {
		fmt.Println(a.notifier.Error())
		return err
	}
	fmt.Println(a.notifier.Success())
	return nil
}

// DelKey removes the stored Gemini API key from the backend.
func (a *App) DelKey(ctx context.Context) error {
	if err := a.user.DeleteAPIKey(ctx); err != nil {
		fmt.Println(a.notifier.Error())
		return err
	}
	fmt.Println(a.notifier.Success())
	return nil
}

// VerifyKey asks the backend whether a key is on file and refreshes the
// local flag.
func (a *App) VerifyKey(ctx context.Context) error {
	has, err := a.user.VerifyAPIKey(ctx)
	if err != nil {
		fmt.Printf("Verification failed: %v\n", err)
		return err
	}
	if has {
		fmt.Println("A Gemini API key is configured.")
	} else {
		fmt.Println("No Gemini API key configured.")
	}
	return nil
}
