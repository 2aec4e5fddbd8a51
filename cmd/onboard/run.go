package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forgo/saga/onboarding/internal/tui"
	"github.com/forgo/saga/onboarding/internal/wizard"
	"github.com/forgo/saga/onboarding/pkg/profileclient"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Answer the questionnaire interactively",
	RunE:  runWizard,
}

func runWizard(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings()
	if err != nil {
		return err
	}
	if cfg.Token == "" {
		return errors.New("no token configured: pass --token or run 'onboard dev-token --save'")
	}

	ctx := cmd.Context()
	engine, store, err := openEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	client := profileclient.New(cfg.APIURL, cfg.Token)
	submit := func(ctx context.Context, payload wizard.Payload) error {
		_, err := client.SubmitOnboarding(ctx, payload)
		return err
	}

	submitted, err := tui.Run(ctx, engine, submit)
	if err != nil {
		return err
	}
	if submitted {
		fmt.Fprintln(cmd.OutOrStdout(), "Profile saved. Welcome aboard!")
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "Progress saved. Run 'onboard run' to continue.")
	}
	return nil
}
