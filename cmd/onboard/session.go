package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/forgo/saga/onboarding/internal/wizard"
)

var stepsJSON bool

var stepsCmd = &cobra.Command{
	Use:   "steps",
	Short: "List the questionnaire steps",
	RunE: func(cmd *cobra.Command, args []string) error {
		steps := wizard.DefaultCatalog().Steps()
		if stepsJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(steps)
		}
		for _, s := range steps {
			fmt.Fprintf(cmd.OutOrStdout(), "%2d. %-22s %-16s %s\n", s.Number, s.Title, s.Kind, strings.Join(s.Fields(), ", "))
		}
		return nil
	},
}

var payloadCmd = &cobra.Command{
	Use:   "payload",
	Short: "Print the submission payload of the saved session",
	Long: `Print the flattened answers that would be submitted. If any question is
still unanswered, the missing fields are listed instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadSettings()
		if err != nil {
			return err
		}
		engine, store, err := openEngine(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		payload, err := engine.BuildSubmissionPayload()
		var missing *wizard.MissingFieldsError
		if errors.As(err, &missing) {
			if saved, ok, serr := store.UpdatedAt(cmd.Context(), cfg.Session); serr == nil && ok {
				fmt.Fprintf(os.Stderr, "Session %q last saved %s (%d%% complete).\n",
					cfg.Session, saved.Local().Format(time.RFC1123), engine.CompletionPercentage())
			}
			fmt.Fprintln(os.Stderr, "Unanswered fields:")
			for _, f := range missing.Fields {
				fmt.Fprintf(os.Stderr, "  - %s\n", f)
			}
			for _, f := range missing.Invalid {
				fmt.Fprintf(os.Stderr, "  - %s (invalid value)\n", f)
			}
			return fmt.Errorf("questionnaire incomplete (%d fields missing, %d invalid)", len(missing.Fields), len(missing.Invalid))
		}
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Discard the saved session and start over",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadSettings()
		if err != nil {
			return err
		}
		engine, store, err := openEngine(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := engine.Reset(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Session %q reset.\n", cfg.Session)
		return nil
	},
}

func init() {
	stepsCmd.Flags().BoolVar(&stepsJSON, "json", false, "Output as JSON")
}
