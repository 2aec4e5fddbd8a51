package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/forgo/saga/onboarding/internal/clientconfig"
	"github.com/forgo/saga/onboarding/internal/sessionstore"
	"github.com/forgo/saga/onboarding/internal/wizard"
)

var (
	// Global flags
	configFile string
	apiURL     string
	token      string
	dbPath     string
	sessionKey string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Fill in the Saga onboarding questionnaire from the terminal",
	Long: `Walk through the onboarding questionnaire step by step. Answers are
saved locally as you go, so you can quit and pick up where you left off.
When every question is answered the profile is submitted to the API.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", clientconfig.DefaultPath(), "Path to the client config file")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Profile API base URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "Bearer token (overrides config)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Local session database path (overrides config)")
	rootCmd.PersistentFlags().StringVar(&sessionKey, "session", "", "Local session name (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log engine warnings to stderr")

	rootCmd.AddCommand(stepsCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(payloadCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(devTokenCmd)
}

// loadSettings reads the config file and applies flag overrides
func loadSettings() (clientconfig.Config, error) {
	cfg, err := clientconfig.Load(configFile)
	if err != nil {
		return cfg, err
	}
	if apiURL != "" {
		cfg.APIURL = apiURL
	}
	if token != "" {
		cfg.Token = token
	}
	if dbPath != "" {
		cfg.Database = dbPath
	}
	if sessionKey != "" {
		cfg.Session = sessionKey
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid settings in %s: %w", configFile, err)
	}
	return cfg, nil
}

func newLogger() *slog.Logger {
	level := slog.LevelError
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openEngine opens the local store and rehydrates the saved session.
// Callers close the returned store.
func openEngine(ctx context.Context, cfg clientconfig.Config) (*wizard.Engine, *sessionstore.Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Database), 0o700); err != nil {
		return nil, nil, fmt.Errorf("create session dir: %w", err)
	}
	store, err := sessionstore.Open(cfg.Database)
	if err != nil {
		return nil, nil, err
	}

	engine, err := wizard.New(ctx, wizard.DefaultCatalog(), store.Session(cfg.Session), wizard.WithLogger(newLogger()))
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return engine, store, nil
}
