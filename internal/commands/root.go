package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/skemmarize/skemmarize-cli/internal/api"
	"github.com/skemmarize/skemmarize-cli/internal/auth"
	"github.com/skemmarize/skemmarize-cli/internal/config"
	"github.com/skemmarize/skemmarize-cli/internal/history"
)

var (
	// Global flags
	endpointFlag string

	// Shared instances (initialized in initGlobals)
	cfg          *config.Config
	sessionStore *auth.SessionStore
	apiClient    *api.Client
	histStore    *history.Store
)

// Execute is the entry point called from main.go.
func Execute(version, commit, date string) {
	root := newRootCommand(version, commit, date)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand(version, commit, date string) *cobra.Command {
	root := &cobra.Command{
		Use:   "skemmarize",
		Short: "skemmarize CLI — AI image summarization from the terminal",
		Long: `skemmarize uploads images to the Skemmarize backend for AI summarization
and keeps a local chat-style history of the exchanges.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initGlobals()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	root.PersistentFlags().StringVar(&endpointFlag, "endpoint", "", "Override the API endpoint URL")

	// Register all subcommands
	root.AddCommand(newLoginCommand())
	root.AddCommand(newLogoutCommand())
	root.AddCommand(newWhoamiCommand())
	root.AddCommand(newSummarizeCommand())
	root.AddCommand(newHistoryCommand())
	root.AddCommand(newConfigCommand())

	return root
}

// initGlobals loads config and initializes the shared session store, API
// client and history store.
func initGlobals() error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Allow --endpoint flag to override config.
	if endpointFlag != "" {
		cfg.Endpoint = endpointFlag
	}

	sessionStore = auth.NewSessionStore()
	histStore = history.New()
	rebuildAPIClient(cfg.Endpoint)

	return nil
}

// rebuildAPIClient (re)creates the shared API client, wiring the refresh
// timeout and the session-expiry hook. Called from initGlobals and again
// when a command changes the endpoint.
func rebuildAPIClient(endpoint string) {
	apiClient = api.NewClient(endpoint, cfg.TimeoutSeconds, sessionStore)

	if cfg.RefreshTimeoutSeconds > 0 {
		apiClient.SetRefreshTimeout(time.Duration(cfg.RefreshTimeoutSeconds) * time.Second)
	}

	// The CLI's login surface: when the refresh credential is rejected the
	// transport clears the session and lands the user here.
	apiClient.OnSessionExpired(func() {
		fmt.Fprintln(os.Stderr, "Session expired. Run `skemmarize login`.")
	})
}

// mustLoadSession loads the session or exits with a login hint. The command
// guard for everything behind authentication.
func mustLoadSession() *auth.Session {
	session := sessionStore.Load()
	if session == nil {
		fmt.Fprintln(os.Stderr, "Not authenticated. Run `skemmarize login`.")
		os.Exit(1)
	}
	return session
}
