package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Shobayosamuel/cloudbox-go/internal/api"
	"github.com/Shobayosamuel/cloudbox-go/internal/config"
	"github.com/Shobayosamuel/cloudbox-go/internal/session"
	"github.com/Shobayosamuel/cloudbox-go/internal/share"
	"github.com/Shobayosamuel/cloudbox-go/internal/transfer"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagServerURL  string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// resolvedCfg holds the effective configuration loaded by PersistentPreRunE.
var resolvedCfg *config.Config

// httpClientTimeout bounds every request so a hung connection cannot block
// a CLI command indefinitely.
const httpClientTimeout = 30 * time.Second

// userAgent identifies this client to the server.
const userAgent = "cloudbox-go/0.1"

// newRootCmd builds the fully-assembled root command. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "cloudbox",
		Short:   "Cloudbox CLI client",
		Long:    "A CLI client for the Cloudbox file-storage service: upload, download, and share files.",
		Version: version,
		// Silence Cobra's default error/usage printing — we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadConfig()
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagServerURL, "server", "", "server base URL override")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newRegisterCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newWhoamiCmd())
	cmd.AddCommand(newLsCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newPutCmd())
	cmd.AddCommand(newRmCmd())
	cmd.AddCommand(newShareCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newWatchCmd())

	return cmd
}

// loadConfig resolves the effective configuration and stores it in
// resolvedCfg for use by subcommands. The --server flag outranks both the
// config file and the environment.
func loadConfig() error {
	env := config.ReadEnvOverrides()

	cfg, err := config.Resolve(env, flagConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if flagServerURL != "" {
		cfg.ServerURL = flagServerURL
	}

	resolvedCfg = cfg

	return nil
}

// buildLogger creates an slog.Logger from the resolved config and CLI
// flags. Config provides the baseline; --verbose and --quiet win.
func buildLogger() *slog.Logger {
	level := slog.LevelInfo

	if resolvedCfg != nil {
		switch resolvedCfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// appContext bundles the wired components for a command invocation.
type appContext struct {
	logger    *slog.Logger
	store     *session.Store
	client    *api.Client
	transfers *transfer.Manager
	shares    *share.Manager
}

// buildApp wires session store, API client, and managers from the
// resolved config. Constructed once per command; every component shares
// the same store, preserving the single-flight refresh guarantee.
func buildApp() (*appContext, error) {
	logger := buildLogger()

	store, err := session.Open(config.DefaultSessionPath(), logger)
	if err != nil {
		return nil, err
	}

	client := api.NewClient(api.Options{
		BaseURL:    resolvedCfg.ServerURL,
		HTTPClient: &http.Client{Timeout: httpClientTimeout},
		Store:      store,
		Logger:     logger,
		UserAgent:  userAgent,
		OnSessionExpired: func() {
			fmt.Fprintln(os.Stderr, "Session expired. Run `cloudbox login` to sign in again.")
		},
	})

	return &appContext{
		logger:    logger,
		store:     store,
		client:    client,
		transfers: transfer.NewManager(client, logger),
		shares:    share.NewManager(client, resolvedCfg.ShareURL, logger),
	}, nil
}

// historyDBPath returns the transfer ledger location under the state dir.
func historyDBPath() string {
	return filepath.Join(resolvedCfg.StateDir, "history.db")
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
