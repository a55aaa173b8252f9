// Package commands implements the examprep command line client. Every command prints
// JSON on stdout; logs, telemetry and notices go to stderr.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/examprep/client-go/config"
	"github.com/examprep/client-go/httpclient"
	"github.com/examprep/client-go/logger"
	"github.com/examprep/client-go/observability"
	"github.com/examprep/client-go/services"
	"github.com/examprep/client-go/session"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Version is set at build time with
// -ldflags "-X github.com/examprep/client-go/internal/commands.Version=v1.0.0".
var Version = "dev"

// sessionExpiredNotice is printed when a refresh fails and the user was signed out.
const sessionExpiredNotice = "Session expired. Run `examprep login` to sign in again."

type rootFlags struct {
	configFile string
	verbose    bool
}

// env is the wiring shared by the subcommands. It is built once per invocation by
// the root's PersistentPreRunE.
type env struct {
	flags rootFlags

	cfg       *config.Config
	log       logger.Logger
	store     *session.FileStore
	auth      *session.SupabaseProvider // nil when Supabase is not configured
	api       *services.Services
	telemetry observability.Provider
}

// NewRootCmd returns the examprep command tree.
func NewRootCmd() *cobra.Command {
	cmd, _ := newRoot()
	return cmd
}

func newRoot() (*cobra.Command, *env) {
	e := &env{}

	root := &cobra.Command{
		Use:   "examprep",
		Short: "Command line client for the exam-prep API",
		Long: `examprep talks to the exam-prep REST API on behalf of a signed-in user.

Examples:
  # Sign in, reading the password from stdin
  echo "$PASSWORD" | examprep login --email ana@example.com --password-stdin

  # List math questions
  examprep questions list --subject math --limit 10

  # Dashboard summary for the last 30 days
  examprep analytics overview --period 30d`,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return e.setup(cmd) },
	}

	root.PersistentFlags().StringVar(&e.flags.configFile, "config", "",
		"path to a YAML config file (default ./config.yaml when present)")
	root.PersistentFlags().BoolVarP(&e.flags.verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(
		newVersionCmd(),
		newLoginCmd(e),
		newLogoutCmd(e),
		newWhoamiCmd(e),
		newQuestionsCmd(e),
		newSimulationsCmd(e),
		newEssaysCmd(e),
		newAnalyticsCmd(e),
	)
	return root, e
}

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context) int {
	cmd, e := newRoot()
	defer e.close()

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return 1
	}
	return 0
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFile(path)
}

func (e *env) setup(cmd *cobra.Command) error {
	cfg, err := loadConfig(e.flags.configFile)
	if err != nil {
		return err
	}
	e.cfg = cfg

	level := cfg.Log.Level
	if e.flags.verbose {
		level = "debug"
	}
	e.log = logger.NewWithOptions(logger.Options{
		Level:  level,
		Pretty: cfg.Log.Pretty,
		Output: cmd.ErrOrStderr(),
	})

	e.telemetry, err = observability.NewProvider(e.log, cfg.App, cfg.Observability,
		observability.WithWriter(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}

	e.store, err = session.NewFileStore(cfg.Session.File)
	if err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	b := newAPIClientBuilder(e.log, &cfg.API).
		WithSessionExpiredHandler(func(context.Context, error) {
			fmt.Fprintln(stderr, sessionExpiredNotice)
		})

	if config.IsSupabaseConfigured(&cfg.Supabase) {
		auth, err := session.NewSupabaseProvider(e.log, &cfg.Supabase, e.store,
			session.WithTimeout(cfg.API.Timeout))
		if err != nil {
			return err
		}
		e.auth = auth
		b = b.WithSessionProvider(auth)
	}

	e.api = services.New(b.Build())
	return nil
}

// newAPIClientBuilder maps the api section of the configuration onto a client builder.
func newAPIClientBuilder(log logger.Logger, cfg *config.APIConfig) *httpclient.Builder {
	return httpclient.NewBuilder(log).
		WithBaseURL(cfg.BaseURL).
		WithTimeout(cfg.Timeout).
		WithRetries(cfg.Retries, cfg.RetryDelay).
		WithMaxRetryDelay(cfg.MaxRetryDelay).
		WithRateLimit(cfg.Rate.Limit, cfg.Rate.Burst).
		WithLogPayloads(cfg.LogPayloads, cfg.MaxPayloadLogBytes)
}

func (e *env) close() {
	if e.telemetry == nil {
		return
	}
	if err := observability.Shutdown(e.telemetry, 0); err != nil && e.log != nil {
		e.log.Warn().Err(err).Msg("Telemetry shutdown failed")
	}
	e.telemetry = nil
}

// requireAuth returns the session provider or explains how to configure one.
func (e *env) requireAuth() (*session.SupabaseProvider, error) {
	if e.auth == nil {
		return nil, config.NewNotConfiguredError("supabase auth",
			config.EnvVarName("supabase.url"), "supabase.url")
	}
	return e.auth, nil
}

// errNotSignedIn is returned by commands that need a stored session.
var errNotSignedIn = errors.New("not signed in: run `examprep login` first")

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", out)
	return err
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the client version",
		Args:  cobra.NoArgs,
		// Runs without configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printJSON(cmd.OutOrStdout(), map[string]string{"version": Version})
		},
	}
}
