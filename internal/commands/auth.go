package commands

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/examprep/client-go/session"
)

// passwordEnv is read by login when --password-stdin is not given.
const passwordEnv = "EXAMPREP_PASSWORD"

type sessionInfo struct {
	User      session.User `json:"user"`
	ExpiresAt time.Time    `json:"expires_at"`
	Expired   bool         `json:"expired"`
	File      string       `json:"file"`
}

func (e *env) describeSession(s *session.Session) sessionInfo {
	return sessionInfo{
		User:      s.User,
		ExpiresAt: s.ExpiresAt,
		Expired:   s.Expired(time.Now(), 0),
		File:      e.store.Path(),
	}
}

func newLoginCmd(e *env) *cobra.Command {
	var (
		email         string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Long: `Sign in against Supabase auth and store the session on disk.

The password is read from stdin with --password-stdin, otherwise from the
` + passwordEnv + ` environment variable.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			auth, err := e.requireAuth()
			if err != nil {
				return err
			}

			password := os.Getenv(passwordEnv)
			if passwordStdin {
				if password, err = readPassword(cmd); err != nil {
					return err
				}
			}
			if password == "" {
				return fmt.Errorf("no password given: use --password-stdin or set %s", passwordEnv)
			}

			s, err := auth.SignInWithPassword(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), e.describeSession(s))
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func readPassword(cmd *cobra.Command) (string, error) {
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newLogoutCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and remove the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			auth, err := e.requireAuth()
			if err != nil {
				return err
			}
			if err := auth.SignOut(cmd.Context()); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]bool{"signed_out": true})
		},
	}
}

func newWhoamiCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			auth, err := e.requireAuth()
			if err != nil {
				return err
			}
			s, err := auth.Session(cmd.Context())
			if errors.Is(err, session.ErrNoSession) {
				return errNotSignedIn
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), e.describeSession(s))
		},
	}
}
