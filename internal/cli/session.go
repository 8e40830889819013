package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/freshcart/basket/internal/auth"
)

func newLoginCmd(cfgFile *string) *cobra.Command {
	var creds auth.Credentials

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		Long: `Sign in with an email and password. The session is saved so later
commands and the TUI start signed in.

If --password is omitted it is read from the first line of stdin:
  echo "$BASKET_PASSWORD" | basket login --email me@example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if creds.Password == "" {
				pw, err := readLine(cmd.InOrStdin())
				if err != nil {
					return err
				}
				creds.Password = pw
			}
			creds.Email = strings.TrimSpace(creds.Email)
			if err := creds.Validate(); err != nil {
				return err
			}

			e, err := setup(*cfgFile, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.Close()

			s, err := e.sessions.Login(contextOf(cmd), creds)
			if err != nil {
				return fmt.Errorf("login failed: %s", auth.DisplayMessage(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", describeUser(s.User))
			return nil
		},
	}
	cmd.Flags().StringVar(&creds.Email, "email", "", "account email")
	cmd.Flags().StringVar(&creds.Password, "password", "", "account password (default: read from stdin)")
	cmd.MarkFlagRequired("email")
	return cmd
}

func newRegisterCmd(cfgFile *string) *cobra.Command {
	u := auth.NewUser{Role: "Customer"}

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Long: `Create an account. On success the new account is signed in and the
session saved, exactly like login.

Roles: Customer, Staff, Admin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if u.Password == "" {
				pw, err := readLine(cmd.InOrStdin())
				if err != nil {
					return err
				}
				u.Password = pw
			}
			u.Username = strings.TrimSpace(u.Username)
			u.Email = strings.TrimSpace(u.Email)
			if err := u.Validate(); err != nil {
				return err
			}

			e, err := setup(*cfgFile, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.Close()

			s, err := e.sessions.Register(contextOf(cmd), u)
			if err != nil {
				return fmt.Errorf("registration failed: %s", auth.DisplayMessage(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered and signed in as %s\n", describeUser(s.User))
			return nil
		},
	}
	cmd.Flags().StringVar(&u.Username, "username", "", "display name")
	cmd.Flags().StringVar(&u.Email, "email", "", "account email")
	cmd.Flags().StringVar(&u.Password, "password", "", "account password (default: read from stdin)")
	cmd.Flags().StringVar(&u.Role, "role", u.Role, "account role")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(*cfgFile, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := contextOf(cmd)
			if s := e.restore(ctx); !s.Authenticated() {
				fmt.Fprintln(cmd.OutOrStdout(), "Not signed in")
				return nil
			}
			e.sessions.Logout(ctx)
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func newWhoamiCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(*cfgFile, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.Close()

			s := e.restore(contextOf(cmd))
			if !s.Authenticated() {
				fmt.Fprintln(cmd.OutOrStdout(), "Not signed in")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), describeUser(s.User))
			return nil
		},
	}
}

func describeUser(u *auth.User) string {
	if u == nil {
		return ""
	}
	if u.Role == "" {
		return u.Name
	}
	return fmt.Sprintf("%s (%s)", u.Name, u.Role)
}

// readLine reads one line, without its newline, for passwords piped in.
func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
