package main

import (
	"context"
	"fmt"

	"github.com/dom/chatbot-web/internal/client"
	"github.com/spf13/cobra"
)

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account and log in",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		reader := lineReader(cmd.InOrStdin())
		name, err := readLine(reader, "Name: ", out)
		if err != nil {
			return err
		}
		email, err := readLine(reader, "Email: ", out)
		if err != nil {
			return err
		}
		password, err := getPassword(cmd.InOrStdin(), out)
		if err != nil {
			return err
		}

		user, err := s.api.Signup(cmd.Context(), name, email, password)
		if err != nil {
			return err
		}
		if err := s.save(); err != nil {
			return err
		}

		fmt.Fprintf(out, "Welcome, %s!\n", user.Name)
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to an existing account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}

		user, err := promptLogin(cmd.Context(), cmd, s)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s <%s>\n", user.Name, user.Email)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the current session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}

		// The local session is dropped even when the server rejects the call.
		logoutErr := s.api.Logout(cmd.Context())
		if err := s.store.Clear(); err != nil {
			return err
		}
		if logoutErr != nil && !isUnauthorized(logoutErr) {
			return logoutErr
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}

		user, err := s.api.AuthStatus(cmd.Context())
		if isUnauthorized(err) {
			return fmt.Errorf("not logged in, run 'chat login'")
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s <%s>\n", user.Name, user.Email)
		return nil
	},
}

func promptLogin(ctx context.Context, cmd *cobra.Command, s *session) (*client.User, error) {
	out := cmd.OutOrStdout()
	reader := lineReader(cmd.InOrStdin())

	email, err := readLine(reader, "Email: ", out)
	if err != nil {
		return nil, err
	}
	password, err := getPassword(cmd.InOrStdin(), out)
	if err != nil {
		return nil, err
	}

	user, err := s.api.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := s.save(); err != nil {
		return nil, err
	}
	return user, nil
}

func init() {
	rootCmd.AddCommand(signupCmd, loginCmd, logoutCmd, whoamiCmd)
}
