package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dom/chatbot-web/internal/client"
	"github.com/spf13/cobra"
)

var (
	serverURL   string
	sessionPath string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "chat",
	Short: "Terminal client for the chatbot server",
	Long: `Talk to the chatbot from your terminal.

Quick Start:
  chat signup            # Create an account
  chat                   # Start an interactive conversation
  chat history           # Print the stored conversation
  chat clear             # Delete the stored conversation`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive(cmd)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	defaultURL := os.Getenv("CHAT_SERVER_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:5000"
	}

	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultURL, "Chatbot server URL (env CHAT_SERVER_URL)")
	rootCmd.PersistentFlags().StringVar(&sessionPath, "session", "", "Session file (default is the user config dir)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show progress notifications")
}

// session bundles what every command needs: an API client whose cookie jar
// is loaded from, and saved back to, the session file.
type session struct {
	api   *client.APIClient
	store *client.SessionStore
	save  func() error
}

func openSession() (*session, error) {
	path := sessionPath
	if path == "" {
		var err error
		path, err = client.DefaultSessionPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve session path: %w", err)
		}
	}

	store, err := client.NewSessionStore(path, serverURL)
	if err != nil {
		return nil, err
	}
	jar, err := store.Load()
	if err != nil {
		return nil, err
	}

	return &session{
		api:   client.NewAPIClient(serverURL, jar),
		store: store,
		save:  func() error { return store.Save(jar) },
	}, nil
}

// mountView opens the chat view, asking for credentials when the stored
// session is missing or expired.
func mountView(ctx context.Context, cmd *cobra.Command, s *session) (*client.ChatView, error) {
	view := client.NewChatView(s.api, client.NewTerminalNotifier(cmd.OutOrStdout(), verbose))

	err := view.Mount(ctx)
	if errors.Is(err, client.ErrLoginRequired) {
		fmt.Fprintln(cmd.OutOrStdout(), "You are not logged in.")
		if _, err := promptLogin(ctx, cmd, s); err != nil {
			return nil, err
		}
		err = view.Mount(ctx)
	}
	if err != nil {
		return nil, err
	}
	return view, nil
}
