package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dom/chatbot-web/internal/client"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the stored conversation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		view, err := mountView(cmd.Context(), cmd, s)
		if err != nil {
			return err
		}

		fmt.Fprint(cmd.OutOrStdout(), client.RenderConversation(view.User(), view.Chats()))
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the stored conversation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		view, err := mountView(cmd.Context(), cmd, s)
		if err != nil {
			return err
		}
		return view.Clear(cmd.Context())
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation (/clear, /quit)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive(cmd)
	},
}

func runInteractive(cmd *cobra.Command) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	s, err := openSession()
	if err != nil {
		return err
	}
	view, err := mountView(ctx, cmd, s)
	if err != nil {
		return err
	}

	fmt.Fprint(out, client.RenderConversation(view.User(), view.Chats()))
	reader := lineReader(cmd.InOrStdin())

	for {
		line, err := readLine(reader, "> ", out)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch strings.TrimSpace(line) {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/clear":
			if err := view.Clear(ctx); err != nil {
				fmt.Fprintf(out, "%v\n", err)
			}
			continue
		}

		before := len(view.Chats())
		if err := view.Submit(ctx, line); err != nil {
			if errors.Is(err, client.ErrLoginRequired) {
				return fmt.Errorf("session expired, run 'chat login'")
			}
			fmt.Fprintf(out, "%v\n", err)
			continue
		}

		chats := view.Chats()
		name := view.User().Name
		for _, msg := range chats[min(before+1, len(chats)):] {
			fmt.Fprintln(out, client.RenderMessage(msg, name))
		}
	}
}

func isUnauthorized(err error) bool {
	return errors.Is(err, client.ErrUnauthorized)
}

func init() {
	rootCmd.AddCommand(historyCmd, clearCmd, chatCmd)
}
