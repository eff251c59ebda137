package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"os"
	"time"

	"github.com/dom/chatbot-web/internal/client"
)

const (
	demoName     = "Demo User"
	demoPassword = "demopassword123"
)

var demoQuestions = []string{
	"Hi! What can you help me with?",
	"Give me three tips for learning Go.",
	"Summarize our conversation in one sentence.",
}

func main() {
	apiURL := "http://localhost:5000"
	if envURL := os.Getenv("API_URL"); envURL != "" {
		apiURL = envURL
	}

	email := fmt.Sprintf("demo_%d@example.com", time.Now().UnixNano()%100000)
	if len(os.Args) > 1 {
		email = os.Args[1]
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		fmt.Printf("Failed to create cookie jar: %v\n", err)
		os.Exit(1)
	}
	api := client.NewAPIClient(apiURL, jar)
	ctx := context.Background()

	fmt.Println("=== Seeding demo conversation ===")
	fmt.Println()

	fmt.Printf("Creating user %s... ", email)
	user, err := api.Signup(ctx, demoName, email, demoPassword)
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
		fmt.Print("exists, logging in... ")
		user, err = api.Login(ctx, email, demoPassword)
	}
	if err != nil {
		fmt.Printf("FAILED\n  Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("OK (%s)\n", user.Name)

	view := client.NewChatView(api, client.NewTerminalNotifier(os.Stdout, true))
	if err := view.Mount(ctx); err != nil {
		fmt.Printf("Failed to load chats: %v\n", err)
		os.Exit(1)
	}

	for i, q := range demoQuestions {
		fmt.Printf("[%d/%d] %s\n", i+1, len(demoQuestions), q)
		if err := view.Submit(ctx, q); err != nil {
			fmt.Printf("  Failed: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Println()
	fmt.Print(client.RenderConversation(view.User(), view.Chats()))
	fmt.Println()
	fmt.Println("=== Done ===")
	fmt.Printf("Log in with: %s / %s\n", email, demoPassword)
}
