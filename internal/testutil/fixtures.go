package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"testing"
	"time"

	"github.com/dom/chatbot-web/internal/domain"
	"github.com/dom/chatbot-web/internal/repository"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// UserBuilder creates test users with a builder pattern
type UserBuilder struct {
	name     string
	email    string
	password string
}

// NewUserBuilder creates a new UserBuilder with default values
func NewUserBuilder() *UserBuilder {
	suffix := uuid.New().String()[:8]
	return &UserBuilder{
		name:     fmt.Sprintf("Test User %s", suffix),
		email:    fmt.Sprintf("user_%s@example.com", suffix),
		password: "testpassword123",
	}
}

// WithName sets the display name
func (b *UserBuilder) WithName(name string) *UserBuilder {
	b.name = name
	return b
}

// WithEmail sets the email
func (b *UserBuilder) WithEmail(email string) *UserBuilder {
	b.email = email
	return b
}

// WithPassword sets the password
func (b *UserBuilder) WithPassword(password string) *UserBuilder {
	b.password = password
	return b
}

// Build stores the user through the repository and returns it with the raw password
func (b *UserBuilder) Build(t *testing.T, users repository.UserRepository) (*domain.User, string) {
	t.Helper()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(b.password), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &domain.User{
		ID:           uuid.New(),
		Name:         b.name,
		Email:        strings.ToLower(b.email),
		PasswordHash: string(hashedPassword),
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := users.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	return user, b.password
}

// AuthResponse matches the API auth response
type AuthResponse struct {
	Message string `json:"message"`
	Name    string `json:"name"`
	Email   string `json:"email"`
}

// ChatsResponse matches the API chat responses
type ChatsResponse struct {
	Message string           `json:"message"`
	Chats   []domain.Message `json:"chats"`
}

// ErrorResponse matches the API error envelope
type ErrorResponse struct {
	Message string `json:"message"`
	Cause   string `json:"cause"`
}

// NewSessionClient returns an HTTP client that keeps cookies between requests
func NewSessionClient(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("failed to create cookie jar: %v", err)
	}
	return &http.Client{Jar: jar, Timeout: 30 * time.Second}
}

// BuildAndAuthenticate signs the user up via the API and returns the stored
// user together with a client holding the session cookie
func (b *UserBuilder) BuildAndAuthenticate(t *testing.T, ts *TestServer) (*domain.User, *http.Client) {
	t.Helper()

	client := NewSessionClient(t)
	resp := DoJSON(t, client, http.MethodPost, ts.APIURL("/user/signup"), map[string]string{
		"name":     b.name,
		"email":    b.email,
		"password": b.password,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status code: %d", resp.StatusCode)
	}

	user, err := ts.Repos.User.GetByEmail(context.Background(), strings.ToLower(b.email))
	if err != nil {
		t.Fatalf("failed to load signed up user: %v", err)
	}

	return user, client
}

// NewJSONRequest creates an HTTP request with an optional JSON body
func NewJSONRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()

	var bodyReader *bytes.Buffer
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		bodyReader = bytes.NewBuffer(jsonBody)
	} else {
		bodyReader = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, url, bodyReader)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return req
}

// DoJSON sends a JSON request with the given client
func DoJSON(t *testing.T, client *http.Client, method, url string, body interface{}) *http.Response {
	t.Helper()

	resp, err := client.Do(NewJSONRequest(t, method, url, body))
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, url, err)
	}
	return resp
}

// SeedMessages appends messages for a user directly through the repository
func SeedMessages(t *testing.T, chats repository.ChatRepository, userID uuid.UUID, messages ...domain.Message) {
	t.Helper()

	if err := chats.Append(context.Background(), userID, messages...); err != nil {
		t.Fatalf("failed to seed messages: %v", err)
	}
}
