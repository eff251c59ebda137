package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrUnauthorized matches any 401 answer from the backend.
var ErrUnauthorized = errors.New("not authenticated")

// Message is one chat entry as sent over the wire.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// User is the identity returned by the user endpoints.
type User struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// APIError carries the status and cause of a failed request.
type APIError struct {
	Status int
	Cause  string
}

func (e *APIError) Error() string {
	if e.Cause == "" {
		return fmt.Sprintf("request failed (status %d)", e.Status)
	}
	return fmt.Sprintf("request failed (status %d): %s", e.Status, e.Cause)
}

func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

type userResponse struct {
	Message string `json:"message"`
	Name    string `json:"name"`
	Email   string `json:"email"`
}

type chatsResponse struct {
	Message string    `json:"message"`
	Chats   []Message `json:"chats"`
}

type errorResponse struct {
	Message string `json:"message"`
	Cause   string `json:"cause"`
}

// APIClient handles HTTP communication with the backend. The session cookie
// lives in the client's cookie jar.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClient creates a new API client. jar may be nil for a client that
// never authenticates.
func NewAPIClient(baseURL string, jar http.CookieJar) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/") + "/api/v1",
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: 90 * time.Second,
		},
	}
}

// Signup creates an account and starts a session
func (c *APIClient) Signup(ctx context.Context, name, email, password string) (*User, error) {
	body := map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	}

	var result userResponse
	if err := c.do(ctx, http.MethodPost, "/user/signup", body, nil, &result); err != nil {
		return nil, fmt.Errorf("signup: %w", err)
	}
	return &User{Name: result.Name, Email: result.Email}, nil
}

// Login starts a session for an existing account
func (c *APIClient) Login(ctx context.Context, email, password string) (*User, error) {
	body := map[string]string{
		"email":    email,
		"password": password,
	}

	var result userResponse
	if err := c.do(ctx, http.MethodPost, "/user/login", body, nil, &result); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return &User{Name: result.Name, Email: result.Email}, nil
}

// AuthStatus returns the user of the current session
func (c *APIClient) AuthStatus(ctx context.Context) (*User, error) {
	var result userResponse
	if err := c.do(ctx, http.MethodGet, "/user/auth-status", nil, nil, &result); err != nil {
		return nil, fmt.Errorf("auth status: %w", err)
	}
	return &User{Name: result.Name, Email: result.Email}, nil
}

// Logout ends the current session
func (c *APIClient) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodGet, "/user/logout", nil, nil, nil); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// AllChats returns the stored conversation
func (c *APIClient) AllChats(ctx context.Context) ([]Message, error) {
	var result chatsResponse
	if err := c.do(ctx, http.MethodGet, "/chat/all-chats", nil, nil, &result); err != nil {
		return nil, fmt.Errorf("load chats: %w", err)
	}
	return result.Chats, nil
}

// NewChat sends a message and returns the full conversation including the
// reply. A non-empty idempotencyKey makes retries of the same send safe.
func (c *APIClient) NewChat(ctx context.Context, message, idempotencyKey string) ([]Message, error) {
	headers := map[string]string{}
	if idempotencyKey != "" {
		headers["Idempotency-Key"] = idempotencyKey
	}

	var result chatsResponse
	body := map[string]string{"message": message}
	if err := c.do(ctx, http.MethodPost, "/chat/new", body, headers, &result); err != nil {
		return nil, fmt.Errorf("send chat: %w", err)
	}
	return result.Chats, nil
}

// DeleteChats clears the conversation
func (c *APIClient) DeleteChats(ctx context.Context) error {
	if err := c.do(ctx, http.MethodDelete, "/chat/delete", nil, nil, nil); err != nil {
		return fmt.Errorf("delete chats: %w", err)
	}
	return nil
}

// HTTP helpers

func (c *APIClient) do(ctx context.Context, method, path string, body any, headers map[string]string, out any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		var errBody errorResponse
		if json.Unmarshal(bodyBytes, &errBody) != nil || errBody.Cause == "" {
			errBody.Cause = strings.TrimSpace(string(bodyBytes))
		}
		return &APIError{Status: resp.StatusCode, Cause: errBody.Cause}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
