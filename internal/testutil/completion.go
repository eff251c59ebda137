package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// DefaultCompletionReply is returned when no replies are queued
const DefaultCompletionReply = "This is a test reply"

// FakeCompletionRequest is what the fake server recorded for one call
type FakeCompletionRequest struct {
	Model    string
	Messages []FakeCompletionMessage
}

type FakeCompletionMessage struct {
	Role    string
	Content string
}

// FakeCompletionServer speaks the chat completions wire format
type FakeCompletionServer struct {
	Server *httptest.Server

	mu       sync.Mutex
	replies  []string
	requests []FakeCompletionRequest
	status   int
	delay    time.Duration
	noChoice bool
}

// NewFakeCompletionServer starts a fake completion API closed on test cleanup
func NewFakeCompletionServer(t *testing.T) *FakeCompletionServer {
	t.Helper()

	f := &FakeCompletionServer{}
	f.Server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the base URL to configure the completion client with
func (f *FakeCompletionServer) URL() string {
	return f.Server.URL + "/v1/"
}

// Reply queues replies returned in order by subsequent calls
func (f *FakeCompletionServer) Reply(replies ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, replies...)
}

// FailWith makes every following call return the given HTTP status
func (f *FakeCompletionServer) FailWith(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
}

// EmptyChoices makes every following call answer with an empty choices list
func (f *FakeCompletionServer) EmptyChoices() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.noChoice = true
}

// Delay makes every following call wait before answering
func (f *FakeCompletionServer) Delay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay = d
}

// Requests returns a copy of all recorded requests
func (f *FakeCompletionServer) Requests() []FakeCompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]FakeCompletionRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

// CallCount returns how many completion calls were received
func (f *FakeCompletionServer) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *FakeCompletionServer) handle(w http.ResponseWriter, r *http.Request) {
	if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
		http.NotFound(w, r)
		return
	}

	var body struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string          `json:"role"`
			Content json.RawMessage `json:"content"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error":{"message":"bad request"}}`, http.StatusBadRequest)
		return
	}

	req := FakeCompletionRequest{Model: body.Model}
	for _, m := range body.Messages {
		req.Messages = append(req.Messages, FakeCompletionMessage{
			Role:    m.Role,
			Content: flattenContent(m.Content),
		})
	}

	f.mu.Lock()
	f.requests = append(f.requests, req)
	status := f.status
	delay := f.delay
	noChoice := f.noChoice
	reply := DefaultCompletionReply
	if len(f.replies) > 0 {
		reply = f.replies[0]
		f.replies = f.replies[1:]
	}
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")

	if status != 0 {
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"error":{"message":"fake failure","type":"server_error","code":"%d"}}`, status)
		return
	}

	choices := []map[string]any{
		{
			"index":         0,
			"finish_reason": "stop",
			"message": map[string]any{
				"role":    "assistant",
				"content": reply,
			},
		},
	}
	if noChoice {
		choices = []map[string]any{}
	}

	resp := map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   body.Model,
		"choices": choices,
		"usage": map[string]any{
			"prompt_tokens":     len(body.Messages) * 10,
			"completion_tokens": len(strings.Fields(reply)),
			"total_tokens":      len(body.Messages)*10 + len(strings.Fields(reply)),
		},
	}
	json.NewEncoder(w).Encode(resp)
}

// flattenContent accepts both the string form and the content-parts form.
func flattenContent(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var parts []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parts); err == nil {
		var b strings.Builder
		for _, p := range parts {
			b.WriteString(p.Text)
		}
		return b.String()
	}

	return string(raw)
}
