package completion_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/dom/chatbot-web/internal/completion"
	"github.com/dom/chatbot-web/internal/domain"
	"github.com/dom/chatbot-web/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(fake *testutil.FakeCompletionServer, mutate func(o *completion.Options)) *completion.OpenAIClient {
	opts := completion.Options{
		APIKey:      "test-key",
		BaseURL:     fake.URL(),
		Model:       "gpt-test",
		Temperature: -1,
		Timeout:     2 * time.Second,
	}
	if mutate != nil {
		mutate(&opts)
	}
	return completion.NewOpenAIClient(opts)
}

func TestOpenAIClient_Complete(t *testing.T) {
	fake := testutil.NewFakeCompletionServer(t)
	fake.Reply("Hello! How can I help?")
	client := newClient(fake, nil)

	history := []domain.Message{
		domain.NewUserMessage("hi"),
		domain.NewAssistantMessage("hello"),
		domain.NewUserMessage("how are you?"),
	}

	reply, err := client.Complete(context.Background(), history)
	require.NoError(t, err)
	assert.Equal(t, "Hello! How can I help?", reply.Content)
	assert.Equal(t, "gpt-test", reply.Model)
	assert.Equal(t, int64(30), reply.PromptTokens)
	assert.Equal(t, int64(5), reply.CompletionTokens)

	requests := fake.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, "gpt-test", requests[0].Model)
	assert.Equal(t, []testutil.FakeCompletionMessage{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
		{Role: "user", Content: "how are you?"},
	}, requests[0].Messages)
}

func TestOpenAIClient_SystemPrompt(t *testing.T) {
	fake := testutil.NewFakeCompletionServer(t)
	client := newClient(fake, func(o *completion.Options) {
		o.SystemPrompt = "You are terse."
	})

	_, err := client.Complete(context.Background(), []domain.Message{domain.NewUserMessage("hi")})
	require.NoError(t, err)

	requests := fake.Requests()
	require.Len(t, requests, 1)
	require.Len(t, requests[0].Messages, 2)
	assert.Equal(t, "system", requests[0].Messages[0].Role)
	assert.Equal(t, "You are terse.", requests[0].Messages[0].Content)
}

func TestOpenAIClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(f *testutil.FakeCompletionServer)
		timeout time.Duration
		input   []domain.Message
		wantErr error
	}{
		{
			name:    "no messages",
			input:   nil,
			wantErr: completion.ErrNoMessages,
		},
		{
			name:    "timeout",
			setup:   func(f *testutil.FakeCompletionServer) { f.Delay(2 * time.Second) },
			timeout: 200 * time.Millisecond,
			input:   []domain.Message{domain.NewUserMessage("hi")},
			wantErr: completion.ErrTimeout,
		},
		{
			name:    "empty choices",
			setup:   func(f *testutil.FakeCompletionServer) { f.EmptyChoices() },
			input:   []domain.Message{domain.NewUserMessage("hi")},
			wantErr: completion.ErrEmptyReply,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testutil.NewFakeCompletionServer(t)
			if tt.setup != nil {
				tt.setup(fake)
			}
			client := newClient(fake, func(o *completion.Options) {
				if tt.timeout > 0 {
					o.Timeout = tt.timeout
				}
			})

			_, err := client.Complete(context.Background(), tt.input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestOpenAIClient_UpstreamFailureNotRetried(t *testing.T) {
	fake := testutil.NewFakeCompletionServer(t)
	fake.FailWith(http.StatusInternalServerError)
	client := newClient(fake, nil)

	_, err := client.Complete(context.Background(), []domain.Message{domain.NewUserMessage("hi")})
	require.Error(t, err)
	assert.False(t, errors.Is(err, completion.ErrTimeout))
	assert.Equal(t, 1, fake.CallCount())
}
