package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"testing"
	"time"

	"github.com/dom/chatbot-web/internal/client"
	"github.com/dom/chatbot-web/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type toast struct {
	ID   string
	Kind client.ToastKind
	Text string
}

type recordingNotifier struct {
	mu     sync.Mutex
	toasts []toast
}

func (n *recordingNotifier) Notify(id string, kind client.ToastKind, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.toasts = append(n.toasts, toast{ID: id, Kind: kind, Text: text})
}

func (n *recordingNotifier) last(id string) (toast, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.toasts) - 1; i >= 0; i-- {
		if n.toasts[i].ID == id {
			return n.toasts[i], true
		}
	}
	return toast{}, false
}

func newAPI(t *testing.T, ts *testutil.TestServer) *client.APIClient {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return client.NewAPIClient(ts.BaseURL(), jar)
}

func signedUpView(t *testing.T, ts *testutil.TestServer) (*client.ChatView, *recordingNotifier) {
	t.Helper()
	api := newAPI(t, ts)
	_, err := api.Signup(context.Background(), "Ann", "ann@example.com", "pw123")
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	view := client.NewChatView(api, notifier)
	require.NoError(t, view.Mount(context.Background()))
	return view, notifier
}

func TestChatView_MountWithoutSession(t *testing.T) {
	ts := testutil.NewTestServer(t)
	notifier := &recordingNotifier{}
	view := client.NewChatView(newAPI(t, ts), notifier)

	err := view.Mount(context.Background())
	assert.ErrorIs(t, err, client.ErrLoginRequired)
	assert.Nil(t, view.User())

	_, ok := notifier.last(client.ToastLoadChats)
	assert.False(t, ok)
}

func TestChatView_Mount(t *testing.T) {
	ts := testutil.NewTestServer(t)
	view, notifier := signedUpView(t, ts)

	require.NotNil(t, view.User())
	assert.Equal(t, "Ann", view.User().Name)
	assert.Empty(t, view.Chats())

	last, ok := notifier.last(client.ToastLoadChats)
	require.True(t, ok)
	assert.Equal(t, client.ToastSuccess, last.Kind)
}

func TestChatView_Submit(t *testing.T) {
	ts := testutil.NewTestServer(t)
	ts.Completion.Reply("Hello Ann")
	view, _ := signedUpView(t, ts)

	require.NoError(t, view.Submit(context.Background(), "hi"))

	assert.Equal(t, []client.Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "Hello Ann"},
	}, view.Chats())
}

func TestChatView_SubmitEmpty(t *testing.T) {
	ts := testutil.NewTestServer(t)
	view, _ := signedUpView(t, ts)

	assert.ErrorIs(t, view.Submit(context.Background(), "   "), client.ErrEmptyMessage)
	assert.Equal(t, 0, ts.Completion.CallCount())
}

func TestChatView_SubmitFailureDropsOptimisticEntry(t *testing.T) {
	ts := testutil.NewTestServer(t)
	view, notifier := signedUpView(t, ts)
	ts.Completion.FailWith(http.StatusInternalServerError)

	err := view.Submit(context.Background(), "hi")
	require.Error(t, err)

	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)

	assert.Empty(t, view.Chats())
	last, ok := notifier.last(client.ToastSendChat)
	require.True(t, ok)
	assert.Equal(t, client.ToastError, last.Kind)
}

func TestChatView_SubmitWhileSending(t *testing.T) {
	ts := testutil.NewTestServer(t)
	view, _ := signedUpView(t, ts)
	ts.Completion.Delay(300 * time.Millisecond)

	done := make(chan error, 1)
	go func() {
		done <- view.Submit(context.Background(), "first")
	}()

	require.Eventually(t, func() bool {
		return len(view.Chats()) == 1
	}, time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, view.Submit(context.Background(), "second"), client.ErrSendInProgress)

	require.NoError(t, <-done)
	chats := view.Chats()
	require.Len(t, chats, 2)
	assert.Equal(t, "first", chats[0].Content)
	assert.Equal(t, 1, ts.Completion.CallCount())
}

func TestChatView_SubmitAfterLogout(t *testing.T) {
	ts := testutil.NewTestServer(t)
	api := newAPI(t, ts)
	_, err := api.Signup(context.Background(), "Ann", "ann@example.com", "pw123")
	require.NoError(t, err)

	view := client.NewChatView(api, &recordingNotifier{})
	require.NoError(t, view.Mount(context.Background()))
	require.NoError(t, api.Logout(context.Background()))

	err = view.Submit(context.Background(), "hi")
	assert.ErrorIs(t, err, client.ErrLoginRequired)
	assert.ErrorIs(t, err, client.ErrUnauthorized)
	assert.Equal(t, 0, ts.Completion.CallCount())
}

func TestChatView_Clear(t *testing.T) {
	ts := testutil.NewTestServer(t)
	view, notifier := signedUpView(t, ts)
	require.NoError(t, view.Submit(context.Background(), "hi"))

	require.NoError(t, view.Clear(context.Background()))
	assert.Empty(t, view.Chats())

	last, ok := notifier.last(client.ToastDeleteChats)
	require.True(t, ok)
	assert.Equal(t, client.ToastSuccess, last.Kind)

	// The server copy is gone as well.
	require.NoError(t, view.Mount(context.Background()))
	assert.Empty(t, view.Chats())
}
