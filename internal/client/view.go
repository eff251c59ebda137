package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrLoginRequired  = errors.New("login required")
	ErrSendInProgress = errors.New("a message is already being sent")
	ErrEmptyMessage   = errors.New("message is empty")
)

// ChatView holds the local copy of the conversation. The server's answer is
// always authoritative: every successful call replaces the local list.
type ChatView struct {
	api      *APIClient
	notifier Notifier

	mu      sync.Mutex
	user    *User
	chats   []Message
	sending bool
}

func NewChatView(api *APIClient, notifier Notifier) *ChatView {
	return &ChatView{api: api, notifier: notifier}
}

// Mount checks the session and loads the stored conversation.
func (v *ChatView) Mount(ctx context.Context) error {
	user, err := v.api.AuthStatus(ctx)
	if errors.Is(err, ErrUnauthorized) {
		return ErrLoginRequired
	}
	if err != nil {
		return err
	}

	v.mu.Lock()
	v.user = user
	v.mu.Unlock()

	v.notifier.Notify(ToastLoadChats, ToastLoading, "Loading chats")
	chats, err := v.api.AllChats(ctx)
	if err != nil {
		v.notifier.Notify(ToastLoadChats, ToastError, "Loading failed")
		return err
	}

	v.mu.Lock()
	v.chats = chats
	v.mu.Unlock()

	v.notifier.Notify(ToastLoadChats, ToastSuccess, "Successfully loaded chats")
	return nil
}

// Submit sends one user message. The message shows up locally right away and
// is dropped again if the send fails.
func (v *ChatView) Submit(ctx context.Context, content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyMessage
	}

	v.mu.Lock()
	if v.sending {
		v.mu.Unlock()
		return ErrSendInProgress
	}
	v.sending = true
	optimistic := len(v.chats)
	v.chats = append(v.chats, Message{Role: "user", Content: content})
	v.mu.Unlock()

	chats, err := v.api.NewChat(ctx, content, uuid.NewString())

	v.mu.Lock()
	defer v.mu.Unlock()
	v.sending = false

	if err != nil {
		if optimistic < len(v.chats) {
			v.chats = append(v.chats[:optimistic], v.chats[optimistic+1:]...)
		}
		v.notifier.Notify(ToastSendChat, ToastError, "Sending failed")
		if errors.Is(err, ErrUnauthorized) {
			return fmt.Errorf("%w: %w", ErrLoginRequired, err)
		}
		return err
	}

	v.chats = chats
	return nil
}

// Clear deletes the stored conversation and empties the local list.
func (v *ChatView) Clear(ctx context.Context) error {
	v.notifier.Notify(ToastDeleteChats, ToastLoading, "Deleting Chats")
	if err := v.api.DeleteChats(ctx); err != nil {
		v.notifier.Notify(ToastDeleteChats, ToastError, "Deleting Chats failed")
		return err
	}

	v.mu.Lock()
	v.chats = nil
	v.mu.Unlock()

	v.notifier.Notify(ToastDeleteChats, ToastSuccess, "Deleted Chats successfully")
	return nil
}

// Chats returns a copy of the local conversation.
func (v *ChatView) Chats() []Message {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]Message, len(v.chats))
	copy(out, v.chats)
	return out
}

// User returns the mounted user, nil before Mount succeeded.
func (v *ChatView) User() *User {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.user
}
