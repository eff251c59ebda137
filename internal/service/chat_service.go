package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/dom/chatbot-web/internal/archive"
	"github.com/dom/chatbot-web/internal/completion"
	"github.com/dom/chatbot-web/internal/domain"
	"github.com/dom/chatbot-web/internal/repository"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

var (
	ErrCompletionFailed  = errors.New("completion request failed")
	ErrCompletionTimeout = errors.New("completion request timed out")
)

// ChatEvents receives conversation changes for live delivery.
type ChatEvents interface {
	ChatUpdated(userID uuid.UUID, chats []domain.Message)
	ChatCleared(userID uuid.UUID)
}

type noopEvents struct{}

func (noopEvents) ChatUpdated(uuid.UUID, []domain.Message) {}
func (noopEvents) ChatCleared(uuid.UUID)                   {}

type ChatService struct {
	userRepo      repository.UserRepository
	chatRepo      repository.ChatRepository
	completer     completion.Completer
	archiver      archive.Archiver
	events        ChatEvents
	historyWindow int
}

func NewChatService(
	userRepo repository.UserRepository,
	chatRepo repository.ChatRepository,
	completer completion.Completer,
	archiver archive.Archiver,
	events ChatEvents,
	historyWindow int,
) *ChatService {
	if events == nil {
		events = noopEvents{}
	}
	return &ChatService{
		userRepo:      userRepo,
		chatRepo:      chatRepo,
		completer:     completer,
		archiver:      archiver,
		events:        events,
		historyWindow: historyWindow,
	}
}

func (s *ChatService) ensureUser(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return ErrUserNotRegistered
		}
		return fmt.Errorf("lookup user: %w", err)
	}
	return nil
}

// AppendAndRespond stores the user's message, asks the completion API for a
// reply and stores that too. The user message stays stored when the
// completion fails.
func (s *ChatService) AppendAndRespond(ctx context.Context, userID uuid.UUID, content string) ([]domain.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, domain.ErrEmptyMessage
	}
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}

	history, err := s.chatRepo.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	userMsg := domain.NewUserMessage(content)
	if err := s.chatRepo.Append(ctx, userID, userMsg); err != nil {
		return nil, fmt.Errorf("append user message: %w", err)
	}

	prompt := s.window(append(history, userMsg))
	reply, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		if errors.Is(err, completion.ErrTimeout) {
			return nil, fmt.Errorf("%w: %w", ErrCompletionTimeout, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrCompletionFailed, err)
	}

	assistantMsg := domain.NewAssistantMessage(reply.Content)
	assistantMsg.Metadata = datatypes.JSONMap{
		domain.MetadataModel:            reply.Model,
		domain.MetadataPromptTokens:     reply.PromptTokens,
		domain.MetadataCompletionTokens: reply.CompletionTokens,
	}
	if err := s.chatRepo.Append(ctx, userID, assistantMsg); err != nil {
		return nil, fmt.Errorf("append assistant message: %w", err)
	}

	chats, err := s.chatRepo.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	s.events.ChatUpdated(userID, chats)
	return chats, nil
}

func (s *ChatService) window(messages []domain.Message) []domain.Message {
	if s.historyWindow <= 0 || len(messages) <= s.historyWindow {
		return messages
	}
	return messages[len(messages)-s.historyWindow:]
}

func (s *ChatService) GetHistory(ctx context.Context, userID uuid.UUID) ([]domain.Message, error) {
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}

	chats, err := s.chatRepo.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return chats, nil
}

// ClearHistory archives a non-empty conversation and then empties it.
func (s *ChatService) ClearHistory(ctx context.Context, userID uuid.UUID) error {
	if err := s.ensureUser(ctx, userID); err != nil {
		return err
	}

	chats, err := s.chatRepo.List(ctx, userID)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	if len(chats) > 0 {
		key, err := s.archiver.Archive(ctx, userID, chats)
		if err != nil {
			log.Printf("ERROR [service.ClearHistory] archive for user %s failed: %v", userID, err)
		} else if key != "" {
			log.Printf("Archived %d messages for user %s to %s", len(chats), userID, key)
		}
	}

	if err := s.chatRepo.Clear(ctx, userID); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}

	s.events.ChatCleared(userID)
	return nil
}
