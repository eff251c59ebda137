package service

import (
	"github.com/dom/chatbot-web/internal/archive"
	"github.com/dom/chatbot-web/internal/completion"
	"github.com/dom/chatbot-web/internal/config"
	"github.com/dom/chatbot-web/internal/repository"
)

type Services struct {
	Auth *AuthService
	Chat *ChatService
}

func NewServices(repos *repository.Repositories, completer completion.Completer, archiver archive.Archiver, events ChatEvents, cfg *config.Config) *Services {
	return &Services{
		Auth: NewAuthService(repos.User, cfg),
		Chat: NewChatService(repos.User, repos.Chat, completer, archiver, events, cfg.HistoryWindow),
	}
}
