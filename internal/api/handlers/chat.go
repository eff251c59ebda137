package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/dom/chatbot-web/internal/api/middleware"
	"github.com/dom/chatbot-web/internal/api/response"
	"github.com/dom/chatbot-web/internal/domain"
	"github.com/dom/chatbot-web/internal/idempotency"
	"github.com/dom/chatbot-web/internal/service"
)

const maxIdempotencyKeyLength = 128

type ChatHandler struct {
	chatService *service.ChatService
	idempotency idempotency.Store
}

func NewChatHandler(chatService *service.ChatService, store idempotency.Store) *ChatHandler {
	return &ChatHandler{chatService: chatService, idempotency: store}
}

type NewChatRequest struct {
	Message string `json:"message"`
}

type ChatsResponse struct {
	Message string           `json:"message"`
	Chats   []domain.Message `json:"chats"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func (h *ChatHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, service.ErrInvalidToken.Error())
		return
	}

	chats, err := h.chatService.GetHistory(r.Context(), userID)
	if err != nil {
		writeServiceError(w, "GetAllChats", err)
		return
	}

	response.JSON(w, http.StatusOK, ChatsResponse{Message: response.StatusOK, Chats: chats})
}

func (h *ChatHandler) New(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, service.ErrInvalidToken.Error())
		return
	}

	var req NewChatRequest
	if !decodeBody(w, r, maxChatBodyBytes, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		response.Error(w, http.StatusBadRequest, domain.ErrEmptyMessage.Error())
		return
	}

	key := strings.TrimSpace(r.Header.Get(idempotency.HeaderName))
	if len(key) > maxIdempotencyKeyLength {
		response.Error(w, http.StatusBadRequest, "idempotency key too long")
		return
	}

	if key != "" {
		record, err := h.idempotency.Begin(r.Context(), userID, key)
		if err != nil {
			writeServiceError(w, "NewChat", err)
			return
		}
		if record != nil {
			response.JSON(w, http.StatusOK, ChatsResponse{Message: response.StatusOK, Chats: record.Chats})
			return
		}
	}

	chats, err := h.chatService.AppendAndRespond(r.Context(), userID, req.Message)
	if err != nil {
		if key != "" {
			// The client may retry with the same key after a failure.
			if relErr := h.idempotency.Release(context.WithoutCancel(r.Context()), userID, key); relErr != nil {
				log.Printf("ERROR [handlers.NewChat] failed to release idempotency key: %v", relErr)
			}
		}
		writeServiceError(w, "NewChat", err)
		return
	}

	if key != "" {
		if err := h.idempotency.Complete(context.WithoutCancel(r.Context()), userID, key, chats); err != nil {
			log.Printf("ERROR [handlers.NewChat] failed to store idempotent response: %v", err)
		}
	}

	response.JSON(w, http.StatusOK, ChatsResponse{Message: response.StatusOK, Chats: chats})
}

func (h *ChatHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, service.ErrInvalidToken.Error())
		return
	}

	if err := h.chatService.ClearHistory(r.Context(), userID); err != nil {
		writeServiceError(w, "DeleteChats", err)
		return
	}

	response.JSON(w, http.StatusOK, MessageResponse{Message: response.StatusOK})
}
