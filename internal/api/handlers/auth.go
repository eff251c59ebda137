package handlers

import (
	"log"
	"net/http"

	"github.com/dom/chatbot-web/internal/api/middleware"
	"github.com/dom/chatbot-web/internal/api/response"
	"github.com/dom/chatbot-web/internal/config"
	"github.com/dom/chatbot-web/internal/domain"
	"github.com/dom/chatbot-web/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
	cfg         *config.Config
}

func NewAuthHandler(authService *service.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{authService: authService, cfg: cfg}
}

type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserResponse struct {
	Message string `json:"message"`
	Name    string `json:"name"`
	Email   string `json:"email"`
}

func userResponse(user *domain.User) UserResponse {
	return UserResponse{
		Message: response.StatusOK,
		Name:    user.Name,
		Email:   user.Email,
	}
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decodeBody(w, r, maxAuthBodyBytes, &req) {
		return
	}

	result, err := h.authService.Signup(r.Context(), service.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, "Signup", err)
		return
	}

	h.startSession(w, result)
	log.Printf("User signed up: %s", result.User.ID)
	response.JSON(w, http.StatusOK, userResponse(result.User))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeBody(w, r, maxAuthBodyBytes, &req) {
		return
	}

	result, err := h.authService.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, "Login", err)
		return
	}

	h.startSession(w, result)
	response.JSON(w, http.StatusOK, userResponse(result.User))
}

// startSession replaces any previous session cookie with a fresh one.
func (h *AuthHandler) startSession(w http.ResponseWriter, result *service.AuthResult) {
	middleware.ClearSessionCookie(w, h.cfg)
	middleware.SetSessionCookie(w, h.cfg, result.Token, result.ExpiresAt)
}

func (h *AuthHandler) verify(w http.ResponseWriter, r *http.Request, op string) (*domain.User, bool) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, service.ErrInvalidToken.Error())
		return nil, false
	}

	user, err := h.authService.Verify(r.Context(), claims)
	if err != nil {
		writeServiceError(w, op, err)
		return nil, false
	}
	return user, true
}

func (h *AuthHandler) AuthStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := h.verify(w, r, "AuthStatus")
	if !ok {
		return
	}
	response.JSON(w, http.StatusOK, userResponse(user))
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user, ok := h.verify(w, r, "Logout")
	if !ok {
		return
	}

	middleware.ClearSessionCookie(w, h.cfg)
	response.JSON(w, http.StatusOK, userResponse(user))
}
