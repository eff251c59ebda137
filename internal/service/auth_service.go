package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dom/chatbot-web/internal/config"
	"github.com/dom/chatbot-web/internal/domain"
	"github.com/dom/chatbot-web/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidInput          = errors.New("name, email and password are required")
	ErrUserAlreadyRegistered = errors.New("user already registered")
	ErrUserNotRegistered     = errors.New("user not registered or token malfunctioned")
	ErrIncorrectPassword     = errors.New("incorrect password")
	ErrPermissionDenied      = errors.New("permissions didn't match")
	ErrInvalidToken          = errors.New("token not received or invalid")
	ErrPasswordTooLong       = errors.New("password must be at most 72 bytes")
)

// bcrypt only looks at the first 72 bytes of a password.
const maxPasswordBytes = 72

// Claims is the session token payload. Subject holds the user id.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

type AuthService struct {
	userRepo repository.UserRepository
	cfg      *config.Config
	now      func() time.Time
}

func NewAuthService(userRepo repository.UserRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		cfg:      cfg,
		now:      time.Now,
	}
}

type SignupInput struct {
	Name     string
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*AuthResult, error) {
	name := strings.TrimSpace(input.Name)
	email := normalizeEmail(input.Email)
	if name == "" || email == "" || input.Password == "" {
		return nil, ErrInvalidInput
	}
	if len(input.Password) > maxPasswordBytes {
		return nil, ErrPasswordTooLong
	}

	// Check if email exists
	_, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil {
		return nil, ErrUserAlreadyRegistered
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	// Hash password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := &domain.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hashedPassword),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		// Lost a race with a concurrent signup for the same email.
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil, ErrUserAlreadyRegistered
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return s.issueToken(user)
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	email := normalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, ErrInvalidInput
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, ErrUserNotRegistered
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrIncorrectPassword
	}

	return s.issueToken(user)
}

func (s *AuthService) issueToken(user *domain.User) (*AuthResult, error) {
	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.cfg.SessionTTL)

	claims := Claims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &AuthResult{
		User:      user,
		Token:     signed,
		ExpiresAt: expiresAt,
	}, nil
}

// ValidateToken checks signature and expiry and returns the claims.
func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithExpirationRequired(), jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	if _, err := claims.UserID(); err != nil {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// Verify loads the user the token was issued for and checks the identity still
// matches.
func (s *AuthService) Verify(ctx context.Context, claims *Claims) (*domain.User, error) {
	id, err := claims.UserID()
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, ErrUserNotRegistered
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if user.ID != id || user.Email != claims.Email {
		return nil, ErrPermissionDenied
	}

	return user, nil
}
