// Package auth is the identity provider the service ships with: email and
// password accounts, anonymous sign-in and JWT sessions.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"potluck/clock"
	"potluck/models"
	"potluck/store"
	"potluck/utils"
)

const minPasswordLength = 6

type Service struct {
	users  store.UserStore
	tokens *JWTManager
	clock  clock.Clock
}

func NewService(users store.UserStore, tokens *JWTManager, clk clock.Clock) *Service {
	return &Service{users: users, tokens: tokens, clock: clk}
}

// Session is returned by every sign-in flow.
type Session struct {
	Token string             `json:"token"`
	User  models.UserProfile `json:"user"`
}

func (s *Service) Register(ctx context.Context, email, password, displayName string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	displayName = strings.TrimSpace(displayName)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: email", models.ErrMissingField)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", models.ErrMissingField, minPasswordLength)
	}
	if displayName == "" {
		displayName, _, _ = strings.Cut(email, "@")
	}

	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil, models.ErrUserExists
	} else if !errors.Is(err, models.ErrUserNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.UserProfile{
		ID:           utils.NewID(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: string(hashed),
		CreatedAt:    clock.Millis(s.clock),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	slog.Info("User registered", "user_id", user.ID)
	return s.session(user)
}

func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, models.ErrUserNotFound) {
		return nil, models.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if user.PasswordHash == "" {
		return nil, models.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, models.ErrInvalidCredentials
	}
	return s.session(user)
}

// Anonymous creates a throwaway identity that only carries a display name.
func (s *Service) Anonymous(ctx context.Context, displayName string) (*Session, error) {
	user := &models.UserProfile{
		ID:          utils.NewID(),
		DisplayName: strings.TrimSpace(displayName),
		IsAnonymous: true,
		CreatedAt:   clock.Millis(s.clock),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	slog.Info("Anonymous sign-in", "user_id", user.ID)
	return s.session(user)
}

// Refresh issues a new token for a still existing user.
func (s *Service) Refresh(ctx context.Context, userID string) (*Session, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.session(user)
}

func (s *Service) Profile(ctx context.Context, userID string) (*models.UserProfile, error) {
	return s.users.GetUser(ctx, userID)
}

func (s *Service) session(user *models.UserProfile) (*Session, error) {
	token, err := s.tokens.Generate(user)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: *user}, nil
}
