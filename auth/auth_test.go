package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"potluck/clock"
	"potluck/models"
	"potluck/store/memstore"
)

func newService(t *testing.T, now time.Time) *Service {
	t.Helper()
	clk := clock.NewFixed(now)
	return NewService(memstore.New(), NewJWTManager("test-secret", time.Hour, clk), clk)
}

func TestRegisterLogin(t *testing.T) {
	svc := newService(t, time.Now())
	ctx := context.Background()

	sess, err := svc.Register(ctx, "Ann@Example.com", "hunter22", "Ann")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if sess.Token == "" || sess.User.Email != "ann@example.com" {
		t.Fatalf("unexpected session %+v", sess)
	}

	if _, err := svc.Register(ctx, "ann@example.com", "another1", ""); !errors.Is(err, models.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}

	if _, err := svc.Login(ctx, "ann@example.com", "wrong-pass"); !errors.Is(err, models.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	login, err := svc.Login(ctx, "ann@example.com", "hunter22")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := svc.tokens.Validate(login.Token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != sess.User.ID || claims.Name != "Ann" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newService(t, time.Now())
	tests := []struct {
		name, email, password string
	}{
		{"bad email", "nope", "hunter22"},
		{"short password", "a@b.co", "123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.email, tt.password, "")
			if !errors.Is(err, models.ErrMissingField) {
				t.Fatalf("expected ErrMissingField, got %v", err)
			}
		})
	}
}

func TestAnonymousTokenCarriesFlag(t *testing.T) {
	svc := newService(t, time.Now())
	sess, err := svc.Anonymous(context.Background(), "Guest")
	if err != nil {
		t.Fatalf("anonymous: %v", err)
	}
	claims, err := svc.tokens.Validate(sess.Token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !claims.Anonymous || claims.Name != "Guest" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if _, err := svc.Login(context.Background(), "", ""); !errors.Is(err, models.ErrInvalidCredentials) {
		t.Fatalf("anonymous users cannot log in with a password, got %v", err)
	}
}

func TestExpiredToken(t *testing.T) {
	issued := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	token, err := NewJWTManager("s", time.Hour, clock.NewFixed(issued)).Generate(&models.UserProfile{ID: "u1"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	later := NewJWTManager("s", time.Hour, clock.NewFixed(issued.Add(2*time.Hour)))
	if _, err := later.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}

	other := NewJWTManager("different", time.Hour, clock.NewFixed(issued))
	if _, err := other.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong key, got %v", err)
	}
}
