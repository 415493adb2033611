package utils

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"potluck/models"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", models.ErrEventNotFound, http.StatusNotFound, "event_not_found"},
		{"wrapped conflict", fmt.Errorf("claim: %w", models.ErrAlreadyAssigned), http.StatusConflict, "already_assigned"},
		{"forbidden", models.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"validation", models.ErrInvalidQuantity, http.StatusBadRequest, "invalid_quantity"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := StatusFor(tt.err)
			if status != tt.status || code != tt.code {
				t.Fatalf("expected %d/%s, got %d/%s", tt.status, tt.code, status, code)
			}
		})
	}
}

func TestRespondWithDomainErrorHidesInternals(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondWithDomainError(rec, errors.New("mongo: connection refused"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "mongo") {
		t.Fatalf("internal detail leaked: %s", rec.Body.String())
	}
}

func TestIdentityRoundTrip(t *testing.T) {
	ctx := WithIdentity(context.Background(), Identity{UserID: "u1", Name: "Ann", Anonymous: true})
	got := IdentityFromContext(ctx)
	if got.UserID != "u1" || got.Name != "Ann" || !got.Anonymous {
		t.Fatalf("unexpected identity %+v", got)
	}
	if IdentityFromContext(context.Background()).UserID != "" {
		t.Fatal("expected empty identity on bare context")
	}
}
