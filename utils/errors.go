package utils

import (
	"errors"
	"net/http"

	"potluck/models"
)

var statusTable = []struct {
	err    error
	status int
	code   string
}{
	{models.ErrEventNotFound, http.StatusNotFound, "event_not_found"},
	{models.ErrItemNotFound, http.StatusNotFound, "item_not_found"},
	{models.ErrAssignmentNotFound, http.StatusNotFound, "assignment_not_found"},
	{models.ErrPresetNotFound, http.StatusNotFound, "preset_not_found"},
	{models.ErrUserNotFound, http.StatusNotFound, "user_not_found"},
	{models.ErrAlreadyAssigned, http.StatusConflict, "already_assigned"},
	{models.ErrUserItemLimit, http.StatusConflict, "user_item_limit"},
	{models.ErrUserItemsDisabled, http.StatusConflict, "user_items_disabled"},
	{models.ErrEventInactive, http.StatusConflict, "event_inactive"},
	{models.ErrItemHasClaims, http.StatusConflict, "item_has_claims"},
	{models.ErrTxConflict, http.StatusConflict, "transaction_conflict"},
	{models.ErrUserExists, http.StatusConflict, "user_exists"},
	{models.ErrForbidden, http.StatusForbidden, "forbidden"},
	{models.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{models.ErrInvalidQuantity, http.StatusBadRequest, "invalid_quantity"},
	{models.ErrInvalidName, http.StatusBadRequest, "invalid_name"},
	{models.ErrMissingField, http.StatusBadRequest, "missing_required_field"},
	{ErrInvalidBody, http.StatusBadRequest, "invalid_request_body"},
}

// StatusFor returns the HTTP status and machine code for err.
func StatusFor(err error) (int, string) {
	for _, e := range statusTable {
		if errors.Is(err, e.err) {
			return e.status, e.code
		}
	}
	return http.StatusInternalServerError, "internal_error"
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthenticated"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusConflict:
		return "conflict"
	case http.StatusTooManyRequests:
		return "rate_limited"
	}
	return "internal_error"
}
