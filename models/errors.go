package models

import "errors"

var (
	ErrEventNotFound      = errors.New("event not found")
	ErrItemNotFound       = errors.New("menu item not found")
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrPresetNotFound     = errors.New("preset list not found")
	ErrUserNotFound       = errors.New("user not found")

	ErrAlreadyAssigned   = errors.New("item already assigned")
	ErrUserItemLimit     = errors.New("user item limit reached")
	ErrUserItemsDisabled = errors.New("adding items is disabled for this event")
	ErrEventInactive     = errors.New("event is not active")
	ErrItemHasClaims     = errors.New("item has assignments by other participants")
	ErrForbidden         = errors.New("forbidden")

	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrInvalidName     = errors.New("invalid name")
	ErrMissingField    = errors.New("missing required field")

	ErrTxConflict = errors.New("transaction conflict")

	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
