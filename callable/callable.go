// Package callable implements the callable-function wire protocol:
// POST /callable/<name> with {"data": ...}, answered by {"result": ...} or
// {"error": {"status": "...", "message": "..."}}.
package callable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/julienschmidt/httprouter"

	"potluck/models"
	"potluck/utils"
)

type Code string

const (
	Unauthenticated    Code = "unauthenticated"
	PermissionDenied   Code = "permission-denied"
	InvalidArgument    Code = "invalid-argument"
	FailedPrecondition Code = "failed-precondition"
	ResourceExhausted  Code = "resource-exhausted"
	NotFound           Code = "not-found"
	DataLoss           Code = "data-loss"
	Internal           Code = "internal"
)

var httpStatus = map[Code]int{
	Unauthenticated:    http.StatusUnauthorized,
	PermissionDenied:   http.StatusForbidden,
	InvalidArgument:    http.StatusBadRequest,
	FailedPrecondition: http.StatusBadRequest,
	ResourceExhausted:  http.StatusTooManyRequests,
	NotFound:           http.StatusNotFound,
	DataLoss:           http.StatusInternalServerError,
	Internal:           http.StatusInternalServerError,
}

func (c Code) HTTPStatus() int {
	if s, ok := httpStatus[c]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Status is the wire form, e.g. RESOURCE_EXHAUSTED.
func (c Code) Status() string {
	return strings.ToUpper(strings.ReplaceAll(string(c), "-", "_"))
}

// CodeFromStatus parses the wire form back into a Code. Unknown values map to
// Internal.
func CodeFromStatus(status string) Code {
	c := Code(strings.ToLower(strings.ReplaceAll(status, "_", "-")))
	if _, ok := httpStatus[c]; ok {
		return c
	}
	return Internal
}

// Error is returned by callable functions to choose the code the caller sees.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsError converts any error into a callable Error. Domain errors keep their
// meaning; anything unknown becomes an internal error with a generic message.
func AsError(err error) *Error {
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}
	switch {
	case errors.Is(err, models.ErrForbidden):
		return &Error{Code: PermissionDenied, Message: err.Error()}
	case errors.Is(err, models.ErrUserNotFound), errors.Is(err, models.ErrEventNotFound):
		return &Error{Code: NotFound, Message: err.Error()}
	case errors.Is(err, models.ErrMissingField), errors.Is(err, models.ErrInvalidName),
		errors.Is(err, models.ErrInvalidQuantity), errors.Is(err, utils.ErrInvalidBody):
		return &Error{Code: InvalidArgument, Message: err.Error()}
	}
	return &Error{Code: Internal, Message: "internal error"}
}

// Func handles one callable. data is the raw "data" member of the request.
type Func func(ctx context.Context, caller utils.Identity, data json.RawMessage) (any, error)

type request struct {
	Data json.RawMessage `json:"data"`
}

type wireError struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type response struct {
	Result any        `json:"result,omitempty"`
	Error  *wireError `json:"error,omitempty"`
}

type Registry struct {
	mu    sync.RWMutex
	funcs map[string]registered
}

type registered struct {
	fn   Func
	auth bool
}

func NewRegistry() *Registry {
	return &Registry{funcs: map[string]registered{}}
}

// Register adds fn under name. Authenticated callables reject callers without
// an identity before fn runs.
func (r *Registry) Register(name string, authenticated bool, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = registered{fn: fn, auth: authenticated}
}

// Handle serves POST /callable/:name.
func (r *Registry) Handle(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
	name := ps.ByName("name")
	r.mu.RLock()
	reg, ok := r.funcs[name]
	r.mu.RUnlock()

	fail := func(e *Error) {
		writeJSON(w, e.Code.HTTPStatus(), response{Error: &wireError{Status: e.Code.Status(), Message: e.Message}})
	}

	if !ok {
		fail(Errorf(NotFound, "unknown function %q", name))
		return
	}

	caller := utils.IdentityFromContext(req.Context())
	if reg.auth && caller.UserID == "" {
		fail(Errorf(Unauthenticated, "sign in required"))
		return
	}

	var body request
	if err := utils.DecodeJSON(req, &body); err != nil {
		fail(Errorf(InvalidArgument, "request body must be {\"data\": ...}"))
		return
	}

	result, err := reg.fn(req.Context(), caller, body.Data)
	if err != nil {
		ce := AsError(err)
		if ce.Code == Internal {
			slog.Error("Callable failed", "name", name, "user_id", caller.UserID, "error", err)
		} else {
			slog.Warn("Callable rejected", "name", name, "user_id", caller.UserID, "code", ce.Code, "error", err)
		}
		fail(ce)
		return
	}
	if result == nil {
		result = struct{}{}
	}
	writeJSON(w, http.StatusOK, response{Result: result})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Encode callable response", "error", err)
	}
}
