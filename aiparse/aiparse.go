// Package aiparse turns free text or a photo of a shopping list into
// structured items with an LLM, exposed as the parseShoppingList callable.
package aiparse

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"potluck/callable"
	"potluck/metrics"
	"potluck/ratelim"
	"potluck/utils"
)

const (
	CallableName  = "parseShoppingList"
	maxTextLength = 20000
	maxImageBytes = 10 << 20
)

var (
	// ErrBlocked means the model refused the content on safety grounds.
	ErrBlocked = errors.New("content blocked by safety filters")
	// ErrQuota means the upstream model quota is exhausted.
	ErrQuota = errors.New("model quota exhausted")
	// ErrMalformed means the model answer was not the expected JSON shape.
	ErrMalformed = errors.New("model response is not a JSON item array")
)

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Request struct {
	Text              string     `json:"text,omitempty"`
	Image             string     `json:"image,omitempty"`
	MimeType          string     `json:"mimeType,omitempty"`
	AllowedCategories []Category `json:"allowedCategories,omitempty"`
}

type Item struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Category string `json:"category,omitempty"`
}

type Response struct {
	Items []Item `json:"items"`
}

// Prompt is what a Generator sends to the model.
type Prompt struct {
	Text       string
	Image      []byte
	MimeType   string
	Categories []Category
}

// Generator returns the raw model answer for a prompt.
type Generator interface {
	Generate(ctx context.Context, p Prompt) (string, error)
}

type Service struct {
	gen     Generator
	limiter *ratelim.RateLimiter
}

// NewService builds the parser. gen may be nil when no model is configured;
// calls then fail with an internal error.
func NewService(gen Generator, limiter *ratelim.RateLimiter) *Service {
	return &Service{gen: gen, limiter: limiter}
}

func (s *Service) Register(reg *callable.Registry) {
	reg.Register(CallableName, true, s.Handle)
}

// Handle is the callable entry point.
func (s *Service) Handle(ctx context.Context, caller utils.Identity, data json.RawMessage) (result any, err error) {
	defer func() {
		code := "ok"
		if err != nil {
			code = string(callable.AsError(err).Code)
		}
		metrics.AIParse.WithLabelValues(code).Inc()
	}()

	var req Request
	if len(data) > 0 {
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, callable.Errorf(callable.InvalidArgument, "data must be an object")
		}
	}
	return s.Parse(ctx, caller.UserID, req)
}

// Parse validates req, spends one unit of the caller's budget and asks the
// model. Errors are *callable.Error values.
func (s *Service) Parse(ctx context.Context, userID string, req Request) (*Response, error) {
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" && req.Image == "" {
		return nil, callable.Errorf(callable.InvalidArgument, "text or image is required")
	}
	if len(req.Text) > maxTextLength {
		return nil, callable.Errorf(callable.InvalidArgument, "text is too long")
	}

	prompt := Prompt{Text: req.Text, Categories: req.AllowedCategories}
	if req.Image != "" {
		raw, err := decodeImage(req.Image)
		if err != nil {
			return nil, callable.Errorf(callable.InvalidArgument, "image must be base64 encoded")
		}
		if len(raw) > maxImageBytes {
			return nil, callable.Errorf(callable.InvalidArgument, "image is too large")
		}
		compressed, mime, err := CompressImage(raw)
		if err != nil {
			return nil, callable.Errorf(callable.InvalidArgument, "unsupported image: %v", err)
		}
		prompt.Image, prompt.MimeType = compressed, mime
	}

	if s.limiter != nil && !s.limiter.Allow(userID) {
		return nil, callable.Errorf(callable.ResourceExhausted, "too many parse requests, try again in a minute")
	}
	if s.gen == nil {
		return nil, callable.Errorf(callable.Internal, "parser is not configured")
	}

	answer, err := s.gen.Generate(ctx, prompt)
	switch {
	case errors.Is(err, ErrQuota):
		return nil, callable.Errorf(callable.ResourceExhausted, "the parser is over quota")
	case errors.Is(err, ErrBlocked):
		return nil, callable.Errorf(callable.FailedPrecondition, "the content was blocked")
	case err != nil:
		slog.Error("Model call failed", "user_id", userID, "error", err)
		return nil, callable.Errorf(callable.Internal, "the parser failed")
	}

	items, err := ParseItems(answer, req.AllowedCategories)
	if err != nil {
		slog.Warn("Model answer rejected", "user_id", userID, "error", err)
		return nil, callable.Errorf(callable.DataLoss, "the parser returned an unreadable answer")
	}
	slog.Info("Shopping list parsed", "user_id", userID, "items", len(items), "image", len(prompt.Image) > 0)
	return &Response{Items: items}, nil
}

// decodeImage accepts plain base64 or a data: URL.
func decodeImage(s string) ([]byte, error) {
	if i := strings.Index(s, ";base64,"); strings.HasPrefix(s, "data:") && i >= 0 {
		s = s[i+len(";base64,"):]
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(s))
}

type rawItem struct {
	Name     string          `json:"name"`
	Quantity json.RawMessage `json:"quantity"`
	Category string          `json:"category"`
}

// ParseItems reads the model answer: a JSON array of items, optionally in a
// markdown code fence or wrapped as {"items": [...]}. Categories outside the
// allow-list are dropped.
func ParseItems(answer string, allowed []Category) ([]Item, error) {
	answer = stripFence(answer)

	var raw []rawItem
	if err := json.Unmarshal([]byte(answer), &raw); err != nil {
		var wrapped struct {
			Items *[]rawItem `json:"items"`
		}
		if err := json.Unmarshal([]byte(answer), &wrapped); err != nil || wrapped.Items == nil {
			return nil, ErrMalformed
		}
		raw = *wrapped.Items
	}

	ok := make(map[string]bool, len(allowed))
	for _, c := range allowed {
		ok[c.ID] = true
	}
	items := make([]Item, 0, len(raw))
	for _, r := range raw {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			continue
		}
		it := Item{Name: name, Quantity: quantity(r.Quantity)}
		if ok[r.Category] {
			it.Category = r.Category
		}
		items = append(items, it)
	}
	return items, nil
}

func quantity(raw json.RawMessage) int {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil && f >= 1 {
		return int(math.Round(f))
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && n >= 1 {
			return n
		}
	}
	return 1
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
