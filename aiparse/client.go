package aiparse

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"potluck/callable"
	"potluck/importer"
)

// ErrorKind buckets parser failures for display.
type ErrorKind string

const (
	KindQuota    ErrorKind = "quota"
	KindSafety   ErrorKind = "safety"
	KindParse    ErrorKind = "parse"
	KindAuth     ErrorKind = "auth"
	KindInvalid  ErrorKind = "invalid"
	KindInternal ErrorKind = "internal"
)

var kindMessages = map[ErrorKind]string{
	KindQuota:    "The list reader is busy right now. Please wait a minute and try again.",
	KindSafety:   "This content could not be processed. Try a different photo or text.",
	KindParse:    "The list could not be read. Try again or enter the items by hand.",
	KindAuth:     "Please sign in again to use the list reader.",
	KindInvalid:  "Add some text or a photo of your list first.",
	KindInternal: "Something went wrong while reading the list. Please try again.",
}

type ParseError struct {
	Kind ErrorKind
	Err  error
}

func (e *ParseError) Error() string {
	return kindMessages[e.Kind]
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func kindFor(code callable.Code) ErrorKind {
	switch code {
	case callable.ResourceExhausted:
		return KindQuota
	case callable.FailedPrecondition:
		return KindSafety
	case callable.DataLoss:
		return KindParse
	case callable.Unauthenticated:
		return KindAuth
	case callable.InvalidArgument:
		return KindInvalid
	}
	return KindInternal
}

// Client calls parseShoppingList and maps failures to ParseError. It never
// retries.
type Client struct {
	call *callable.Client
}

func NewClient(c *callable.Client) *Client {
	return &Client{call: c}
}

func (c *Client) Parse(ctx context.Context, req Request) ([]Item, error) {
	var out struct {
		Items json.RawMessage `json:"items"`
	}
	if err := c.call.Call(ctx, CallableName, req, &out); err != nil {
		var ce *callable.Error
		if errors.As(err, &ce) {
			return nil, &ParseError{Kind: kindFor(ce.Code), Err: err}
		}
		return nil, &ParseError{Kind: KindInternal, Err: err}
	}
	var items []Item
	if err := json.Unmarshal(out.Items, &items); err != nil || items == nil {
		return nil, &ParseError{Kind: KindParse, Err: ErrMalformed}
	}
	return items, nil
}

// ToRows hands parsed items to the import pipeline.
func ToRows(items []Item) []importer.Row {
	rows := make([]importer.Row, 0, len(items))
	for _, it := range items {
		rows = append(rows, importer.Row{Name: it.Name, Quantity: strconv.Itoa(it.Quantity), Category: it.Category})
	}
	return rows
}
