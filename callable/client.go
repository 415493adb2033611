package callable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client invokes callables over HTTP with a bearer token.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 60 * time.Second},
	}
}

// Call posts data to the named callable and decodes the result into out. A
// protocol error comes back as *Error.
func (c *Client) Call(ctx context.Context, name string, data, out any) error {
	payload, err := json.Marshal(map[string]any{"data": data})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/callable/"+name, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return &Error{Code: Internal, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return &Error{Code: Internal, Message: err.Error()}
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *wireError      `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return &Error{Code: Internal, Message: fmt.Sprintf("unexpected response (status %d)", resp.StatusCode)}
	}
	if envelope.Error != nil {
		return &Error{Code: CodeFromStatus(envelope.Error.Status), Message: envelope.Error.Message}
	}
	if resp.StatusCode != http.StatusOK {
		return &Error{Code: Internal, Message: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}
	if out == nil || len(envelope.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return &Error{Code: DataLoss, Message: "malformed result"}
	}
	return nil
}
