// Package client calls tools on a remote tool-call server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mcpguard/toolcall/internal/mcp"
	"github.com/mcpguard/toolcall/internal/tool"
)

// Client posts tool-call envelopes to a server.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	now     func() time.Time
}

// New returns a client for the server at baseURL. Trailing slashes are dropped.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{},
		now:     time.Now,
	}
}

// CallError is returned for every CallTool failure, whatever its cause.
type CallError struct {
	Tool string
	Err  error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("Failed to call tool %s: %v", e.Tool, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// CallTool invokes toolName with parameters and returns the decoded result and
// the server's request ID. Missing response fields come back as nil and "".
func (c *Client) CallTool(ctx context.Context, toolName string, parameters map[string]interface{}) (interface{}, string, error) {
	if parameters == nil {
		parameters = map[string]interface{}{}
	}
	payload, err := json.Marshal(mcp.ToolCallRequest{
		ToolName:   toolName,
		Parameters: parameters,
		Timestamp:  mcp.FormatTimestamp(c.now().UTC()),
	})
	if err != nil {
		return nil, "", &CallError{Tool: toolName, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+mcp.CallPath, bytes.NewReader(payload))
	if err != nil {
		return nil, "", &CallError{Tool: toolName, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, "", &CallError{Tool: toolName, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", &CallError{Tool: toolName, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	// Any non-2xx answer is a failure, whatever the body says
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", &CallError{Tool: toolName, Err: statusError(resp, body)}
	}

	var envelope struct {
		Result    interface{} `json:"result"`
		RequestID *string     `json:"request_id"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, "", &CallError{Tool: toolName, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	requestID := ""
	if envelope.RequestID != nil {
		requestID = *envelope.RequestID
	}
	return envelope.Result, requestID, nil
}

func statusError(resp *http.Response, body []byte) error {
	var e mcp.ErrorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Detail != "" {
		return fmt.Errorf("%s for url %s: %s", resp.Status, resp.Request.URL, e.Detail)
	}
	return fmt.Errorf("%s for url %s", resp.Status, resp.Request.URL)
}

// Result is the outcome of GetTimeInTimezone. On failure Error is set and
// RequestID is nil.
type Result struct {
	Time      string  `json:"time,omitempty"`
	Timezone  string  `json:"timezone"`
	RequestID *string `json:"request_id"`
	Error     string  `json:"error,omitempty"`
}

// GetTimeInTimezone asks the server for the current time in timezone. It never
// fails: errors are reported in the returned Result, which always echoes the
// timezone exactly as given.
func (c *Client) GetTimeInTimezone(ctx context.Context, timezone string) Result {
	result, requestID, err := c.CallTool(ctx, tool.TimeInTimezoneName, map[string]interface{}{
		"timezone": strings.TrimSpace(timezone),
	})
	if err != nil {
		return Result{Error: err.Error(), Timezone: timezone}
	}

	fields, ok := result.(map[string]interface{})
	if !ok {
		return Result{Error: fmt.Sprintf("unexpected result type %T", result), Timezone: timezone}
	}
	t, _ := fields["time"].(string)
	return Result{
		Time:      t,
		Timezone:  timezone,
		RequestID: &requestID,
	}
}
