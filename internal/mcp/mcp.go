// Package mcp defines the wire envelope shared by the tool-call client and server.
package mcp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// CallPath is the invocation endpoint relative to the server base URL.
const CallPath = "/mcp/call"

// ToolCallRequest is the envelope a client posts to CallPath.
type ToolCallRequest struct {
	ToolName   string                 `json:"tool_name"`
	Parameters map[string]interface{} `json:"parameters"`
	Timestamp  string                 `json:"timestamp"`
}

// ToolCallResponse is the success envelope. Failures never use this shape.
type ToolCallResponse struct {
	Result    interface{} `json:"result"`
	RequestID string      `json:"request_id"`
}

// ErrorResponse is the body sent alongside a non-2xx status.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// wireRequest uses pointers so missing fields can be told apart from zero values.
type wireRequest struct {
	ToolName   *string                `json:"tool_name"`
	Parameters map[string]interface{} `json:"parameters"`
	Timestamp  *string                `json:"timestamp"`
}

// DecodeRequest parses a request body. Bodies that are not JSON fail with 400,
// JSON of the wrong shape with 422.
func DecodeRequest(body []byte) (ToolCallRequest, *Fault) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var w wireRequest
	if err := dec.Decode(&w); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			field := typeErr.Field
			if field == "" {
				field = "request body"
			}
			return ToolCallRequest{}, Malformed(StatusUnprocessable,
				fmt.Errorf("%s must be %s, got %s", field, typeErr.Type, typeErr.Value))
		}
		return ToolCallRequest{}, Malformed(StatusBadRequest, err)
	}
	if dec.More() {
		return ToolCallRequest{}, Malformed(StatusBadRequest, errors.New("unexpected data after request object"))
	}

	var missing []string
	if w.ToolName == nil {
		missing = append(missing, "tool_name")
	}
	if w.Parameters == nil {
		missing = append(missing, "parameters")
	}
	if w.Timestamp == nil {
		missing = append(missing, "timestamp")
	}
	if len(missing) > 0 {
		return ToolCallRequest{}, Malformed(StatusUnprocessable,
			fmt.Errorf("missing required fields: %s", strings.Join(missing, ", ")))
	}
	if *w.ToolName == "" {
		return ToolCallRequest{}, Malformed(StatusUnprocessable, errors.New("tool_name must not be empty"))
	}

	return ToolCallRequest{
		ToolName:   *w.ToolName,
		Parameters: w.Parameters,
		Timestamp:  *w.Timestamp,
	}, nil
}
