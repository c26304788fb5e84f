package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/mcpguard/toolcall/internal/api"
	"github.com/mcpguard/toolcall/internal/config"
	"github.com/mcpguard/toolcall/internal/dispatch"
	"github.com/mcpguard/toolcall/internal/logging"
	"github.com/mcpguard/toolcall/internal/mcp"
	"github.com/mcpguard/toolcall/internal/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg, err := config.Load(config.New(), "")
	require.NoError(t, err)
	registry := tool.Default()
	srv := httptest.NewServer(api.NewAPI(cfg, registry, dispatch.New(registry), logging.NewNop()).Router())
	t.Cleanup(srv.Close)
	return srv
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c := New("http://example.com:8080///")
	assert.Equal(t, "http://example.com:8080", c.BaseURL)
}

func TestCallTool_RoundTrip(t *testing.T) {
	srv := newServer(t)
	c := New(srv.URL + "/")

	result, requestID, err := c.CallTool(context.Background(), "get_time_in_timezone", map[string]interface{}{"timezone": "Asia/Tokyo"})
	require.NoError(t, err)
	assert.NotEmpty(t, requestID)

	fields, ok := result.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Asia/Tokyo", fields["timezone"])
	_, err = mcp.ParseTimestamp(fields["time"].(string))
	assert.NoError(t, err)
}

func TestCallTool_SendsEnvelope(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/mcp/call", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		_, _ = w.Write([]byte(`{"result":{"time":"t"},"request_id":"abc"}`))
	}))
	defer srv.Close()

	result, requestID, err := New(srv.URL).CallTool(context.Background(), "echo", map[string]interface{}{"k": "v"})
	require.NoError(t, err)
	assert.Equal(t, "abc", requestID)
	assert.Equal(t, map[string]interface{}{"time": "t"}, result)

	assert.Equal(t, "echo", got["tool_name"])
	assert.Equal(t, map[string]interface{}{"k": "v"}, got["parameters"])
	ts, ok := got["timestamp"].(string)
	require.True(t, ok)
	_, err = mcp.ParseTimestamp(ts)
	assert.NoError(t, err)
	assert.Contains(t, ts, "+00:00")
}

func TestCallTool_MissingFieldsDecodeToZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	result, requestID, err := New(srv.URL).CallTool(context.Background(), "echo", nil)
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Empty(t, requestID)
}

func TestCallTool_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{
			name: "error status with detail",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"detail":"Unknown tool: echo"}`))
			},
			want: "Unknown tool: echo",
		},
		{
			name: "error status without body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			want: "500 Internal Server Error",
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`<html>`))
			},
			want: "failed to decode response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, _, err := New(srv.URL).CallTool(context.Background(), "echo", nil)
			require.Error(t, err)

			var callErr *CallError
			require.True(t, errors.As(err, &callErr))
			assert.Equal(t, "echo", callErr.Tool)
			assert.Contains(t, err.Error(), "Failed to call tool echo: ")
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func unreachableURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}

func TestCallTool_Unreachable(t *testing.T) {
	_, _, err := New(unreachableURL(t)).CallTool(context.Background(), "get_time_in_timezone", nil)
	var callErr *CallError
	require.True(t, errors.As(err, &callErr))
	assert.Equal(t, "get_time_in_timezone", callErr.Tool)
}

func TestGetTimeInTimezone(t *testing.T) {
	srv := newServer(t)
	c := New(srv.URL)

	res := c.GetTimeInTimezone(context.Background(), "America/New_York")
	assert.Empty(t, res.Error)
	assert.Equal(t, "America/New_York", res.Timezone)
	assert.NotEmpty(t, res.Time)
	require.NotNil(t, res.RequestID)
	assert.NotEmpty(t, *res.RequestID)
}

func TestGetTimeInTimezone_TrimsButEchoesInput(t *testing.T) {
	var sent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req mcp.ToolCallRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		sent, _ = req.Parameters["timezone"].(string)
		_ = json.NewEncoder(w).Encode(mcp.ToolCallResponse{
			Result:    tool.TimeResult{Time: "2024-05-01T11:00:00+01:00", Timezone: sent},
			RequestID: "id-1",
		})
	}))
	defer srv.Close()

	res := New(srv.URL).GetTimeInTimezone(context.Background(), " Europe/London ")
	assert.Equal(t, "Europe/London", sent)
	assert.Equal(t, " Europe/London ", res.Timezone)
	assert.Equal(t, "2024-05-01T11:00:00+01:00", res.Time)
	require.NotNil(t, res.RequestID)
	assert.Equal(t, "id-1", *res.RequestID)
}

func TestGetTimeInTimezone_ServerUnreachable(t *testing.T) {
	res := New(unreachableURL(t)).GetTimeInTimezone(context.Background(), "Europe/London")
	assert.NotEmpty(t, res.Error)
	assert.Equal(t, "Europe/London", res.Timezone)
	assert.Nil(t, res.RequestID)

	b, err := json.Marshal(res)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Contains(t, decoded, "request_id")
	assert.Nil(t, decoded["request_id"])
}

func TestGetTimeInTimezone_InvalidZone(t *testing.T) {
	srv := newServer(t)
	res := New(srv.URL).GetTimeInTimezone(context.Background(), "Not/AZone")
	assert.Contains(t, res.Error, "Invalid timezone: Not/AZone")
	assert.Equal(t, "Not/AZone", res.Timezone)
	assert.Nil(t, res.RequestID)
}

func TestGetTimeInTimezone_UnexpectedResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":"12:00","request_id":"x"}`))
	}))
	defer srv.Close()

	res := New(srv.URL).GetTimeInTimezone(context.Background(), "UTC")
	assert.NotEmpty(t, res.Error)
	assert.Nil(t, res.RequestID)
}

func TestGetTimeInTimezone_ConcurrentRequestIDsUnique(t *testing.T) {
	srv := newServer(t)
	c := New(srv.URL)
	const n = 50

	var mu sync.Mutex
	seen := make(map[string]bool, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := c.GetTimeInTimezone(context.Background(), "UTC")
			if res.RequestID == nil {
				t.Errorf("call failed: %s", res.Error)
				return
			}
			mu.Lock()
			seen[*res.RequestID] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, n)
}
