package mcp

import (
	"fmt"
	"net/http"
)

const (
	StatusBadRequest    = http.StatusBadRequest
	StatusUnprocessable = http.StatusUnprocessableEntity
	StatusInternal      = http.StatusInternalServerError
)

// Fault is a classified protocol failure. Status is the code the transport
// must answer with and Detail the human-readable message sent to the caller.
type Fault struct {
	Status int
	Detail string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%d: %s", f.Status, f.Detail)
}

// Invalid reports a client-caused validation failure.
func Invalid(format string, args ...interface{}) *Fault {
	return &Fault{Status: StatusBadRequest, Detail: fmt.Sprintf(format, args...)}
}

// Malformed reports a request body that could not be decoded into an envelope.
func Malformed(status int, cause error) *Fault {
	return &Fault{Status: status, Detail: "Malformed request: " + cause.Error()}
}

// Internal wraps an unexpected server-side failure.
func Internal(cause error) *Fault {
	return &Fault{Status: StatusInternal, Detail: "Server error: " + cause.Error()}
}
