package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	_ "time/tzdata" // embedded zone database for hosts without /usr/share/zoneinfo

	"github.com/mcpguard/toolcall/internal/mcp"
)

const TimeInTimezoneName = "get_time_in_timezone"

// Zones resolves IANA time-zone identifiers.
type Zones interface {
	Load(name string) (*time.Location, error)
}

// SystemZones looks zones up in the Go time-zone database.
type SystemZones struct{}

func (SystemZones) Load(name string) (*time.Location, error) {
	return time.LoadLocation(name)
}

// TimeResult is the result payload of get_time_in_timezone.
type TimeResult struct {
	Time     string `json:"time"`
	Timezone string `json:"timezone"`
}

// TimeInTimezone reports the current time in a named zone.
type TimeInTimezone struct {
	zones Zones
	now   func() time.Time
}

// NewTimeInTimezone returns the tool. A nil now uses time.Now.
func NewTimeInTimezone(zones Zones, now func() time.Time) *TimeInTimezone {
	if now == nil {
		now = time.Now
	}
	return &TimeInTimezone{zones: zones, now: now}
}

func (t *TimeInTimezone) Name() string { return TimeInTimezoneName }

func (t *TimeInTimezone) Description() string {
	return "Get the current time in the specified IANA time zone"
}

func (t *TimeInTimezone) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"timezone": map[string]interface{}{
				"type":        "string",
				"description": "Time zone name, e.g. America/New_York",
			},
		},
		"required": []string{"timezone"},
	}
}

func (t *TimeInTimezone) Call(_ context.Context, params map[string]interface{}) (interface{}, error) {
	raw, ok := params["timezone"]
	if !ok {
		return nil, mcp.Invalid("Missing timezone parameter")
	}
	name, ok := raw.(string)
	if !ok {
		return nil, mcp.Invalid("Invalid timezone: %s", jsonText(raw))
	}
	return t.Resolve(name)
}

// jsonText renders a decoded parameter the way it appeared on the wire, so a
// null timezone reads "null" rather than Go's "<nil>".
func jsonText(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// Resolve formats the current instant in the named zone. Names are matched
// case-sensitively against the zone database. The empty name and "Local" are
// rejected: time.LoadLocation maps them to UTC and the host zone.
func (t *TimeInTimezone) Resolve(name string) (TimeResult, error) {
	if name == "" || name == "Local" {
		return TimeResult{}, mcp.Invalid("Invalid timezone: %s", name)
	}
	loc, err := t.zones.Load(name)
	if err != nil {
		return TimeResult{}, mcp.Invalid("Invalid timezone: %s", name)
	}
	return TimeResult{
		Time:     mcp.FormatTimestamp(t.now().In(loc)),
		Timezone: name,
	}, nil
}
