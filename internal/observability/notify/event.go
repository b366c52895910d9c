package notify

import (
	"context"
	"time"
)

// Severity constants recognised by downstream sinks.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
)

// IncidentPayload captures the canonical data we emit for operational incident notifications.
type IncidentPayload struct {
	Component  string
	Operation  string
	FarmID     string
	FarmName   string
	UserID     string
	Error      string
	ErrorClass string
	Severity   string
	OccurredAt time.Time
	Detail     map[string]any
}

// Sink describes a destination capable of consuming incident notifications.
type Sink interface {
	SendIncident(ctx context.Context, payload IncidentPayload) error
}

// SinkFunc adapts a function to the Sink interface (useful for tests).
type SinkFunc func(ctx context.Context, payload IncidentPayload) error

// SendIncident implements the Sink interface.
func (f SinkFunc) SendIncident(ctx context.Context, payload IncidentPayload) error {
	if f == nil {
		return nil
	}
	return f(ctx, payload)
}
