package metrics

import (
	"time"

	obserrors "github.com/agrovia/farmdesk/internal/observability/errors"
	"github.com/agrovia/farmdesk/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// OperationMetric captures details about a service operation for metric emission.
type OperationMetric struct {
	Component string
	Operation string
	Result    string
	Duration  time.Duration
	Err       error
}

// EmitOperation emits standardised operation metrics.
func EmitOperation(sink statsd.Sink, in OperationMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"component": in.Component,
		"operation": in.Operation,
		"result":    in.Result,
	}

	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("operation", 1, tags)

	if in.Duration > 0 {
		sink.Timing("operation.duration", in.Duration, CloneTags(tags))
	}
}

// CloneTags creates a shallow copy of a tag map, filtering out empty keys.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
