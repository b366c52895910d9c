package webhook

import (
	"strings"
	"testing"
	"time"

	"github.com/agrovia/farmdesk/internal/observability/notify"
)

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected error when webhook url missing")
	}
	if _, err := NewClient(Config{
		URL:              "https://hooks.example.com/farmdesk",
		DetailExpression: "not[valid",
	}); err == nil {
		t.Fatal("expected error for malformed detail expression")
	}
}

func TestFormatMessageIncludesFields(t *testing.T) {
	client, err := NewClient(Config{
		URL:      "https://hooks.example.com/farmdesk",
		Channel:  "#ops",
		Username: "bot",
		Timeout:  time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msg := client.formatMessage(notify.IncidentPayload{
		Component:  "selection_reaper",
		Operation:  "cleanup",
		FarmID:     "farm-1",
		FarmName:   "La Esperanza",
		UserID:     "user-9",
		Error:      "boom",
		ErrorClass: "transient",
	})

	if msg["username"] != "bot" {
		t.Fatalf("expected username to be preserved, got %v", msg["username"])
	}
	if msg["channel"] != "#ops" {
		t.Fatalf("expected channel to be set, got %v", msg["channel"])
	}

	text, ok := msg["text"].(string)
	if !ok {
		t.Fatalf("expected text field")
	}
	if !containsAll(
		text,
		[]string{"Incident alert", "selection_reaper", "cleanup", "La Esperanza", "farm-1", "user-9", "boom", "transient"},
	) {
		t.Fatalf("message text missing fields: %s", text)
	}
}

func TestFormatMessageDetailExpression(t *testing.T) {
	client, err := NewClient(Config{
		URL:              "https://hooks.example.com/farmdesk",
		DetailExpression: "context.reason",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msg := client.formatMessage(notify.IncidentPayload{
		Component: "reaper",
		Error:     "boom",
		Detail: map[string]any{
			"context": map[string]any{"reason": "redis scan timed out"},
			"noise":   "ignored",
		},
	})

	text, ok := msg["text"].(string)
	if !ok {
		t.Fatalf("expected text field")
	}
	if !strings.Contains(text, "Detail: redis scan timed out") {
		t.Fatalf("expected derived detail in text: %s", text)
	}
	if strings.Contains(text, "ignored") {
		t.Fatalf("expected raw metadata suppressed when expression matches: %s", text)
	}
}

func TestFormatMessageMetadataFallback(t *testing.T) {
	client, err := NewClient(Config{
		URL:              "https://hooks.example.com/farmdesk",
		DetailExpression: "missing.path",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msg := client.formatMessage(notify.IncidentPayload{
		Error: "boom",
		Detail: map[string]any{
			"batch": 500,
		},
	})

	text, ok := msg["text"].(string)
	if !ok {
		t.Fatalf("expected text field")
	}
	if !strings.Contains(text, "batch: 500") {
		t.Fatalf("expected metadata listing in text: %s", text)
	}
}

func TestFormatFarmValuePermutations(t *testing.T) {
	tcs := []struct {
		name   string
		farmID string
		farm   string
		want   string
	}{
		{name: "id only", farmID: "farm-1", want: "farm-1"},
		{name: "name only", farm: "La Esperanza", want: "La Esperanza"},
		{name: "id and name", farmID: "farm-2", farm: "La Esperanza", want: "La Esperanza (farm-2)"},
		{name: "empty inputs", want: ""},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			got := formatFarmValue(tc.farmID, tc.farm)
			if got != tc.want {
				t.Fatalf("formatFarmValue(%q,%q) = %q, want %q", tc.farmID, tc.farm, got, tc.want)
			}
		})
	}
}

func containsAll(text string, substrs []string) bool {
	for _, s := range substrs {
		if !strings.Contains(text, s) {
			return false
		}
	}
	return true
}
