package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/agrovia/farmdesk/internal/observability/notify"
)

// Config captures the webhook delivery behaviour we need.
type Config struct {
	URL      string
	Channel  string
	Username string
	// DetailExpression is an optional JMESPath expression evaluated against the
	// incident detail map. The result is appended to the message text.
	DetailExpression string
	Timeout          time.Duration
	RetryLimit       int
	Client           *http.Client
}

// Client delivers incident notifications to a JSON webhook.
type Client struct {
	url        string
	channel    string
	username   string
	detailExpr string
	retryLimit int
	client     *http.Client
}

// NewClient builds a webhook client. Callers should pass a validated config.
func NewClient(cfg Config) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.URL)
	if endpoint == "" {
		return nil, errors.New("webhook url is required")
	}

	detailExpr := strings.TrimSpace(cfg.DetailExpression)
	if detailExpr != "" {
		if _, err := jmespath.Compile(detailExpr); err != nil {
			return nil, fmt.Errorf("invalid detail expression: %w", err)
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	retries := cfg.RetryLimit
	if retries < 0 {
		retries = 0
	}

	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		url:        endpoint,
		channel:    strings.TrimSpace(cfg.Channel),
		username:   fallbackString(strings.TrimSpace(cfg.Username), "farmdesk"),
		detailExpr: detailExpr,
		retryLimit: retries,
		client:     hc,
	}, nil
}

// SendIncident posts a formatted message to the webhook.
func (c *Client) SendIncident(ctx context.Context, payload notify.IncidentPayload) error {
	msg := c.formatMessage(payload)
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	attempts := c.retryLimit + 1
	var lastErr error
	for attempt := range attempts {
		err = c.post(ctx, body)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt < attempts-1 {
			// Simple linear backoff to avoid thundering retries.
			delay := time.Duration(attempt+1) * 200 * time.Millisecond
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				if !timer.Stop() {
					<-timer.C
				}
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	return lastErr
}

func (c *Client) formatMessage(payload notify.IncidentPayload) map[string]any {
	timestamp := payload.OccurredAt
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	text := strings.Builder{}
	writeHeader(&text, payload)
	appendDetails(&text, payload, formatFarmValue(payload.FarmID, payload.FarmName))
	if detail := c.evaluateDetail(payload.Detail); detail != "" {
		appendField(&text, "Detail", detail)
	} else {
		appendMetadata(&text, payload.Detail)
	}
	writeTimestamp(&text, timestamp)

	msg := map[string]any{
		"text":     text.String(),
		"username": c.username,
	}
	if c.channel != "" {
		msg["channel"] = c.channel
	}
	return msg
}

// evaluateDetail derives a compact detail string from the incident detail map.
// An empty result or evaluation error falls back to the raw metadata listing.
func (c *Client) evaluateDetail(detail map[string]any) string {
	if c.detailExpr == "" || len(detail) == 0 {
		return ""
	}
	res, err := jmespath.Search(c.detailExpr, detail)
	if err != nil || res == nil {
		return ""
	}
	if s, ok := res.(string); ok {
		return s
	}
	b, err := json.Marshal(res)
	if err != nil {
		return ""
	}
	return string(b)
}

func fallbackString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func (c *Client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.handleErrorResponse(resp)
	}

	return drainSuccess(resp)
}

func writeHeader(text *strings.Builder, payload notify.IncidentPayload) {
	text.WriteString("*Incident alert*")
	if payload.Component != "" {
		text.WriteString(" `")
		text.WriteString(payload.Component)
		text.WriteByte('`')
	}
	if payload.Operation != "" {
		text.WriteString(" (")
		text.WriteString(payload.Operation)
		text.WriteByte(')')
	}
	text.WriteByte('\n')
}

func appendDetails(text *strings.Builder, payload notify.IncidentPayload, farmValue string) {
	fields := []struct {
		label string
		value string
	}{
		{"Severity", fallbackString(payload.Severity, notify.SeverityCritical)},
		{"Farm", farmValue},
		{"User", payload.UserID},
		{"Error class", payload.ErrorClass},
		{"Error", payload.Error},
	}

	for _, field := range fields {
		appendField(text, field.label, field.value)
	}
}

func formatFarmValue(farmID, farmName string) string {
	id := strings.TrimSpace(farmID)
	name := strings.TrimSpace(farmName)

	switch {
	case name != "" && id != "":
		return fmt.Sprintf("%s (%s)", name, id)
	case name != "":
		return name
	default:
		return id
	}
}

func drainSuccess(resp *http.Response) error {
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			return errors.Join(
				fmt.Errorf("drain webhook response body: %w", err),
				fmt.Errorf("close response body: %w", closeErr),
			)
		}
		return fmt.Errorf("drain webhook response body: %w", err)
	}
	if err := resp.Body.Close(); err != nil {
		return fmt.Errorf("close response body: %w", err)
	}
	return nil
}

func (c *Client) handleErrorResponse(resp *http.Response) error {
	respBody, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			return errors.Join(
				fmt.Errorf("read webhook error response: %w", readErr),
				fmt.Errorf("close response body: %w", closeErr),
			)
		}
		return fmt.Errorf("read webhook error response: %w", readErr)
	}
	if err := resp.Body.Close(); err != nil {
		return fmt.Errorf("close response body: %w", err)
	}

	return fmt.Errorf("webhook %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
}

func appendField(text *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	text.WriteString("• ")
	text.WriteString(label)
	text.WriteString(": ")
	text.WriteString(value)
	text.WriteByte('\n')
}

func appendMetadata(text *strings.Builder, metadata map[string]any) {
	if len(metadata) == 0 {
		return
	}
	text.WriteString("• Detail:\n")
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		text.WriteString("    • ")
		text.WriteString(k)
		text.WriteString(": ")
		text.WriteString(fmt.Sprintf("%v", metadata[k]))
		text.WriteByte('\n')
	}
}

func writeTimestamp(text *strings.Builder, timestamp time.Time) {
	text.WriteString("• Timestamp: ")
	text.WriteString(timestamp.UTC().Format(time.RFC3339))
}
