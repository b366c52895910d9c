package config

import (
	"strings"
	"time"
)

const defaultObservabilityName = "farmdesk"

// ObservabilityConfig groups configuration that controls metrics and
// operator-visible failure notifications.
type ObservabilityConfig struct {
	Metrics       ObservabilityMetricsConfig
	Notifications ObservabilityNotificationsConfig
}

// Sanitize applies guardrails to observability sub-configs.
func (c *ObservabilityConfig) Sanitize() {
	c.Metrics.Sanitize()
	c.Notifications.Sanitize()
}

// ObservabilityMetricsConfig controls emission of metrics to external sinks such as StatsD.
type ObservabilityMetricsConfig struct {
	Enabled       bool   `env:"OBSERVABILITY_METRICS_ENABLED"        envDefault:"false"`
	StatsdAddress string `env:"OBSERVABILITY_METRICS_STATSD_ADDRESS" envDefault:"127.0.0.1:8125"`
}

// Sanitize normalises derived fields and enforces safe defaults.
func (c *ObservabilityMetricsConfig) Sanitize() {
	c.StatsdAddress = strings.TrimSpace(c.StatsdAddress)
	if c.StatsdAddress == "" {
		c.Enabled = false
	}
}

// IsEnabled returns true when metrics emission is active after sanitisation.
func (c *ObservabilityMetricsConfig) IsEnabled() bool {
	return c.Enabled && c.StatsdAddress != ""
}

// ObservabilityNotificationsConfig controls outbound failure notifications.
type ObservabilityNotificationsConfig struct {
	Enabled    bool                      `env:"OBSERVABILITY_NOTIFICATIONS_ENABLED"     envDefault:"false"`
	Timeout    time.Duration             `env:"OBSERVABILITY_NOTIFICATIONS_TIMEOUT"     envDefault:"5s"`
	RetryLimit int                       `env:"OBSERVABILITY_NOTIFICATIONS_RETRY_LIMIT" envDefault:"3"`
	Webhook    WebhookNotificationConfig `                                                               envPrefix:"OBSERVABILITY_NOTIFICATIONS_WEBHOOK_"`
}

// Sanitize normalises notification configuration values.
func (c *ObservabilityNotificationsConfig) Sanitize() {
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.RetryLimit < 0 {
		c.RetryLimit = 0
	}

	c.Webhook.sanitize()

	if !c.Enabled {
		c.Webhook.Enabled = false
		return
	}

	if c.Webhook.Enabled && c.Webhook.URL == "" {
		c.Webhook.Enabled = false
	}
}

// WebhookNotificationConfig controls webhook fan-out (Slack-compatible
// incoming webhooks or any JSON endpoint).
type WebhookNotificationConfig struct {
	Enabled  bool   `env:"ENABLED"  envDefault:"false"`
	URL      string `env:"URL"`
	Channel  string `env:"CHANNEL"`
	Username string `env:"USERNAME" envDefault:"farmdesk"`

	// DetailExpression is an optional JMESPath expression applied to the
	// notification payload to extract the message detail field.
	DetailExpression string `env:"DETAIL_EXPRESSION"`
}

func (c *WebhookNotificationConfig) sanitize() {
	c.URL = strings.TrimSpace(c.URL)
	c.Channel = strings.TrimSpace(c.Channel)
	c.DetailExpression = strings.TrimSpace(c.DetailExpression)
	if c.Username == "" {
		c.Username = defaultObservabilityName
	}
}
