// Package statsd emits counters, gauges and timings over UDP using the
// StatsD line protocol with DogStatsD-style tags.
package statsd

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Sink is the metric surface the services depend on.
type Sink interface {
	Count(name string, value int64, tags map[string]string)
	Gauge(name string, value float64, tags map[string]string)
	Timing(name string, value time.Duration, tags map[string]string)
}

// Config describes the StatsD endpoint and the tags applied to every metric.
type Config struct {
	Enabled    bool
	Address    string
	Prefix     string
	Logger     *slog.Logger
	GlobalTags map[string]string
}

// Client is a Sink writing to a UDP endpoint. A disabled or nil client
// swallows all calls, so callers never need to branch on configuration.
type Client struct {
	prefix     string
	globalTags map[string]string
	logger     *slog.Logger

	mu      sync.Mutex
	conn    net.Conn
	enabled bool
}

var _ Sink = (*Client)(nil)

const dialTimeout = 5 * time.Second

// NewClient dials the configured endpoint. With Enabled false or a blank
// address it returns a client that drops every metric.
func NewClient(cfg Config) (*Client, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		prefix:     strings.Trim(strings.TrimSpace(cfg.Prefix), "."),
		globalTags: copyTags(cfg.GlobalTags),
		logger:     logger,
	}

	address := strings.TrimSpace(cfg.Address)
	if !cfg.Enabled || address == "" {
		return c, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	conn, err := (&net.Dialer{}).DialContext(ctx, "udp", address)
	if err != nil {
		return nil, fmt.Errorf("statsd dial %s: %w", address, err)
	}
	c.conn = conn
	c.enabled = true
	return c, nil
}

// Enabled reports whether metrics are actually being sent.
func (c *Client) Enabled() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled && c.conn != nil
}

func (c *Client) Count(name string, value int64, tags map[string]string) {
	c.emit(name, strconv.FormatInt(value, 10)+"|c", tags)
}

func (c *Client) Gauge(name string, value float64, tags map[string]string) {
	c.emit(name, strconv.FormatFloat(value, 'f', -1, 64)+"|g", tags)
}

func (c *Client) Timing(name string, value time.Duration, tags map[string]string) {
	ms := float64(value) / float64(time.Millisecond)
	c.emit(name, strconv.FormatFloat(ms, 'f', -1, 64)+"|ms", tags)
}

// Close shuts the UDP connection down. Safe to call more than once and on a
// nil client.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.enabled = false
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) emit(name, payload string, tags map[string]string) {
	if c == nil {
		return
	}

	metric := c.qualify(name)
	if metric == "" {
		return
	}
	line := metric + ":" + payload + tagSuffix(c.globalTags, tags)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled || c.conn == nil {
		return
	}
	if _, err := c.conn.Write([]byte(line)); err != nil {
		c.logger.Debug("statsd write failed", "error", err)
	}
}

func (c *Client) qualify(name string) string {
	cleaned := cleanName(name)
	switch {
	case cleaned == "":
		return c.prefix
	case c.prefix == "":
		return cleaned
	default:
		return c.prefix + "." + cleaned
	}
}

// cleanName strips characters the line protocol cannot carry.
func cleanName(name string) string {
	n := strings.TrimSpace(name)
	if n == "" {
		return ""
	}
	n = strings.ReplaceAll(n, " ", "_")
	n = strings.ReplaceAll(n, "/", "_")
	for strings.Contains(n, "..") {
		n = strings.ReplaceAll(n, "..", ".")
	}
	return strings.Trim(n, ".")
}

// tagSuffix merges global and per-call tags (per-call wins) into the
// "|#k:v,k:v" trailer, keys sorted for stable output.
func tagSuffix(global, local map[string]string) string {
	merged := make(map[string]string, len(global)+len(local))
	for _, m := range []map[string]string{global, local} {
		for k, v := range m {
			if key := strings.TrimSpace(k); key != "" {
				merged[key] = strings.TrimSpace(v)
			}
		}
	}
	if len(merged) == 0 {
		return ""
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + ":" + merged[k]
	}
	return "|#" + strings.Join(pairs, ",")
}

func copyTags(tags map[string]string) map[string]string {
	cp := make(map[string]string, len(tags))
	for k, v := range tags {
		if key := strings.TrimSpace(k); key != "" {
			cp[key] = strings.TrimSpace(v)
		}
	}
	return cp
}
