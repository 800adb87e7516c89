// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package offline

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrInvalidURLScheme is returned when a URL scheme is not http or https.
	ErrInvalidURLScheme = errors.New("only http and https URLs are allowed")

	// ErrInsecureRemote is returned for plain http to a non-loopback host.
	// The API key travels in the query string, so it must not cross the
	// network unencrypted.
	ErrInsecureRemote = errors.New("plain http is only allowed for localhost")
)

// =============================================================================
// SIGNAL
// =============================================================================

// Signal reports connectivity. Implementations may probe briefly but must
// return within a bounded time.
type Signal interface {
	IsOffline() bool
}

// Prober is a Signal that can refresh its state on demand, for callers that
// just saw a network failure and cannot trust a cached answer.
type Prober interface {
	Signal
	Probe(ctx context.Context) bool
}

// Static is a fixed Signal.
type Static bool

// IsOffline implements Signal.
func (s Static) IsOffline() bool { return bool(s) }

// =============================================================================
// MONITOR
// =============================================================================

// DialFunc opens a connection; it matches (*net.Dialer).DialContext.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Options configures a Monitor.
type Options struct {
	Forced  bool
	Addr    string
	Timeout time.Duration
	TTL     time.Duration
	Dial    DialFunc
}

// Monitor combines a forced offline flag with a cached reachability probe.
type Monitor struct {
	mu        sync.Mutex
	forced    bool
	addr      string
	timeout   time.Duration
	ttl       time.Duration
	dial      DialFunc
	now       func() time.Time
	checkedAt time.Time
	reachable bool
}

// Status is a snapshot of the monitor state.
type Status struct {
	Forced    bool
	Reachable bool
	CheckedAt time.Time
}

// NewMonitor creates a Monitor. Zero timeout and TTL get 1.5s and 30s.
func NewMonitor(opts Options) *Monitor {
	if opts.Timeout <= 0 {
		opts.Timeout = 1500 * time.Millisecond
	}
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Second
	}
	if opts.Dial == nil {
		opts.Dial = (&net.Dialer{}).DialContext
	}
	return &Monitor{
		forced:  opts.Forced,
		addr:    opts.Addr,
		timeout: opts.Timeout,
		ttl:     opts.TTL,
		dial:    opts.Dial,
		now:     time.Now,
	}
}

// SetForced enables or disables forced offline mode.
func (m *Monitor) SetForced(forced bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forced = forced
}

// IsOffline returns true when forced offline, or when the API host did not
// answer the most recent probe. A stale or missing probe result is refreshed
// first, bounded by the probe timeout.
func (m *Monitor) IsOffline() bool {
	m.mu.Lock()
	if m.forced {
		m.mu.Unlock()
		return true
	}
	fresh := !m.checkedAt.IsZero() && m.now().Sub(m.checkedAt) < m.ttl
	reachable := m.reachable
	m.mu.Unlock()

	if fresh {
		return !reachable
	}
	return !m.Probe(context.Background())
}

// Probe dials the API host and records the result. It returns true when the
// host is reachable. Without a probe address the host is assumed reachable.
func (m *Monitor) Probe(ctx context.Context) bool {
	reachable := true
	if m.addr != "" && !IsLocalhost(m.addr) {
		ctx, cancel := context.WithTimeout(ctx, m.timeout)
		conn, err := m.dial(ctx, "tcp", m.addr)
		cancel()
		if err != nil {
			reachable = false
		} else {
			conn.Close()
		}
	}

	m.mu.Lock()
	m.reachable = reachable
	m.checkedAt = m.now()
	m.mu.Unlock()
	return reachable
}

// Status returns the current state without probing.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{Forced: m.forced, Reachable: m.reachable, CheckedAt: m.checkedAt}
}

// =============================================================================
// URL VALIDATION
// =============================================================================

// IsLocalhost checks if a host (optionally with port) refers to loopback.
func IsLocalhost(host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(strings.Trim(host, "[]"))
	if host == "localhost" {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}

// ValidateURL checks that rawURL is http(s) and that plain http only targets
// loopback hosts.
func ValidateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	switch strings.ToLower(parsed.Scheme) {
	case "https":
		return nil
	case "http":
		if IsLocalhost(parsed.Host) {
			return nil
		}
		return ErrInsecureRemote
	default:
		return ErrInvalidURLScheme
	}
}

// =============================================================================
// STATUS DISPLAY
// =============================================================================

// StatusBadge returns "[OFFLINE]" when the signal reports offline.
func StatusBadge(s Signal) string {
	if s != nil && s.IsOffline() {
		return "[OFFLINE]"
	}
	return ""
}
