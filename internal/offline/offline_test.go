// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package offline

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"
)

// =============================================================================
// MONITOR TESTS
// =============================================================================

func fakeDial(fail bool, calls *atomic.Int32) DialFunc {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		calls.Add(1)
		if fail {
			return nil, errors.New("no route to host")
		}
		client, server := net.Pipe()
		server.Close()
		return client, nil
	}
}

func TestMonitor_ForcedWins(t *testing.T) {
	var calls atomic.Int32
	m := NewMonitor(Options{Forced: true, Addr: "api.example.com:443", Dial: fakeDial(false, &calls)})

	if !m.IsOffline() {
		t.Error("forced monitor should report offline")
	}
	if calls.Load() != 0 {
		t.Errorf("forced monitor should not probe, got %d dials", calls.Load())
	}

	m.SetForced(false)
	if m.IsOffline() {
		t.Error("reachable host should report online once unforced")
	}
}

func TestMonitor_ProbeFailureMeansOffline(t *testing.T) {
	var calls atomic.Int32
	m := NewMonitor(Options{Addr: "api.example.com:443", Dial: fakeDial(true, &calls)})

	if !m.IsOffline() {
		t.Error("unreachable host should report offline")
	}
	if m.Status().Reachable {
		t.Error("status should record the failed probe")
	}
}

func TestMonitor_CachesWithinTTL(t *testing.T) {
	var calls atomic.Int32
	m := NewMonitor(Options{Addr: "api.example.com:443", TTL: time.Minute, Dial: fakeDial(false, &calls)})
	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	m.IsOffline()
	m.IsOffline()
	if calls.Load() != 1 {
		t.Errorf("expected 1 probe within TTL, got %d", calls.Load())
	}

	now = now.Add(2 * time.Minute)
	m.IsOffline()
	if calls.Load() != 2 {
		t.Errorf("expected a fresh probe after TTL, got %d", calls.Load())
	}
}

func TestMonitor_LocalhostSkipsProbe(t *testing.T) {
	var calls atomic.Int32
	m := NewMonitor(Options{Addr: "127.0.0.1:8080", Dial: fakeDial(true, &calls)})
	if m.IsOffline() {
		t.Error("loopback address should count as reachable")
	}
	if calls.Load() != 0 {
		t.Error("loopback address should not be dialed")
	}
}

// =============================================================================
// URL VALIDATION TESTS
// =============================================================================

func TestValidateURL(t *testing.T) {
	tests := []struct {
		url  string
		want error
	}{
		{"https://generativelanguage.googleapis.com/v1beta", nil},
		{"http://127.0.0.1:41234", nil},
		{"http://localhost/v1beta", nil},
		{"http://[::1]:9000", nil},
		{"http://example.com/v1beta", ErrInsecureRemote},
		{"file:///etc/passwd", ErrInvalidURLScheme},
		{"javascript:alert(1)", ErrInvalidURLScheme},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if err := ValidateURL(tt.url); !errors.Is(err, tt.want) {
				t.Errorf("ValidateURL(%q) = %v, want %v", tt.url, err, tt.want)
			}
		})
	}
}

func TestIsLocalhost(t *testing.T) {
	for _, host := range []string{"localhost", "LOCALHOST:80", "127.0.0.1", "127.5.5.5", "::1", "[::1]:443"} {
		if !IsLocalhost(host) {
			t.Errorf("IsLocalhost(%q) = false, want true", host)
		}
	}
	for _, host := range []string{"example.com", "192.168.1.1", "10.0.0.1:443"} {
		if IsLocalhost(host) {
			t.Errorf("IsLocalhost(%q) = true, want false", host)
		}
	}
}

func TestStatusBadge(t *testing.T) {
	if StatusBadge(Static(true)) != "[OFFLINE]" {
		t.Error("offline badge missing")
	}
	if StatusBadge(Static(false)) != "" || StatusBadge(nil) != "" {
		t.Error("online badge should be empty")
	}
}
