// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package offline reports whether the generation API is reachable.
//
// The coaching builders substitute deterministic templates only when a
// generation call fails while the device is offline. This package answers
// that question: a forced mode (config or --offline) always wins, otherwise
// a cached TCP probe of the API host decides.
//
// # Usage
//
//	mon := offline.NewMonitor(offline.Options{Addr: "generativelanguage.googleapis.com:443"})
//	if mon.IsOffline() {
//	    fmt.Println(offline.StatusBadge(mon))
//	}
package offline
