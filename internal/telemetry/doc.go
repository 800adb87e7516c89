// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry tracks model usage for habitrun.
//
// Two views are kept. Metrics holds Prometheus collectors for the current
// process (calls, failures, latency, retries, tokens and prompt queue
// activity) on a private registry. UsageLog persists per-day totals so the
// stats command can show history across runs.
//
// # Key Types
//
//   - Metrics: Prometheus collectors, observer of the queue and the client
//   - Snapshot: plain totals read back from the registry
//   - UsageLog: per-day usage files under the data directory
//   - DailyUsage: totals for one day
//
// # Usage
//
//	m := telemetry.NewMetrics(q.Pending)
//	q := queue.New(queue.WithObserver(m))
//	client := gemini.NewClient(creds).WithObserver(m)
//	...
//	snap := m.Snapshot()
package telemetry
