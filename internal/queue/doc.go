// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package queue serializes prompt calls through a single worker.
//
// At most one task runs at a time. Tasks start in submission order, each
// only after the previous one settled, and a failed task never stops the
// ones behind it. Every failure is logged and reported to the observer
// before the error is handed back to the task's own caller.
//
// # Key Types
//
//   - Queue: the serializer, owning one worker goroutine
//   - Job: a submitted task and its eventual outcome
//   - Info: an immutable snapshot of a job for history and metrics
//   - Observer: receives every finished job
//
// # Usage
//
//	q := queue.New(queue.WithTimeout(2 * time.Minute))
//	defer q.Close()
//
//	text, err := queue.Do(ctx, q, "coach.monthly", func(ctx context.Context) (string, error) {
//	    return client.Generate(ctx, req)
//	})
package queue
