// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package queue

import (
	"context"
	"time"
)

// =============================================================================
// JOB STATUS
// =============================================================================

// Status is the state of a job.
type Status string

const (
	// StatusQueued means the job waits for the worker.
	StatusQueued Status = "Queued"

	// StatusRunning means the job's task is executing.
	StatusRunning Status = "Running"

	// StatusDone means the task returned without error.
	StatusDone Status = "Done"

	// StatusFailed means the task returned an error, panicked or timed out.
	StatusFailed Status = "Failed"

	// StatusSkipped means the task never started: its caller gave up or the
	// queue closed first.
	StatusSkipped Status = "Skipped"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsFinal returns true for terminal states.
func (s Status) IsFinal() bool {
	return s == StatusDone || s == StatusFailed || s == StatusSkipped
}

// =============================================================================
// JOB
// =============================================================================

// Func is a unit of work. It must honour ctx cancellation.
type Func func(ctx context.Context) (any, error)

// Info is a snapshot of a job.
type Info struct {
	ID         string
	Label      string
	Status     Status
	EnqueuedAt time.Time
	StartedAt  time.Time
	EndedAt    time.Time
	Err        string
}

// Waited returns how long the job sat in the queue.
func (i Info) Waited() time.Duration {
	if i.StartedAt.IsZero() {
		if i.EndedAt.IsZero() {
			return 0
		}
		return i.EndedAt.Sub(i.EnqueuedAt)
	}
	return i.StartedAt.Sub(i.EnqueuedAt)
}

// Ran returns how long the task executed.
func (i Info) Ran() time.Duration {
	if i.StartedAt.IsZero() || i.EndedAt.IsZero() {
		return 0
	}
	return i.EndedAt.Sub(i.StartedAt)
}

// Job is a submitted task. Its fields are owned by the queue; read them
// through Info.
type Job struct {
	ctx  context.Context
	fn   Func
	done chan struct{}

	// guarded by Queue.mu
	info Info

	// written once before done is closed
	result any
	err    error
}

// ID returns the job identifier.
func (j *Job) ID() string {
	return j.info.ID
}

// Done is closed when the job reaches a terminal state.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job finishes and returns the task's own result.
func (j *Job) Wait() (any, error) {
	<-j.done
	return j.result, j.err
}
