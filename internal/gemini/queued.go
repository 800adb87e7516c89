// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gemini

import (
	"context"

	"github.com/jeranaias/habitrun/internal/queue"
)

// queued routes every call through a prompt queue.
type queued struct {
	gen Generator
	q   *queue.Queue
}

// Queued wraps gen so that each Generate call waits its turn in q. Only one
// call of all wrappers sharing q is in flight at a time.
func Queued(gen Generator, q *queue.Queue) Generator {
	return &queued{gen: gen, q: q}
}

// Generate submits the call and returns its own result or error.
func (g *queued) Generate(ctx context.Context, req Request) (string, error) {
	return queue.Do(ctx, g.q, req.PurposeOr("generate"), func(ctx context.Context) (string, error) {
		return g.gen.Generate(ctx, req)
	})
}
