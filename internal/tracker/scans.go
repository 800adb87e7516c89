// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tracker

import (
	"context"
	"fmt"
	"slices"

	"github.com/jeranaias/habitrun/internal/label"
	"github.com/jeranaias/habitrun/internal/store"
)

// LabelScan is a label analysis the user chose to keep.
type LabelScan struct {
	ID        int64              `json:"id" yaml:"id"`
	Profile   string             `json:"profile" yaml:"profile"`
	CreatedAt int64              `json:"createdAt" yaml:"createdAt"`
	Source    string             `json:"source,omitempty" yaml:"source,omitempty"`
	Analysis  label.Analysis     `json:"analysis" yaml:"analysis"`
	Score     *label.HealthScore `json:"score,omitempty" yaml:"score,omitempty"`
}

func (s LabelScan) owner() string { return s.Profile }

// SaveScan stores an approved scan result. source names the scanned image
// and may be empty.
func (t *Tracker) SaveScan(ctx context.Context, res label.Result, source string) (LabelScan, error) {
	var scan LabelScan
	_, err := t.store.Insert(ctx, store.LabelScans, func(id int64) (any, error) {
		scan = LabelScan{
			ID:        id,
			Profile:   t.profile,
			CreatedAt: t.nowMillis(),
			Source:    source,
			Analysis:  res.Analysis,
		}
		if res.Scored {
			score := res.Score
			scan.Score = &score
		}
		return scan, nil
	})
	if err != nil {
		return LabelScan{}, fmt.Errorf("failed to save label scan: %w", err)
	}
	return scan, nil
}

// Scans lists saved scans, newest first.
func (t *Tracker) Scans(ctx context.Context) ([]LabelScan, error) {
	scans, err := listOwned[LabelScan](ctx, t, store.LabelScans)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(scans, func(a, b LabelScan) int {
		return compareInt(b.CreatedAt, a.CreatedAt)
	})
	return scans, nil
}

// DeleteScan removes a saved scan.
func (t *Tracker) DeleteScan(ctx context.Context, id int64) error {
	if _, err := getOwned[LabelScan](ctx, t, store.LabelScans, id); err != nil {
		return err
	}
	return t.store.Delete(ctx, store.LabelScans, store.IntKey(id))
}
