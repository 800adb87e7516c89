// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/habitrun/internal/gemini"
	"github.com/jeranaias/habitrun/internal/util"
)

// =============================================================================
// DAILY USAGE
// =============================================================================

const dayLayout = "20060102"

// DailyUsage is the model usage of one calendar day.
type DailyUsage struct {
	Date            string         `json:"date"` // YYYYMMDD
	Calls           int            `json:"calls"`
	Failures        int            `json:"failures"`
	Retries         int            `json:"retries"`
	PromptTokens    int            `json:"prompt_tokens"`
	CandidateTokens int            `json:"candidate_tokens"`
	FailureKinds    map[string]int `json:"failure_kinds,omitempty"`
}

func (d *DailyUsage) add(usage gemini.Usage, err error) {
	d.Calls++
	if usage.Retried {
		d.Retries++
	}
	d.PromptTokens += usage.PromptTokens
	d.CandidateTokens += usage.CandidateTokens
	if err != nil {
		d.Failures++
		if d.FailureKinds == nil {
			d.FailureKinds = map[string]int{}
		}
		d.FailureKinds[string(gemini.KindOf(err))]++
	}
}

func (d *DailyUsage) merge(o DailyUsage) {
	d.Calls += o.Calls
	d.Failures += o.Failures
	d.Retries += o.Retries
	d.PromptTokens += o.PromptTokens
	d.CandidateTokens += o.CandidateTokens
	for k, v := range o.FailureKinds {
		if d.FailureKinds == nil {
			d.FailureKinds = map[string]int{}
		}
		d.FailureKinds[k] += v
	}
}

// =============================================================================
// USAGE LOG
// =============================================================================

// UsageLog accumulates usage in memory and merges it into one JSON file per
// day on Flush.
type UsageLog struct {
	dir string
	now func() time.Time

	mu      sync.Mutex
	pending map[string]*DailyUsage
}

// NewUsageLog creates the log directory if needed.
func NewUsageLog(dir string) (*UsageLog, error) {
	if dir == "" {
		return nil, errors.New("usage log directory is empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create usage directory: %w", err)
	}
	return &UsageLog{dir: dir, now: time.Now, pending: map[string]*DailyUsage{}}, nil
}

// Add records one finished generation.
func (l *UsageLog) Add(usage gemini.Usage, err error) {
	day := l.now().Format(dayLayout)

	l.mu.Lock()
	defer l.mu.Unlock()
	d, ok := l.pending[day]
	if !ok {
		d = &DailyUsage{Date: day}
		l.pending[day] = d
	}
	d.add(usage, err)
}

// Flush merges pending totals into the day files.
func (l *UsageLog) Flush() error {
	l.mu.Lock()
	pending := l.pending
	l.pending = map[string]*DailyUsage{}
	l.mu.Unlock()

	var errs []error
	for day, d := range pending {
		stored, err := l.Load(day)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		stored.Date = day
		stored.merge(*d)
		if err := l.save(stored); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (l *UsageLog) save(d DailyUsage) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	return util.AtomicWriteFile(l.path(d.Date), data, 0o600)
}

// Load returns the stored totals for day (YYYYMMDD).
func (l *UsageLog) Load(day string) (DailyUsage, error) {
	data, err := os.ReadFile(l.path(day))
	if err != nil {
		return DailyUsage{}, err
	}
	var d DailyUsage
	if err := json.Unmarshal(data, &d); err != nil {
		return DailyUsage{}, fmt.Errorf("corrupt usage file for %s: %w", day, err)
	}
	return d, nil
}

// Range returns stored days between from and to inclusive, oldest first.
// Unreadable or foreign files are skipped.
func (l *UsageLog) Range(from, to time.Time) ([]DailyUsage, error) {
	days, err := l.days()
	if err != nil {
		return nil, err
	}

	lo, hi := from.Format(dayLayout), to.Format(dayLayout)
	var out []DailyUsage
	for _, day := range days {
		if day < lo || day > hi {
			continue
		}
		d, err := l.Load(day)
		if err != nil {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// DeleteBefore removes day files older than before.
func (l *UsageLog) DeleteBefore(before time.Time) (int, error) {
	days, err := l.days()
	if err != nil {
		return 0, err
	}
	cutoff := before.Format(dayLayout)
	removed := 0
	for _, day := range days {
		if day >= cutoff {
			continue
		}
		if err := os.Remove(l.path(day)); err == nil {
			removed++
		}
	}
	return removed, nil
}

func (l *UsageLog) days() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, err
	}
	var days []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		day := strings.TrimSuffix(name, ".json")
		if _, err := time.Parse(dayLayout, day); err != nil {
			continue
		}
		days = append(days, day)
	}
	sort.Strings(days)
	return days, nil
}

func (l *UsageLog) path(day string) string {
	return filepath.Join(l.dir, day+".json")
}
