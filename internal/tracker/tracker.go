// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tracker implements the habit tracker sections on top of the
// collections store: monthly and weekly goals, routine tasks, daily entries,
// saved label scans, and whole-database export and import.
//
// Every record carries the profile it belongs to. A Tracker only ever sees
// the records of its own profile; records of other profiles are reported as
// not found.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jeranaias/habitrun/internal/logging"
	"github.com/jeranaias/habitrun/internal/store"
)

// DefaultProfile is used when no profile is configured.
const DefaultProfile = "default"

// DateLayout is the calendar date format used for daily entries.
const DateLayout = "2006-01-02"

// MonthLayout is the format of a monthly goal's month.
const MonthLayout = "2006-01"

var (
	// ErrEmptyLabel is returned when a title or label is blank.
	ErrEmptyLabel = errors.New("label must not be empty")

	// ErrInvalidDate is returned for dates that are not YYYY-MM-DD.
	ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")

	// ErrInvalidMonth is returned for months that are not YYYY-MM.
	ErrInvalidMonth = errors.New("invalid month, expected YYYY-MM")
)

// Tracker reads and writes one profile's records.
type Tracker struct {
	store   *store.Store
	profile string
	now     func() time.Time
	log     *logrus.Entry
}

// New creates a tracker for profile. A blank profile selects DefaultProfile.
func New(st *store.Store, profile string, logger *logrus.Logger) *Tracker {
	profile = strings.TrimSpace(profile)
	if profile == "" {
		profile = DefaultProfile
	}
	return &Tracker{
		store:   st,
		profile: profile,
		now:     time.Now,
		log:     logging.For(logger, "tracker").WithField("profile", profile),
	}
}

// Profile returns the profile this tracker is scoped to.
func (t *Tracker) Profile() string {
	return t.profile
}

// Today returns the current local date as YYYY-MM-DD.
func (t *Tracker) Today() string {
	return t.now().Format(DateLayout)
}

// nowMillis returns the current time in Unix milliseconds, the timestamp
// format of every stored record.
func (t *Tracker) nowMillis() int64 {
	return t.now().UnixMilli()
}

// ParseDate validates a YYYY-MM-DD date. An empty string is not valid.
func ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}

// ParseMonth validates a YYYY-MM month.
func ParseMonth(s string) (time.Time, error) {
	m, err := time.ParseInLocation(MonthLayout, strings.TrimSpace(s), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return m, nil
}

// dateOr returns date when set, today otherwise, validated.
func (t *Tracker) dateOr(date string) (string, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return t.Today(), nil
	}
	if _, err := ParseDate(date); err != nil {
		return "", err
	}
	return date, nil
}

// getOwned decodes the record at id and checks it belongs to this profile.
func getOwned[T interface{ owner() string }](ctx context.Context, t *Tracker, collection string, id int64) (T, error) {
	var v T
	if err := t.store.Get(ctx, collection, store.IntKey(id), &v); err != nil {
		return v, err
	}
	if v.owner() != t.profile {
		var zero T
		return zero, fmt.Errorf("%s/%d: %w", collection, id, store.ErrNotFound)
	}
	return v, nil
}

// listOwned returns every record of a collection that belongs to this profile.
func listOwned[T interface{ owner() string }](ctx context.Context, t *Tracker, collection string) ([]T, error) {
	all, err := store.All[T](ctx, t.store, collection)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, v := range all {
		if v.owner() == t.profile {
			out = append(out, v)
		}
	}
	return out, nil
}

func cleanLabel(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmptyLabel
	}
	return s, nil
}
