// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"fmt"
	"strconv"
)

// Collection names.
const (
	MonthlyGoals = "monthlyGoals"
	WeeklyGoals  = "weeklyGoals"
	RoutineTasks = "routineTasks"
	DailyEntries = "dailyEntries"
	DailyTasks   = "dailyTasks"
	AppSettings  = "appSettings"
	LabelScans   = "labelScans"
)

// KeyKind says how a collection's records are keyed.
type KeyKind int

const (
	// AutoKey collections get increasing integer ids from Insert.
	AutoKey KeyKind = iota

	// StringKey collections are keyed by a field the caller sets.
	StringKey
)

// Spec describes a collection.
type Spec struct {
	Name string
	Kind KeyKind

	// KeyField is the JSON field that carries the key inside each document.
	KeyField string
}

// Specs lists every collection in export order.
var Specs = []Spec{
	{Name: MonthlyGoals, Kind: AutoKey, KeyField: "id"},
	{Name: WeeklyGoals, Kind: AutoKey, KeyField: "id"},
	{Name: RoutineTasks, Kind: AutoKey, KeyField: "id"},
	{Name: DailyEntries, Kind: StringKey, KeyField: "key"},
	{Name: DailyTasks, Kind: AutoKey, KeyField: "id"},
	{Name: AppSettings, Kind: StringKey, KeyField: "key"},
	{Name: LabelScans, Kind: AutoKey, KeyField: "id"},
}

// Lookup returns the spec for a collection name.
func Lookup(name string) (Spec, error) {
	for _, s := range Specs {
		if s.Name == name {
			return s, nil
		}
	}
	return Spec{}, fmt.Errorf("%w: %s", ErrUnknownCollection, name)
}

// IntKey formats an auto-assigned id as a record key.
func IntKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

// ParseIntKey parses a record key produced by IntKey.
func ParseIntKey(key string) (int64, error) {
	id, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer key %q: %w", key, err)
	}
	return id, nil
}
