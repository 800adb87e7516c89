// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store persists habitrun records as JSON documents in named
// collections inside a single SQLite database.
//
// Each collection is keyed either by an auto-assigned integer id or by a
// caller-supplied string key. Every call runs in its own transaction and
// concurrent writers to the same record are last-write-wins.
//
// # Key Types
//
//   - Store: the database handle
//   - Spec: a collection's name and key kind
//   - Doc: a raw keyed document, used by export/import
//
// # Usage
//
//	s, err := store.Open(filepath.Join(dir, "habitrun.db"))
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	id, err := s.Insert(ctx, store.MonthlyGoals, func(id int64) (any, error) {
//	    goal.ID = id
//	    return goal, nil
//	})
package store
