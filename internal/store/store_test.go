// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type goal struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

type entry struct {
	Key  string `json:"key"`
	Note string `json:"note"`
}

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func insertGoal(t *testing.T, s *Store, title string) int64 {
	t.Helper()
	id, err := s.Insert(context.Background(), MonthlyGoals, func(id int64) (any, error) {
		return goal{ID: id, Title: title}, nil
	})
	require.NoError(t, err)
	return id
}

func TestInsert_AssignsIncreasingIDs(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	first := insertGoal(t, s, "Run 5k")
	second := insertGoal(t, s, "Read 2 books")
	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(2), second)

	var g goal
	require.NoError(t, s.Get(ctx, MonthlyGoals, IntKey(second), &g))
	assert.Equal(t, goal{ID: 2, Title: "Read 2 books"}, g)
}

func TestInsert_SequencesAreIndependent(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	insertGoal(t, s, "a")
	id, err := s.Insert(ctx, WeeklyGoals, func(id int64) (any, error) { return goal{ID: id}, nil })
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
}

func TestInsert_RejectsStringKeyedCollection(t *testing.T) {
	s := openTemp(t)
	_, err := s.Insert(context.Background(), DailyEntries, func(id int64) (any, error) { return entry{}, nil })
	assert.Error(t, err)
}

func TestInsert_BuildErrorRollsBack(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	_, err := s.Insert(ctx, MonthlyGoals, func(id int64) (any, error) {
		return nil, errors.New("boom")
	})
	require.Error(t, err)

	n, err := s.Count(ctx, MonthlyGoals)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, int64(1), insertGoal(t, s, "after rollback"))
}

func TestGet_NotFound(t *testing.T) {
	s := openTemp(t)
	var e entry
	err := s.Get(context.Background(), DailyEntries, "default_2026-01-01", &e)
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
}

func TestUnknownCollection(t *testing.T) {
	s := openTemp(t)
	_, err := s.Count(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrUnknownCollection))
}

func TestPut_UpsertsAndOrdersKeys(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, DailyEntries, "default_2026-01-02", entry{Key: "default_2026-01-02"}))
	require.NoError(t, s.Put(ctx, DailyEntries, "default_2026-01-01", entry{Key: "default_2026-01-01", Note: "v1"}))
	require.NoError(t, s.Put(ctx, DailyEntries, "default_2026-01-01", entry{Key: "default_2026-01-01", Note: "v2"}))

	entries, err := All[entry](ctx, s, DailyEntries)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "default_2026-01-01", entries[0].Key)
	assert.Equal(t, "v2", entries[0].Note)
}

func TestGetAll_NumericOrder(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, RoutineTasks, "10", goal{ID: 10}))
	require.NoError(t, s.Put(ctx, RoutineTasks, "9", goal{ID: 9}))
	require.NoError(t, s.Put(ctx, RoutineTasks, "100", goal{ID: 100}))

	goals, err := All[goal](ctx, s, RoutineTasks)
	require.NoError(t, err)
	ids := []int64{goals[0].ID, goals[1].ID, goals[2].ID}
	assert.Equal(t, []int64{9, 10, 100}, ids)
}

func TestPut_AdvancesSequence(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, MonthlyGoals, "41", goal{ID: 41}))
	assert.Equal(t, int64(42), insertGoal(t, s, "next"))

	assert.Error(t, s.Put(ctx, MonthlyGoals, "not-a-number", goal{}))
}

func TestDeleteClearCount(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	a := insertGoal(t, s, "a")
	insertGoal(t, s, "b")
	insertGoal(t, s, "c")

	require.NoError(t, s.Delete(ctx, MonthlyGoals, IntKey(a)))
	require.NoError(t, s.Delete(ctx, MonthlyGoals, "999"))

	n, err := s.Count(ctx, MonthlyGoals)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, s.Clear(ctx, MonthlyGoals))
	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, counts[MonthlyGoals])
	assert.Len(t, counts, len(Specs))

	// ids are not reused after a clear
	assert.Equal(t, int64(4), insertGoal(t, s, "d"))
}

func TestReplace(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	insertGoal(t, s, "old")

	docs := []Doc{
		{Key: "7", Data: json.RawMessage(`{"id":7,"title":"imported"}`)},
		{Key: "3", Data: json.RawMessage(`{"id":3,"title":"also imported"}`)},
	}
	require.NoError(t, s.Replace(ctx, MonthlyGoals, docs))

	goals, err := All[goal](ctx, s, MonthlyGoals)
	require.NoError(t, err)
	require.Len(t, goals, 2)
	assert.Equal(t, "also imported", goals[0].Title)

	err = s.Replace(ctx, MonthlyGoals, []Doc{{Key: "1", Data: json.RawMessage(`{broken`)}})
	require.Error(t, err)
	n, _ := s.Count(ctx, MonthlyGoals)
	assert.Equal(t, 2, n, "failed replace must roll back")
}

func TestConcurrentInsertsGetDistinctIDs(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := map[int64]bool{}
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := s.Insert(ctx, LabelScans, func(id int64) (any, error) { return goal{ID: id}, nil })
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			seen[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 20)
}

func TestOpen_InMemory(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()
	insertGoal(t, s, "memory")
}
