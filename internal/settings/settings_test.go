// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package settings

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/habitrun/internal/secret"
	"github.com/jeranaias/habitrun/internal/store"
)

func newSettings(t *testing.T, opts Options) (*Settings, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "habitrun.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	box, err := secret.Open(secret.Options{KeyPath: filepath.Join(dir, "secret.key")})
	require.NoError(t, err)
	return New(st, box, opts), st
}

func TestAPIKey_EmptyWhenNothingConfigured(t *testing.T) {
	s, _ := newSettings(t, Options{})
	key, err := s.APIKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "", key)
}

func TestAPIKey_FallsBackToDefault(t *testing.T) {
	s, _ := newSettings(t, Options{DefaultAPIKey: " env-key ", DefaultModel: "gemini-2.5-flash"})
	ctx := context.Background()

	key, err := s.APIKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, "env-key", key)

	model, err := s.Model(ctx)
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-flash", model)
}

func TestSave_PersistsSealedAndPrimesCache(t *testing.T) {
	s, st := newSettings(t, Options{DefaultModel: "gemini-2.5-flash"})
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "stored-key", "models/gemini-2.0-flash"))

	var raw Record
	require.NoError(t, st.Get(ctx, store.AppSettings, RecordKey, &raw))
	assert.True(t, secret.IsSealed(raw.GeminiAPIKey))
	assert.Equal(t, "models/gemini-2.0-flash", raw.GeminiModel)

	key, err := s.APIKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, "stored-key", key)

	rec, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "stored-key", rec.GeminiAPIKey)
}

func TestStoredValueBeatsDefault(t *testing.T) {
	s, _ := newSettings(t, Options{DefaultAPIKey: "env-key"})
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, "db-key", ""))

	s.Invalidate()
	key, err := s.APIKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, "db-key", key)
}

func TestCache_ServesWithoutReload(t *testing.T) {
	s, st := newSettings(t, Options{})
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, "first", "m1"))

	// Changing the record behind the cache is not visible until Invalidate.
	require.NoError(t, st.Put(ctx, store.AppSettings, RecordKey, Record{Key: RecordKey, GeminiAPIKey: "second"}))
	key, _ := s.APIKey(ctx)
	assert.Equal(t, "first", key)

	s.Invalidate()
	key, _ = s.APIKey(ctx)
	assert.Equal(t, "second", key)
}

func TestSetters_OverrideCache(t *testing.T) {
	s, _ := newSettings(t, Options{DefaultModel: "default-model"})
	ctx := context.Background()

	s.SetAPIKey("typed-key")
	s.SetModel("picked-model")
	key, _ := s.APIKey(ctx)
	model, _ := s.Model(ctx)
	assert.Equal(t, "typed-key", key)
	assert.Equal(t, "picked-model", model)

	s.SetModel("")
	model, _ = s.Model(ctx)
	assert.Equal(t, "default-model", model)
}

func TestEmptyKeyIsNotCached(t *testing.T) {
	s, st := newSettings(t, Options{})
	ctx := context.Background()

	key, _ := s.APIKey(ctx)
	require.Equal(t, "", key)

	// A key stored by another process shows up without Invalidate.
	require.NoError(t, st.Put(ctx, store.AppSettings, RecordKey, Record{Key: RecordKey, GeminiAPIKey: "late-key"}))
	key, _ = s.APIKey(ctx)
	assert.Equal(t, "late-key", key)
}

func TestSetDefaults_Invalidates(t *testing.T) {
	s, _ := newSettings(t, Options{DefaultModel: "a"})
	ctx := context.Background()
	m, _ := s.Model(ctx)
	require.Equal(t, "a", m)

	s.SetDefaults("", "b")
	m, _ = s.Model(ctx)
	assert.Equal(t, "b", m)
}
