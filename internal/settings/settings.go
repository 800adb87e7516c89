// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package settings holds the generation credentials: the API key and the
// selected model.
//
// Values are resolved once and then served from an in-memory cache.
// Explicit setters prime or override the cache, for example right after the
// user saves a new key. Resolution order is cache, then the stored
// "appConfig" record, then config/environment defaults.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/jeranaias/habitrun/internal/logging"
	"github.com/jeranaias/habitrun/internal/secret"
	"github.com/jeranaias/habitrun/internal/store"
)

// RecordKey is the key of the settings record in the appSettings collection.
const RecordKey = "appConfig"

const (
	cacheAPIKey = "apiKey"
	cacheModel  = "model"
)

// Record is the stored settings document. The API key is sealed at rest.
type Record struct {
	Key          string `json:"key"`
	GeminiAPIKey string `json:"geminiApiKey"`
	GeminiModel  string `json:"geminiModel"`
	UpdatedAt    int64  `json:"updatedAt,omitempty"`
}

// Options configures Settings.
type Options struct {
	// DefaultAPIKey is used when nothing is stored (config or env).
	DefaultAPIKey string

	// DefaultModel is used when nothing is stored.
	DefaultModel string

	Logger *logrus.Logger
}

// Settings resolves and caches credentials. Safe for concurrent use.
type Settings struct {
	store *store.Store
	box   *secret.Box
	cache *cache.Cache
	log   *logrus.Entry
	now   func() time.Time

	mu            sync.RWMutex
	defaultAPIKey string
	defaultModel  string
}

// New creates Settings backed by st. box seals the key at rest.
func New(st *store.Store, box *secret.Box, opts Options) *Settings {
	return &Settings{
		store:         st,
		box:           box,
		cache:         cache.New(cache.NoExpiration, 0),
		log:           logging.For(opts.Logger, "settings"),
		now:           time.Now,
		defaultAPIKey: strings.TrimSpace(opts.DefaultAPIKey),
		defaultModel:  strings.TrimSpace(opts.DefaultModel),
	}
}

// =============================================================================
// GET-OR-LOAD
// =============================================================================

// APIKey returns the API key. An empty result is not cached, so a key saved
// later is picked up on the next call.
func (s *Settings) APIKey(ctx context.Context) (string, error) {
	return s.resolve(ctx, cacheAPIKey)
}

// Model returns the selected model.
func (s *Settings) Model(ctx context.Context) (string, error) {
	return s.resolve(ctx, cacheModel)
}

func (s *Settings) resolve(ctx context.Context, name string) (string, error) {
	if v, ok := s.cache.Get(name); ok {
		return v.(string), nil
	}

	rec, err := s.Load(ctx)
	if err != nil {
		return "", err
	}

	s.mu.RLock()
	var value string
	switch name {
	case cacheAPIKey:
		value = firstNonEmpty(rec.GeminiAPIKey, s.defaultAPIKey)
	case cacheModel:
		value = firstNonEmpty(rec.GeminiModel, s.defaultModel)
	}
	s.mu.RUnlock()

	if value != "" {
		s.cache.Set(name, value, cache.NoExpiration)
	}
	return value, nil
}

// Load reads the stored record with the key unsealed. A missing record is
// returned as an empty Record.
func (s *Settings) Load(ctx context.Context) (Record, error) {
	var rec Record
	err := s.store.Get(ctx, store.AppSettings, RecordKey, &rec)
	if errors.Is(err, store.ErrNotFound) {
		return Record{Key: RecordKey}, nil
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to load settings: %w", err)
	}

	key, err := s.box.Unseal(rec.GeminiAPIKey)
	if err != nil {
		s.log.WithError(err).Warn("stored API key could not be unsealed; ignoring it")
		key = ""
	}
	rec.GeminiAPIKey = strings.TrimSpace(key)
	rec.GeminiModel = strings.TrimSpace(rec.GeminiModel)
	return rec, nil
}

// =============================================================================
// SETTERS
// =============================================================================

// SetAPIKey primes the cached key without persisting it.
func (s *Settings) SetAPIKey(key string) {
	s.set(cacheAPIKey, key)
}

// SetModel primes the cached model without persisting it.
func (s *Settings) SetModel(model string) {
	s.set(cacheModel, model)
}

func (s *Settings) set(name, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		s.cache.Delete(name)
		return
	}
	s.cache.Set(name, value, cache.NoExpiration)
}

// Save persists the key and model and primes the cache with them. An empty
// model keeps the stored one.
func (s *Settings) Save(ctx context.Context, apiKey, model string) error {
	current, err := s.Load(ctx)
	if err != nil {
		return err
	}

	apiKey = strings.TrimSpace(apiKey)
	model = strings.TrimSpace(model)
	if model == "" {
		model = current.GeminiModel
	}

	sealed, err := s.box.Seal(apiKey)
	if err != nil {
		return fmt.Errorf("failed to seal API key: %w", err)
	}

	rec := Record{
		Key:          RecordKey,
		GeminiAPIKey: sealed,
		GeminiModel:  model,
		UpdatedAt:    s.now().UnixMilli(),
	}
	if err := s.store.Put(ctx, store.AppSettings, RecordKey, rec); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	s.SetAPIKey(apiKey)
	s.SetModel(model)
	s.log.WithField("model", model).Info("settings saved")
	return nil
}

// SetDefaults replaces the config/environment fallbacks and drops cached
// values so they are resolved again.
func (s *Settings) SetDefaults(apiKey, model string) {
	s.mu.Lock()
	s.defaultAPIKey = strings.TrimSpace(apiKey)
	s.defaultModel = strings.TrimSpace(model)
	s.mu.Unlock()
	s.Invalidate()
}

// Invalidate drops cached values.
func (s *Settings) Invalidate() {
	s.cache.Flush()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
