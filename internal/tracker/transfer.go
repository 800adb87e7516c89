// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"gopkg.in/yaml.v3"

	"github.com/jeranaias/habitrun/internal/store"
)

// ErrInvalidPayload is returned when an import is not an object of
// collection arrays.
var ErrInvalidPayload = errors.New("import must be an object with one array per collection")

// Format is an export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts json, yaml or yml. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown format %q (use json or yaml)", s)
}

// =============================================================================
// COLLECTIONS
// =============================================================================

// Collection is a user-visible collection.
type Collection struct {
	Name  string
	Label string
	Count int
}

// collections lists what export, import and the data views cover, in
// display order. App settings hold the sealed API key and stay out.
var collections = []Collection{
	{Name: store.MonthlyGoals, Label: "Monthly Goals"},
	{Name: store.WeeklyGoals, Label: "Weekly Goals"},
	{Name: store.RoutineTasks, Label: "Routine Tasks"},
	{Name: store.DailyEntries, Label: "Daily Entries"},
	{Name: store.DailyTasks, Label: "Daily Tasks"},
	{Name: store.LabelScans, Label: "Label Scans"},
}

// Collections returns the user-visible collections without counts.
func Collections() []Collection {
	out := make([]Collection, len(collections))
	copy(out, collections)
	return out
}

// CollectionByName finds a user-visible collection.
func CollectionByName(name string) (Collection, error) {
	for _, c := range collections {
		if strings.EqualFold(c.Name, name) {
			return c, nil
		}
	}
	return Collection{}, fmt.Errorf("%w: %s", store.ErrUnknownCollection, name)
}

// Overview counts the records of every user-visible collection, across all
// profiles.
func (t *Tracker) Overview(ctx context.Context) ([]Collection, error) {
	out := Collections()
	for i := range out {
		n, err := t.store.Count(ctx, out[i].Name)
		if err != nil {
			return nil, err
		}
		out[i].Count = n
	}
	return out, nil
}

// Records returns the raw documents of a user-visible collection.
func (t *Tracker) Records(ctx context.Context, name string) ([]store.Doc, error) {
	c, err := CollectionByName(name)
	if err != nil {
		return nil, err
	}
	return t.store.GetAll(ctx, c.Name)
}

// Clear removes every record of a user-visible collection.
func (t *Tracker) Clear(ctx context.Context, name string) error {
	c, err := CollectionByName(name)
	if err != nil {
		return err
	}
	if err := t.store.Clear(ctx, c.Name); err != nil {
		return err
	}
	t.log.WithField("collection", c.Name).Warn("Collection cleared")
	return nil
}

// =============================================================================
// EXPORT
// =============================================================================

// Export writes every user-visible collection as one object of arrays.
func (t *Tracker) Export(ctx context.Context, w io.Writer, format Format) error {
	payload := make(map[string][]json.RawMessage, len(collections))
	for _, c := range collections {
		docs, err := t.store.GetAll(ctx, c.Name)
		if err != nil {
			return err
		}
		items := make([]json.RawMessage, 0, len(docs))
		for _, d := range docs {
			items = append(items, d.Data)
		}
		payload[c.Name] = items
	}

	switch format {
	case FormatYAML:
		return writeYAML(w, payload)
	default:
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode export: %w", err)
		}
		_, err = w.Write(append(data, '\n'))
		return err
	}
}

// writeYAML re-reads each JSON document as YAML (JSON is a YAML subset) so
// integers stay integers in the output.
func writeYAML(w io.Writer, payload map[string][]json.RawMessage) error {
	out := make(map[string][]any, len(payload))
	for name, items := range payload {
		values := make([]any, 0, len(items))
		for _, raw := range items {
			var v any
			if err := yaml.Unmarshal(raw, &v); err != nil {
				return fmt.Errorf("failed to convert %s record: %w", name, err)
			}
			values = append(values, v)
		}
		out[name] = values
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return enc.Close()
}

// =============================================================================
// IMPORT
// =============================================================================

// Import replaces every user-visible collection with the payload's arrays.
// A collection missing from the payload is emptied. Record keys are coerced
// to the collection's key type, and records without a key get one. The
// whole payload is validated before anything is replaced. It returns the
// number of records imported per collection.
func (t *Tracker) Import(ctx context.Context, r io.Reader, format Format) (map[string]int, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read import: %w", err)
	}
	if format == FormatYAML {
		if data, err = yamlToJSON(data); err != nil {
			return nil, err
		}
	}

	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrInvalidPayload)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, ErrInvalidPayload
	}

	prepared := make(map[string][]store.Doc, len(collections))
	for _, c := range collections {
		spec, err := store.Lookup(c.Name)
		if err != nil {
			return nil, err
		}
		docs, err := normalizeCollection(spec, root.Get(c.Name))
		if err != nil {
			return nil, err
		}
		prepared[c.Name] = docs
	}

	counts := make(map[string]int, len(prepared))
	for _, c := range collections {
		if err := t.store.Replace(ctx, c.Name, prepared[c.Name]); err != nil {
			return nil, fmt.Errorf("failed to import %s: %w", c.Name, err)
		}
		counts[c.Name] = len(prepared[c.Name])
	}
	t.log.WithField("counts", counts).Info("Import complete")
	return counts, nil
}

func yamlToJSON(data []byte) ([]byte, error) {
	var v map[string]any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if v == nil {
		return nil, ErrInvalidPayload
	}
	out, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return out, nil
}

// normalizeCollection turns one payload array into store documents.
func normalizeCollection(spec store.Spec, arr gjson.Result) ([]store.Doc, error) {
	if !arr.Exists() || arr.Type == gjson.Null {
		return nil, nil
	}
	if !arr.IsArray() {
		return nil, fmt.Errorf("%w: %s is not an array", ErrInvalidPayload, spec.Name)
	}

	var (
		docs    []store.Doc
		unkeyed [][]byte
		maxID   int64
		seen    = make(map[string]bool)
	)
	for i, item := range arr.Array() {
		if !item.IsObject() {
			return nil, fmt.Errorf("%w: %s[%d] is not an object", ErrInvalidPayload, spec.Name, i)
		}
		raw := []byte(item.Raw)
		if spec.Name == store.RoutineTasks && !item.Get("active").Exists() {
			var err error
			if raw, err = sjson.SetBytes(raw, "active", true); err != nil {
				return nil, err
			}
		}

		key, ok, err := coerceKey(spec, item)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", spec.Name, i, err)
		}
		if !ok {
			if spec.Kind != store.AutoKey {
				return nil, fmt.Errorf("%w: %s[%d] has no %s", ErrInvalidPayload, spec.Name, i, spec.KeyField)
			}
			unkeyed = append(unkeyed, raw)
			continue
		}
		if spec.Kind == store.AutoKey {
			id, _ := store.ParseIntKey(key)
			maxID = max(maxID, id)
		}

		doc, err := keyedDoc(spec, key, raw)
		if err != nil {
			return nil, err
		}
		if seen[key] {
			return nil, fmt.Errorf("%w: %s has duplicate key %s", ErrInvalidPayload, spec.Name, key)
		}
		seen[key] = true
		docs = append(docs, doc)
	}

	for _, raw := range unkeyed {
		maxID++
		doc, err := keyedDoc(spec, store.IntKey(maxID), raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// coerceKey reads an item's key in the collection's key type. ok is false
// when no key can be found.
func coerceKey(spec store.Spec, item gjson.Result) (key string, ok bool, err error) {
	v := item.Get(spec.KeyField)

	if spec.Kind == store.AutoKey {
		switch v.Type {
		case gjson.Number:
			if v.Num != float64(int64(v.Num)) || v.Num < 1 {
				return "", false, fmt.Errorf("%w: %s %s is not a positive integer", ErrInvalidPayload, spec.KeyField, v.Raw)
			}
			return store.IntKey(v.Int()), true, nil
		case gjson.String:
			s := strings.TrimSpace(v.Str)
			if s == "" {
				return "", false, nil
			}
			id, err := strconv.ParseInt(s, 10, 64)
			if err != nil || id < 1 {
				return "", false, fmt.Errorf("%w: %s %q is not a positive integer", ErrInvalidPayload, spec.KeyField, v.Str)
			}
			return store.IntKey(id), true, nil
		}
		return "", false, nil
	}

	switch v.Type {
	case gjson.String:
		if s := strings.TrimSpace(v.Str); s != "" {
			return s, true, nil
		}
	case gjson.Number:
		return v.Raw, true, nil
	}

	// Daily entries can rebuild their key from profile and date.
	if spec.Name == store.DailyEntries {
		profile, date := item.Get("profile").String(), item.Get("date").String()
		if profile != "" && date != "" {
			return DailyKey(profile, date), true, nil
		}
	}
	return "", false, nil
}

// keyedDoc writes key into the document in its stored type.
func keyedDoc(spec store.Spec, key string, raw []byte) (store.Doc, error) {
	var value any = key
	if spec.Kind == store.AutoKey {
		id, err := store.ParseIntKey(key)
		if err != nil {
			return store.Doc{}, err
		}
		value = id
	}
	out, err := sjson.SetBytes(raw, spec.KeyField, value)
	if err != nil {
		return store.Doc{}, fmt.Errorf("failed to set %s: %w", spec.KeyField, err)
	}
	return store.Doc{Key: key, Data: json.RawMessage(out)}, nil
}
