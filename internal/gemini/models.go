// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ModelInfo is a model that supports generateContent.
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// ID returns the name without its "models/" prefix.
func (m ModelInfo) ID() string {
	return normalizeModel(m.Name)
}

// Label returns the display name, or the name when there is none.
func (m ModelInfo) Label() string {
	if m.DisplayName != "" {
		return m.DisplayName
	}
	return m.Name
}

type modelsResponse struct {
	Models []struct {
		Name                       string   `json:"name"`
		DisplayName                string   `json:"displayName"`
		SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
	} `json:"models"`
}

// modelListTTL bounds how long a model list is reused.
const modelListTTL = 10 * time.Minute

// ListModels returns the models usable with apiKey. Models that do not
// declare their supported methods are kept. An empty key is ErrAuthMissing.
func (c *Client) ListModels(ctx context.Context, apiKey string) ([]ModelInfo, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrAuthMissing
	}

	cacheKey := c.baseURL + "|" + KeyFingerprint(apiKey)
	if cached, ok := c.models.Get(cacheKey); ok {
		return append([]ModelInfo(nil), cached.([]ModelInfo)...), nil
	}

	endpoint := c.baseURL + "/models?key=" + url.QueryEscape(apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &NetworkError{Err: scrubKey(err, apiKey)}
	}
	defer resp.Body.Close()

	raw, err := readResponse(resp)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var decoded modelsResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("failed to parse model list: %w", err)
	}

	models := make([]ModelInfo, 0, len(decoded.Models))
	for _, m := range decoded.Models {
		if m.SupportedGenerationMethods != nil && !contains(m.SupportedGenerationMethods, "generateContent") {
			continue
		}
		models = append(models, ModelInfo{Name: m.Name, DisplayName: m.DisplayName})
	}

	c.models.SetDefault(cacheKey, models)
	return append([]ModelInfo(nil), models...), nil
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
