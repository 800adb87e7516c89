// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gemini

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/jeranaias/habitrun/internal/logging"
)

// Configuration constants for the Gemini API.
const (
	// DefaultBaseURL is the v1beta REST root.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultModel is used when credentials name no model.
	DefaultModel = "gemini-2.5-flash"

	// MaxResponseSize caps how much of a response body is read.
	MaxResponseSize = 10 * 1024 * 1024
)

// sharedHTTPClient has no Timeout: every call is bounded by its context,
// which the prompt queue gives a deadline.
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	},
}

// =============================================================================
// CLIENT
// =============================================================================

// Client calls the Gemini REST API.
type Client struct {
	creds      Credentials
	baseURL    string
	httpClient *http.Client
	observer   Observer
	log        *logrus.Entry

	// models holds model lists per base URL and key fingerprint.
	models *gocache.Cache
}

// NewClient creates a client that resolves its key and model from creds on
// every call.
func NewClient(creds Credentials) *Client {
	return &Client{
		creds:      creds,
		baseURL:    DefaultBaseURL,
		httpClient: sharedHTTPClient,
		log:        logging.For(nil, "gemini"),
		models:     gocache.New(modelListTTL, 2*modelListTTL),
	}
}

// WithBaseURL sets a custom base URL for the API.
func (c *Client) WithBaseURL(u string) *Client {
	if u = strings.TrimSpace(u); u != "" {
		c.baseURL = strings.TrimSuffix(u, "/")
	}
	return c
}

// WithHTTPClient replaces the HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.httpClient = hc
	}
	return c
}

// WithLogger sets the logger.
func (c *Client) WithLogger(logger *logrus.Logger) *Client {
	c.log = logging.For(logger, "gemini")
	return c
}

// WithObserver sets the usage observer.
func (c *Client) WithObserver(o Observer) *Client {
	c.observer = o
	return c
}

// BaseURL returns the API root in use.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Generate performs the call described by req. Text is returned trimmed and
// non-empty; every other outcome is one of the typed errors in this package.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	purpose := req.PurposeOr("generate")

	apiKey, model, err := c.resolve(ctx)
	if err != nil {
		c.report(purpose, model, Usage{}, err)
		return "", err
	}

	text, usage, err := c.generate(ctx, apiKey, model, req, purpose)
	c.report(purpose, model, usage, err)
	return text, err
}

func (c *Client) generate(ctx context.Context, apiKey, model string, req Request, purpose string) (string, Usage, error) {
	base := req.maxTokens()
	budget := base

	for attempt := 0; attempt < 2; attempt++ {
		resp, err := c.send(ctx, apiKey, model, buildBody(req, budget))
		if err != nil {
			return "", Usage{Retried: attempt > 0}, err
		}

		usage := resp.usage()
		usage.Retried = attempt > 0
		if text := resp.text(); text != "" {
			return text, usage, nil
		}

		if reason := resp.blockReason(); reason != "" {
			return "", usage, &SafetyBlockedError{Reason: reason}
		}

		finish := resp.finishReason()
		if finish == "MAX_TOKENS" && attempt == 0 {
			budget = base * TruncationRetryFactor
			c.log.WithFields(logrus.Fields{
				"purpose":    purpose,
				"max_tokens": budget,
			}).Warn("Gemini hit MAX_TOKENS with no text; retrying with a larger budget")
			if c.observer != nil {
				c.observer.GenerationRetried(purpose)
			}
			continue
		}
		return "", usage, &EmptyResultError{FinishReason: finish}
	}

	// unreachable: the second attempt always returns
	return "", Usage{Retried: true}, &EmptyResultError{}
}

// resolve loads credentials. A missing key fails before any network I/O.
func (c *Client) resolve(ctx context.Context) (string, string, error) {
	if c.creds == nil {
		return "", DefaultModel, ErrAuthMissing
	}
	model, err := c.creds.Model(ctx)
	if err != nil {
		return "", DefaultModel, fmt.Errorf("failed to load model setting: %w", err)
	}
	model = normalizeModel(model)

	apiKey, err := c.creds.APIKey(ctx)
	if err != nil {
		return "", model, fmt.Errorf("failed to load API key: %w", err)
	}
	if strings.TrimSpace(apiKey) == "" {
		return "", model, ErrAuthMissing
	}
	return strings.TrimSpace(apiKey), model, nil
}

// send performs one HTTP round trip and decodes a 2xx body.
func (c *Client) send(ctx context.Context, apiKey, model string, body wireRequest) (*wireResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		c.baseURL, url.PathEscape(model), url.QueryEscape(apiKey))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Cache-Control", "no-store")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
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

	c.log.WithFields(logrus.Fields{
		"model":    model,
		"status":   resp.StatusCode,
		"key":      KeyFingerprint(apiKey),
		"duration": time.Since(start).Round(time.Millisecond).String(),
	}).Debug("Gemini response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var decoded wireResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, &EmptyResultError{FinishReason: "UNPARSEABLE"}
	}
	return &decoded, nil
}

func (c *Client) report(purpose, model string, usage Usage, err error) {
	if err != nil {
		c.log.WithFields(logrus.Fields{
			"purpose": purpose,
			"model":   model,
			"kind":    string(KindOf(err)),
		}).WithError(err).Warn("Gemini generation failed")
	}
	if c.observer != nil {
		c.observer.GenerationFinished(purpose, model, usage, err)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// readResponse reads the response body with a size limit.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// normalizeModel trims whitespace and a "models/" prefix, as returned by the
// models endpoint.
func normalizeModel(model string) string {
	model = strings.TrimPrefix(strings.TrimSpace(model), "models/")
	if model == "" {
		return DefaultModel
	}
	return model
}

// KeyFingerprint returns the first 8 hex chars of the key's SHA-256, for
// logging without exposing the key.
func KeyFingerprint(apiKey string) string {
	if apiKey == "" {
		return "none"
	}
	h := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(h[:4])
}

// scrubKey removes the key from transport errors, which quote the URL.
func scrubKey(err error, apiKey string) error {
	if apiKey == "" || !strings.Contains(err.Error(), url.QueryEscape(apiKey)) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), url.QueryEscape(apiKey), "REDACTED"))
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
