// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gemini

import (
	"context"
	"encoding/base64"
	"strings"
)

// =============================================================================
// REQUEST
// =============================================================================

// Default generation parameters.
const (
	DefaultTemperature     = 0.7
	DefaultTopP            = 0.9
	DefaultMaxOutputTokens = 2000

	// TruncationRetryFactor multiplies maxOutputTokens on the single retry
	// after an empty MAX_TOKENS answer.
	TruncationRetryFactor = 4

	// DefaultSystem and DefaultUser replace blank prompt text.
	DefaultSystem = "You are Health and Life Coach AI, a concise, upbeat wellness companion. Avoid medical advice and keep answers short."
	DefaultUser   = "Create a short, encouraging wellness suggestion for the upcoming month."
)

// Image is an inline image part. Data is base64 encoded.
type Image struct {
	MIMEType string
	Data     string
}

// NewImage encodes raw bytes as an inline image part.
func NewImage(mimeType string, raw []byte) Image {
	return Image{MIMEType: mimeType, Data: base64.StdEncoding.EncodeToString(raw)}
}

// Request is one generation call. Nil option pointers and a zero token budget
// use the defaults.
type Request struct {
	System          string
	User            string
	Images          []Image
	Temperature     *float64
	TopP            *float64
	MaxOutputTokens int

	// Purpose labels the call in the queue and in metrics. It is not sent.
	Purpose string `json:"-"`
}

// Float returns a pointer to v, for the optional Request fields.
func Float(v float64) *float64 {
	return &v
}

func (r Request) systemText() string {
	if s := strings.TrimSpace(r.System); s != "" {
		return s
	}
	return DefaultSystem
}

func (r Request) userText() string {
	if s := strings.TrimSpace(r.User); s != "" {
		return s
	}
	return DefaultUser
}

func (r Request) temperature() float64 {
	if r.Temperature != nil {
		return *r.Temperature
	}
	return DefaultTemperature
}

func (r Request) topP() float64 {
	if r.TopP != nil {
		return *r.TopP
	}
	return DefaultTopP
}

func (r Request) maxTokens() int {
	if r.MaxOutputTokens > 0 {
		return r.MaxOutputTokens
	}
	return DefaultMaxOutputTokens
}

// PurposeOr returns the request purpose, or fallback when unset.
func (r Request) PurposeOr(fallback string) string {
	if r.Purpose != "" {
		return r.Purpose
	}
	return fallback
}

// =============================================================================
// INTERFACES
// =============================================================================

// Generator turns a Request into trimmed, non-empty text.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Credentials resolves the API key and model for each call.
type Credentials interface {
	APIKey(ctx context.Context) (string, error)
	Model(ctx context.Context) (string, error)
}

// StaticCredentials is a fixed key and model.
type StaticCredentials struct {
	Key       string
	ModelName string
}

// APIKey returns the fixed key.
func (s StaticCredentials) APIKey(context.Context) (string, error) { return s.Key, nil }

// Model returns the fixed model.
func (s StaticCredentials) Model(context.Context) (string, error) { return s.ModelName, nil }

// Usage is the token accounting of one successful call.
type Usage struct {
	PromptTokens    int
	CandidateTokens int
	TotalTokens     int
	Retried         bool
	FinishReason    string
}

// Observer receives per-call results. Implementations must not block.
type Observer interface {
	GenerationFinished(purpose, model string, usage Usage, err error)
	GenerationRetried(purpose string)
}

// =============================================================================
// WIRE FORMAT
// =============================================================================

type wirePart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *wireInlineData `json:"inlineData,omitempty"`
}

type wireInlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type wireContent struct {
	Role  string     `json:"role"`
	Parts []wirePart `json:"parts"`
}

type wireGenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	TopP             float64 `json:"topP"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMimeType string  `json:"responseMimeType"`
}

type wireRequest struct {
	SystemInstruction wireContent          `json:"systemInstruction"`
	Contents          []wireContent        `json:"contents"`
	GenerationConfig  wireGenerationConfig `json:"generationConfig"`
}

type wireResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	Text *string `json:"text"`
}

// buildBody renders req with the given token budget. Image parts precede the
// text part.
func buildBody(req Request, maxTokens int) wireRequest {
	parts := make([]wirePart, 0, len(req.Images)+1)
	for _, img := range req.Images {
		parts = append(parts, wirePart{InlineData: &wireInlineData{MIMEType: img.MIMEType, Data: img.Data}})
	}
	parts = append(parts, wirePart{Text: req.userText()})

	return wireRequest{
		SystemInstruction: wireContent{
			Role:  "system",
			Parts: []wirePart{{Text: req.systemText()}},
		},
		Contents: []wireContent{{Role: "user", Parts: parts}},
		GenerationConfig: wireGenerationConfig{
			Temperature:      req.temperature(),
			TopP:             req.topP(),
			MaxOutputTokens:  maxTokens,
			ResponseMimeType: "text/plain",
		},
	}
}

// text extracts the answer: first candidate parts joined by newlines, else
// the top-level text field.
func (r *wireResponse) text() string {
	if len(r.Candidates) > 0 && len(r.Candidates[0].Content.Parts) > 0 {
		texts := make([]string, 0, len(r.Candidates[0].Content.Parts))
		for _, p := range r.Candidates[0].Content.Parts {
			texts = append(texts, p.Text)
		}
		return strings.TrimSpace(strings.Join(texts, "\n"))
	}
	if r.Text != nil {
		return strings.TrimSpace(*r.Text)
	}
	return ""
}

func (r *wireResponse) finishReason() string {
	if len(r.Candidates) > 0 {
		return r.Candidates[0].FinishReason
	}
	return ""
}

func (r *wireResponse) blockReason() string {
	if r.PromptFeedback != nil {
		return r.PromptFeedback.BlockReason
	}
	return ""
}

func (r *wireResponse) usage() Usage {
	u := Usage{FinishReason: r.finishReason()}
	if r.UsageMetadata != nil {
		u.PromptTokens = r.UsageMetadata.PromptTokenCount
		u.CandidateTokens = r.UsageMetadata.CandidatesTokenCount
		u.TotalTokens = r.UsageMetadata.TotalTokenCount
	}
	return u
}
