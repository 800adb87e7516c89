// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gemini is the generation client for Google's Gemini API.
//
// It turns a Request (system instruction, user text, optional images) into a
// single generateContent call, extracts the text answer and classifies every
// failure into a typed error. A response that is empty because the token
// budget ran out is retried exactly once with four times the budget.
//
// # Key Types
//
//   - Client: HTTP client for the generateContent and models endpoints
//   - Request: one generation call, passed by value
//   - Generator: anything that turns a Request into text
//   - Credentials: source of the API key and model name
//
// # Usage
//
// Every component talks to the model through the prompt queue:
//
//	client := gemini.NewClient(settings)
//	gen := gemini.Queued(client, q)
//	text, err := gen.Generate(ctx, gemini.Request{User: "Plan my day"})
//
// # Security
//
// The API key travels only in the request URL. It is never logged; log lines
// carry a short SHA-256 fingerprint instead.
package gemini
