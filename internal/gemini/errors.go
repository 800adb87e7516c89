// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gemini

import (
	"errors"
	"fmt"
)

// ErrAuthMissing means no API key is configured. It is returned before any
// network I/O.
var ErrAuthMissing = errors.New("Gemini API key missing. Add it from the Setup page.")

// HTTPError is a non-2xx response.
type HTTPError struct {
	Status int
	Body   string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("Gemini request failed (%d): %s", e.Status, e.Body)
}

// SafetyBlockedError means the prompt was blocked and no text came back. It
// is never retried.
type SafetyBlockedError struct {
	Reason string
}

// Error implements the error interface.
func (e *SafetyBlockedError) Error() string {
	return fmt.Sprintf("Gemini blocked the response (%s).", e.Reason)
}

// EmptyResultError means the model answered without usable text.
type EmptyResultError struct {
	FinishReason string
}

// Error implements the error interface.
func (e *EmptyResultError) Error() string {
	if e.FinishReason == "" {
		return "Gemini returned no usable content."
	}
	return fmt.Sprintf("Gemini returned no usable content (finishReason=%s).", e.FinishReason)
}

// NetworkError wraps a transport failure.
type NetworkError struct {
	Err error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("Gemini request could not be sent: %v", e.Err)
}

// Unwrap returns the transport error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Kind is a stable tag for a generation failure.
type Kind string

const (
	KindNone          Kind = ""
	KindAuthMissing   Kind = "auth_missing"
	KindHTTP          Kind = "http"
	KindSafetyBlocked Kind = "safety_blocked"
	KindEmptyResult   Kind = "empty_result"
	KindNetwork       Kind = "network"
	KindCanceled      Kind = "canceled"
	KindOther         Kind = "other"
)

// KindOf classifies err.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}

	var (
		httpErr *HTTPError
		blocked *SafetyBlockedError
		empty   *EmptyResultError
		netErr  *NetworkError
	)
	switch {
	case errors.Is(err, ErrAuthMissing):
		return KindAuthMissing
	case errors.As(err, &httpErr):
		return KindHTTP
	case errors.As(err, &blocked):
		return KindSafetyBlocked
	case errors.As(err, &empty):
		return KindEmptyResult
	case errors.As(err, &netErr):
		return KindNetwork
	case isContextErr(err):
		return KindCanceled
	default:
		return KindOther
	}
}
