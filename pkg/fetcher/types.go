// Copyright 2023 Paolo Fabio Zaino
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package fetcher implements the resilient HTTP transport: one long-lived
// session per adapter instance, browser-like headers, retry with exponential
// backoff, a blocking inter-request delay and soft-block pass-through.
package fetcher

import (
	"fmt"
	"net/http"
	"time"
)

// StatusSoftBlock is the ambiguous rate-limit/block status some sources
// answer with. It is not treated as a hard error: the result is handed back
// to the caller for inspection.
const StatusSoftBlock = 498

// Request describes a single fetch. Immutable once built.
type Request struct {
	URL    string
	Method string
	// Headers are merged over the session's base header set
	Headers map[string]string
	Body    string
	// MaxRetries overrides the session's attempt budget when > 0
	MaxRetries int
	// Timeout overrides the session's per-request timeout when > 0
	Timeout time.Duration
}

// Result is the uniform response contract. Owned exclusively by the caller
// that issued the request.
type Result struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
	// Attempts is how many HTTP attempts this result took
	Attempts int
}

// Text returns the response body as a string.
func (r *Result) Text() string {
	if r == nil {
		return ""
	}
	return string(r.Body)
}

// SoftBlocked reports whether the response carries the soft-block status.
func (r *Result) SoftBlocked() bool {
	return r != nil && r.StatusCode == StatusSoftBlock
}

// Error is the transport failure value. When the server answered with a
// non-retryable error status, Result carries the partial response so callers
// can still run diagnostic extraction over it.
type Error struct {
	URL        string
	StatusCode int
	Attempts   int
	Result     *Result
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d after %d attempt(s)", e.URL, e.StatusCode, e.Attempts)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}
