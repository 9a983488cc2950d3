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

// Package fetcher implements the resilient HTTP transport.
package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	cmn "marketgrab/pkg/common"
	"marketgrab/pkg/metrics"
)

// retryableStatus lists the statuses worth retrying with backoff.
var retryableStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Options configures a Session.
type Options struct {
	// Delay is the mandatory pause enforced between consecutive requests
	Delay time.Duration
	// Timeout is the default per-request timeout
	Timeout time.Duration
	// Retries is the default attempt budget (minimum 1)
	Retries int
	// Backoff is the initial retry wait, doubled per attempt
	Backoff time.Duration
	// SoftBlockWait is the longer wait applied after a soft block
	SoftBlockWait time.Duration
	// Proxy is an optional proxy URL applied to every request
	Proxy string
	// UserAgent overrides the rotating pick when set
	UserAgent string
	// UserAgentType selects the user agent pool when UserAgent is unset
	UserAgentType string
	// Headers are merged over the default browser-like header set
	Headers map[string]string
}

// Session is a reusable connection session: one cookie jar, one user agent,
// one rate limit. A session belongs to exactly one pipeline and is not
// synchronized with other sessions.
type Session struct {
	client        *http.Client
	limiter       *rate.Limiter
	userAgent     string
	headers       map[string]string
	retries       int
	backoff       time.Duration
	timeout       time.Duration
	softBlockWait time.Duration
}

// defaultHeaders is the browser-like header set sent with every request.
// Accept-Encoding is left to the transport so response bodies arrive
// transparently decompressed.
var defaultHeaders = map[string]string{
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"Accept-Language":           "ru-RU,ru;q=0.9,en-US;q=0.8,en;q=0.7",
	"Connection":                "keep-alive",
	"Upgrade-Insecure-Requests": "1",
}

// NewSession creates a session with a fresh cookie jar and the configured
// retry, delay and proxy policy.
func NewSession(opts Options) (*Session, error) {
	if opts.Delay <= 0 {
		opts.Delay = time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Retries <= 0 {
		opts.Retries = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	if opts.SoftBlockWait <= 0 {
		opts.SoftBlockWait = 30 * time.Second
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}
	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil {
			return nil, &Error{URL: opts.Proxy, Err: err}
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}

	headers := make(map[string]string, len(defaultHeaders)+len(opts.Headers))
	for k, v := range defaultHeaders {
		headers[k] = v
	}
	for k, v := range opts.Headers {
		headers[k] = v
	}

	ua := opts.UserAgent
	if ua == "" {
		ua = cmn.PickUserAgent(opts.UserAgentType)
	}

	return &Session{
		client: &http.Client{
			Transport: transport,
			Jar:       jar,
		},
		limiter:       rate.NewLimiter(rate.Every(opts.Delay), 1),
		userAgent:     ua,
		headers:       headers,
		retries:       opts.Retries,
		backoff:       opts.Backoff,
		timeout:       opts.Timeout,
		softBlockWait: opts.SoftBlockWait,
	}, nil
}

// UserAgent returns the user agent the session identifies as.
func (s *Session) UserAgent() string {
	return s.userAgent
}

// SoftBlockWait returns the configured wait applied after a soft block.
func (s *Session) SoftBlockWait() time.Duration {
	return s.softBlockWait
}

// Execute performs the request with the session's retry/backoff policy.
//
// The limiter at the top is the mandatory inter-request delay: it blocks
// until at least Delay has passed since the previous request on this
// session, and blocks nothing else.
//
// A soft-block response is returned with a nil error so the caller can
// decide whether to re-initialize the session. Any other error status
// produces an *Error that still carries the partial response.
func (s *Session) Execute(ctx context.Context, req Request) (*Result, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, &Error{URL: req.URL, Err: err}
	}

	retries := req.MaxRetries
	if retries <= 0 {
		retries = s.retries
	}
	wait := s.backoff

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		metrics.FetchAttempts.Inc()
		if attempt > 1 {
			metrics.FetchRetries.Inc()
		}

		res, err := s.doOnce(ctx, req, attempt)
		if err != nil {
			lastErr = err
			cmn.DebugMsg(cmn.DbgLvlDebug, "request to %s failed (attempt %d/%d): %v", req.URL, attempt, retries, err)
			if ctx.Err() != nil {
				break
			}
		} else {
			switch {
			case res.StatusCode == StatusSoftBlock:
				metrics.SoftBlocks.Inc()
				return res, nil
			case retryableStatus[res.StatusCode]:
				lastErr = &Error{URL: req.URL, StatusCode: res.StatusCode, Attempts: attempt, Result: res}
				cmn.DebugMsg(cmn.DbgLvlDebug, "retryable status %d from %s (attempt %d/%d)", res.StatusCode, req.URL, attempt, retries)
			case res.StatusCode >= 400:
				return res, &Error{URL: req.URL, StatusCode: res.StatusCode, Attempts: attempt, Result: res}
			default:
				return res, nil
			}
		}

		if attempt < retries {
			if err := sleepCtx(ctx, wait); err != nil {
				return nil, &Error{URL: req.URL, Err: err}
			}
			wait *= 2
		}
	}

	if fe, ok := lastErr.(*Error); ok {
		return fe.Result, fe
	}
	return nil, &Error{URL: req.URL, Attempts: retries, Err: lastErr}
}

// doOnce performs one HTTP attempt.
func (s *Session) doOnce(ctx context.Context, req Request, attempt int) (*Result, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = s.timeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.Body != "" {
		body = strings.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(reqCtx, method, req.URL, body)
	if err != nil {
		return nil, err
	}
	for k, v := range s.headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	httpReq.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck // it's safe to ignore this error

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &Result{
		StatusCode: resp.StatusCode,
		Body:       data,
		Headers:    resp.Header,
		Attempts:   attempt,
	}, nil
}

// Reset re-initializes the session the way a fresh browser visit would:
// the cookie jar is replaced, a new user agent is picked and the site root
// is fetched to re-acquire cookies. Used for soft-block recovery.
func (s *Session) Reset(ctx context.Context, rootURL string) error {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return err
	}
	s.client.Jar = jar
	s.userAgent = cmn.PickUserAgent("desktop")

	cmn.DebugMsg(cmn.DbgLvlDebug, "re-initializing session against %s", rootURL)
	res, err := s.Execute(ctx, Request{URL: rootURL, MaxRetries: 1})
	if err != nil {
		return err
	}
	if res.SoftBlocked() {
		return &Error{URL: rootURL, StatusCode: res.StatusCode, Attempts: res.Attempts}
	}
	return nil
}

// sleepCtx waits for d unless the context is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
