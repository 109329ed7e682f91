// Copyright 2024
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/penny-vault/pvfin/pkginfo"
)

var (
	// ErrRateLimitExceeded is returned when the daily call budget is spent.
	// No network request is made in that case.
	ErrRateLimitExceeded = errors.New("daily api call limit reached")

	// ErrExtraction covers every network, HTTP, decoding and storage failure
	// while retrieving a company
	ErrExtraction = errors.New("extraction failed")

	ErrStatus = errors.New("status code is invalid")
	ErrNoData = errors.New("provider returned no records")
)

type Provider interface {
	Name() string
	Description() string
	Endpoints() []string
}

// Registry lists the providers known to pvfin, primary first
func Registry() []Provider {
	return []Provider{
		NewFMP(FMPOptions{}),
		NewYahoo(YahooOptions{}),
	}
}

// Error describes a failed provider call. Err always wraps either
// ErrRateLimitExceeded or ErrExtraction.
type Error struct {
	Provider   string
	Endpoint   string
	Ticker     string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s [%s]: %s (http %d)", e.Provider, e.Endpoint, e.Ticker, e.Err, e.StatusCode)
	}
	return fmt.Sprintf("%s %s [%s]: %s", e.Provider, e.Endpoint, e.Ticker, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func extractionError(providerName, endpoint, ticker string, statusCode int, err error) *Error {
	return &Error{
		Provider:   providerName,
		Endpoint:   endpoint,
		Ticker:     ticker,
		StatusCode: statusCode,
		Err:        fmt.Errorf("%w: %w", ErrExtraction, err),
	}
}

// RetryOptions controls the bounded retry applied to every HTTP call
type RetryOptions struct {
	Count   int
	Wait    time.Duration
	MaxWait time.Duration
	Timeout time.Duration
}

func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		Count:   3,
		Wait:    1 * time.Second,
		MaxWait: 8 * time.Second,
		Timeout: 30 * time.Second,
	}
}

var retryableStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// IsRetryable reports whether a response should be retried: transient
// statuses, transport errors and request timeouts are retried, a cancelled
// caller context is not
func IsRetryable(resp *resty.Response, err error) bool {
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return false
		}
		if resp != nil && resp.Request != nil && resp.Request.Context().Err() != nil {
			return false
		}
		return true
	}

	if resp == nil {
		return false
	}

	return retryableStatus[resp.StatusCode()]
}

func newClient(baseURL string, opts RetryOptions) *resty.Client {
	return resty.New().
		SetBaseURL(baseURL).
		SetHeader("User-Agent", pkginfo.UserAgent()).
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.Count).
		SetRetryWaitTime(opts.Wait).
		SetRetryMaxWaitTime(opts.MaxWait).
		AddRetryCondition(IsRetryable)
}
