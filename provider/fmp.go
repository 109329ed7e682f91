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
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/penny-vault/pvfin/data"
)

const (
	FMPName           = "fmp"
	FMPDefaultBaseURL = "https://financialmodelingprep.com/api/v3"

	EndpointIncomeStatement  = "income-statement"
	EndpointAnalystEstimates = "analyst-estimates"
)

type FMPOptions struct {
	BaseURL    string
	APIKey     string
	DailyLimit int

	// RateLimit is the maximum number of requests per minute; zero means
	// unthrottled
	RateLimit int
	Retry     RetryOptions
}

// FMP retrieves quarterly income statements and analyst estimates from the
// Financial Modeling Prep REST API
type FMP struct {
	client  *resty.Client
	budget  *CallBudget
	limiter *rate.Limiter
}

func NewFMP(opts FMPOptions) *FMP {
	if opts.BaseURL == "" {
		opts.BaseURL = FMPDefaultBaseURL
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(opts.RateLimit)/float64(61)), 1)
	}

	return &FMP{
		client:  newClient(opts.BaseURL, opts.Retry).SetQueryParam("apikey", opts.APIKey),
		budget:  NewCallBudget(opts.DailyLimit),
		limiter: limiter,
	}
}

func (fmp *FMP) Name() string {
	return FMPName
}

func (fmp *FMP) Description() string {
	return `Financial Modeling Prep provides quarterly income statements and consensus analyst estimates over a REST API. It is the primary source; requests count against a daily call budget.`
}

func (fmp *FMP) Endpoints() []string {
	return []string{EndpointIncomeStatement, EndpointAnalystEstimates}
}

// Budget returns the daily call budget shared by both endpoints
func (fmp *FMP) Budget() *CallBudget {
	return fmp.budget
}

// IncomeStatement returns up to limit quarterly income statements, newest
// first. An empty response is reported as ErrExtraction.
func (fmp *FMP) IncomeStatement(ctx context.Context, ticker string, limit int) ([]data.PrimaryRecord, error) {
	records, err := fmp.get(ctx, EndpointIncomeStatement, ticker, limit)
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return nil, extractionError(FMPName, EndpointIncomeStatement, ticker, 0, ErrNoData)
	}

	return records, nil
}

// AnalystEstimates returns up to limit quarterly consensus estimates. An
// empty list is a valid answer.
func (fmp *FMP) AnalystEstimates(ctx context.Context, ticker string, limit int) ([]data.PrimaryRecord, error) {
	return fmp.get(ctx, EndpointAnalystEstimates, ticker, limit)
}

func (fmp *FMP) get(ctx context.Context, endpoint, ticker string, limit int) ([]data.PrimaryRecord, error) {
	logger := zerolog.Ctx(ctx).With().Str("Provider", FMPName).Str("Endpoint", endpoint).Str("Ticker", ticker).Logger()

	if err := fmp.budget.Reserve(); err != nil {
		logger.Warn().Err(err).Msg("daily call budget exhausted, skipping request")
		return nil, &Error{Provider: FMPName, Endpoint: endpoint, Ticker: ticker, Err: err}
	}

	if err := fmp.limiter.Wait(ctx); err != nil {
		return nil, extractionError(FMPName, endpoint, ticker, 0, err)
	}

	resp, err := fmp.client.R().
		SetContext(ctx).
		SetPathParam("ticker", ticker).
		SetQueryParam("period", "quarter").
		SetQueryParam("limit", strconv.Itoa(limit)).
		Get(fmt.Sprintf("/%s/{ticker}", endpoint))
	if err != nil {
		logger.Error().Err(err).Msg("request failed")
		return nil, extractionError(FMPName, endpoint, ticker, 0, err)
	}

	if resp.StatusCode() >= 300 {
		logger.Error().Int("StatusCode", resp.StatusCode()).Str("Body", truncate(resp.String(), 256)).Msg("received invalid status code")
		return nil, extractionError(FMPName, endpoint, ticker, resp.StatusCode(), fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode()))
	}

	var rows []map[string]any
	dec := json.NewDecoder(bytes.NewReader(resp.Body()))
	dec.UseNumber()
	if err := dec.Decode(&rows); err != nil {
		logger.Error().Err(err).Str("Body", truncate(resp.String(), 256)).Msg("could not decode response")
		return nil, extractionError(FMPName, endpoint, ticker, resp.StatusCode(), err)
	}

	records := make([]data.PrimaryRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, data.PrimaryRecord(row))
	}

	logger.Debug().Int("NumRecords", len(records)).Int("CallsUsed", fmp.budget.Used()).Msg("fetched records")
	return records, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
