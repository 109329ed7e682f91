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
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/penny-vault/pvfin/data"
)

const (
	YahooName           = "yahoo"
	YahooDefaultBaseURL = "https://query2.finance.yahoo.com"

	EndpointTimeseries = "fundamentals-timeseries"

	// DefaultSecondaryPeriods is the number of most recent quarters read
	// from the secondary provider
	DefaultSecondaryPeriods = 8
)

var ErrProviderResponse = errors.New("provider reported an error")

// timeseries type -> line item row
var yahooLineItems = map[string]string{
	"quarterlyTotalRevenue": data.LineTotalRevenue,
	"quarterlyGrossProfit":  data.LineGrossProfit,
	"quarterlyNetIncome":    data.LineNetIncome,
}

type YahooOptions struct {
	BaseURL string

	// Lookback bounds how far back the timeseries request reaches
	Lookback time.Duration
	Retry    RetryOptions
}

// Yahoo reads the quarterly income statement from the Yahoo Finance
// fundamentals timeseries API. It has no analyst estimate equivalent.
type Yahoo struct {
	client   *resty.Client
	lookback time.Duration
	now      func() time.Time
}

func NewYahoo(opts YahooOptions) *Yahoo {
	if opts.BaseURL == "" {
		opts.BaseURL = YahooDefaultBaseURL
	}

	if opts.Lookback <= 0 {
		opts.Lookback = 3 * 365 * 24 * time.Hour
	}

	return &Yahoo{
		client:   newClient(opts.BaseURL, opts.Retry),
		lookback: opts.Lookback,
		now:      time.Now,
	}
}

func (yahoo *Yahoo) Name() string {
	return YahooName
}

func (yahoo *Yahoo) Description() string {
	return `Yahoo Finance fundamentals are used as a fallback when the primary provider fails. Only total revenue, gross profit and net income are available; EPS is derived from net income and there are no analyst estimates.`
}

func (yahoo *Yahoo) Endpoints() []string {
	return []string{EndpointTimeseries}
}

// IncomeStatement returns the quarterly line item table for ticker
func (yahoo *Yahoo) IncomeStatement(ctx context.Context, ticker string) (*data.LineItemTable, error) {
	logger := zerolog.Ctx(ctx).With().Str("Provider", YahooName).Str("Ticker", ticker).Logger()

	types := make([]string, 0, len(yahooLineItems))
	for typ := range yahooLineItems {
		types = append(types, typ)
	}
	sort.Strings(types)

	end := yahoo.now()
	start := end.Add(-yahoo.lookback)

	resp, err := yahoo.client.R().
		SetContext(ctx).
		SetPathParam("ticker", ticker).
		SetQueryParams(map[string]string{
			"symbol":  ticker,
			"type":    strings.Join(types, ","),
			"period1": strconv.FormatInt(start.Unix(), 10),
			"period2": strconv.FormatInt(end.Unix(), 10),
		}).
		Get("/ws/fundamentals-timeseries/v1/finance/timeseries/{ticker}")
	if err != nil {
		logger.Error().Err(err).Msg("request failed")
		return nil, extractionError(YahooName, EndpointTimeseries, ticker, 0, err)
	}

	if resp.StatusCode() >= 300 {
		logger.Error().Int("StatusCode", resp.StatusCode()).Msg("received invalid status code")
		return nil, extractionError(YahooName, EndpointTimeseries, ticker, resp.StatusCode(), fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode()))
	}

	table, err := ParseTimeseries(ticker, resp.Body())
	if err != nil {
		logger.Error().Err(err).Msg("could not parse timeseries response")
		return nil, extractionError(YahooName, EndpointTimeseries, ticker, resp.StatusCode(), err)
	}

	if table.Empty() {
		return nil, extractionError(YahooName, EndpointTimeseries, ticker, resp.StatusCode(), ErrNoData)
	}

	logger.Debug().Int("NumPeriods", len(table.Periods())).Msg("fetched line items")
	return table, nil
}

// ParseTimeseries converts a fundamentals timeseries response into a line
// item table
func ParseTimeseries(ticker string, body []byte) (*data.LineItemTable, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: invalid json", ErrProviderResponse)
	}

	doc := gjson.ParseBytes(body)
	if apiErr := doc.Get("timeseries.error"); apiErr.Exists() && apiErr.Type != gjson.Null {
		return nil, fmt.Errorf("%w: %s", ErrProviderResponse, apiErr.Get("description").String())
	}

	table := data.NewLineItemTable(ticker)

	doc.Get("timeseries.result").ForEach(func(_, result gjson.Result) bool {
		typ := result.Get("meta.type.0").String()
		row, ok := yahooLineItems[typ]
		if !ok {
			return true
		}

		result.Get(typ).ForEach(func(_, item gjson.Result) bool {
			if item.Type == gjson.Null {
				return true
			}

			period, err := time.Parse("2006-01-02", item.Get("asOfDate").String())
			if err != nil {
				return true
			}

			raw := item.Get("reportedValue.raw")
			if !raw.Exists() || raw.Type != gjson.Number {
				table.Set(row, period, nil)
				return true
			}

			val := raw.Float()
			table.Set(row, period, &val)
			return true
		})

		return true
	})

	return table, nil
}

// FormatIncomeStatement converts the most recent maxPeriods columns of a
// line item table into secondary records
func FormatIncomeStatement(table *data.LineItemTable, ticker string, maxPeriods int) []data.SecondaryRecord {
	if table == nil {
		return []data.SecondaryRecord{}
	}

	periods := table.Periods()
	if maxPeriods > 0 && len(periods) > maxPeriods {
		periods = periods[:maxPeriods]
	}

	records := make([]data.SecondaryRecord, 0, len(periods))
	for _, period := range periods {
		records = append(records, data.SecondaryRecord{
			"date":         period.Format("2006-01-02"),
			"symbol":       ticker,
			"revenue":      lineValue(table, data.LineTotalRevenue, period),
			"grossProfit":  lineValue(table, data.LineGrossProfit, period),
			"netIncome":    lineValue(table, data.LineNetIncome, period),
			"period":       "Q",
			"calendarYear": strconv.Itoa(period.Year()),
		})
	}

	return records
}

func lineValue(table *data.LineItemTable, row string, period time.Time) any {
	if val, ok := table.Value(row, period); ok {
		return val
	}
	return nil
}
