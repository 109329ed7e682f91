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
package data

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	// CurrencyPlaces is the number of fractional digits stored for revenue
	// and gross profit
	CurrencyPlaces = 2

	// PerSharePlaces is the number of fractional digits stored for EPS
	PerSharePlaces = 4
)

// QuarterLabel returns the canonical YYYY-QN label for a period end date
func QuarterLabel(date time.Time) string {
	quarter := (int(date.Month())-1)/3 + 1
	return fmt.Sprintf("%d-Q%d", date.Year(), quarter)
}

// NormalizedRecord is a quarterly income statement in canonical units.
// QuarterLabel is always QuarterLabel(QuarterDate); records are built once
// per run and not modified afterwards.
type NormalizedRecord struct {
	Ticker       string
	QuarterDate  time.Time
	QuarterLabel string
	Revenue      decimal.NullDecimal
	EPS          decimal.NullDecimal
	GrossProfit  decimal.NullDecimal
	Source       SourceKind
}

// NewNormalizedRecord builds a record whose label is derived from date and
// whose values are rounded to their storage precision
func NewNormalizedRecord(ticker string, date time.Time, revenue, eps, grossProfit decimal.NullDecimal) NormalizedRecord {
	return NormalizedRecord{
		Ticker:       ticker,
		QuarterDate:  date,
		QuarterLabel: QuarterLabel(date),
		Revenue:      roundNull(revenue, CurrencyPlaces),
		EPS:          roundNull(eps, PerSharePlaces),
		GrossProfit:  roundNull(grossProfit, CurrencyPlaces),
	}
}

func (rec *NormalizedRecord) MarshalZerologObject(e *zerolog.Event) {
	e.Str("Ticker", rec.Ticker)
	e.Str("QuarterLabel", rec.QuarterLabel)
	e.Time("QuarterDate", rec.QuarterDate)
	e.Str("Revenue", nullString(rec.Revenue))
	e.Str("EPS", nullString(rec.EPS))
	e.Str("GrossProfit", nullString(rec.GrossProfit))
}

// EstimateRecord is a consensus analyst estimate for one quarter
type EstimateRecord struct {
	Ticker           string
	QuarterDate      time.Time
	QuarterLabel     string
	EstimatedRevenue decimal.NullDecimal
	EstimatedEPS     decimal.NullDecimal
	AnalystCount     *int
}

// NewEstimateRecord builds an estimate whose label is derived from date
func NewEstimateRecord(ticker string, date time.Time, revenue, eps decimal.NullDecimal, analystCount *int) EstimateRecord {
	return EstimateRecord{
		Ticker:           ticker,
		QuarterDate:      date,
		QuarterLabel:     QuarterLabel(date),
		EstimatedRevenue: roundNull(revenue, CurrencyPlaces),
		EstimatedEPS:     roundNull(eps, PerSharePlaces),
		AnalystCount:     analystCount,
	}
}

func (rec *EstimateRecord) MarshalZerologObject(e *zerolog.Event) {
	e.Str("Ticker", rec.Ticker)
	e.Str("QuarterLabel", rec.QuarterLabel)
	e.Str("EstimatedRevenue", nullString(rec.EstimatedRevenue))
	e.Str("EstimatedEPS", nullString(rec.EstimatedEPS))
}

// PersistedQuarterlyRow is the stored form of a NormalizedRecord
type PersistedQuarterlyRow struct {
	ID           int64               `db:"id"`
	CompanyID    int64               `db:"company_id"`
	Ticker       string              `db:"ticker"`
	QuarterDate  time.Time           `db:"quarter_date"`
	QuarterLabel string              `db:"quarter_label"`
	Revenue      decimal.NullDecimal `db:"revenue"`
	EPS          decimal.NullDecimal `db:"eps"`
	GrossProfit  decimal.NullDecimal `db:"gross_profit"`
	CreatedAt    time.Time           `db:"created_at"`
	UpdatedAt    time.Time           `db:"updated_at"`
}

func roundNull(val decimal.NullDecimal, places int32) decimal.NullDecimal {
	if !val.Valid {
		return val
	}
	return decimal.NewNullDecimal(val.Decimal.Round(places))
}

func nullString(val decimal.NullDecimal) string {
	if !val.Valid {
		return "null"
	}
	return val.Decimal.String()
}
