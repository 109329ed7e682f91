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
package normalize

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/penny-vault/pvfin/data"
)

// Field names sent by the primary provider
const (
	fieldDate              = "date"
	fieldCalendarYear      = "calendarYear"
	fieldRevenue           = "revenue"
	fieldEPS               = "eps"
	fieldNetIncomePerShare = "netIncomePerShare"
	fieldGrossProfit       = "grossProfit"
	fieldNetIncome         = "netIncome"

	fieldEstimatedRevenue    = "estimatedRevenueAvg"
	fieldEstimatedEPS        = "estimatedEpsAvg"
	fieldNumAnalystsEPS      = "numberAnalystsEstimatedEps"
	fieldNumAnalystsRevenue  = "numberAnalystEstimatedRevenue"
	fieldNumAnalystsRevenue2 = "numberAnalystsEstimatedRevenue"
)

// ExtractRecord maps one provider record onto the canonical schema. Records
// without a parseable period end date return ErrSkipRecord.
func (normalizer *Normalizer) ExtractRecord(raw data.RawRecord, ticker string) (data.NormalizedRecord, error) {
	date, ok := recordDate(raw)
	if !ok {
		val, _ := raw.Field(fieldDate)
		return data.NormalizedRecord{}, fmt.Errorf("%w: cannot parse period date %v", ErrSkipRecord, val)
	}

	var (
		revenue     decimal.NullDecimal
		eps         decimal.NullDecimal
		grossProfit decimal.NullDecimal
	)

	switch rec := raw.(type) {
	case data.PrimaryRecord:
		revenue = normalizer.currency(rec, fieldRevenue)
		grossProfit = normalizer.currency(rec, fieldGrossProfit)
		eps = firstNumeric(rec, fieldEPS, fieldNetIncomePerShare)
	case data.SecondaryRecord:
		revenue = normalizer.currency(rec, fieldRevenue)
		grossProfit = normalizer.currency(rec, fieldGrossProfit)
		netIncome, _ := rec.Field(fieldNetIncome)
		eps = normalizer.EstimateEPS(ParseNumeric(netIncome), ticker)
	default:
		return data.NormalizedRecord{}, fmt.Errorf("%w: %T", ErrUnknownRecordType, raw)
	}

	record := data.NewNormalizedRecord(ticker, date, revenue, eps, grossProfit)
	record.Source = raw.Source()
	return record, nil
}

// ExtractEstimate maps one analyst estimate record onto the canonical
// estimate schema
func (normalizer *Normalizer) ExtractEstimate(raw data.RawRecord, ticker string) (data.EstimateRecord, error) {
	rec, ok := raw.(data.PrimaryRecord)
	if !ok {
		return data.EstimateRecord{}, fmt.Errorf("%w: estimates only come from the primary provider, got %T", ErrUnknownRecordType, raw)
	}

	date, ok := recordDate(rec)
	if !ok {
		val, _ := rec.Field(fieldDate)
		return data.EstimateRecord{}, fmt.Errorf("%w: cannot parse estimate date %v", ErrSkipRecord, val)
	}

	revenue := normalizer.currency(rec, fieldEstimatedRevenue)

	var eps decimal.NullDecimal
	if val, ok := data.FirstField(rec, fieldEstimatedEPS); ok {
		eps = ParseNumeric(val)
	}

	var analystCount *int
	if val, ok := data.FirstField(rec, fieldNumAnalystsEPS, fieldNumAnalystsRevenue, fieldNumAnalystsRevenue2); ok {
		if count := ParseNumeric(val); count.Valid {
			n := int(count.Decimal.IntPart())
			analystCount = &n
		}
	}

	return data.NewEstimateRecord(ticker, date, revenue, eps, analystCount), nil
}

func (normalizer *Normalizer) currency(rec data.RawRecord, field string) decimal.NullDecimal {
	val, ok := rec.Field(field)
	if !ok {
		return decimal.NullDecimal{}
	}
	return normalizer.Millions.Apply(ParseNumeric(val))
}

// recordDate reads the period end date, falling back to the end of the
// fiscal year only when the date is absent. A date that is present but
// malformed is not rescued by calendarYear.
// firstNumeric parses each field in turn and returns the first usable value.
// Missing markers such as "" or "N/A" fall through to the next field.
func firstNumeric(rec data.RawRecord, names ...string) decimal.NullDecimal {
	for _, name := range names {
		val, _ := rec.Field(name)
		if parsed := ParseNumeric(val); parsed.Valid {
			return parsed
		}
	}

	return decimal.NullDecimal{}
}

func recordDate(rec data.RawRecord) (time.Time, bool) {
	if val, ok := rec.Field(fieldDate); ok && val != nil && val != "" {
		return ParseDate(val)
	}

	if val, ok := rec.Field(fieldCalendarYear); ok {
		return CalendarYearEnd(val)
	}

	return time.Time{}, false
}
