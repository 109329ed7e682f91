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
	"sort"
	"time"
)

type SourceKind string

const (
	SourcePrimary   SourceKind = "primary"
	SourceSecondary SourceKind = "secondary"
	SourceNone      SourceKind = "none"
)

// RawRecord is one reporting period as returned by a provider. The concrete
// type tells the normalizer which field names to expect.
type RawRecord interface {
	Source() SourceKind

	// Field returns the value stored under name and whether the provider
	// sent the field at all. A field that is present with a JSON null
	// returns (nil, true).
	Field(name string) (any, bool)

	rawRecord()
}

// PrimaryRecord is a period returned by the primary provider's REST API
type PrimaryRecord map[string]any

func (PrimaryRecord) Source() SourceKind { return SourcePrimary }

func (rec PrimaryRecord) Field(name string) (any, bool) {
	val, ok := rec[name]
	return val, ok
}

func (PrimaryRecord) rawRecord() {}

// SecondaryRecord is a period converted from the secondary provider's line
// item table
type SecondaryRecord map[string]any

func (SecondaryRecord) Source() SourceKind { return SourceSecondary }

func (rec SecondaryRecord) Field(name string) (any, bool) {
	val, ok := rec[name]
	return val, ok
}

func (SecondaryRecord) rawRecord() {}

// FirstField returns the first non-null value found under any of names
func FirstField(rec RawRecord, names ...string) (any, bool) {
	for _, name := range names {
		if val, ok := rec.Field(name); ok && val != nil {
			return val, true
		}
	}

	return nil, false
}

// Line item row names read from the secondary provider
const (
	LineTotalRevenue = "Total Revenue"
	LineGrossProfit  = "Gross Profit"
	LineNetIncome    = "Net Income"
)

// LineItemTable is the wide income statement returned by the secondary
// provider: one row per line item, one column per period end date
type LineItemTable struct {
	Ticker string
	Rows   map[string]map[time.Time]*float64
}

func NewLineItemTable(ticker string) *LineItemTable {
	return &LineItemTable{
		Ticker: ticker,
		Rows:   make(map[string]map[time.Time]*float64),
	}
}

// Set stores the value of a line item for a period; nil marks a period the
// provider reported without a value
func (table *LineItemTable) Set(row string, period time.Time, val *float64) {
	cols, ok := table.Rows[row]
	if !ok {
		cols = make(map[time.Time]*float64)
		table.Rows[row] = cols
	}
	cols[period] = val
}

// Value returns the line item for period; ok is false when the row or the
// period is missing or the provider sent no value
func (table *LineItemTable) Value(row string, period time.Time) (float64, bool) {
	cols, ok := table.Rows[row]
	if !ok {
		return 0, false
	}

	val, ok := cols[period]
	if !ok || val == nil {
		return 0, false
	}

	return *val, true
}

// Periods returns every period present in any row, newest first
func (table *LineItemTable) Periods() []time.Time {
	seen := make(map[time.Time]bool)
	periods := make([]time.Time, 0)
	for _, cols := range table.Rows {
		for period := range cols {
			if !seen[period] {
				seen[period] = true
				periods = append(periods, period)
			}
		}
	}

	sort.Slice(periods, func(i, j int) bool {
		return periods[i].After(periods[j])
	})

	return periods
}

// Empty reports whether the table holds no periods
func (table *LineItemTable) Empty() bool {
	return table == nil || len(table.Periods()) == 0
}
