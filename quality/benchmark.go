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
package quality

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrValidation = errors.New("benchmark validation failed")

const (
	FieldRevenue = "revenue"
	FieldEPS     = "eps"
)

// Benchmark is a known (company, quarter) record that a run must reproduce.
// Revenue is compared with a relative tolerance, EPS with an absolute one.
type Benchmark struct {
	Ticker           string
	QuarterLabel     string
	Revenue          decimal.Decimal
	RevenueTolerance decimal.Decimal
	EPS              decimal.Decimal
	EPSTolerance     decimal.Decimal
}

// DefaultBenchmark is checked against the normalized batch before loading:
// TSLA 2025-Q2 revenue 22.5B within 0.1% and EPS 0.3709 within 0.01
func DefaultBenchmark() Benchmark {
	return Benchmark{
		Ticker:           "TSLA",
		QuarterLabel:     "2025-Q2",
		Revenue:          decimal.NewFromInt(22_500_000_000),
		RevenueTolerance: decimal.RequireFromString("0.001"),
		EPS:              decimal.RequireFromString("0.3709"),
		EPSTolerance:     decimal.RequireFromString("0.01"),
	}
}

// PersistedBenchmark is checked against the stored row after loading. Its
// EPS (0.40) intentionally differs from DefaultBenchmark.
func PersistedBenchmark() Benchmark {
	benchmark := DefaultBenchmark()
	benchmark.EPS = decimal.RequireFromString("0.40")
	return benchmark
}

// ValidationError describes a benchmark field outside its tolerance. A null
// actual value is reported with Actual.Valid == false.
type ValidationError struct {
	Ticker       string
	QuarterLabel string
	Field        string
	Expected     decimal.Decimal
	Actual       decimal.NullDecimal
	Tolerance    decimal.Decimal
}

func (e *ValidationError) Error() string {
	actual := "null"
	if e.Actual.Valid {
		actual = e.Actual.Decimal.String()
	}

	return fmt.Sprintf("%s: %s %s %s mismatch: expected %s, got %s (tolerance %s)",
		ErrValidation, e.Ticker, e.QuarterLabel, e.Field, e.Expected, actual, e.Tolerance)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Check applies the tolerance rules to a revenue and EPS pair. Revenue is
// checked first; the first breach is returned.
func (benchmark Benchmark) Check(revenue, eps decimal.NullDecimal) error {
	if !revenue.Valid || !withinRelative(revenue.Decimal, benchmark.Revenue, benchmark.RevenueTolerance) {
		return benchmark.breach(FieldRevenue, benchmark.Revenue, revenue, benchmark.RevenueTolerance)
	}

	if !eps.Valid || eps.Decimal.Sub(benchmark.EPS).Abs().GreaterThan(benchmark.EPSTolerance) {
		return benchmark.breach(FieldEPS, benchmark.EPS, eps, benchmark.EPSTolerance)
	}

	return nil
}

func (benchmark Benchmark) breach(field string, expected decimal.Decimal, actual decimal.NullDecimal, tolerance decimal.Decimal) error {
	return &ValidationError{
		Ticker:       benchmark.Ticker,
		QuarterLabel: benchmark.QuarterLabel,
		Field:        field,
		Expected:     expected,
		Actual:       actual,
		Tolerance:    tolerance,
	}
}

func withinRelative(actual, expected, tolerance decimal.Decimal) bool {
	diff := actual.Sub(expected).Abs()
	if expected.IsZero() {
		return diff.LessThanOrEqual(tolerance)
	}
	return diff.LessThanOrEqual(expected.Abs().Mul(tolerance))
}
