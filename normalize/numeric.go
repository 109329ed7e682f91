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
	"math"
	"strings"
	"unicode"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

var missingTokens = map[string]bool{
	"":     true,
	"N/A":  true,
	"n/a":  true,
	"-":    true,
	"null": true,
	"None": true,
}

var stripSymbols = strings.NewReplacer("$", "", ",", "", "%", "")

// ParseNumeric converts a provider value into a decimal without any unit
// adjustment. Missing markers, non-numeric text and non-finite floats are
// returned as null.
func ParseNumeric(val any) decimal.NullDecimal {
	switch v := val.(type) {
	case nil:
		return decimal.NullDecimal{}
	case decimal.Decimal:
		return decimal.NewNullDecimal(v)
	case decimal.NullDecimal:
		return v
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.NullDecimal{}
		}
		return decimal.NewNullDecimal(decimal.NewFromFloat(v))
	case float32:
		return ParseNumeric(float64(v))
	case int:
		return decimal.NewNullDecimal(decimal.NewFromInt(int64(v)))
	case int32:
		return decimal.NewNullDecimal(decimal.NewFromInt(int64(v)))
	case int64:
		return decimal.NewNullDecimal(decimal.NewFromInt(v))
	case json.Number:
		return parseNumericString(string(v))
	case string:
		return parseNumericString(v)
	}

	return decimal.NullDecimal{}
}

func parseNumericString(s string) decimal.NullDecimal {
	s = stripSymbols.Replace(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)

	if missingTokens[s] {
		return decimal.NullDecimal{}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}

	return decimal.NewNullDecimal(d)
}

// MillionsPolicy rescales values that look like they were reported in
// millions. Any non-zero value whose magnitude is below Threshold is
// multiplied by Multiplier. This is a heuristic about how providers encode
// currency amounts, not something the providers document.
type MillionsPolicy struct {
	Threshold  decimal.Decimal
	Multiplier decimal.Decimal
	Disabled   bool
}

// DefaultMillionsPolicy treats 0 < |v| < 1,000,000 as millions
func DefaultMillionsPolicy() MillionsPolicy {
	million := decimal.NewFromInt(1_000_000)
	return MillionsPolicy{
		Threshold:  million,
		Multiplier: million,
	}
}

// Apply rescales val according to the policy
func (policy MillionsPolicy) Apply(val decimal.NullDecimal) decimal.NullDecimal {
	if policy.Disabled || !val.Valid || val.Decimal.IsZero() {
		return val
	}

	if val.Decimal.Abs().LessThan(policy.Threshold) {
		return decimal.NewNullDecimal(val.Decimal.Mul(policy.Multiplier))
	}

	return val
}

// SafeNumericConvert parses a currency amount and applies the default
// millions policy
func SafeNumericConvert(val any) decimal.NullDecimal {
	return DefaultMillionsPolicy().Apply(ParseNumeric(val))
}
