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
	"github.com/shopspring/decimal"

	"github.com/penny-vault/pvfin/data"
)

// ShareCounts holds approximate shares outstanding, in millions, used to
// derive EPS when a provider only reports net income
type ShareCounts struct {
	Millions map[string]decimal.Decimal
	Default  decimal.Decimal
}

func DefaultShareCounts() ShareCounts {
	return ShareCounts{
		Millions: map[string]decimal.Decimal{
			"TSLA": decimal.NewFromInt(3160),
			"RIVN": decimal.NewFromInt(920),
			"LCID": decimal.NewFromInt(1600),
		},
		Default: decimal.NewFromInt(1000),
	}
}

// Lookup returns the share count in millions for ticker
func (counts ShareCounts) Lookup(ticker string) decimal.Decimal {
	if shares, ok := counts.Millions[ticker]; ok {
		return shares
	}
	return counts.Default
}

var million = decimal.NewFromInt(1_000_000)

// EstimateEPS divides net income by the approximate share count. Net income
// with a magnitude of at least one million is taken to be in whole currency
// units; anything smaller is taken to already be in millions.
func (normalizer *Normalizer) EstimateEPS(netIncome decimal.NullDecimal, ticker string) decimal.NullDecimal {
	if !netIncome.Valid {
		return decimal.NullDecimal{}
	}

	shares := normalizer.Shares.Lookup(ticker)
	if !shares.IsPositive() {
		return decimal.NullDecimal{}
	}

	inMillions := netIncome.Decimal
	if inMillions.Abs().GreaterThanOrEqual(million) {
		inMillions = inMillions.Div(million)
	}

	return decimal.NewNullDecimal(inMillions.Div(shares).Round(data.PerSharePlaces))
}
