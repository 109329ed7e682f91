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
package library

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/penny-vault/pvfin/quality"
)

// ValidatePersistedBenchmark re-reads the stored benchmark quarter and
// checks it against benchmark. A missing row or a breach returns false; an
// error is returned only when the store cannot be read.
func (myLibrary *Library) ValidatePersistedBenchmark(ctx context.Context, benchmark quality.Benchmark) (bool, error) {
	if myLibrary.Pool == nil {
		return false, ErrNotConnected
	}

	logger := zerolog.Ctx(ctx).With().Str("Ticker", benchmark.Ticker).Str("QuarterLabel", benchmark.QuarterLabel).Logger()

	var revenue, eps decimal.NullDecimal
	err := myLibrary.Pool.QueryRow(ctx, `SELECT q.revenue, q.eps FROM quarterly_financials q
JOIN companies c ON c.id = q.company_id
WHERE c.ticker = $1 AND q.quarter_label = $2
ORDER BY q.quarter_date DESC LIMIT 1`, benchmark.Ticker, benchmark.QuarterLabel).Scan(&revenue, &eps)
	if errors.Is(err, pgx.ErrNoRows) {
		logger.Warn().Msg("benchmark quarter not found in database")
		return false, nil
	}

	if err != nil {
		logger.Error().Err(err).Msg("could not read benchmark quarter")
		return false, err
	}

	if err := benchmark.Check(revenue, eps); err != nil {
		logger.Error().Err(err).Msg("stored benchmark quarter failed validation")
		return false, nil
	}

	logger.Info().Msg("stored benchmark quarter passed validation")
	return true, nil
}
