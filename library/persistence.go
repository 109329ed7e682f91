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

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/penny-vault/pvfin/data"
)

var quarterlyColumns = []string{"company_id", "quarter_date", "quarter_label", "revenue", "eps", "gross_profit"}

// EnsureCompanies makes sure a companies row exists for every ticker and
// returns the ticker -> id mapping. Existing rows are never modified.
func (myLibrary *Library) EnsureCompanies(ctx context.Context, tickers []string) (map[string]int64, error) {
	logger := zerolog.Ctx(ctx)
	mapping := make(map[string]int64, len(tickers))

	if len(tickers) == 0 {
		return mapping, nil
	}

	err := myLibrary.WithTx(ctx, func(tx pgx.Tx) error {
		existing, err := selectCompanies(ctx, tx, tickers)
		if err != nil {
			return err
		}

		for _, company := range existing {
			mapping[company.Ticker] = company.ID
		}

		inserted := 0
		for _, ticker := range tickers {
			if _, ok := mapping[ticker]; ok {
				continue
			}

			info := myLibrary.Companies.Lookup(ticker)
			if _, err := tx.Exec(ctx, `INSERT INTO companies ("ticker", "name", "sector") VALUES ($1, $2, $3) ON CONFLICT ("ticker") DO NOTHING`,
				ticker, info.Name, info.Sector); err != nil {
				return err
			}

			logger.Info().Str("Ticker", ticker).Str("Name", info.Name).Msg("created company")
			inserted++
		}

		if inserted == 0 {
			return nil
		}

		created, err := selectCompanies(ctx, tx, tickers)
		if err != nil {
			return err
		}

		for _, company := range created {
			mapping[company.Ticker] = company.ID
		}

		return nil
	})
	if err != nil {
		logger.Error().Err(err).Strs("Tickers", tickers).Msg("could not ensure companies")
		return nil, &LoadError{Op: "ensure companies", Err: err}
	}

	for ticker, id := range mapping {
		myLibrary.companyIDs.Set(ticker, id)
	}

	return mapping, nil
}

func selectCompanies(ctx context.Context, tx pgx.Tx, tickers []string) ([]*data.Company, error) {
	var companies []*data.Company
	err := pgxscan.Select(ctx, tx, &companies, `SELECT id, ticker, name, sector FROM companies WHERE ticker = ANY($1)`, tickers)
	return companies, err
}

// UpsertQuarterly writes records keyed by (company, quarter date). The batch
// is first copied in bulk; if that hits an existing row the bulk insert is
// abandoned and each record is updated or inserted individually. Records
// for tickers without a company row are skipped. Returns the number of
// records written.
func (myLibrary *Library) UpsertQuarterly(ctx context.Context, records []data.NormalizedRecord) (int, error) {
	logger := zerolog.Ctx(ctx)

	if len(records) == 0 {
		return 0, nil
	}

	if myLibrary.companyIDs.Len() == 0 {
		if _, err := myLibrary.EnsureCompanies(ctx, recordTickers(records)); err != nil {
			return 0, err
		}
	}

	rows := make([][]any, 0, len(records))
	for _, rec := range records {
		companyID, ok := myLibrary.companyIDs.Get(rec.Ticker)
		if !ok {
			logger.Warn().Str("Ticker", rec.Ticker).Str("QuarterLabel", rec.QuarterLabel).Msg("no company row for ticker, skipping record")
			continue
		}

		rows = append(rows, []any{companyID, rec.QuarterDate, rec.QuarterLabel, rec.Revenue, rec.EPS, rec.GrossProfit})
	}

	if len(rows) == 0 {
		return 0, nil
	}

	written := 0
	err := myLibrary.WithTx(ctx, func(tx pgx.Tx) error {
		count, err := copyQuarterly(ctx, tx, rows)
		if err == nil {
			written = count
			return nil
		}

		if !isUniqueViolation(err) {
			return err
		}

		logger.Info().Int("NumRecords", len(rows)).Msg("bulk insert conflicted with existing rows, upserting individually")

		written, err = upsertQuarterlyEach(ctx, tx, rows)
		return err
	})
	if err != nil {
		logger.Error().Err(err).Int("NumRecords", len(rows)).Msg("could not load quarterly financials")
		return 0, &LoadError{Op: "upsert quarterly financials", Err: err}
	}

	logger.Info().Int("NumRecords", written).Msg("loaded quarterly financials")
	return written, nil
}

// copyQuarterly runs the bulk copy inside a savepoint so a conflict leaves
// the outer transaction usable
func copyQuarterly(ctx context.Context, tx pgx.Tx, rows [][]any) (int, error) {
	savepoint, err := tx.Begin(ctx)
	if err != nil {
		return 0, err
	}

	count, err := savepoint.CopyFrom(ctx, pgx.Identifier{"quarterly_financials"}, quarterlyColumns, pgx.CopyFromRows(rows))
	if err != nil {
		if rollbackErr := savepoint.Rollback(ctx); rollbackErr != nil {
			zerolog.Ctx(ctx).Error().Err(rollbackErr).Msg("error rollingback savepoint")
			return 0, errors.Join(err, rollbackErr)
		}
		return 0, err
	}

	if err := savepoint.Commit(ctx); err != nil {
		return 0, err
	}

	return int(count), nil
}

func upsertQuarterlyEach(ctx context.Context, tx pgx.Tx, rows [][]any) (int, error) {
	written := 0

	for _, row := range rows {
		var id int64
		err := tx.QueryRow(ctx, `SELECT id FROM quarterly_financials WHERE company_id = $1 AND quarter_date = $2`, row[0], row[1]).Scan(&id)

		switch {
		case errors.Is(err, pgx.ErrNoRows):
			if _, err := tx.Exec(ctx, `INSERT INTO quarterly_financials ("company_id", "quarter_date", "quarter_label", "revenue", "eps", "gross_profit") VALUES ($1, $2, $3, $4, $5, $6)`,
				row...); err != nil {
				return written, err
			}
		case err != nil:
			return written, err
		default:
			if _, err := tx.Exec(ctx, `UPDATE quarterly_financials SET quarter_label = $2, revenue = $3, eps = $4, gross_profit = $5, updated_at = now() WHERE id = $1`,
				id, row[2], row[3], row[4], row[5]); err != nil {
				return written, err
			}
		}

		written++
	}

	return written, nil
}

// UpsertEstimates writes analyst estimates keyed by (company, quarter date)
func (myLibrary *Library) UpsertEstimates(ctx context.Context, records []data.EstimateRecord) (int, error) {
	logger := zerolog.Ctx(ctx)

	if len(records) == 0 {
		return 0, nil
	}

	written := 0
	err := myLibrary.WithTx(ctx, func(tx pgx.Tx) error {
		for _, rec := range records {
			companyID, ok := myLibrary.companyIDs.Get(rec.Ticker)
			if !ok {
				logger.Warn().Str("Ticker", rec.Ticker).Msg("no company row for ticker, skipping estimate")
				continue
			}

			if _, err := tx.Exec(ctx, `INSERT INTO analyst_estimates ("company_id", "quarter_date", "quarter_label", "estimated_revenue", "estimated_eps", "analyst_count")
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT ("company_id", "quarter_date")
DO UPDATE SET
	quarter_label = EXCLUDED.quarter_label,
	estimated_revenue = EXCLUDED.estimated_revenue,
	estimated_eps = EXCLUDED.estimated_eps,
	analyst_count = EXCLUDED.analyst_count,
	updated_at = now()`,
				companyID, rec.QuarterDate, rec.QuarterLabel, rec.EstimatedRevenue, rec.EstimatedEPS, rec.AnalystCount); err != nil {
				return err
			}

			written++
		}

		return nil
	})
	if err != nil {
		logger.Error().Err(err).Int("NumRecords", len(records)).Msg("could not load analyst estimates")
		return 0, &LoadError{Op: "upsert analyst estimates", Err: err}
	}

	logger.Info().Int("NumRecords", written).Msg("loaded analyst estimates")
	return written, nil
}

// QuarterlyFor returns the stored rows for ticker, newest first
func (myLibrary *Library) QuarterlyFor(ctx context.Context, ticker string) ([]*data.PersistedQuarterlyRow, error) {
	var rows []*data.PersistedQuarterlyRow
	err := pgxscan.Select(ctx, myLibrary.Pool, &rows, `SELECT q.id, q.company_id, c.ticker, q.quarter_date, q.quarter_label,
q.revenue, q.eps, q.gross_profit, q.created_at, q.updated_at
FROM quarterly_financials q JOIN companies c ON c.id = q.company_id
WHERE c.ticker = $1 ORDER BY q.quarter_date DESC`, ticker)
	return rows, err
}

func recordTickers(records []data.NormalizedRecord) []string {
	seen := make(map[string]bool)
	tickers := make([]string, 0)
	for _, rec := range records {
		if seen[rec.Ticker] {
			continue
		}
		seen[rec.Ticker] = true
		tickers = append(tickers, rec.Ticker)
	}
	return tickers
}
