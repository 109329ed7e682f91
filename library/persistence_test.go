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
package library_test

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"

	"github.com/penny-vault/pvfin/data"
	"github.com/penny-vault/pvfin/library"
	"github.com/penny-vault/pvfin/quality"
)

var quarterlyColumns = []string{"company_id", "quarter_date", "quarter_label", "revenue", "eps", "gross_profit"}

func companyRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "ticker", "name", "sector"})
}

// expectExistingCompanies primes the library cache with TSLA=1 and RIVN=2
func expectExistingCompanies(mock pgxmock.PgxPoolIface) {
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, ticker, name, sector FROM companies").
		WithArgs([]string{"TSLA", "RIVN"}).
		WillReturnRows(companyRows().
			AddRow(int64(1), "TSLA", "Tesla Inc", data.DefaultSector).
			AddRow(int64(2), "RIVN", "Rivian Automotive Inc", data.DefaultSector))
	mock.ExpectCommit()
}

func record(ticker string, date time.Time, revenue, eps string) data.NormalizedRecord {
	return data.NewNormalizedRecord(ticker, date,
		decimal.NewNullDecimal(decimal.RequireFromString(revenue)),
		decimal.NewNullDecimal(decimal.RequireFromString(eps)),
		decimal.NullDecimal{})
}

var _ = Describe("Library", func() {
	var (
		ctx       context.Context
		mock      pgxmock.PgxPoolIface
		myLibrary *library.Library
		q2        time.Time
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		mock, err = pgxmock.NewPool()
		Expect(err).NotTo(HaveOccurred())
		myLibrary = library.New(mock, data.DefaultCompanyDirectory())
		q2 = time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	})

	AfterEach(func() {
		Expect(mock.ExpectationsWereMet()).To(Succeed())
	})

	Describe("WithTx", func() {
		It("commits once when the function succeeds", func() {
			mock.ExpectBegin()
			mock.ExpectExec("UPDATE companies").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
			mock.ExpectCommit()

			err := myLibrary.WithTx(ctx, func(tx pgx.Tx) error {
				_, err := tx.Exec(ctx, "UPDATE companies SET name = name")
				return err
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("rolls back when the function fails", func() {
			boom := errors.New("boom")
			mock.ExpectBegin()
			mock.ExpectRollback()

			err := myLibrary.WithTx(ctx, func(tx pgx.Tx) error { return boom })
			Expect(err).To(MatchError(boom))
		})

		It("rolls back when the function panics", func() {
			mock.ExpectBegin()
			mock.ExpectRollback()

			Expect(func() {
				_ = myLibrary.WithTx(ctx, func(tx pgx.Tx) error { panic("kaboom") })
			}).To(PanicWith("kaboom"))
		})
	})

	Describe("EnsureCompanies", func() {
		It("inserts missing companies with directory names", func() {
			mock.ExpectBegin()
			mock.ExpectQuery("SELECT id, ticker, name, sector FROM companies").
				WithArgs([]string{"TSLA", "NEWCO"}).
				WillReturnRows(companyRows().AddRow(int64(1), "TSLA", "Tesla Inc", data.DefaultSector))
			mock.ExpectExec("INSERT INTO companies").
				WithArgs("NEWCO", "NEWCO Inc", data.DefaultSector).
				WillReturnResult(pgxmock.NewResult("INSERT", 1))
			mock.ExpectQuery("SELECT id, ticker, name, sector FROM companies").
				WithArgs([]string{"TSLA", "NEWCO"}).
				WillReturnRows(companyRows().
					AddRow(int64(1), "TSLA", "Tesla Inc", data.DefaultSector).
					AddRow(int64(7), "NEWCO", "NEWCO Inc", data.DefaultSector))
			mock.ExpectCommit()

			mapping, err := myLibrary.EnsureCompanies(ctx, []string{"TSLA", "NEWCO"})
			Expect(err).NotTo(HaveOccurred())
			Expect(mapping).To(Equal(map[string]int64{"TSLA": 1, "NEWCO": 7}))

			id, ok := myLibrary.CompanyID("NEWCO")
			Expect(ok).To(BeTrue())
			Expect(id).To(Equal(int64(7)))
		})

		It("does not write when every company exists", func() {
			expectExistingCompanies(mock)

			mapping, err := myLibrary.EnsureCompanies(ctx, []string{"TSLA", "RIVN"})
			Expect(err).NotTo(HaveOccurred())
			Expect(mapping).To(HaveLen(2))
		})

		It("rolls back and reports a load error on failure", func() {
			mock.ExpectBegin()
			mock.ExpectQuery("SELECT id, ticker, name, sector FROM companies").
				WillReturnError(errors.New("connection reset"))
			mock.ExpectRollback()

			_, err := myLibrary.EnsureCompanies(ctx, []string{"TSLA"})
			Expect(err).To(MatchError(library.ErrLoad))

			var loadErr *library.LoadError
			Expect(errors.As(err, &loadErr)).To(BeTrue())
			Expect(loadErr.Op).To(Equal("ensure companies"))
		})
	})

	Describe("UpsertQuarterly", func() {
		BeforeEach(func() {
			expectExistingCompanies(mock)
			_, err := myLibrary.EnsureCompanies(ctx, []string{"TSLA", "RIVN"})
			Expect(err).NotTo(HaveOccurred())
		})

		It("bulk copies a fresh batch", func() {
			mock.ExpectBegin()
			mock.ExpectBegin()
			mock.ExpectCopyFrom(pgx.Identifier{"quarterly_financials"}, quarterlyColumns).WillReturnResult(2)
			mock.ExpectCommit()
			mock.ExpectCommit()

			written, err := myLibrary.UpsertQuarterly(ctx, []data.NormalizedRecord{
				record("TSLA", q2, "22500000000", "0.3709"),
				record("RIVN", q2, "1500000000", "-0.50"),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(written).To(Equal(2))
		})

		It("falls back to per-record upserts when rows already exist", func() {
			mock.ExpectBegin()
			mock.ExpectBegin()
			mock.ExpectCopyFrom(pgx.Identifier{"quarterly_financials"}, quarterlyColumns).
				WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})
			mock.ExpectRollback()

			mock.ExpectQuery("SELECT id FROM quarterly_financials").
				WithArgs(int64(1), q2).
				WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))
			mock.ExpectExec("UPDATE quarterly_financials").
				WithArgs(int64(42), "2025-Q2", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
				WillReturnResult(pgxmock.NewResult("UPDATE", 1))

			mock.ExpectQuery("SELECT id FROM quarterly_financials").
				WithArgs(int64(2), q2).
				WillReturnError(pgx.ErrNoRows)
			mock.ExpectExec("INSERT INTO quarterly_financials").
				WithArgs(int64(2), q2, "2025-Q2", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
				WillReturnResult(pgxmock.NewResult("INSERT", 1))
			mock.ExpectCommit()

			written, err := myLibrary.UpsertQuarterly(ctx, []data.NormalizedRecord{
				record("TSLA", q2, "22500000000", "0.3709"),
				record("RIVN", q2, "1500000000", "-0.50"),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(written).To(Equal(2))
		})

		It("skips records for unknown companies", func() {
			mock.ExpectBegin()
			mock.ExpectBegin()
			mock.ExpectCopyFrom(pgx.Identifier{"quarterly_financials"}, quarterlyColumns).WillReturnResult(1)
			mock.ExpectCommit()
			mock.ExpectCommit()

			written, err := myLibrary.UpsertQuarterly(ctx, []data.NormalizedRecord{
				record("TSLA", q2, "22500000000", "0.3709"),
				record("ZZZZ", q2, "1", "1"),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(written).To(Equal(1))
		})

		It("rolls back everything on any other error", func() {
			mock.ExpectBegin()
			mock.ExpectBegin()
			mock.ExpectCopyFrom(pgx.Identifier{"quarterly_financials"}, quarterlyColumns).
				WillReturnError(&pgconn.PgError{Code: "22003", Message: "numeric field overflow"})
			mock.ExpectRollback()
			mock.ExpectRollback()

			written, err := myLibrary.UpsertQuarterly(ctx, []data.NormalizedRecord{record("TSLA", q2, "22500000000", "0.3709")})
			Expect(written).To(Equal(0))
			Expect(err).To(MatchError(library.ErrLoad))

			var pgErr *pgconn.PgError
			Expect(errors.As(err, &pgErr)).To(BeTrue())
			Expect(pgErr.Code).To(Equal("22003"))
		})

		It("does nothing for an empty batch", func() {
			written, err := myLibrary.UpsertQuarterly(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(written).To(Equal(0))
		})
	})

	Describe("UpsertEstimates", func() {
		It("upserts each estimate for known companies", func() {
			expectExistingCompanies(mock)
			_, err := myLibrary.EnsureCompanies(ctx, []string{"TSLA", "RIVN"})
			Expect(err).NotTo(HaveOccurred())

			analysts := 12
			estimate := data.NewEstimateRecord("TSLA", time.Date(2025, 9, 30, 0, 0, 0, 0, time.UTC),
				decimal.NewNullDecimal(decimal.RequireFromString("25000000000")),
				decimal.NewNullDecimal(decimal.RequireFromString("0.45")), &analysts)

			mock.ExpectBegin()
			mock.ExpectExec("INSERT INTO analyst_estimates").
				WithArgs(int64(1), estimate.QuarterDate, "2025-Q3", pgxmock.AnyArg(), pgxmock.AnyArg(), &analysts).
				WillReturnResult(pgxmock.NewResult("INSERT", 1))
			mock.ExpectCommit()

			written, err := myLibrary.UpsertEstimates(ctx, []data.EstimateRecord{estimate})
			Expect(err).NotTo(HaveOccurred())
			Expect(written).To(Equal(1))
		})
	})

	Describe("ValidatePersistedBenchmark", func() {
		It("passes when the stored quarter matches", func() {
			mock.ExpectQuery("SELECT q.revenue, q.eps FROM quarterly_financials").
				WithArgs("TSLA", "2025-Q2").
				WillReturnRows(pgxmock.NewRows([]string{"revenue", "eps"}).AddRow("22500000000.00", "0.4000"))

			ok, err := myLibrary.ValidatePersistedBenchmark(ctx, quality.PersistedBenchmark())
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
		})

		It("fails without an error when the stored quarter is outside tolerance", func() {
			mock.ExpectQuery("SELECT q.revenue, q.eps FROM quarterly_financials").
				WithArgs("TSLA", "2025-Q2").
				WillReturnRows(pgxmock.NewRows([]string{"revenue", "eps"}).AddRow("20000000000.00", "0.4000"))

			ok, err := myLibrary.ValidatePersistedBenchmark(ctx, quality.PersistedBenchmark())
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("fails without an error when the quarter is missing", func() {
			mock.ExpectQuery("SELECT q.revenue, q.eps FROM quarterly_financials").
				WithArgs("TSLA", "2025-Q2").
				WillReturnError(pgx.ErrNoRows)

			ok, err := myLibrary.ValidatePersistedBenchmark(ctx, quality.PersistedBenchmark())
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})
	})

	Describe("Summary", func() {
		It("totals per-company counts", func() {
			updated := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
			mock.ExpectQuery("SELECT c.ticker, c.name, count").
				WillReturnRows(pgxmock.NewRows([]string{"ticker", "name", "records", "latest_quarter", "last_updated"}).
					AddRow("LCID", "Lucid Group Inc", 0, "", time.Time{}).
					AddRow("TSLA", "Tesla Inc", 8, "2025-Q2", updated))

			summary, err := myLibrary.Summary(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.TotalCompanies).To(Equal(2))
			Expect(summary.TotalRecords).To(Equal(8))
			Expect(summary.LastUpdated).To(Equal(updated))

			markdown := myLibrary.SummaryMarkdown(summary)
			Expect(markdown).To(ContainSubstring("Quarterly Records: 8"))
			Expect(markdown).To(ContainSubstring("TSLA Tesla Inc: 8 quarters (latest 2025-Q2)"))
			Expect(markdown).To(ContainSubstring("LCID Lucid Group Inc: 0 quarters (latest no data)"))
		})

		It("pings the database", func() {
			mock.ExpectPing()
			Expect(myLibrary.Ping(ctx)).To(Succeed())
		})
	})
})
