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
package data_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/penny-vault/pvfin/data"
)

var _ = Describe("Data", func() {
	DescribeTable("quarter labels",
		func(month time.Month, expected string) {
			date := time.Date(2025, month, 15, 0, 0, 0, 0, time.UTC)
			Expect(data.QuarterLabel(date)).To(Equal(expected))
		},
		Entry("January", time.January, "2025-Q1"),
		Entry("March", time.March, "2025-Q1"),
		Entry("April", time.April, "2025-Q2"),
		Entry("June", time.June, "2025-Q2"),
		Entry("July", time.July, "2025-Q3"),
		Entry("September", time.September, "2025-Q3"),
		Entry("October", time.October, "2025-Q4"),
		Entry("December", time.December, "2025-Q4"),
	)

	It("derives the label and rounds values when building a record", func() {
		rec := data.NewNormalizedRecord("TSLA", time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
			decimal.NewNullDecimal(decimal.RequireFromString("22500000000.456")),
			decimal.NewNullDecimal(decimal.RequireFromString("0.370912")),
			decimal.NullDecimal{})

		Expect(rec.QuarterLabel).To(Equal("2025-Q2"))
		Expect(rec.Revenue.Decimal.String()).To(Equal("22500000000.46"))
		Expect(rec.EPS.Decimal.String()).To(Equal("0.3709"))
		Expect(rec.GrossProfit.Valid).To(BeFalse())
	})

	Context("company directory", func() {
		It("returns known names", func() {
			dir := data.DefaultCompanyDirectory()
			Expect(dir.Lookup("RIVN").Name).To(Equal("Rivian Automotive Inc"))
		})

		It("describes unknown tickers", func() {
			info := data.DefaultCompanyDirectory().Lookup("F")
			Expect(info.Name).To(Equal("F Inc"))
			Expect(info.Sector).To(Equal(data.DefaultSector))
		})
	})

	Context("tickers", func() {
		It("normalizes and de-duplicates", func() {
			tickers, err := data.NormalizeTickers([]string{" tsla", "RIVN", "TSLA"})
			Expect(err).NotTo(HaveOccurred())
			Expect(tickers).To(Equal([]string{"TSLA", "RIVN"}))
		})

		It("rejects tickers that are too long", func() {
			_, err := data.NormalizeTickers([]string{"ABCDEFGHIJK"})
			Expect(err).To(MatchError(data.ErrInvalidTicker))
		})
	})

	Context("line item table", func() {
		It("orders periods newest first", func() {
			table := data.NewLineItemTable("TSLA")
			rev := 10.0
			older := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
			newer := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
			table.Set(data.LineTotalRevenue, older, &rev)
			table.Set(data.LineNetIncome, newer, nil)

			Expect(table.Periods()).To(Equal([]time.Time{newer, older}))

			_, ok := table.Value(data.LineNetIncome, newer)
			Expect(ok).To(BeFalse())

			val, ok := table.Value(data.LineTotalRevenue, older)
			Expect(ok).To(BeTrue())
			Expect(val).To(Equal(10.0))
		})
	})

	It("reports field presence separately from null values", func() {
		rec := data.PrimaryRecord{"eps": nil, "netIncomePerShare": 0.4}
		val, ok := rec.Field("eps")
		Expect(ok).To(BeTrue())
		Expect(val).To(BeNil())

		val, ok = data.FirstField(rec, "eps", "netIncomePerShare")
		Expect(ok).To(BeTrue())
		Expect(val).To(Equal(0.4))
	})
})
