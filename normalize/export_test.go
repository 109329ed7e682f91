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
package normalize_test

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/penny-vault/pvfin/data"
	"github.com/penny-vault/pvfin/normalize"
)

func quarter(ticker string, year int, month time.Month, revenue string) data.NormalizedRecord {
	return data.NewNormalizedRecord(ticker, time.Date(year, month, 30, 0, 0, 0, 0, time.UTC),
		decimal.NewNullDecimal(decimal.RequireFromString(revenue)), decimal.NullDecimal{}, decimal.NullDecimal{})
}

var _ = Describe("Export", func() {
	records := []data.NormalizedRecord{
		quarter("TSLA", 2025, time.March, "19335000000"),
		quarter("LCID", 2025, time.June, "259000000"),
		quarter("TSLA", 2025, time.June, "22500000000"),
	}

	It("sorts by ticker then newest quarter first", func() {
		sorted := normalize.SortForExport(records)
		Expect(sorted[0].Ticker).To(Equal("LCID"))
		Expect(sorted[1].QuarterLabel).To(Equal("2025-Q2"))
		Expect(sorted[2].QuarterLabel).To(Equal("2025-Q1"))

		Expect(records[0].Ticker).To(Equal("TSLA"), "input must not be reordered")
	})

	It("writes the processed csv", func() {
		dir := GinkgoT().TempDir()
		fn, err := normalize.WriteCSV(dir, records, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))
		Expect(err).NotTo(HaveOccurred())
		Expect(fn).To(Equal(filepath.Join(dir, normalize.ProcessedCSVName)))

		contents, err := os.ReadFile(fn)
		Expect(err).NotTo(HaveOccurred())

		lines := strings.Split(strings.TrimSpace(string(contents)), "\n")
		Expect(lines).To(HaveLen(4))
		Expect(lines[0]).To(Equal("ticker,quarter_date,quarter_label,revenue,eps,gross_profit,source,processed_at"))
		Expect(lines[1]).To(HavePrefix("LCID,2025-06-30,2025-Q2,259000000,,"))
		Expect(lines[3]).To(HaveSuffix("2025-07-01T00:00:00Z"))
	})

	It("writes parquet when enabled", func() {
		exporter := &normalize.Exporter{Dir: GinkgoT().TempDir(), Parquet: true}
		files, err := exporter.Export(records)
		Expect(err).NotTo(HaveOccurred())
		Expect(files).To(HaveLen(2))
		for _, fn := range files {
			Expect(fn).To(BeAnExistingFile())
		}
	})
})
