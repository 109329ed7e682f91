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
	"time"

	"github.com/goccy/go-json"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pvfin/normalize"
)

var _ = Describe("Quarter labels", func() {
	DescribeTable("quarter boundaries",
		func(input string, expected string) {
			label, ok := normalize.StandardizeQuarterLabel(input)
			Expect(ok).To(BeTrue())
			Expect(label).To(Equal(expected))
		},
		Entry("Jan 1", "2025-01-01", "2025-Q1"),
		Entry("Feb 28", "2025-02-28", "2025-Q1"),
		Entry("Mar 31", "2025-03-31", "2025-Q1"),
		Entry("Apr 1", "2025-04-01", "2025-Q2"),
		Entry("May 15", "2025-05-15", "2025-Q2"),
		Entry("Jun 30", "2025-06-30", "2025-Q2"),
		Entry("Jul 1", "2025-07-01", "2025-Q3"),
		Entry("Aug 31", "2025-08-31", "2025-Q3"),
		Entry("Sep 30", "2025-09-30", "2025-Q3"),
		Entry("Oct 1", "2025-10-01", "2025-Q4"),
		Entry("Nov 30", "2025-11-30", "2025-Q4"),
		Entry("Dec 31", "2025-12-31", "2025-Q4"),
	)

	DescribeTable("alternate layouts",
		func(input string, expected string) {
			label, ok := normalize.StandardizeQuarterLabel(input)
			Expect(ok).To(BeTrue())
			Expect(label).To(Equal(expected))
		},
		Entry("timestamp", "2025-06-30 16:00:00", "2025-Q2"),
		Entry("month first", "09/30/2024", "2024-Q3"),
		Entry("day first when month first is impossible", "31/12/2024", "2024-Q4"),
		Entry("surrounding whitespace", "  2025-03-31 ", "2025-Q1"),
	)

	It("prefers month first for ambiguous dates", func() {
		dt, ok := normalize.ParseDate("04/05/2025")
		Expect(ok).To(BeTrue())
		Expect(dt.Month()).To(Equal(time.April))
	})

	It("accepts parsed times", func() {
		dt := time.Date(2024, 11, 2, 15, 4, 5, 0, time.UTC)
		label, ok := normalize.StandardizeQuarterLabel(dt)
		Expect(ok).To(BeTrue())
		Expect(label).To(Equal("2024-Q4"))

		label, ok = normalize.StandardizeQuarterLabel(&dt)
		Expect(ok).To(BeTrue())
		Expect(label).To(Equal("2024-Q4"))
	})

	DescribeTable("rejects invalid input without panicking",
		func(input any) {
			label, ok := normalize.StandardizeQuarterLabel(input)
			Expect(ok).To(BeFalse())
			Expect(label).To(BeEmpty())
		},
		Entry("nil", nil),
		Entry("empty string", ""),
		Entry("invalid calendar date", "2025-02-30"),
		Entry("invalid month", "2025-13-01"),
		Entry("text", "not a date"),
		Entry("zero time", time.Time{}),
		Entry("nil time pointer", (*time.Time)(nil)),
		Entry("number", 20250630),
	)

	DescribeTable("calendar years map to December 31st",
		func(input any, ok bool) {
			dt, parsed := normalize.CalendarYearEnd(input)
			Expect(parsed).To(Equal(ok))
			if ok {
				Expect(dt).To(Equal(time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)))
			}
		},
		Entry("int", 2024, true),
		Entry("float", 2024.0, true),
		Entry("json number", json.Number("2024"), true),
		Entry("string", "2024", true),
		Entry("fractional float", 2024.5, false),
		Entry("short string", "24", false),
		Entry("nil", nil, false),
	)
})
