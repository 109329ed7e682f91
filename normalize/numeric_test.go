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
	"math"

	"github.com/goccy/go-json"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/penny-vault/pvfin/normalize"
)

func expectDecimal(actual decimal.NullDecimal, expected string) {
	GinkgoHelper()
	Expect(actual.Valid).To(BeTrue(), "expected %s but value was null", expected)
	Expect(actual.Decimal.Equal(decimal.RequireFromString(expected))).To(BeTrue(),
		"expected %s, got %s", expected, actual.Decimal.String())
}

var _ = Describe("Numeric conversion", func() {
	DescribeTable("missing values become null",
		func(input any) {
			Expect(normalize.SafeNumericConvert(input).Valid).To(BeFalse())
		},
		Entry("nil", nil),
		Entry("empty string", ""),
		Entry("N/A", "N/A"),
		Entry("n/a", "n/a"),
		Entry("dash", "-"),
		Entry("whitespace", "   "),
		Entry("text", "twelve"),
		Entry("inf string", "inf"),
		Entry("NaN string", "NaN"),
		Entry("positive infinity", math.Inf(1)),
		Entry("negative infinity", math.Inf(-1)),
		Entry("NaN", math.NaN()),
		Entry("bool", true),
	)

	DescribeTable("values at or above one million are unchanged",
		func(input any, expected string) {
			expectDecimal(normalize.SafeNumericConvert(input), expected)
		},
		Entry("exact threshold", 1_000_000, "1000000"),
		Entry("large int", int64(22_500_000_000), "22500000000"),
		Entry("float", 5.0e9, "5000000000"),
		Entry("formatted string", "$1,234,567.89", "1234567.89"),
		Entry("json number", json.Number("22500000000"), "22500000000"),
		Entry("negative", "-2,000,000", "-2000000"),
		Entry("zero", 0, "0"),
		Entry("zero string", "0.00", "0"),
	)

	It("is idempotent on already scaled values", func() {
		first := normalize.SafeNumericConvert("22500000000")
		second := normalize.SafeNumericConvert(first.Decimal)
		Expect(second.Decimal.Equal(first.Decimal)).To(BeTrue())
	})

	DescribeTable("values below one million are treated as millions",
		func(input any, expected string) {
			expectDecimal(normalize.SafeNumericConvert(input), expected)
		},
		Entry("millions", 22500, "22500000000"),
		Entry("fraction", "0.5", "500000"),
		Entry("negative fraction", -0.5, "-500000"),
		Entry("percent stripped", "12%", "12000000"),
		Entry("just below threshold", "999999", "999999000000"),
	)

	It("can disable the millions policy", func() {
		policy := normalize.DefaultMillionsPolicy()
		policy.Disabled = true
		expectDecimal(policy.Apply(normalize.ParseNumeric("0.40")), "0.4")
	})

	It("parses without rescaling", func() {
		expectDecimal(normalize.ParseNumeric(" 0.40 "), "0.4")
		expectDecimal(normalize.ParseNumeric(float32(1.5)), "1.5")
	})
})
