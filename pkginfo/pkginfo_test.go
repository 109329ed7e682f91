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
package pkginfo_test

import (
	"sort"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pvfin/pkginfo"
)

var _ = Describe("Pkginfo", func() {
	var saved string

	BeforeEach(func() {
		saved = pkginfo.Version
	})

	AfterEach(func() {
		pkginfo.Version = saved
	})

	It("identifies development builds in the user agent", func() {
		pkginfo.Version = ""
		Expect(pkginfo.UserAgent()).To(Equal("pvfin/dev (+https://github.com/penny-vault/pvfin)"))
	})

	It("includes the release version in the user agent", func() {
		pkginfo.Version = "1.2.0"
		Expect(pkginfo.UserAgent()).To(HavePrefix("pvfin/1.2.0 "))
		Expect(pkginfo.BuildVersionString()).To(HavePrefix("pvfin 1.2.0 "))
	})

	It("picks the data path modules out of the dependency list", func() {
		versions := pkginfo.StackVersions([]pkginfo.Dependency{
			{Path: "github.com/jackc/pgx/v5", Version: "v5.8.0"},
			{Path: "github.com/go-resty/resty/v2", Version: "v2.13.1"},
			{Path: "github.com/rs/zerolog", Version: "v1.33.0"},
		})

		Expect(versions).To(Equal(map[string]string{
			"github.com/jackc/pgx/v5":      "v5.8.0",
			"github.com/go-resty/resty/v2": "v2.13.1",
		}))
	})

	It("formats dependencies as package and quoted version", func() {
		dep := pkginfo.Dependency{Path: "github.com/shopspring/decimal", Version: "v1.4.0"}
		Expect(dep.String()).To(Equal(`github.com/shopspring/decimal="v1.4.0"`))
	})

	It("lists dependencies sorted by path", func() {
		deps := pkginfo.GetDependencyList()
		Expect(sort.StringsAreSorted(deps)).To(BeTrue())
	})
})
