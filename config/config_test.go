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
package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/viper"

	"github.com/penny-vault/pvfin/config"
	"github.com/penny-vault/pvfin/quality"
)

func setenv(key, value string) {
	Expect(os.Setenv(key, value)).To(Succeed())
	DeferCleanup(os.Unsetenv, key)
}

func newViper() *viper.Viper {
	v := viper.New()
	config.SetDefaults(v)
	Expect(config.BindEnv(v)).To(Succeed())
	return v
}

var _ = Describe("Config", func() {
	It("uses defaults when nothing is configured", func() {
		conf, err := config.Load(newViper())
		Expect(err).NotTo(HaveOccurred())

		Expect(conf.Tickers).To(Equal([]string{"TSLA", "RIVN", "LCID"}))
		Expect(conf.FMP.DailyLimit).To(Equal(250))
		Expect(conf.Extraction.Delay).To(Equal(time.Second))
		Expect(conf.Extraction.Timeout).To(Equal(30 * time.Second))
		Expect(conf.Database.URL).To(Equal(config.DefaultDatabaseURL))
		Expect(conf.Paths.RawDir).To(Equal("data/raw"))
		Expect(conf.Paths.ProcessedDir).To(Equal("data/processed"))
		Expect(conf.Benchmark.EPS.Equal(quality.DefaultBenchmark().EPS)).To(BeTrue())
		Expect(conf.PersistedBenchmark.EPS.Equal(quality.PersistedBenchmark().EPS)).To(BeTrue())
		Expect(conf.Companies.Lookup("TSLA").Name).To(Equal("Tesla Inc"))
		Expect(conf.RequireAPIKey()).To(MatchError(config.ErrMissingAPIKey))
	})

	It("reads the conventional environment variables", func() {
		setenv("FMP_API_KEY", "secret")
		setenv("DATABASE_URL", "postgres://pv@db:5432/pvfin")
		setenv("API_RATE_LIMIT", "10")
		setenv("LOG_LEVEL", "DEBUG")

		conf, err := config.Load(newViper())
		Expect(err).NotTo(HaveOccurred())
		Expect(conf.FMP.APIKey).To(Equal("secret"))
		Expect(conf.Database.URL).To(Equal("postgres://pv@db:5432/pvfin"))
		Expect(conf.FMP.DailyLimit).To(Equal(10))
		Expect(conf.RequireAPIKey()).To(Succeed())
		Expect(conf.Level().String()).To(Equal("debug"))
	})

	It("loads .env files without overriding the environment", func() {
		dir := GinkgoT().TempDir()
		fn := filepath.Join(dir, ".env")
		Expect(os.WriteFile(fn, []byte("FMP_API_KEY=fromfile\nPVFIN_TEST_ONLY=1\n"), 0o600)).To(Succeed())
		setenv("FMP_API_KEY", "fromenv")
		DeferCleanup(os.Unsetenv, "PVFIN_TEST_ONLY")

		Expect(config.LoadDotEnv(fn, filepath.Join(dir, "missing.env"))).To(Succeed())
		Expect(os.Getenv("FMP_API_KEY")).To(Equal("fromenv"))
		Expect(os.Getenv("PVFIN_TEST_ONLY")).To(Equal("1"))
	})

	It("normalizes and de-duplicates tickers", func() {
		v := newViper()
		v.Set("tickers", []string{"tsla", " TSLA ", "rivn"})

		conf, err := config.Load(v)
		Expect(err).NotTo(HaveOccurred())
		Expect(conf.Tickers).To(Equal([]string{"TSLA", "RIVN"}))
	})

	It("adds configured companies to the directory", func() {
		v := newViper()
		v.Set("companies", map[string]any{"nio": map[string]any{"name": "NIO Inc", "sector": "Electric Vehicles"}})

		conf, err := config.Load(v)
		Expect(err).NotTo(HaveOccurred())
		Expect(conf.Companies.Lookup("NIO").Name).To(Equal("NIO Inc"))
	})

	DescribeTable("rejects invalid values",
		func(key string, value any) {
			v := newViper()
			v.Set(key, value)

			_, err := config.Load(v)
			Expect(err).To(MatchError(config.ErrInvalidConfig))
		},
		Entry("log level", "log.level", "loud"),
		Entry("benchmark eps", "benchmark.eps", "forty cents"),
		Entry("negative delay", "extraction.delay", "-1s"),
		Entry("zero income limit", "extraction.income_limit", 0),
		Entry("ticker too long", "tickers", []string{"ABCDEFGHIJKL"}),
		Entry("empty database url", "database.url", ""),
	)
})
