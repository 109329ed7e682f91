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
package cmd

import (
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pvfin/config"
	"github.com/penny-vault/pvfin/data"
	"github.com/penny-vault/pvfin/pipeline"
	"github.com/penny-vault/pvfin/provider"
)

var _ = Describe("Rendering", func() {
	It("lists providers with their role", func() {
		out := providersMarkdown(provider.Registry(), nil)
		Expect(out).To(ContainSubstring("# Available Providers"))
		Expect(out).To(ContainSubstring("## fmp (primary)"))
		Expect(out).To(ContainSubstring("## yahoo (fallback)"))
	})

	It("describes a single provider", func() {
		out := providersMarkdown(provider.Registry(), []string{"yahoo"})
		Expect(out).To(HavePrefix("# yahoo\n"))
		Expect(out).To(ContainSubstring("## Endpoints"))
		Expect(out).NotTo(ContainSubstring("fmp"))
	})

	It("returns nothing for an unknown provider", func() {
		Expect(providersMarkdown(provider.Registry(), []string{"zacks"})).To(BeEmpty())
	})

	It("summarizes a successful run", func() {
		metrics := &pipeline.Metrics{
			RunID:    uuid.MustParse("3f2a9c1e-0000-4000-8000-000000000000"),
			Duration: 90 * time.Second,
			StatusCounts: map[data.ExtractionStatus]int{
				data.StatusSuccess: 2,
				data.StatusPartial: 1,
			},
			TransformCount:   24,
			LoadCount:        24,
			ValidationPassed: true,
			Success:          true,
		}

		out := renderMetrics(metrics, true)
		Expect(out).To(ContainSubstring("PIPELINE COMPLETED"))
		Expect(out).To(ContainSubstring("3f2a9c1e"))
		Expect(out).To(ContainSubstring("Benchmark validated"))
	})

	It("flags a failed run and its errors", func() {
		metrics := &pipeline.Metrics{
			StatusCounts: map[data.ExtractionStatus]int{data.StatusFailed: 3},
			Errors:       []string{"load failed"},
		}

		out := renderMetrics(metrics, true)
		Expect(out).To(ContainSubstring("PIPELINE FAILED"))
		Expect(out).To(ContainSubstring("load failed"))
		Expect(out).NotTo(ContainSubstring("Benchmark validated"))
	})

	It("reports each health component", func() {
		status := &pipeline.HealthStatus{
			Healthy: false,
			Components: []pipeline.ComponentStatus{
				{Name: pipeline.ComponentDatabase, Healthy: false, Detail: "connection refused"},
				{Name: pipeline.ComponentRawData, Healthy: true, Detail: "data/raw"},
			},
		}

		out := renderHealth(status)
		Expect(out).To(ContainSubstring("unhealthy"))
		Expect(out).To(ContainSubstring("database: unhealthy (connection refused)"))
		Expect(out).To(ContainSubstring("raw_data: healthy (data/raw)"))
	})

	It("derives retry options from the extraction config", func() {
		conf := &config.Config{}
		conf.Extraction.RetryCount = 5
		conf.Extraction.Timeout = 10 * time.Second

		opts := retryOptions(conf)
		Expect(opts.Count).To(Equal(5))
		Expect(opts.Timeout).To(Equal(10 * time.Second))
	})

	It("seeds the default companies without aliasing them", func() {
		tickers := defaultTickers()
		Expect(tickers).To(Equal([]string{"TSLA", "RIVN", "LCID"}))
		tickers[0] = "XXXX"
		Expect(data.DefaultCompanies[0]).To(Equal("TSLA"))
	})
})
