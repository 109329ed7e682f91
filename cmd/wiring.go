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
	"github.com/penny-vault/pvfin/artifact"
	"github.com/penny-vault/pvfin/config"
	"github.com/penny-vault/pvfin/extract"
	"github.com/penny-vault/pvfin/library"
	"github.com/penny-vault/pvfin/normalize"
	"github.com/penny-vault/pvfin/pipeline"
	"github.com/penny-vault/pvfin/provider"
	"github.com/penny-vault/pvfin/quality"
)

func retryOptions(conf *config.Config) provider.RetryOptions {
	opts := provider.DefaultRetryOptions()
	opts.Count = conf.Extraction.RetryCount
	if conf.Extraction.Timeout > 0 {
		opts.Timeout = conf.Extraction.Timeout
	}
	return opts
}

// newPipeline builds every stage from conf; the library must already be
// connected
func newPipeline(conf *config.Config, myLibrary *library.Library) *pipeline.Pipeline {
	retry := retryOptions(conf)

	fmp := provider.NewFMP(provider.FMPOptions{
		BaseURL:    conf.FMP.BaseURL,
		APIKey:     conf.FMP.APIKey,
		DailyLimit: conf.FMP.DailyLimit,
		RateLimit:  conf.FMP.RateLimit,
		Retry:      retry,
	})

	yahoo := provider.NewYahoo(provider.YahooOptions{
		BaseURL: conf.Yahoo.BaseURL,
		Retry:   retry,
	})

	orchestrator := extract.New(fmp, yahoo, artifact.NewFileStore(conf.Paths.RawDir), extract.Options{
		IncomeLimit:      conf.Extraction.IncomeLimit,
		EstimatesLimit:   conf.Extraction.EstimatesLimit,
		SecondaryPeriods: conf.Extraction.SecondaryPeriods,
		Delay:            conf.Extraction.Delay,
	})

	return &pipeline.Pipeline{
		Extractor:   orchestrator,
		Transformer: normalize.New(),
		Gate:        quality.NewGate(conf.Benchmark),
		Exporter: &normalize.Exporter{
			Dir:     conf.Paths.ProcessedDir,
			Parquet: conf.Paths.Parquet,
		},
		Mirror: &artifact.Mirror{
			KeyID:          conf.Backblaze.KeyID,
			ApplicationKey: conf.Backblaze.ApplicationKey,
			Bucket:         conf.Backblaze.Bucket,
			Prefix:         conf.Backblaze.Prefix,
		},
		Store:              myLibrary,
		PersistedBenchmark: conf.PersistedBenchmark,
		RawDir:             conf.Paths.RawDir,
		MetricsTextfile:    conf.MetricsTextfile,
	}
}
