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

// Package pipeline sequences one ingestion run: extract every company,
// normalize the batch, gate it against the benchmark, export it, load it
// and re-check the stored benchmark.
package pipeline

import (
	"context"
	"fmt"

	"github.com/hako/durafmt"
	"github.com/rs/zerolog"

	"github.com/penny-vault/pvfin/data"
	"github.com/penny-vault/pvfin/extract"
	"github.com/penny-vault/pvfin/library"
	"github.com/penny-vault/pvfin/quality"
)

type Extractor interface {
	ExtractAll(ctx context.Context, tickers []string) ([]*data.ExtractionOutcome, error)
}

type Transformer interface {
	TransformBatch(ctx context.Context, outcomes []*data.ExtractionOutcome) []data.NormalizedRecord
	TransformEstimates(ctx context.Context, outcomes []*data.ExtractionOutcome) []data.EstimateRecord
}

type Validator interface {
	Validate(ctx context.Context, records []data.NormalizedRecord) (bool, error)
}

type Exporter interface {
	Export(records []data.NormalizedRecord) ([]string, error)
}

type Mirror interface {
	Enabled() bool
	Upload(files ...string) error
}

type Store interface {
	EnsureCompanies(ctx context.Context, tickers []string) (map[string]int64, error)
	UpsertQuarterly(ctx context.Context, records []data.NormalizedRecord) (int, error)
	UpsertEstimates(ctx context.Context, records []data.EstimateRecord) (int, error)
	Summary(ctx context.Context) (*library.DataSummary, error)
	ValidatePersistedBenchmark(ctx context.Context, benchmark quality.Benchmark) (bool, error)
	Ping(ctx context.Context) error
}

// Pipeline wires the stages together. Exporter, Mirror and MetricsTextfile
// are optional.
type Pipeline struct {
	Extractor   Extractor
	Transformer Transformer
	Gate        Validator
	Exporter    Exporter
	Mirror      Mirror
	Store       Store

	PersistedBenchmark quality.Benchmark

	// RawDir is checked for writability by HealthCheck
	RawDir string

	// MetricsTextfile, when set, receives the run metrics in the
	// prometheus text exposition format
	MetricsTextfile string
}

// Run executes one ingestion run. The returned metrics are always populated,
// including on failure, so a caller can report partial progress before
// surfacing the error.
func (pipeline *Pipeline) Run(ctx context.Context, tickers []string, validate bool) (*Metrics, error) {
	metrics := newMetrics()
	logger := zerolog.Ctx(ctx).With().Str("RunID", metrics.RunID.String()).Logger()
	ctx = logger.WithContext(ctx)

	logger.Info().Strs("Tickers", tickers).Bool("Validate", validate).Msg("starting pipeline")

	err := pipeline.run(ctx, metrics, tickers, validate)
	metrics.finish(err)

	if err != nil {
		logger.Error().Err(err).Str("Duration", durafmt.Parse(metrics.Duration).LimitFirstN(2).String()).Msg("pipeline failed")
	} else {
		logger.Info().Object("Metrics", metrics).Msg("pipeline completed")
	}

	if pipeline.MetricsTextfile != "" {
		if writeErr := metrics.WriteTextfile(pipeline.MetricsTextfile); writeErr != nil {
			logger.Error().Err(writeErr).Str("FileName", pipeline.MetricsTextfile).Msg("could not write metrics textfile")
		}
	}

	return metrics, err
}

func (pipeline *Pipeline) run(ctx context.Context, metrics *Metrics, tickers []string, validate bool) error {
	logger := zerolog.Ctx(ctx)

	// extract
	outcomes, err := pipeline.Extractor.ExtractAll(ctx, tickers)
	metrics.Outcomes = outcomes
	metrics.StatusCounts = extract.CountByStatus(outcomes)
	if err != nil {
		return err
	}

	// transform
	records := pipeline.Transformer.TransformBatch(ctx, outcomes)
	metrics.TransformCount = len(records)
	if len(records) == 0 {
		return fmt.Errorf("%w: no financial records to load", quality.ErrValidation)
	}

	estimates := pipeline.Transformer.TransformEstimates(ctx, outcomes)
	metrics.EstimateCount = len(estimates)

	// quality gate
	if validate && pipeline.Gate != nil {
		passed, err := pipeline.Gate.Validate(ctx, records)
		if err != nil {
			return err
		}

		metrics.GatePassed = passed
		if !passed {
			logger.Warn().Msg("benchmark record missing from batch, continuing")
		}
	}

	// export
	if pipeline.Exporter != nil {
		files, err := pipeline.Exporter.Export(records)
		metrics.ExportedFiles = files
		if err != nil {
			return fmt.Errorf("export processed data: %w", err)
		}

		if pipeline.Mirror != nil && pipeline.Mirror.Enabled() {
			if err := pipeline.Mirror.Upload(files...); err != nil {
				// mirror failures do not stop the load
				logger.Error().Err(err).Msg("could not mirror processed data")
				metrics.addError(err)
			}
		}
	}

	// load
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := pipeline.Store.EnsureCompanies(ctx, uniqueTickers(records)); err != nil {
		return err
	}

	loaded, err := pipeline.Store.UpsertQuarterly(ctx, records)
	if err != nil {
		return err
	}
	metrics.LoadCount = loaded

	estimatesLoaded, err := pipeline.Store.UpsertEstimates(ctx, estimates)
	if err != nil {
		return err
	}
	metrics.EstimateLoadCount = estimatesLoaded

	summary, err := pipeline.Store.Summary(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("could not summarize stored data")
	} else {
		metrics.Summary = summary
		logger.Info().Object("Summary", summary).Msg("stored data")
	}

	// persisted benchmark
	if validate {
		passed, err := pipeline.Store.ValidatePersistedBenchmark(ctx, pipeline.PersistedBenchmark)
		if err != nil {
			return err
		}
		metrics.ValidationPassed = passed
	}

	return nil
}

func uniqueTickers(records []data.NormalizedRecord) []string {
	seen := make(map[string]bool)
	tickers := make([]string, 0)
	for _, rec := range records {
		if !seen[rec.Ticker] {
			seen[rec.Ticker] = true
			tickers = append(tickers, rec.Ticker)
		}
	}
	return tickers
}
