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

// Package extract retrieves raw income statements for each company, trying
// the primary provider first and falling back to the secondary provider
// wholesale when any primary call fails.
package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/penny-vault/pvfin/artifact"
	"github.com/penny-vault/pvfin/data"
	"github.com/penny-vault/pvfin/provider"
)

type PrimarySource interface {
	IncomeStatement(ctx context.Context, ticker string, limit int) ([]data.PrimaryRecord, error)
	AnalystEstimates(ctx context.Context, ticker string, limit int) ([]data.PrimaryRecord, error)
}

type SecondarySource interface {
	IncomeStatement(ctx context.Context, ticker string) (*data.LineItemTable, error)
}

type RawStore interface {
	SaveRaw(ticker, kind string, payload any) (string, error)
}

// per-company retrieval states, used in log output
const (
	statePending         = "pending"
	statePrimaryAttempt  = "primary_attempt"
	stateFallbackAttempt = "fallback_attempt"
)

type Options struct {
	IncomeLimit      int
	EstimatesLimit   int
	SecondaryPeriods int

	// Delay is the pause between companies; it is not applied between
	// retries of a single request
	Delay time.Duration
}

func DefaultOptions() Options {
	return Options{
		IncomeLimit:      8,
		EstimatesLimit:   4,
		SecondaryPeriods: provider.DefaultSecondaryPeriods,
		Delay:            time.Second,
	}
}

type Orchestrator struct {
	primary   PrimarySource
	secondary SecondarySource
	store     RawStore
	opts      Options
}

func New(primary PrimarySource, secondary SecondarySource, store RawStore, opts Options) *Orchestrator {
	return &Orchestrator{
		primary:   primary,
		secondary: secondary,
		store:     store,
		opts:      opts,
	}
}

// ExtractAll processes tickers one at a time in order. It stops early only
// if ctx is cancelled, returning the outcomes gathered so far and the
// context error.
func (orchestrator *Orchestrator) ExtractAll(ctx context.Context, tickers []string) ([]*data.ExtractionOutcome, error) {
	logger := zerolog.Ctx(ctx)
	outcomes := make([]*data.ExtractionOutcome, 0, len(tickers))

	for idx, ticker := range tickers {
		if idx > 0 && orchestrator.opts.Delay > 0 {
			if err := sleep(ctx, orchestrator.opts.Delay); err != nil {
				return outcomes, err
			}
		}

		if err := ctx.Err(); err != nil {
			return outcomes, err
		}

		outcomes = append(outcomes, orchestrator.ExtractCompany(ctx, ticker))
	}

	counts := CountByStatus(outcomes)
	logger.Info().
		Int("NumCompanies", len(outcomes)).
		Int("NumSuccess", counts[data.StatusSuccess]).
		Int("NumPartial", counts[data.StatusPartial]).
		Int("NumFailed", counts[data.StatusFailed]).
		Msg("extraction finished")

	// a cancel during the last company still interrupts the run
	if err := ctx.Err(); err != nil {
		return outcomes, err
	}

	return outcomes, nil
}

// ExtractCompany runs the per-company state machine:
// pending -> primary_attempt -> success | fallback_attempt -> partial | failed
func (orchestrator *Orchestrator) ExtractCompany(ctx context.Context, ticker string) *data.ExtractionOutcome {
	logger := zerolog.Ctx(ctx).With().Str("Ticker", ticker).Logger()
	outcome := data.NewExtractionOutcome(ticker)
	defer func() {
		outcome.EndTime = time.Now()
		logger.Info().Object("Outcome", outcome).Msg("company extraction finished")
	}()

	logger.Debug().Str("From", statePending).Str("To", statePrimaryAttempt).Msg("extracting company")

	income, estimates, err := orchestrator.attemptPrimary(ctx, ticker)
	if err == nil {
		outcome.Status = data.StatusSuccess
		outcome.Source = data.SourcePrimary
		outcome.Income = income
		outcome.Estimates = estimates
		return outcome
	}

	outcome.AddError(err)
	logger.Warn().Err(err).Str("From", statePrimaryAttempt).Str("To", stateFallbackAttempt).Msg("primary provider failed, falling back")

	income, err = orchestrator.attemptSecondary(ctx, ticker)
	if err == nil {
		outcome.Status = data.StatusPartial
		outcome.Source = data.SourceSecondary
		outcome.Income = income
		return outcome
	}

	outcome.AddError(err)
	outcome.Status = data.StatusFailed
	outcome.Source = data.SourceNone
	logger.Error().Err(err).Msg("secondary provider failed")

	return outcome
}

func (orchestrator *Orchestrator) attemptPrimary(ctx context.Context, ticker string) ([]data.RawRecord, []data.RawRecord, error) {
	if orchestrator.primary == nil {
		return nil, nil, fmt.Errorf("%w: no primary provider configured", provider.ErrExtraction)
	}

	income, err := orchestrator.primary.IncomeStatement(ctx, ticker, orchestrator.opts.IncomeLimit)
	if err != nil {
		return nil, nil, err
	}

	if err := orchestrator.save(ticker, artifact.KindIncome, income); err != nil {
		return nil, nil, err
	}

	estimates, err := orchestrator.primary.AnalystEstimates(ctx, ticker, orchestrator.opts.EstimatesLimit)
	if err != nil {
		return nil, nil, err
	}

	if err := orchestrator.save(ticker, artifact.KindEstimates, estimates); err != nil {
		return nil, nil, err
	}

	return primaryRecords(income), primaryRecords(estimates), nil
}

func (orchestrator *Orchestrator) attemptSecondary(ctx context.Context, ticker string) ([]data.RawRecord, error) {
	if orchestrator.secondary == nil {
		return nil, fmt.Errorf("%w: no secondary provider configured", provider.ErrExtraction)
	}

	table, err := orchestrator.secondary.IncomeStatement(ctx, ticker)
	if err != nil {
		return nil, err
	}

	records := provider.FormatIncomeStatement(table, ticker, orchestrator.opts.SecondaryPeriods)
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %w", provider.ErrExtraction, provider.ErrNoData)
	}

	if err := orchestrator.save(ticker, artifact.KindSecondaryIncome, records); err != nil {
		return nil, err
	}

	raw := make([]data.RawRecord, 0, len(records))
	for _, rec := range records {
		raw = append(raw, rec)
	}

	return raw, nil
}

// save writes an audit copy of a payload. A storage failure fails the
// attempt the same way a provider failure does.
func (orchestrator *Orchestrator) save(ticker, kind string, payload any) error {
	if orchestrator.store == nil {
		return nil
	}

	if _, err := orchestrator.store.SaveRaw(ticker, kind, payload); err != nil {
		return fmt.Errorf("%w: save %s artifact: %w", provider.ErrExtraction, kind, err)
	}

	return nil
}

// CountByStatus tallies outcomes by status
func CountByStatus(outcomes []*data.ExtractionOutcome) map[data.ExtractionStatus]int {
	counts := make(map[data.ExtractionStatus]int)
	for _, outcome := range outcomes {
		if outcome == nil {
			continue
		}
		counts[outcome.Status]++
	}
	return counts
}

func primaryRecords(records []data.PrimaryRecord) []data.RawRecord {
	raw := make([]data.RawRecord, 0, len(records))
	for _, rec := range records {
		raw = append(raw, rec)
	}
	return raw
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
