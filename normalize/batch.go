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
package normalize

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/penny-vault/pvfin/data"
)

var ErrRecordPanic = errors.New("panic while normalizing record")

// TransformBatch normalizes the income statements of every successful or
// partial outcome. Failed companies contribute nothing. A record that
// cannot be normalized is logged and skipped without affecting the rest of
// the batch.
func (normalizer *Normalizer) TransformBatch(ctx context.Context, outcomes []*data.ExtractionOutcome) []data.NormalizedRecord {
	logger := zerolog.Ctx(ctx)
	records := make([]data.NormalizedRecord, 0)

	for _, outcome := range outcomes {
		if outcome == nil || !outcome.Status.Usable() {
			continue
		}

		numBefore := len(records)
		for idx, raw := range outcome.Income {
			rec, err := normalizer.safeExtract(raw, outcome.Ticker)
			if err != nil {
				logger.Warn().Err(err).Str("Ticker", outcome.Ticker).Int("RecordIndex", idx).Msg("skipping record")
				continue
			}
			records = append(records, rec)
		}

		logger.Debug().Str("Ticker", outcome.Ticker).Str("Source", string(outcome.Source)).
			Int("NumRaw", len(outcome.Income)).Int("NumNormalized", len(records)-numBefore).
			Msg("normalized income statements")
	}

	logger.Info().Int("NumRecords", len(records)).Msg("transformed batch")
	return records
}

// TransformEstimates normalizes the analyst estimates of every usable
// outcome. Outcomes sourced from the secondary provider carry no estimates.
func (normalizer *Normalizer) TransformEstimates(ctx context.Context, outcomes []*data.ExtractionOutcome) []data.EstimateRecord {
	logger := zerolog.Ctx(ctx)
	records := make([]data.EstimateRecord, 0)

	for _, outcome := range outcomes {
		if outcome == nil || !outcome.Status.Usable() {
			continue
		}

		for idx, raw := range outcome.Estimates {
			rec, err := normalizer.safeExtractEstimate(raw, outcome.Ticker)
			if err != nil {
				logger.Warn().Err(err).Str("Ticker", outcome.Ticker).Int("RecordIndex", idx).Msg("skipping estimate")
				continue
			}
			records = append(records, rec)
		}
	}

	logger.Info().Int("NumEstimates", len(records)).Msg("transformed estimates")
	return records
}

func (normalizer *Normalizer) safeExtract(raw data.RawRecord, ticker string) (rec data.NormalizedRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrRecordPanic, r)
		}
	}()

	if raw == nil {
		return rec, fmt.Errorf("%w: nil record", ErrSkipRecord)
	}

	return normalizer.ExtractRecord(raw, ticker)
}

func (normalizer *Normalizer) safeExtractEstimate(raw data.RawRecord, ticker string) (rec data.EstimateRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrRecordPanic, r)
		}
	}()

	if raw == nil {
		return rec, fmt.Errorf("%w: nil record", ErrSkipRecord)
	}

	return normalizer.ExtractEstimate(raw, ticker)
}
