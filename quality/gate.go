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
package quality

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/penny-vault/pvfin/data"
)

// Gate stops a run whose normalized output disagrees with a known record
type Gate struct {
	Benchmark Benchmark
}

func NewGate(benchmark Benchmark) *Gate {
	return &Gate{Benchmark: benchmark}
}

// Validate looks up the benchmark record in records. A missing benchmark
// returns (false, nil); a record outside tolerance returns (false,
// *ValidationError); otherwise (true, nil).
func (gate *Gate) Validate(ctx context.Context, records []data.NormalizedRecord) (bool, error) {
	logger := zerolog.Ctx(ctx).With().Str("Ticker", gate.Benchmark.Ticker).Str("QuarterLabel", gate.Benchmark.QuarterLabel).Logger()

	rec, ok := gate.find(records)
	if !ok {
		logger.Warn().Int("NumRecords", len(records)).Msg("benchmark record not found in batch")
		return false, nil
	}

	if err := gate.Benchmark.Check(rec.Revenue, rec.EPS); err != nil {
		logger.Error().Err(err).Msg("benchmark validation failed")
		return false, err
	}

	logger.Info().Object("Record", &rec).Msg("benchmark validation passed")
	return true, nil
}

func (gate *Gate) find(records []data.NormalizedRecord) (data.NormalizedRecord, bool) {
	for _, rec := range records {
		if rec.Ticker == gate.Benchmark.Ticker && rec.QuarterLabel == gate.Benchmark.QuarterLabel {
			return rec, true
		}
	}
	return data.NormalizedRecord{}, false
}
