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
package data

import (
	"time"

	"github.com/rs/zerolog"
)

type ExtractionStatus string

const (
	StatusPending ExtractionStatus = "pending"
	StatusSuccess ExtractionStatus = "success"
	StatusPartial ExtractionStatus = "partial"
	StatusFailed  ExtractionStatus = "failed"
)

// Usable reports whether the normalizer should read the outcome's payloads
func (status ExtractionStatus) Usable() bool {
	return status == StatusSuccess || status == StatusPartial
}

// ExtractionOutcome is the result of retrieving one company during a run.
// Partial means the primary provider failed and the secondary provider
// supplied the income statement; estimates are empty in that case.
type ExtractionOutcome struct {
	Ticker    string
	Status    ExtractionStatus
	Source    SourceKind
	Income    []RawRecord
	Estimates []RawRecord
	Errors    []string
	StartTime time.Time
	EndTime   time.Time
}

func NewExtractionOutcome(ticker string) *ExtractionOutcome {
	return &ExtractionOutcome{
		Ticker:    ticker,
		Status:    StatusPending,
		Source:    SourceNone,
		Income:    []RawRecord{},
		Estimates: []RawRecord{},
		Errors:    []string{},
		StartTime: time.Now(),
	}
}

// AddError records a failed retrieval attempt
func (outcome *ExtractionOutcome) AddError(err error) {
	if err == nil {
		return
	}
	outcome.Errors = append(outcome.Errors, err.Error())
}

func (outcome *ExtractionOutcome) MarshalZerologObject(e *zerolog.Event) {
	e.Str("Ticker", outcome.Ticker)
	e.Str("Status", string(outcome.Status))
	e.Str("Source", string(outcome.Source))
	e.Int("NumIncome", len(outcome.Income))
	e.Int("NumEstimates", len(outcome.Estimates))
	e.Strs("Errors", outcome.Errors)
}
