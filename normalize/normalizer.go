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

// Package normalize converts raw provider records into canonical quarterly
// records. Parsing helpers never panic and never fail a batch: values that
// cannot be understood become null, and records without a usable period end
// date are skipped.
package normalize

import (
	"errors"
)

var (
	ErrSkipRecord        = errors.New("record skipped")
	ErrUnknownRecordType = errors.New("unknown raw record type")
)

// Normalizer owns the static tables used while converting provider records
type Normalizer struct {
	Shares   ShareCounts
	Millions MillionsPolicy
}

// New creates a normalizer with the default share counts and millions policy
func New() *Normalizer {
	return &Normalizer{
		Shares:   DefaultShareCounts(),
		Millions: DefaultMillionsPolicy(),
	}
}
