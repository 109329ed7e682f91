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
package provider

import (
	"fmt"
	"time"
)

// CallBudget counts requests made against a provider's daily quota. The
// count resets when the UTC calendar day changes. Companies are processed
// sequentially so the budget is not safe for concurrent use.
type CallBudget struct {
	limit int
	used  int
	day   string
	now   func() time.Time
}

func NewCallBudget(limit int) *CallBudget {
	return &CallBudget{
		limit: limit,
		now:   time.Now,
	}
}

// WithClock replaces the clock used to detect day boundaries
func (budget *CallBudget) WithClock(now func() time.Time) *CallBudget {
	budget.now = now
	return budget
}

// Reserve consumes one call. Once the limit is reached it returns
// ErrRateLimitExceeded and the caller must not issue the request. A limit of
// zero or less disables the budget.
func (budget *CallBudget) Reserve() error {
	budget.roll()

	if budget.limit > 0 && budget.used >= budget.limit {
		return fmt.Errorf("%w: %d of %d calls used", ErrRateLimitExceeded, budget.used, budget.limit)
	}

	budget.used++
	return nil
}

// Used returns the number of calls made today
func (budget *CallBudget) Used() int {
	budget.roll()
	return budget.used
}

// Remaining returns the number of calls left today; -1 means unlimited
func (budget *CallBudget) Remaining() int {
	budget.roll()
	if budget.limit <= 0 {
		return -1
	}
	return budget.limit - budget.used
}

func (budget *CallBudget) roll() {
	today := budget.now().UTC().Format("2006-01-02")
	if today != budget.day {
		budget.day = today
		budget.used = 0
	}
}
