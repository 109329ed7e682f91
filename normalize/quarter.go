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
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/penny-vault/pvfin/data"
)

// DateLayouts are tried in order; the first layout that parses to a valid
// calendar date wins. MM/DD is preferred over DD/MM for ambiguous dates.
var DateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"02/01/2006",
}

// ParseDate converts a date string or an already parsed time into a
// calendar date at midnight UTC. Invalid dates such as 2025-02-30 are
// rejected rather than rolled over.
func ParseDate(val any) (time.Time, bool) {
	switch v := val.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		if v.IsZero() {
			return time.Time{}, false
		}
		return calendarDate(v), true
	case *time.Time:
		if v == nil || v.IsZero() {
			return time.Time{}, false
		}
		return calendarDate(*v), true
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return time.Time{}, false
		}

		for _, layout := range DateLayouts {
			if dt, err := time.Parse(layout, s); err == nil {
				return calendarDate(dt), true
			}
		}
	}

	return time.Time{}, false
}

// CalendarYearEnd maps a fiscal year value (number or 4 digit string) to
// December 31st of that year
func CalendarYearEnd(val any) (time.Time, bool) {
	var year int64

	switch v := val.(type) {
	case int:
		year = int64(v)
	case int64:
		year = v
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
			return time.Time{}, false
		}
		year = int64(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return time.Time{}, false
		}
		year = n
	case string:
		s := strings.TrimSpace(v)
		if len(s) != 4 {
			return time.Time{}, false
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		year = n
	default:
		return time.Time{}, false
	}

	if year < 1900 || year > 9999 {
		return time.Time{}, false
	}

	return time.Date(int(year), time.December, 31, 0, 0, 0, 0, time.UTC), true
}

// StandardizeQuarterLabel returns the YYYY-QN label of a date-like value.
// ok is false for empty or unparseable input.
func StandardizeQuarterLabel(val any) (string, bool) {
	dt, ok := ParseDate(val)
	if !ok {
		return "", false
	}

	return data.QuarterLabel(dt), true
}

func calendarDate(dt time.Time) time.Time {
	return time.Date(dt.Year(), dt.Month(), dt.Day(), 0, 0, 0, 0, time.UTC)
}
