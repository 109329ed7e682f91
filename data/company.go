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
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	MaxTickerLength = 10
	DefaultSector   = "Electric Vehicles"
)

// Company is the identity entity every quarterly record hangs off of. Rows
// are created the first time a ticker is referenced and are never deleted.
type Company struct {
	ID        int64     `db:"id"`
	Ticker    string    `db:"ticker"`
	Name      string    `db:"name"`
	Sector    string    `db:"sector"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (company *Company) MarshalZerologObject(e *zerolog.Event) {
	e.Int64("ID", company.ID)
	e.Str("Ticker", company.Ticker)
	e.Str("Name", company.Name)
	e.Str("Sector", company.Sector)
}

// CompanyInfo is the static description of a company used when a ticker is
// first inserted
type CompanyInfo struct {
	Name   string `mapstructure:"name" toml:"name"`
	Sector string `mapstructure:"sector" toml:"sector"`
}

// CompanyDirectory maps tickers to display names and sectors
type CompanyDirectory map[string]CompanyInfo

// DefaultCompanies is the universe processed when no tickers are requested
var DefaultCompanies = []string{"TSLA", "RIVN", "LCID"}

// DefaultCompanyDirectory returns the display names of the default universe
func DefaultCompanyDirectory() CompanyDirectory {
	return CompanyDirectory{
		"TSLA": {Name: "Tesla Inc", Sector: DefaultSector},
		"RIVN": {Name: "Rivian Automotive Inc", Sector: DefaultSector},
		"LCID": {Name: "Lucid Group Inc", Sector: DefaultSector},
	}
}

// Lookup returns the company info for ticker; unknown tickers are described
// as "<TICKER> Inc" in the default sector
func (directory CompanyDirectory) Lookup(ticker string) CompanyInfo {
	if info, ok := directory[ticker]; ok {
		if info.Sector == "" {
			info.Sector = DefaultSector
		}
		return info
	}

	return CompanyInfo{
		Name:   fmt.Sprintf("%s Inc", ticker),
		Sector: DefaultSector,
	}
}

// NormalizeTicker upper-cases and trims a ticker symbol and rejects symbols
// that do not fit the companies table
func NormalizeTicker(ticker string) (string, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return "", ErrInvalidTicker
	}

	if len(ticker) > MaxTickerLength {
		return "", fmt.Errorf("%w: %q is longer than %d characters", ErrInvalidTicker, ticker, MaxTickerLength)
	}

	return ticker, nil
}

// NormalizeTickers normalizes a list of tickers, dropping duplicates while
// preserving order
func NormalizeTickers(tickers []string) ([]string, error) {
	seen := make(map[string]bool, len(tickers))
	result := make([]string, 0, len(tickers))

	for _, ticker := range tickers {
		normalized, err := NormalizeTicker(ticker)
		if err != nil {
			return nil, err
		}

		if seen[normalized] {
			continue
		}

		seen[normalized] = true
		result = append(result, normalized)
	}

	return result, nil
}
