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
package library

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/rs/zerolog"
	"github.com/xeonx/timeago"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// CompanySummary is the per-company portion of a DataSummary
type CompanySummary struct {
	Ticker        string    `db:"ticker"`
	Name          string    `db:"name"`
	Records       int       `db:"records"`
	LatestQuarter string    `db:"latest_quarter"`
	LastUpdated   time.Time `db:"last_updated"`
}

// DataSummary describes what is currently stored
type DataSummary struct {
	TotalCompanies int
	TotalRecords   int
	LastUpdated    time.Time
	Companies      []*CompanySummary
}

func (summary *DataSummary) MarshalZerologObject(e *zerolog.Event) {
	e.Int("TotalCompanies", summary.TotalCompanies)
	e.Int("TotalRecords", summary.TotalRecords)
	for _, company := range summary.Companies {
		e.Int(company.Ticker, company.Records)
	}
}

// Summary returns per-company record counts
func (myLibrary *Library) Summary(ctx context.Context) (*DataSummary, error) {
	if myLibrary.Pool == nil {
		return nil, ErrNotConnected
	}

	var companies []*CompanySummary
	err := pgxscan.Select(ctx, myLibrary.Pool, &companies, `SELECT c.ticker, c.name, count(q.id) AS records,
coalesce(max(q.quarter_label), '') AS latest_quarter,
coalesce(max(q.updated_at), '0001-01-01'::timestamp) AS last_updated
FROM companies c LEFT JOIN quarterly_financials q ON q.company_id = c.id
GROUP BY c.ticker, c.name ORDER BY c.ticker`)
	if err != nil {
		return nil, err
	}

	summary := &DataSummary{
		TotalCompanies: len(companies),
		Companies:      companies,
	}

	for _, company := range companies {
		summary.TotalRecords += company.Records
		if company.LastUpdated.After(summary.LastUpdated) {
			summary.LastUpdated = company.LastUpdated
		}
	}

	return summary, nil
}

// SummaryMarkdown returns a description of the library in markdown
func (myLibrary *Library) SummaryMarkdown(summary *DataSummary) string {
	p := message.NewPrinter(language.English)
	builder := strings.Builder{}

	builder.WriteString(fmt.Sprintf("# %s\n", myLibrary.Name))
	builder.WriteString("## Details\n\n")

	if myLibrary.DBUrl != "" {
		builder.WriteString(fmt.Sprintf("Database: %s\n\n", redact(myLibrary.DBUrl)))
	}

	builder.WriteString(p.Sprintf("  * Companies: %d\n", summary.TotalCompanies))
	builder.WriteString(p.Sprintf("  * Quarterly Records: %d\n\n", summary.TotalRecords))

	if summary.LastUpdated.IsZero() || summary.LastUpdated.Year() <= 1 {
		builder.WriteString("Last Updated: Never\n\n")
	} else {
		age := timeago.English.Format(summary.LastUpdated)
		builder.WriteString(fmt.Sprintf("Last Updated: %s (%s)\n\n", age, summary.LastUpdated.Local().Format("01/02/2006")))
	}

	builder.WriteString("## Companies\n\n")

	for _, company := range summary.Companies {
		latest := company.LatestQuarter
		if latest == "" {
			latest = "no data"
		}

		builder.WriteString(p.Sprintf("  * %s %s: %d quarters (latest %s)\n", company.Ticker, company.Name, company.Records, latest))
	}

	return builder.String()
}

// redact hides the password portion of a connection string
func redact(dbURL string) string {
	schemeEnd := strings.Index(dbURL, "://")
	at := strings.LastIndex(dbURL, "@")
	if schemeEnd < 0 || at < schemeEnd {
		return dbURL
	}

	userInfo := dbURL[schemeEnd+3 : at]
	if colon := strings.Index(userInfo, ":"); colon >= 0 {
		return dbURL[:schemeEnd+3] + userInfo[:colon] + ":xxxxx" + dbURL[at:]
	}

	return dbURL
}
