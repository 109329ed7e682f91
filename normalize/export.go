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
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/penny-vault/pvfin/data"
)

const (
	ProcessedCSVName     = "standardized_financials.csv"
	ProcessedParquetName = "standardized_financials.parquet"
)

type processedRecord struct {
	Ticker       string `csv:"ticker" parquet:"name=ticker, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	QuarterDate  string `csv:"quarter_date" parquet:"name=quarter_date, type=BYTE_ARRAY, convertedtype=UTF8"`
	QuarterLabel string `csv:"quarter_label" parquet:"name=quarter_label, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Revenue      string `csv:"revenue" parquet:"name=revenue, type=BYTE_ARRAY, convertedtype=UTF8"`
	EPS          string `csv:"eps" parquet:"name=eps, type=BYTE_ARRAY, convertedtype=UTF8"`
	GrossProfit  string `csv:"gross_profit" parquet:"name=gross_profit, type=BYTE_ARRAY, convertedtype=UTF8"`
	Source       string `csv:"source" parquet:"name=source, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	ProcessedAt  string `csv:"processed_at" parquet:"name=processed_at, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// Exporter writes the normalized batch to the processed data directory
type Exporter struct {
	Dir     string
	Parquet bool
}

// Export writes the batch as CSV (and parquet when enabled) and returns the
// paths of the files written
func (exporter *Exporter) Export(records []data.NormalizedRecord) ([]string, error) {
	processedAt := time.Now().UTC()

	csvFn, err := WriteCSV(exporter.Dir, records, processedAt)
	if err != nil {
		return nil, err
	}

	files := []string{csvFn}

	if exporter.Parquet {
		parquetFn, err := WriteParquet(exporter.Dir, records, processedAt)
		if err != nil {
			return files, err
		}
		files = append(files, parquetFn)
	}

	return files, nil
}

// SortForExport orders records by ticker ascending then quarter date
// descending. The input slice is not modified.
func SortForExport(records []data.NormalizedRecord) []data.NormalizedRecord {
	sorted := make([]data.NormalizedRecord, len(records))
	copy(sorted, records)

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Ticker != sorted[j].Ticker {
			return sorted[i].Ticker < sorted[j].Ticker
		}
		return sorted[i].QuarterDate.After(sorted[j].QuarterDate)
	})

	return sorted
}

// WriteCSV saves the batch to {dir}/standardized_financials.csv
func WriteCSV(dir string, records []data.NormalizedRecord, processedAt time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	fn := filepath.Join(dir, ProcessedCSVName)
	fh, err := os.Create(fn)
	if err != nil {
		log.Error().Err(err).Str("FileName", fn).Msg("cannot create processed csv")
		return "", err
	}
	defer fh.Close()

	rows := toProcessed(records, processedAt)
	if err := gocsv.MarshalFile(&rows, fh); err != nil {
		log.Error().Err(err).Str("FileName", fn).Msg("csv write failed")
		return "", err
	}

	log.Info().Str("FileName", fn).Int("NumRecords", len(rows)).Msg("saved processed csv")
	return fn, nil
}

// WriteParquet saves the batch to {dir}/standardized_financials.parquet
func WriteParquet(dir string, records []data.NormalizedRecord, processedAt time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	fn := filepath.Join(dir, ProcessedParquetName)
	fh, err := local.NewLocalFileWriter(fn)
	if err != nil {
		log.Error().Err(err).Str("FileName", fn).Msg("cannot create local file")
		return "", err
	}
	defer fh.Close()

	pw, err := writer.NewParquetWriter(fh, new(processedRecord), 4)
	if err != nil {
		log.Error().Err(err).Msg("parquet writer create failed")
		return "", err
	}

	pw.RowGroupSize = 128 * 1024 * 1024 // 128M
	pw.PageSize = 8 * 1024              // 8k
	pw.CompressionType = parquet.CompressionCodec_ZSTD

	for _, r := range toProcessed(records, processedAt) {
		if err = pw.Write(r); err != nil {
			log.Error().Err(err).Str("Ticker", r.Ticker).Str("QuarterLabel", r.QuarterLabel).Msg("parquet write failed for record")
		}
	}

	if err = pw.WriteStop(); err != nil {
		log.Error().Err(err).Msg("parquet write failed")
		return "", err
	}

	log.Info().Str("FileName", fn).Int("NumRecords", len(records)).Msg("saved processed parquet")
	return fn, nil
}

func toProcessed(records []data.NormalizedRecord, processedAt time.Time) []processedRecord {
	sorted := SortForExport(records)
	rows := make([]processedRecord, 0, len(sorted))
	stamp := processedAt.Format(time.RFC3339)

	for _, rec := range sorted {
		rows = append(rows, processedRecord{
			Ticker:       rec.Ticker,
			QuarterDate:  rec.QuarterDate.Format("2006-01-02"),
			QuarterLabel: rec.QuarterLabel,
			Revenue:      csvDecimal(rec.Revenue),
			EPS:          csvDecimal(rec.EPS),
			GrossProfit:  csvDecimal(rec.GrossProfit),
			Source:       string(rec.Source),
			ProcessedAt:  stamp,
		})
	}

	return rows
}

func csvDecimal(val decimal.NullDecimal) string {
	if !val.Valid {
		return ""
	}
	return val.Decimal.String()
}
