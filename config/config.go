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

// Package config materializes viper settings into one explicit value that
// is passed to every constructor at process start.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/penny-vault/pvfin/data"
	"github.com/penny-vault/pvfin/quality"
)

var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingAPIKey = errors.New("fmp api key is required (set FMP_API_KEY)")
)

const DefaultDatabaseURL = "postgresql://localhost:5432/competitor_intelligence"

type FMP struct {
	APIKey     string
	BaseURL    string
	DailyLimit int
	RateLimit  int
}

type Yahoo struct {
	BaseURL string
}

type Extraction struct {
	Delay            time.Duration
	IncomeLimit      int
	EstimatesLimit   int
	SecondaryPeriods int
	RetryCount       int
	Timeout          time.Duration
}

type Database struct {
	URL     string
	Migrate bool
}

type Paths struct {
	RawDir       string
	ProcessedDir string
	Parquet      bool
}

type Backblaze struct {
	KeyID          string
	ApplicationKey string
	Bucket         string
	Prefix         string
}

type Config struct {
	LogLevel string
	Tickers  []string

	FMP        FMP
	Yahoo      Yahoo
	Extraction Extraction
	Database   Database
	Paths      Paths
	Backblaze  Backblaze

	Benchmark          quality.Benchmark
	PersistedBenchmark quality.Benchmark
	Companies          data.CompanyDirectory

	HealthcheckURL  string
	MetricsTextfile string
}

// SetDefaults registers the default value of every key on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("tickers", data.DefaultCompanies)

	v.SetDefault("fmp.base_url", "https://financialmodelingprep.com/api/v3")
	v.SetDefault("fmp.daily_limit", 250)
	v.SetDefault("fmp.rate_limit", 300)

	v.SetDefault("yahoo.base_url", "https://query2.finance.yahoo.com")

	v.SetDefault("extraction.delay", "1s")
	v.SetDefault("extraction.income_limit", 8)
	v.SetDefault("extraction.estimates_limit", 4)
	v.SetDefault("extraction.secondary_periods", 8)
	v.SetDefault("extraction.retry_count", 3)
	v.SetDefault("extraction.timeout", "30s")

	v.SetDefault("database.url", DefaultDatabaseURL)
	v.SetDefault("database.migrate", true)

	v.SetDefault("paths.raw", "data/raw")
	v.SetDefault("paths.processed", "data/processed")
	v.SetDefault("paths.parquet", false)

	benchmark := quality.DefaultBenchmark()
	v.SetDefault("benchmark.ticker", benchmark.Ticker)
	v.SetDefault("benchmark.quarter", benchmark.QuarterLabel)
	v.SetDefault("benchmark.revenue", benchmark.Revenue.String())
	v.SetDefault("benchmark.revenue_tolerance", benchmark.RevenueTolerance.String())
	v.SetDefault("benchmark.eps", benchmark.EPS.String())
	v.SetDefault("benchmark.eps_tolerance", benchmark.EPSTolerance.String())
	v.SetDefault("benchmark.persisted_eps", quality.PersistedBenchmark().EPS.String())
}

// BindEnv maps the conventional environment variable names onto their keys.
// Everything else is reachable as SECTION_KEY through AutomaticEnv.
func BindEnv(v *viper.Viper) error {
	bindings := map[string]string{
		"fmp.api_key":       "FMP_API_KEY",
		"fmp.daily_limit":   "API_RATE_LIMIT",
		"database.url":      "DATABASE_URL",
		"log.level":         "LOG_LEVEL",
		"healthchecks.url":  "HEALTHCHECK_URL",
		"backblaze.key_id":  "B2_KEY_ID",
		"backblaze.app_key": "B2_APPLICATION_KEY",
		"metrics.textfile":  "METRICS_TEXTFILE",
		"paths.raw":         "RAW_DATA_DIR",
		"paths.processed":   "PROCESSED_DATA_DIR",
	}

	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return err
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return nil
}

// LoadDotEnv reads .env files into the process environment. Missing files
// are ignored; variables already set are not overwritten.
func LoadDotEnv(filenames ...string) error {
	if len(filenames) == 0 {
		filenames = []string{".env"}
	}

	for _, fn := range filenames {
		if err := godotenv.Load(fn); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, fn, err)
		}
	}

	return nil
}

// Load builds a Config from v
func Load(v *viper.Viper) (*Config, error) {
	benchmark, err := readBenchmark(v)
	if err != nil {
		return nil, err
	}

	persisted := benchmark
	persisted.EPS, err = decimalKey(v, "benchmark.persisted_eps")
	if err != nil {
		return nil, err
	}

	tickers, err := data.NormalizeTickers(v.GetStringSlice("tickers"))
	if err != nil {
		return nil, fmt.Errorf("%w: tickers: %w", ErrInvalidConfig, err)
	}

	companies := data.DefaultCompanyDirectory()
	extra := make(map[string]data.CompanyInfo)
	if err := v.UnmarshalKey("companies", &extra); err != nil {
		return nil, fmt.Errorf("%w: companies: %w", ErrInvalidConfig, err)
	}
	for ticker, info := range extra {
		companies[strings.ToUpper(ticker)] = info
	}

	conf := &Config{
		LogLevel: v.GetString("log.level"),
		Tickers:  tickers,
		FMP: FMP{
			APIKey:     v.GetString("fmp.api_key"),
			BaseURL:    v.GetString("fmp.base_url"),
			DailyLimit: v.GetInt("fmp.daily_limit"),
			RateLimit:  v.GetInt("fmp.rate_limit"),
		},
		Yahoo: Yahoo{
			BaseURL: v.GetString("yahoo.base_url"),
		},
		Extraction: Extraction{
			Delay:            v.GetDuration("extraction.delay"),
			IncomeLimit:      v.GetInt("extraction.income_limit"),
			EstimatesLimit:   v.GetInt("extraction.estimates_limit"),
			SecondaryPeriods: v.GetInt("extraction.secondary_periods"),
			RetryCount:       v.GetInt("extraction.retry_count"),
			Timeout:          v.GetDuration("extraction.timeout"),
		},
		Database: Database{
			URL:     v.GetString("database.url"),
			Migrate: v.GetBool("database.migrate"),
		},
		Paths: Paths{
			RawDir:       v.GetString("paths.raw"),
			ProcessedDir: v.GetString("paths.processed"),
			Parquet:      v.GetBool("paths.parquet"),
		},
		Backblaze: Backblaze{
			KeyID:          v.GetString("backblaze.key_id"),
			ApplicationKey: v.GetString("backblaze.app_key"),
			Bucket:         v.GetString("backblaze.bucket"),
			Prefix:         v.GetString("backblaze.prefix"),
		},
		Benchmark:          benchmark,
		PersistedBenchmark: persisted,
		Companies:          companies,
		HealthcheckURL:     v.GetString("healthchecks.url"),
		MetricsTextfile:    v.GetString("metrics.textfile"),
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}

	return conf, nil
}

// Validate checks values that would otherwise fail deep inside a run
func (conf *Config) Validate() error {
	if _, err := zerolog.ParseLevel(strings.ToLower(conf.LogLevel)); err != nil {
		return fmt.Errorf("%w: log.level %q", ErrInvalidConfig, conf.LogLevel)
	}

	if conf.Database.URL == "" {
		return fmt.Errorf("%w: database.url is empty", ErrInvalidConfig)
	}

	if conf.Extraction.Delay < 0 {
		return fmt.Errorf("%w: extraction.delay must not be negative", ErrInvalidConfig)
	}

	if conf.Extraction.IncomeLimit <= 0 || conf.Extraction.EstimatesLimit <= 0 || conf.Extraction.SecondaryPeriods <= 0 {
		return fmt.Errorf("%w: extraction limits must be positive", ErrInvalidConfig)
	}

	if conf.Paths.RawDir == "" || conf.Paths.ProcessedDir == "" {
		return fmt.Errorf("%w: paths.raw and paths.processed are required", ErrInvalidConfig)
	}

	return nil
}

// RequireAPIKey fails when no primary provider key is configured
func (conf *Config) RequireAPIKey() error {
	if conf.FMP.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// Level returns the configured zerolog level
func (conf *Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(conf.LogLevel))
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

func readBenchmark(v *viper.Viper) (quality.Benchmark, error) {
	benchmark := quality.Benchmark{
		Ticker:       strings.ToUpper(v.GetString("benchmark.ticker")),
		QuarterLabel: v.GetString("benchmark.quarter"),
	}

	var err error
	if benchmark.Revenue, err = decimalKey(v, "benchmark.revenue"); err != nil {
		return benchmark, err
	}

	if benchmark.RevenueTolerance, err = decimalKey(v, "benchmark.revenue_tolerance"); err != nil {
		return benchmark, err
	}

	if benchmark.EPS, err = decimalKey(v, "benchmark.eps"); err != nil {
		return benchmark, err
	}

	if benchmark.EPSTolerance, err = decimalKey(v, "benchmark.eps_tolerance"); err != nil {
		return benchmark, err
	}

	return benchmark, nil
}

func decimalKey(v *viper.Viper, key string) (decimal.Decimal, error) {
	val, err := decimal.NewFromString(v.GetString(key))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, key, err)
	}
	return val, nil
}
