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
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hako/durafmt"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/penny-vault/pvfin/data"
	"github.com/penny-vault/pvfin/library"
)

// Metrics records what a run did. It is returned from Run whether or not
// the run succeeded.
type Metrics struct {
	RunID     uuid.UUID
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	Outcomes     []*data.ExtractionOutcome
	StatusCounts map[data.ExtractionStatus]int

	TransformCount    int
	EstimateCount     int
	LoadCount         int
	EstimateLoadCount int
	ExportedFiles     []string

	GatePassed       bool
	ValidationPassed bool

	Summary *library.DataSummary

	Success bool
	Errors  []string
}

func newMetrics() *Metrics {
	return &Metrics{
		RunID:        uuid.New(),
		StartTime:    time.Now(),
		StatusCounts: make(map[data.ExtractionStatus]int),
	}
}

func (metrics *Metrics) addError(err error) {
	if err != nil {
		metrics.Errors = append(metrics.Errors, err.Error())
	}
}

func (metrics *Metrics) finish(err error) {
	metrics.EndTime = time.Now()
	metrics.Duration = metrics.EndTime.Sub(metrics.StartTime)
	metrics.addError(err)
	metrics.Success = err == nil
}

// Interrupted reports whether a run error came from a cancelled context
func Interrupted(err error) bool {
	return errors.Is(err, context.Canceled)
}

func (metrics *Metrics) MarshalZerologObject(e *zerolog.Event) {
	e.Str("RunID", metrics.RunID.String())
	e.Str("Duration", durafmt.Parse(metrics.Duration).LimitFirstN(2).String())
	e.Int("NumSuccess", metrics.StatusCounts[data.StatusSuccess])
	e.Int("NumPartial", metrics.StatusCounts[data.StatusPartial])
	e.Int("NumFailed", metrics.StatusCounts[data.StatusFailed])
	e.Int("NumTransformed", metrics.TransformCount)
	e.Int("NumLoaded", metrics.LoadCount)
	e.Int("NumEstimatesLoaded", metrics.EstimateLoadCount)
	e.Bool("GatePassed", metrics.GatePassed)
	e.Bool("ValidationPassed", metrics.ValidationPassed)
	e.Bool("Success", metrics.Success)
}

// Registry exposes the run as prometheus gauges
func (metrics *Metrics) Registry() *prometheus.Registry {
	registry := prometheus.NewRegistry()

	companies := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "pvfin",
		Name:      "companies_extracted",
		Help:      "Companies by extraction status in the last run",
	}, []string{"status"})

	for _, status := range []data.ExtractionStatus{data.StatusSuccess, data.StatusPartial, data.StatusFailed} {
		companies.WithLabelValues(string(status)).Set(float64(metrics.StatusCounts[status]))
	}

	gauge := func(name, help string, value float64) prometheus.Gauge {
		g := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "pvfin", Name: name, Help: help})
		g.Set(value)
		return g
	}

	registry.MustRegister(
		companies,
		gauge("run_duration_seconds", "Wall-clock duration of the last run", metrics.Duration.Seconds()),
		gauge("run_timestamp_seconds", "Unix time the last run finished", float64(metrics.EndTime.Unix())),
		gauge("run_success", "1 if the last run succeeded", boolFloat(metrics.Success)),
		gauge("records_transformed", "Normalized records produced by the last run", float64(metrics.TransformCount)),
		gauge("records_loaded", "Quarterly records written by the last run", float64(metrics.LoadCount)),
		gauge("estimates_loaded", "Analyst estimates written by the last run", float64(metrics.EstimateLoadCount)),
		gauge("benchmark_passed", "1 if the stored benchmark quarter passed validation", boolFloat(metrics.ValidationPassed)),
	)

	return registry
}

// WriteTextfile writes the run gauges for the node exporter textfile
// collector
func (metrics *Metrics) WriteTextfile(fn string) error {
	return prometheus.WriteToTextfile(fn, metrics.Registry())
}

func boolFloat(val bool) float64 {
	if val {
		return 1
	}
	return 0
}
