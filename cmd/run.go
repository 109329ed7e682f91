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
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/hako/durafmt"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/penny-vault/pvfin/data"
	"github.com/penny-vault/pvfin/db"
	"github.com/penny-vault/pvfin/healthcheck"
	"github.com/penny-vault/pvfin/library"
	"github.com/penny-vault/pvfin/pipeline"
)

const (
	exitSuccess     = 0
	exitFailure     = 1
	exitInterrupted = 130
)

var (
	runTickers      []string
	noValidation    bool
	healthCheckOnly bool
	verbose         bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Extract, normalize and load quarterly financials",
	Long: `The run sub-command executes one ingestion run for the configured companies
(or the ones given with --tickers). It exits 0 on success, 1 if the run fails or
the health check is unhealthy, and 130 when interrupted.`,
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(execute(cmd.Context()))
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringSliceVarP(&runTickers, "tickers", "t", nil, "tickers to process (default TSLA,RIVN,LCID)")
	runCmd.Flags().BoolVar(&noValidation, "no-validation", false, "skip the benchmark quarter checks")
	runCmd.Flags().BoolVar(&healthCheckOnly, "health-check", false, "check the database and data directories and exit")
	runCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func execute(parent context.Context) int {
	if parent == nil {
		parent = context.Background()
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	ctx = log.Logger.WithContext(ctx)
	conf := loadConfig()

	tickers := conf.Tickers
	if len(runTickers) > 0 {
		var err error
		tickers, err = data.NormalizeTickers(runTickers)
		if err != nil {
			log.Error().Err(err).Strs("Tickers", runTickers).Msg("invalid ticker list")
			return exitFailure
		}
	}

	myLibrary, err := library.NewFromURL(ctx, conf.Database.URL, conf.Companies)
	if err != nil {
		log.Error().Err(err).Msg("could not connect to database")
		return exitFailure
	}
	defer myLibrary.Close()

	runner := newPipeline(conf, myLibrary)

	if healthCheckOnly {
		status := runner.HealthCheck(ctx)
		fmt.Println(renderHealth(status))
		if status.Healthy {
			return exitSuccess
		}
		return exitFailure
	}

	if err := conf.RequireAPIKey(); err != nil {
		log.Error().Err(err).Msg("cannot run without a primary provider")
		return exitFailure
	}

	if conf.Database.Migrate {
		if err := db.Migrate(conf.Database.URL); err != nil {
			log.Error().Err(err).Msg("error running database migration")
			return exitFailure
		}
	}

	pinger := healthcheck.New(conf.HealthcheckURL)
	if err := pinger.Start(ctx); err != nil {
		log.Warn().Err(err).Msg("could not signal run start")
	}

	validate := !noValidation
	metrics, err := runner.Run(ctx, tickers, validate)
	fmt.Println(renderMetrics(metrics, validate))

	if err != nil {
		if pipeline.Interrupted(err) {
			log.Info().Msg("pipeline interrupted by user")
			return exitInterrupted
		}

		if pingErr := pinger.Fail(context.Background(), strings.Join(metrics.Errors, "\n")); pingErr != nil {
			log.Warn().Err(pingErr).Msg("could not signal run failure")
		}
		return exitFailure
	}

	if err := pinger.Success(ctx, fmt.Sprintf("loaded %d records", metrics.LoadCount)); err != nil {
		log.Warn().Err(err).Msg("could not signal run success")
	}

	return exitSuccess
}

func renderMetrics(metrics *pipeline.Metrics, validate bool) string {
	var sb strings.Builder
	keyword := func(s string) string {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Render(s)
	}

	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")).Render("PIPELINE COMPLETED")
	if !metrics.Success {
		title = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")).Render("PIPELINE FAILED")
	}

	fmt.Fprintf(&sb, "%s\n\nRun: %s\nDuration: %s\nCompanies: %s success, %s partial, %s failed\nProcessed: %s\nLoaded: %s\n",
		title,
		keyword(metrics.RunID.String()[:8]),
		keyword(durafmt.Parse(metrics.Duration).LimitFirstN(2).String()),
		keyword(fmt.Sprint(metrics.StatusCounts[data.StatusSuccess])),
		keyword(fmt.Sprint(metrics.StatusCounts[data.StatusPartial])),
		keyword(fmt.Sprint(metrics.StatusCounts[data.StatusFailed])),
		keyword(fmt.Sprint(metrics.TransformCount)),
		keyword(fmt.Sprint(metrics.LoadCount)),
	)

	if validate && metrics.Success {
		passed := "no"
		if metrics.ValidationPassed {
			passed = "yes"
		}
		fmt.Fprintf(&sb, "Benchmark validated: %s\n", keyword(passed))
	}

	for _, msg := range metrics.Errors {
		fmt.Fprintf(&sb, "\n%s", msg)
	}

	return lipgloss.NewStyle().
		Width(60).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63")).
		Padding(1, 2).
		Render(sb.String())
}

func renderHealth(status *pipeline.HealthStatus) string {
	var sb strings.Builder

	overall := "healthy"
	if !status.Healthy {
		overall = "unhealthy"
	}

	fmt.Fprintf(&sb, "%s\n", lipgloss.NewStyle().Bold(true).Render("Health Status: "+overall))
	for _, component := range status.Components {
		state := "healthy"
		if !component.Healthy {
			state = "unhealthy"
		}
		fmt.Fprintf(&sb, "\n  %s: %s (%s)", component.Name, state, component.Detail)
	}

	return sb.String()
}
