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
	"errors"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/jackc/pgx/v5"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/penny-vault/pvfin/db"
	"github.com/penny-vault/pvfin/healthcheck"
	"github.com/penny-vault/pvfin/library"
)

type databaseSettings struct {
	URL string `toml:"url"`
}

type fmpSettings struct {
	APIKey string `toml:"api_key"`
}

type healthcheckSettings struct {
	URL string `toml:"url,omitempty"`
}

// initSettings is the subset of the configuration written by init
type initSettings struct {
	Database     databaseSettings    `toml:"database"`
	FMP          fmpSettings         `toml:"fmp"`
	Healthchecks healthcheckSettings `toml:"healthchecks"`
}

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Gather database configuration and setup schema",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := log.Logger.WithContext(context.Background())

		var (
			settings   initSettings
			monitored  bool
			hcAPIKey   string
			hcSchedule = "0 6 * * *"
		)

		form := huh.NewForm(
			// Get details about the database
			huh.NewGroup(
				huh.NewInput().
					Title("Provide the DSN for connecting to your PostgreSQL database (postgres://[user[:password]@][netloc][:port][/dbname][?param1=value1&...])").
					Value(&settings.Database.URL).
					Validate(func(dsn string) error {
						_, err := pgx.ParseConfig(dsn)
						return err
					}),
			),

			// Primary provider credentials
			huh.NewGroup(
				huh.NewInput().
					Title("Financial Modeling Prep API key:").
					EchoMode(huh.EchoModePassword).
					Value(&settings.FMP.APIKey).
					Validate(func(key string) error {
						if key == "" {
							return errors.New("an api key is required")
						}
						return nil
					}),
			),

			// Run monitoring
			huh.NewGroup(
				huh.NewConfirm().
					Title("Monitor runs with healthchecks.io?").
					Value(&monitored),
			),
		)

		if err := form.Run(); err != nil {
			log.Fatal().Err(err).Msg("error gathering settings")
		}

		if monitored {
			monitorForm := huh.NewForm(
				huh.NewGroup(
					huh.NewInput().
						Title("healthchecks.io project API key:").
						EchoMode(huh.EchoModePassword).
						Value(&hcAPIKey),

					huh.NewInput().
						Title("Cron schedule of the nightly run:").
						Value(&hcSchedule),
				),
			)

			if err := monitorForm.Run(); err != nil {
				log.Fatal().Err(err).Msg("error gathering monitoring settings")
			}

			pingURL, err := healthcheck.Create(ctx, healthcheck.DefaultAPIURL, hcAPIKey, "pvfin quarterly financials", []string{"pvfin"}, hcSchedule)
			if err != nil {
				log.Fatal().Err(err).Msg("could not create health check")
			}
			settings.Healthchecks.URL = pingURL
		}

		log.Info().Msg("creating database tables")

		if err := db.Migrate(settings.Database.URL); err != nil {
			log.Fatal().Err(err).Msg("error running database migration")
		}

		log.Info().Msg("database tables created")

		// seed the default companies so info has something to show
		myLibrary, err := library.NewFromURL(ctx, settings.Database.URL, nil)
		if err != nil {
			log.Fatal().Err(err).Msg("could not connect to database")
		}
		defer myLibrary.Close()

		if _, err := myLibrary.EnsureCompanies(ctx, defaultTickers()); err != nil {
			log.Fatal().Err(err).Msg("error creating default companies")
		}

		// save settings to config file
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatal().Err(err).Msg("could not determine user home directory")
		}

		configFN := filepath.Join(home, ".pvfin.toml")
		log.Info().Str("ConfigFile", configFN).Msg("Saving settings to config file")
		configData, err := toml.Marshal(settings)
		if err != nil {
			log.Fatal().Err(err).Msg("could not marshal configuration data")
		}

		if err := os.WriteFile(configFN, configData, 0600); err != nil {
			log.Fatal().Err(err).Str("FileName", configFN).Msg("could not save configuration to file")
		}

		log.Info().Msg("pvfin has been initialized")
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
