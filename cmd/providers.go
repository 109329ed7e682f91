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
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/penny-vault/pvfin/provider"
)

// providersCmd represents the providers command
var providersCmd = &cobra.Command{
	Use:   "providers <name>",
	Short: "List the data providers or get details about a specific provider",
	Run: func(cmd *cobra.Command, args []string) {
		r, _ := glamour.NewTermRenderer(
			// detect background color and pick either the default dark or light theme
			glamour.WithAutoStyle(),
			// wrap output at specific width (default is 80)
			glamour.WithWordWrap(80),
		)

		out, err := r.Render(providersMarkdown(provider.Registry(), args))
		if err != nil {
			log.Fatal().Err(err).Msg("could not render provider document")
		}

		fmt.Print(out)
	},
}

func providersMarkdown(registry []provider.Provider, args []string) string {
	builder := strings.Builder{}

	if len(args) > 0 {
		for _, dataProvider := range registry {
			if dataProvider.Name() != args[0] {
				continue
			}

			builder.WriteString(fmt.Sprintf("# %s\n", dataProvider.Name()))
			builder.WriteString(dataProvider.Description())
			builder.WriteString("\n\n## Endpoints\n")
			for _, endpoint := range dataProvider.Endpoints() {
				builder.WriteString(fmt.Sprintf("- %s\n", endpoint))
			}
		}

		return builder.String()
	}

	builder.WriteString("# Available Providers\n")
	for idx, dataProvider := range registry {
		role := "fallback"
		if idx == 0 {
			role = "primary"
		}
		builder.WriteString(fmt.Sprintf("\n## %s (%s)\n", dataProvider.Name(), role))
		builder.WriteString(dataProvider.Description())
		builder.WriteString("\n")
	}

	return builder.String()
}

func init() {
	rootCmd.AddCommand(providersCmd)
}
