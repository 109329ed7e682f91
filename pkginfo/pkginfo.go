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
package pkginfo

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

var (
	BuildDate  string
	CommitHash string
	Version    string
)

// Dependency is a module linked into the binary. Replaced modules report
// the replacement's path and version.
type Dependency struct {
	Path    string
	Version string
}

func (dep Dependency) String() string {
	return fmt.Sprintf("%s=%q", dep.Path, dep.Version)
}

// stack names the modules that carry pvfin's data path, keyed by the role
// shown in version output
var stack = []struct {
	Role   string
	Module string
}{
	{"Postgres driver", "github.com/jackc/pgx/v5"},
	{"Migrations", "github.com/golang-migrate/migrate/v4"},
	{"HTTP client", "github.com/go-resty/resty/v2"},
	{"Decimals", "github.com/shopspring/decimal"},
	{"Parquet", "github.com/xitongsys/parquet-go"},
}

// BuildVersionString returns a version info string suitable for printing on the command line
func BuildVersionString() string {
	osArch := runtime.GOOS + "/" + runtime.GOARCH
	goVersion := runtime.Version()

	var sb strings.Builder
	fmt.Fprintf(&sb, `pvfin %s %s

Build Date: %s
Commit: %s
Built with: %s`, Version, osArch, BuildDate, CommitHash, goVersion)

	versions := StackVersions(Dependencies())
	for _, entry := range stack {
		if version, ok := versions[entry.Module]; ok {
			fmt.Fprintf(&sb, "\n%s: %s", entry.Role, version)
		}
	}

	return sb.String()
}

// UserAgent identifies pvfin in outbound HTTP requests
func UserAgent() string {
	version := Version
	if version == "" {
		version = "dev"
	}
	return fmt.Sprintf("pvfin/%s (+https://github.com/penny-vault/pvfin)", version)
}

// Dependencies returns the modules linked into this program sorted by path
func Dependencies() []Dependency {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		log.Error().Msg("could not get package build info")
		return nil
	}

	deps := make([]Dependency, 0, len(buildInfo.Deps))
	for _, mod := range buildInfo.Deps {
		if mod.Replace != nil {
			mod = mod.Replace
		}
		deps = append(deps, Dependency{Path: mod.Path, Version: mod.Version})
	}

	sort.Slice(deps, func(i, j int) bool {
		return deps[i].Path < deps[j].Path
	})

	return deps
}

// StackVersions picks the versions of pvfin's data path modules out of deps
func StackVersions(deps []Dependency) map[string]string {
	versions := make(map[string]string, len(stack))
	for _, dep := range deps {
		for _, entry := range stack {
			if dep.Path == entry.Module {
				versions[dep.Path] = dep.Version
			}
		}
	}
	return versions
}

// GetDependencyList returns every dependency in the form `package="version"`
func GetDependencyList() []string {
	deps := Dependencies()
	list := make([]string, 0, len(deps))
	for _, dep := range deps {
		list = append(list, dep.String())
	}
	sort.Strings(list)
	return list
}
