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
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/penny-vault/pvfin/artifact"
)

const (
	ComponentDatabase = "database"
	ComponentRawData  = "raw_data"
)

type ComponentStatus struct {
	Name    string
	Healthy bool
	Detail  string
}

// HealthStatus is healthy only when every component is
type HealthStatus struct {
	Timestamp  time.Time
	Healthy    bool
	Components []ComponentStatus
}

func (status *HealthStatus) MarshalZerologObject(e *zerolog.Event) {
	e.Bool("Healthy", status.Healthy)
	for _, component := range status.Components {
		e.Str(component.Name, component.Detail)
	}
}

// HealthCheck verifies the database answers and the raw data directory can
// be written without running any stage
func (pipeline *Pipeline) HealthCheck(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Timestamp: time.Now(),
		Healthy:   true,
	}

	status.add(pipeline.checkDatabase(ctx))

	if pipeline.RawDir != "" {
		status.add(checkRawDir(pipeline.RawDir))
	}

	zerolog.Ctx(ctx).Info().Object("Health", status).Msg("health check finished")
	return status
}

func (status *HealthStatus) add(component ComponentStatus) {
	status.Components = append(status.Components, component)
	if !component.Healthy {
		status.Healthy = false
	}
}

func (pipeline *Pipeline) checkDatabase(ctx context.Context) ComponentStatus {
	component := ComponentStatus{Name: ComponentDatabase}

	if pipeline.Store == nil {
		component.Detail = "not configured"
		return component
	}

	if err := pipeline.Store.Ping(ctx); err != nil {
		component.Detail = err.Error()
		return component
	}

	summary, err := pipeline.Store.Summary(ctx)
	if err != nil {
		component.Detail = err.Error()
		return component
	}

	component.Healthy = true
	component.Detail = fmt.Sprintf("%d companies, %d quarterly records", summary.TotalCompanies, summary.TotalRecords)
	return component
}

func checkRawDir(dir string) ComponentStatus {
	component := ComponentStatus{Name: ComponentRawData, Detail: dir}

	if err := artifact.NewFileStore(dir).Writable(); err != nil {
		component.Detail = err.Error()
		return component
	}

	component.Healthy = true
	return component
}
