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

// Package healthcheck reports run status to a healthchecks.io style ping URL
package healthcheck

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gosimple/slug"

	"github.com/penny-vault/pvfin/pkginfo"
)

var (
	ErrStatus = errors.New("status code is invalid")
)

// DefaultAPIURL is the healthchecks.io management endpoint for new checks
const DefaultAPIURL = "https://healthchecks.io/api/v3/checks/"

type createReq struct {
	Name     string   `json:"name"`
	Grace    int      `json:"grace"`
	Schedule string   `json:"schedule"`
	Slug     string   `json:"slug"`
	Tags     string   `json:"tags"`
	Timezone string   `json:"tz"`
	Unique   []string `json:"unique"`
}

type createResp struct {
	PingURL string `json:"ping_url"`
}

// Create registers a cron-scheduled check named name and returns its ping
// URL. An existing check with the same name is returned instead of a
// duplicate.
func Create(ctx context.Context, apiURL, apiKey, name string, tags []string, schedule string) (string, error) {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}

	command := createReq{
		Name:     name,
		Slug:     slug.Make(name),
		Tags:     strings.Join(tags, " "),
		Grace:    3600,
		Schedule: schedule,
		Timezone: "America/New_York",
		Unique:   []string{"name"},
	}

	result := createResp{}

	resp, err := resty.New().R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Api-Key", apiKey).
		SetBody(command).
		SetResult(&result).
		Post(apiURL)
	if err != nil {
		return "", err
	}

	if resp.StatusCode() > 201 {
		return "", fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode())
	}

	return result.PingURL, nil
}

// Pinger signals the start, success and failure of a run. A Pinger with an
// empty URL does nothing.
type Pinger struct {
	URL string

	client *resty.Client
}

func New(pingURL string) *Pinger {
	return &Pinger{
		URL: strings.TrimSuffix(pingURL, "/"),
		client: resty.New().
			SetHeader("User-Agent", pkginfo.UserAgent()).
			SetTimeout(10 * time.Second).
			SetRetryCount(2),
	}
}

// Enabled reports whether a ping URL has been configured
func (pinger *Pinger) Enabled() bool {
	return pinger != nil && pinger.URL != ""
}

// Start marks the beginning of a run so the run time is measured
func (pinger *Pinger) Start(ctx context.Context) error {
	return pinger.ping(ctx, "/start", "")
}

// Success marks the run as complete; body is attached to the ping
func (pinger *Pinger) Success(ctx context.Context, body string) error {
	return pinger.ping(ctx, "", body)
}

// Fail marks the run as failed; body is attached to the ping
func (pinger *Pinger) Fail(ctx context.Context, body string) error {
	return pinger.ping(ctx, "/fail", body)
}

func (pinger *Pinger) ping(ctx context.Context, suffix, body string) error {
	if !pinger.Enabled() {
		return nil
	}

	resp, err := pinger.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "text/plain").
		SetBody(body).
		Post(pinger.URL + suffix)
	if err != nil {
		return err
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode())
	}

	return nil
}
