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

// Package artifact keeps audit copies of provider payloads. Nothing in the
// pipeline reads them back.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// Payload kinds, used as the file name suffix
const (
	KindIncome          = "income"
	KindEstimates       = "estimates"
	KindSecondaryIncome = "income_yf"
)

// FileName returns the artifact name for a ticker and payload kind, e.g.
// TSLA_income_raw.json
func FileName(ticker, kind string) string {
	return fmt.Sprintf("%s_%s_raw.json", ticker, kind)
}

// FileStore writes raw payloads as indented JSON under Dir
type FileStore struct {
	Dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

// SaveRaw writes payload to {Dir}/{ticker}_{kind}_raw.json and returns the
// path written
func (store *FileStore) SaveRaw(ticker, kind string, payload any) (string, error) {
	if err := os.MkdirAll(store.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create raw directory: %w", err)
	}

	body, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal %s payload: %w", kind, err)
	}

	fn := filepath.Join(store.Dir, FileName(ticker, kind))
	if err := os.WriteFile(fn, body, 0o644); err != nil {
		log.Error().Err(err).Str("FileName", fn).Msg("could not save raw payload")
		return "", err
	}

	log.Debug().Str("FileName", fn).Int("Bytes", len(body)).Msg("saved raw payload")
	return fn, nil
}

// Writable checks that the raw directory can be created and written to
func (store *FileStore) Writable() error {
	if err := os.MkdirAll(store.Dir, 0o755); err != nil {
		return err
	}

	fh, err := os.CreateTemp(store.Dir, ".healthcheck-*")
	if err != nil {
		return err
	}

	fn := fh.Name()
	if err := fh.Close(); err != nil {
		return err
	}

	return os.Remove(fn)
}
