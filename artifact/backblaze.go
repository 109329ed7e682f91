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
package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kothar/go-backblaze"
	"github.com/rs/zerolog/log"
)

var ErrBucketNotFound = errors.New("bucket not found")

// Mirror copies processed exports to a Backblaze B2 bucket
type Mirror struct {
	KeyID          string
	ApplicationKey string
	Bucket         string
	Prefix         string
}

// Enabled reports whether a bucket has been configured
func (mirror *Mirror) Enabled() bool {
	return mirror != nil && mirror.Bucket != ""
}

// Upload stores each file under {Prefix}/{base name} in the bucket
func (mirror *Mirror) Upload(files ...string) error {
	b2, err := backblaze.NewB2(backblaze.Credentials{
		KeyID:          mirror.KeyID,
		ApplicationKey: mirror.ApplicationKey,
	})
	if err != nil {
		log.Error().Err(err).Str("BucketName", mirror.Bucket).Msg("authorize backblaze failed")
		return err
	}

	bucket, err := b2.Bucket(mirror.Bucket)
	if err != nil {
		log.Error().Err(err).Str("BucketName", mirror.Bucket).Msg("lookup bucket failed")
		return err
	}
	if bucket == nil {
		log.Error().Str("BucketName", mirror.Bucket).Msg("bucket does not exist")
		return fmt.Errorf("%w: %s", ErrBucketNotFound, mirror.Bucket)
	}

	for _, fn := range files {
		if err := mirror.uploadFile(bucket, fn); err != nil {
			return err
		}
	}

	return nil
}

func (mirror *Mirror) uploadFile(bucket *backblaze.Bucket, fn string) error {
	reader, err := os.Open(fn)
	if err != nil {
		return err
	}
	defer reader.Close()

	outName := filepath.Base(fn)
	if mirror.Prefix != "" {
		outName = fmt.Sprintf("%s/%s", mirror.Prefix, outName)
	}

	file, err := bucket.UploadFile(outName, map[string]string{}, reader)
	if err != nil {
		log.Error().Err(err).Str("FileName", outName).Str("BucketName", mirror.Bucket).Msg("save file to backblaze failed")
		return err
	}

	log.Info().Str("FileName", file.Name).Int64("Size", file.ContentLength).Str("ID", file.ID).Msg("uploaded file to backblaze")
	return nil
}
