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

// Package library owns the relational store: company identities, quarterly
// financials and analyst estimates. Every write goes through a scoped
// transaction that commits once or rolls back entirely.
package library

import (
	"context"
	"errors"
	"fmt"

	"github.com/alphadose/haxmap"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/rs/zerolog"

	"github.com/penny-vault/pvfin/data"
)

var (
	ErrLoad         = errors.New("load failed")
	ErrNotConnected = errors.New("library is not connected to a database")
)

// DB is the subset of *pgxpool.Pool used by the library
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// LoadError reports a failed write; the transaction it happened in has
// been rolled back
type LoadError struct {
	Op  string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrLoad, e.Op, e.Err)
}

func (e *LoadError) Unwrap() []error {
	return []error{ErrLoad, e.Err}
}

type Library struct {
	DBUrl string
	Name  string

	Pool      DB
	Companies data.CompanyDirectory

	// ticker -> companies.id for every company seen by this process
	companyIDs *haxmap.Map[string, int64]
}

// New wraps an already open database handle
func New(pool DB, companies data.CompanyDirectory) *Library {
	if companies == nil {
		companies = data.DefaultCompanyDirectory()
	}

	return &Library{
		Name:       "pvfin",
		Pool:       pool,
		Companies:  companies,
		companyIDs: haxmap.New[string, int64](),
	}
}

// Connect to the database configured for the library
func (myLibrary *Library) Connect(ctx context.Context) error {
	if myLibrary.Pool != nil {
		return nil
	}

	cfg, err := pgxpool.ParseConfig(myLibrary.DBUrl)
	if err != nil {
		return err
	}

	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return err
	}
	myLibrary.Pool = pool

	if myLibrary.companyIDs == nil {
		myLibrary.companyIDs = haxmap.New[string, int64]()
	}

	if myLibrary.Companies == nil {
		myLibrary.Companies = data.DefaultCompanyDirectory()
	}

	return nil
}

// NewFromURL opens a connection pool for dbURL
func NewFromURL(ctx context.Context, dbURL string, companies data.CompanyDirectory) (*Library, error) {
	myLibrary := New(nil, companies)
	myLibrary.DBUrl = dbURL

	if err := myLibrary.Connect(ctx); err != nil {
		return nil, err
	}

	return myLibrary, nil
}

// Close the database pool
func (myLibrary *Library) Close() {
	if myLibrary.Pool != nil {
		myLibrary.Pool.Close()
	}
}

// Ping verifies the database is reachable
func (myLibrary *Library) Ping(ctx context.Context) error {
	if myLibrary.Pool == nil {
		return ErrNotConnected
	}
	return myLibrary.Pool.Ping(ctx)
}

// WithTx runs fn inside a transaction. The transaction is committed once if
// fn returns nil and rolled back if fn returns an error or panics; the
// pooled connection is released either way.
func (myLibrary *Library) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	if myLibrary.Pool == nil {
		return ErrNotConnected
	}

	logger := zerolog.Ctx(ctx)

	tx, err := myLibrary.Pool.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			if err := tx.Rollback(ctx); err != nil {
				logger.Error().Err(err).Msg("error rollingback tx")
			}
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
			logger.Error().Err(rollbackErr).Msg("error rollingback tx")
		}
		return err
	}

	return tx.Commit(ctx)
}

// CompanyID returns the cached id for ticker
func (myLibrary *Library) CompanyID(ticker string) (int64, bool) {
	return myLibrary.companyIDs.Get(ticker)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
