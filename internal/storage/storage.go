// Package storage provides output sinks for decoded AIS rows.
package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"ais_parser/internal/record"
)

// Sink receives batches of decoded rows.
type Sink interface {
	Write(ctx context.Context, rows []record.Row) error
	Close() error
}

// Config holds connection settings for every backend.
type Config struct {
	SQLite     SQLiteConfig     `yaml:"sqlite"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Postgres   PostgresConfig   `yaml:"postgres"`
}

// DefaultConfig returns a configuration with default local development
// settings. All backends start disabled.
func DefaultConfig() Config {
	return Config{
		SQLite: SQLiteConfig{
			Path: "ais.db",
		},
		ClickHouse: ClickHouseConfig{
			Host:     "localhost",
			Port:     9000,
			Database: "ais",
			User:     "default",
			Password: "",
		},
		Postgres: PostgresConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "ais_state",
			User:     "ais",
			Password: "ais",
		},
	}
}

// Open opens every enabled backend and fans writes out to all of them.
func Open(ctx context.Context, cfg Config) (*Multi, error) {
	var sinks []Sink
	fail := func(err error) (*Multi, error) {
		return nil, multierr.Append(err, NewMulti(sinks...).Close())
	}

	if cfg.SQLite.Enabled {
		db, err := OpenSQLite(cfg.SQLite.Path)
		if err != nil {
			return fail(fmt.Errorf("sqlite: %w", err))
		}
		sinks = append(sinks, db)
	}
	if cfg.ClickHouse.Enabled {
		ch, err := OpenClickHouse(ctx, cfg.ClickHouse)
		if err != nil {
			return fail(fmt.Errorf("clickhouse: %w", err))
		}
		sinks = append(sinks, ch)
		if err := ch.CreateSchema(ctx); err != nil {
			return fail(fmt.Errorf("clickhouse schema: %w", err))
		}
	}
	if cfg.Postgres.Enabled {
		pg, err := OpenPostgres(ctx, cfg.Postgres)
		if err != nil {
			return fail(fmt.Errorf("postgres: %w", err))
		}
		sinks = append(sinks, pg)
		if err := pg.CreateSchema(ctx); err != nil {
			return fail(fmt.Errorf("postgres schema: %w", err))
		}
	}
	return NewMulti(sinks...), nil
}

// Multi writes every batch to each of its sinks.
type Multi struct {
	sinks []Sink
}

// NewMulti creates a fan-out sink.
func NewMulti(sinks ...Sink) *Multi {
	return &Multi{sinks: sinks}
}

// Add appends a sink.
func (m *Multi) Add(s Sink) {
	m.sinks = append(m.sinks, s)
}

// Len returns the number of sinks.
func (m *Multi) Len() int {
	return len(m.sinks)
}

// Write writes rows to every sink. A failing sink does not stop the others.
func (m *Multi) Write(ctx context.Context, rows []record.Row) error {
	var err error
	for _, s := range m.sinks {
		err = multierr.Append(err, s.Write(ctx, rows))
	}
	return err
}

// Close closes every sink.
func (m *Multi) Close() error {
	var err error
	for _, s := range m.sinks {
		err = multierr.Append(err, s.Close())
	}
	return err
}

// rowTime returns the row's receiver time, or fallback when it has none.
func rowTime(r record.Row, fallback time.Time) time.Time {
	if r.Time != nil {
		return r.Time.UTC()
	}
	return fallback
}
