package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"ais_parser/internal/record"
)

// ClickHouseConfig holds ClickHouse connection settings.
type ClickHouseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// ClickHouse is a columnar sink for decoded rows.
type ClickHouse struct {
	conn driver.Conn
	now  func() time.Time
}

// Conn returns the underlying ClickHouse connection for direct queries.
func (d *ClickHouse) Conn() driver.Conn {
	return d.conn
}

// OpenClickHouse opens a connection to ClickHouse.
func OpenClickHouse(ctx context.Context, cfg ClickHouseConfig) (*ClickHouse, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}

	// Test the connection.
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	return &ClickHouse{conn: conn, now: time.Now}, nil
}

// Close closes the ClickHouse connection.
func (d *ClickHouse) Close() error {
	return d.conn.Close()
}

// CreateSchema creates the ClickHouse tables.
func (d *ClickHouse) CreateSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS ais_messages (
			msg_type     UInt8,
			mmsi         UInt32,
			vessel_name  String,
			call_sign    String,
			imo          Nullable(UInt32),
			ship_type    Nullable(UInt8),
			time         DateTime64(3),
			lat          Nullable(Float64),
			lon          Nullable(Float64),
			heading      Nullable(Float64),
			rot          Nullable(Float64),
			sog          Nullable(Float64),
			cog          Nullable(Float64),
			nav_status   Nullable(UInt8),
			maneuver     Nullable(UInt8),
			destination  LowCardinality(String),
			geohash      String,
			raw          String,
			created_at   DateTime64(3) DEFAULT now64(3)
		)
		ENGINE = MergeTree()
		PARTITION BY toYYYYMM(time)
		ORDER BY (mmsi, time)
		SETTINGS index_granularity = 8192`,

		`CREATE TABLE IF NOT EXISTS ais_type_counts (
			day       Date,
			msg_type  UInt8,
			messages  UInt64
		)
		ENGINE = SummingMergeTree()
		ORDER BY (day, msg_type)`,

		`CREATE MATERIALIZED VIEW IF NOT EXISTS ais_type_counts_mv TO ais_type_counts AS
		SELECT toDate(time) AS day, msg_type, count() AS messages
		FROM ais_messages
		GROUP BY day, msg_type`,
	}

	for _, q := range queries {
		if err := d.conn.Exec(ctx, q); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	// Bloom filter for geohash prefix lookups (ignore error if already exists).
	_ = d.conn.Exec(ctx, `ALTER TABLE ais_messages ADD INDEX IF NOT EXISTS idx_geohash geohash TYPE ngrambf_v1(4, 1024, 2, 0) GRANULARITY 4`)

	return nil
}

// Write stores rows in one batch. Rows without a receiver time are stamped
// with the current time.
func (d *ClickHouse) Write(ctx context.Context, rows []record.Row) error {
	if len(rows) == 0 {
		return nil
	}

	batch, err := d.conn.PrepareBatch(ctx, `
		INSERT INTO ais_messages (msg_type, mmsi, vessel_name, call_sign, imo, ship_type, time,
			lat, lon, heading, rot, sog, cog, nav_status, maneuver, destination, geohash, raw)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	now := d.now().UTC()
	for _, r := range rows {
		err := batch.Append(r.MsgType, r.MMSI, r.VesselName, r.CallSign, r.IMO, r.ShipType,
			rowTime(r, now), r.Lat, r.Lon, r.Heading, r.ROT, r.SOG, r.COG, r.NavStatus,
			r.Maneuver, r.Destination, r.Geohash, r.Raw)
		if err != nil {
			_ = batch.Abort()
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// TypeCount is the number of messages of one type on one day.
type TypeCount struct {
	Day      time.Time
	MsgType  uint8
	Messages uint64
}

// TypeCounts returns daily message counts per type since the given time.
func (d *ClickHouse) TypeCounts(ctx context.Context, since time.Time) ([]TypeCount, error) {
	rows, err := d.conn.Query(ctx, `
		SELECT day, msg_type, sum(messages)
		FROM ais_type_counts
		WHERE day >= toDate(?)
		GROUP BY day, msg_type
		ORDER BY day, msg_type
	`, since)
	if err != nil {
		return nil, fmt.Errorf("query type counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []TypeCount
	for rows.Next() {
		var tc TypeCount
		if err := rows.Scan(&tc.Day, &tc.MsgType, &tc.Messages); err != nil {
			return nil, fmt.Errorf("scan type count: %w", err)
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}
