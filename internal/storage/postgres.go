package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ais_parser/internal/record"
)

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// DSN returns the connection string for cfg.
func (cfg PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)
}

// PostgresDB is the vessel registry: one row per MMSI holding the latest
// static and dynamic data.
type PostgresDB struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// OpenPostgres opens a connection pool to PostgreSQL.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresDB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	// Test the connection.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresDB{pool: pool, now: time.Now}, nil
}

// Close closes the PostgreSQL connection pool.
func (d *PostgresDB) Close() error {
	d.pool.Close()
	return nil
}

// Pool returns the underlying connection pool.
func (d *PostgresDB) Pool() *pgxpool.Pool {
	return d.pool
}

// CreateSchema creates the PostgreSQL tables.
func (d *PostgresDB) CreateSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS vessels (
		mmsi            BIGINT PRIMARY KEY,
		name            TEXT NOT NULL DEFAULT '',
		call_sign       TEXT NOT NULL DEFAULT '',
		imo             BIGINT,
		ship_type       SMALLINT,
		destination     TEXT NOT NULL DEFAULT '',
		lat             DOUBLE PRECISION,
		lon             DOUBLE PRECISION,
		sog             DOUBLE PRECISION,
		cog             DOUBLE PRECISION,
		heading         DOUBLE PRECISION,
		nav_status      SMALLINT,
		geohash         TEXT NOT NULL DEFAULT '',
		last_msg_type   SMALLINT NOT NULL,
		first_seen      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_seen       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		msg_count       INTEGER NOT NULL DEFAULT 1
	);

	CREATE INDEX IF NOT EXISTS idx_vessels_name ON vessels(name);
	CREATE INDEX IF NOT EXISTS idx_vessels_last_seen ON vessels(last_seen);
	CREATE INDEX IF NOT EXISTS idx_vessels_geohash ON vessels(geohash text_pattern_ops);
	`

	if _, err := d.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

const upsertVessel = `
	INSERT INTO vessels (mmsi, name, call_sign, imo, ship_type, destination, lat, lon, sog, cog,
		heading, nav_status, geohash, last_msg_type, first_seen, last_seen, msg_count)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15, 1)
	ON CONFLICT (mmsi) DO UPDATE SET
		name = COALESCE(NULLIF(EXCLUDED.name, ''), vessels.name),
		call_sign = COALESCE(NULLIF(EXCLUDED.call_sign, ''), vessels.call_sign),
		imo = COALESCE(EXCLUDED.imo, vessels.imo),
		ship_type = COALESCE(EXCLUDED.ship_type, vessels.ship_type),
		destination = COALESCE(NULLIF(EXCLUDED.destination, ''), vessels.destination),
		lat = COALESCE(EXCLUDED.lat, vessels.lat),
		lon = COALESCE(EXCLUDED.lon, vessels.lon),
		sog = COALESCE(EXCLUDED.sog, vessels.sog),
		cog = COALESCE(EXCLUDED.cog, vessels.cog),
		heading = COALESCE(EXCLUDED.heading, vessels.heading),
		nav_status = COALESCE(EXCLUDED.nav_status, vessels.nav_status),
		geohash = COALESCE(NULLIF(EXCLUDED.geohash, ''), vessels.geohash),
		last_msg_type = EXCLUDED.last_msg_type,
		last_seen = GREATEST(EXCLUDED.last_seen, vessels.last_seen),
		msg_count = vessels.msg_count + 1
`

func pgInt16(v *uint8) *int16 {
	if v == nil {
		return nil
	}
	i := int16(*v)
	return &i
}

func pgInt64(v *uint32) *int64 {
	if v == nil {
		return nil
	}
	i := int64(*v)
	return &i
}

// Write upserts each row into the vessel registry. Rows for MMSI 0 are
// skipped.
func (d *PostgresDB) Write(ctx context.Context, rows []record.Row) error {
	batch := &pgx.Batch{}
	now := d.now().UTC()
	for _, r := range rows {
		if r.MMSI == 0 {
			continue
		}
		batch.Queue(upsertVessel,
			int64(r.MMSI), r.VesselName, r.CallSign, pgInt64(r.IMO), pgInt16(r.ShipType),
			r.Destination, r.Lat, r.Lon, r.SOG, r.COG, r.Heading, pgInt16(r.NavStatus),
			r.Geohash, int16(r.MsgType), rowTime(r, now))
	}
	if batch.Len() == 0 {
		return nil
	}

	br := d.pool.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("upsert vessel: %w", err)
		}
	}
	return br.Close()
}

// VesselRecord is one row of the vessel registry.
type VesselRecord struct {
	MMSI        uint32
	Name        string
	CallSign    string
	IMO         *int64
	ShipType    *int16
	Destination string
	Lat         *float64
	Lon         *float64
	SOG         *float64
	COG         *float64
	Heading     *float64
	NavStatus   *int16
	Geohash     string
	LastMsgType int16
	FirstSeen   time.Time
	LastSeen    time.Time
	MsgCount    int
}

const vesselColumns = `mmsi, name, call_sign, imo, ship_type, destination, lat, lon, sog, cog,
	heading, nav_status, geohash, last_msg_type, first_seen, last_seen, msg_count`

func scanVessel(row pgx.Row) (*VesselRecord, error) {
	var v VesselRecord
	var mmsi int64
	err := row.Scan(&mmsi, &v.Name, &v.CallSign, &v.IMO, &v.ShipType, &v.Destination,
		&v.Lat, &v.Lon, &v.SOG, &v.COG, &v.Heading, &v.NavStatus, &v.Geohash,
		&v.LastMsgType, &v.FirstSeen, &v.LastSeen, &v.MsgCount)
	if err != nil {
		return nil, err
	}
	v.MMSI = uint32(mmsi)
	return &v, nil
}

// GetVessel retrieves a vessel by MMSI. It returns nil if not found.
func (d *PostgresDB) GetVessel(ctx context.Context, mmsi uint32) (*VesselRecord, error) {
	v, err := scanVessel(d.pool.QueryRow(ctx,
		`SELECT `+vesselColumns+` FROM vessels WHERE mmsi = $1`, int64(mmsi)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// ListParams filters a vessel listing.
type ListParams struct {
	Name    string    // Case-insensitive substring match on name.
	Geohash string    // Geohash prefix.
	Since   time.Time // Only vessels heard at or after this time.
	Limit   int       // Max results (default 100).
}

// ListVessels returns vessels ordered by most recently heard.
func (d *PostgresDB) ListVessels(ctx context.Context, p ListParams) ([]VesselRecord, error) {
	limit := 100
	if p.Limit > 0 {
		limit = p.Limit
	}

	rows, err := d.pool.Query(ctx, `
		SELECT `+vesselColumns+`
		FROM vessels
		WHERE ($1 = '' OR name ILIKE '%' || $1 || '%')
		  AND ($2 = '' OR geohash LIKE $2 || '%')
		  AND last_seen >= $3
		ORDER BY last_seen DESC, mmsi
		LIMIT $4
	`, p.Name, p.Geohash, p.Since, limit)
	if err != nil {
		return nil, fmt.Errorf("list vessels: %w", err)
	}
	defer rows.Close()

	var out []VesselRecord
	for rows.Next() {
		v, err := scanVessel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vessel: %w", err)
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

// CountVessels returns the number of vessels in the registry.
func (d *PostgresDB) CountVessels(ctx context.Context) (int, error) {
	var n int
	err := d.pool.QueryRow(ctx, `SELECT COUNT(*) FROM vessels`).Scan(&n)
	return n, err
}
