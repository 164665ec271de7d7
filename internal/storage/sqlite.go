package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"ais_parser/internal/record"
)

// SQLiteConfig holds the SQLite sink settings.
type SQLiteConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// SQLite stores decoded rows in a local messages table.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates a SQLite database at the given path.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One writer; also keeps ":memory:" databases on a single connection.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent access.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	if err := createSQLiteSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the database connection.
func (d *SQLite) Close() error {
	return d.db.Close()
}

func createSQLiteSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		msg_type INTEGER NOT NULL,
		mmsi INTEGER NOT NULL,
		vessel_name TEXT,
		call_sign TEXT,
		imo INTEGER,
		ship_type INTEGER,
		time TEXT,
		lat REAL,
		lon REAL,
		heading REAL,
		rot REAL,
		sog REAL,
		cog REAL,
		nav_status INTEGER,
		maneuver INTEGER,
		destination TEXT,
		geohash TEXT,
		raw TEXT NOT NULL,
		created_at TEXT DEFAULT (datetime('now'))
	);

	CREATE INDEX IF NOT EXISTS idx_messages_mmsi ON messages(mmsi);
	CREATE INDEX IF NOT EXISTS idx_messages_type ON messages(msg_type);
	CREATE INDEX IF NOT EXISTS idx_messages_time ON messages(time);
	CREATE INDEX IF NOT EXISTS idx_messages_geohash ON messages(geohash);
	`
	_, err := db.Exec(schema)
	return err
}

func sqliteTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Write stores rows in one transaction.
func (d *SQLite) Write(ctx context.Context, rows []record.Row) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages (msg_type, mmsi, vessel_name, call_sign, imo, ship_type, time,
			lat, lon, heading, rot, sog, cog, nav_status, maneuver, destination, geohash, raw)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range rows {
		_, err := stmt.ExecContext(ctx,
			r.MsgType, r.MMSI, nullString(r.VesselName), nullString(r.CallSign), r.IMO, r.ShipType,
			sqliteTime(r.Time), r.Lat, r.Lon, r.Heading, r.ROT, r.SOG, r.COG, r.NavStatus,
			r.Maneuver, nullString(r.Destination), nullString(r.Geohash), r.Raw)
		if err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
	}

	return tx.Commit()
}

// QueryParams filters stored messages.
type QueryParams struct {
	MMSI    uint32 // Filter by MMSI.
	MsgType uint8  // Filter by message type.
	Geohash string // Filter by geohash prefix.
	Limit   int    // Max results (default 100).
	Offset  int    // Pagination offset.
}

// Query returns stored rows in insertion order.
func (d *SQLite) Query(ctx context.Context, p QueryParams) ([]record.Row, error) {
	var conditions []string
	var args []any

	if p.MMSI != 0 {
		conditions = append(conditions, "mmsi = ?")
		args = append(args, p.MMSI)
	}
	if p.MsgType != 0 {
		conditions = append(conditions, "msg_type = ?")
		args = append(args, p.MsgType)
	}
	if p.Geohash != "" {
		conditions = append(conditions, "geohash LIKE ?")
		args = append(args, p.Geohash+"%")
	}

	query := `SELECT msg_type, mmsi, vessel_name, call_sign, imo, ship_type, time,
			lat, lon, heading, rot, sog, cog, nav_status, maneuver, destination, geohash, raw
			FROM messages`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	limit := 100
	if p.Limit > 0 {
		limit = p.Limit
	}
	query += fmt.Sprintf(" ORDER BY id LIMIT %d OFFSET %d", limit, p.Offset)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []record.Row
	for rows.Next() {
		var r record.Row
		var name, callSign, ts, dest, gh sql.NullString
		var imo, shipType, navStatus, maneuver sql.NullInt64
		var lat, lon, heading, rot, sog, cog sql.NullFloat64

		err := rows.Scan(&r.MsgType, &r.MMSI, &name, &callSign, &imo, &shipType, &ts,
			&lat, &lon, &heading, &rot, &sog, &cog, &navStatus, &maneuver, &dest, &gh, &r.Raw)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		r.VesselName, r.CallSign, r.Destination, r.Geohash = name.String, callSign.String, dest.String, gh.String
		if imo.Valid {
			v := uint32(imo.Int64)
			r.IMO = &v
		}
		r.ShipType = nullUint8(shipType)
		r.NavStatus = nullUint8(navStatus)
		r.Maneuver = nullUint8(maneuver)
		if ts.Valid {
			if t, err := time.Parse(time.RFC3339Nano, ts.String); err == nil {
				r.Time = &t
			}
		}
		r.Lat, r.Lon = nullFloat(lat), nullFloat(lon)
		r.Heading, r.ROT = nullFloat(heading), nullFloat(rot)
		r.SOG, r.COG = nullFloat(sog), nullFloat(cog)

		out = append(out, r)
	}

	return out, rows.Err()
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func nullUint8(v sql.NullInt64) *uint8 {
	if !v.Valid {
		return nil
	}
	u := uint8(v.Int64)
	return &u
}

// Stats holds aggregate statistics about stored messages.
type Stats struct {
	TotalMessages int
	Vessels       int
	ByType        map[uint8]int
}

// GetStats returns statistics about the stored messages.
func (d *SQLite) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{ByType: make(map[uint8]int)}

	row := d.db.QueryRowContext(ctx, "SELECT COUNT(*), COUNT(DISTINCT mmsi) FROM messages")
	if err := row.Scan(&stats.TotalMessages, &stats.Vessels); err != nil {
		return nil, err
	}

	rows, err := d.db.QueryContext(ctx, "SELECT msg_type, COUNT(*) FROM messages GROUP BY msg_type")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var t uint8
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return nil, err
		}
		stats.ByType[t] = n
	}

	return stats, rows.Err()
}
