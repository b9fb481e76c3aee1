// Package storage keeps the development server's state in a SQLite file so
// schedules, driver days and assignments survive a restart.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/fleetboard/internal/logger"
	"github.com/julianstephens/fleetboard/internal/migration"
	"github.com/julianstephens/fleetboard/internal/models"
	"github.com/julianstephens/fleetboard/internal/service/memory"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const nextIDKey = "next_id"

type Store struct {
	path string
	db   *sql.DB
}

// Open opens (creating if needed) the database at path and brings its
// schema up to date.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// one writer; sqlite serialises anyway
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		db.Close()
		return nil, err
	}
	n, err := migration.NewRunner(db, sub).Apply(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	if n > 0 {
		logger.Info("database migrated", "path", path, "applied", n)
	}
	return &Store{path: path, db: db}, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Close() error { return s.db.Close() }

// Save replaces the stored state with st in one transaction.
func (s *Store) Save(ctx context.Context, st memory.State) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{"trips", "schedules", "driver_days", "assignments", "meta"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, sc := range st.Schedules {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO schedules (date, id, locked, notes) VALUES (?, ?, ?, ?)`,
			sc.Date, sc.ID, sc.Locked, sc.Notes); err != nil {
			return fmt.Errorf("save schedule %s: %w", sc.Date, err)
		}
		for _, t := range sc.Trips {
			body, jerr := json.Marshal(t)
			if jerr != nil {
				return fmt.Errorf("encode trip %d: %w", t.ID, jerr)
			}
			if _, err = tx.ExecContext(ctx,
				`INSERT INTO trips (id, date, body) VALUES (?, ?, ?)`, t.ID, sc.Date, string(body)); err != nil {
				return fmt.Errorf("save trip %d: %w", t.ID, err)
			}
		}
	}

	for _, d := range st.DriverDays {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO driver_days (driver_id, date, id, status, notes) VALUES (?, ?, ?, ?, ?)`,
			d.DriverID, d.Date, d.ID, string(d.Status), d.Notes); err != nil {
			return fmt.Errorf("save driver %d day %s: %w", d.DriverID, d.Date, err)
		}
	}

	for _, a := range st.Assignments {
		body, jerr := json.Marshal(a)
		if jerr != nil {
			return fmt.Errorf("encode assignment %d: %w", a.ID, jerr)
		}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO assignments (id, week_start, body) VALUES (?, ?, ?)`, a.ID, a.WeekStart, string(body)); err != nil {
			return fmt.Errorf("save assignment %d: %w", a.ID, err)
		}
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES (?, ?)`, nextIDKey, strconv.FormatInt(st.NextID, 10)); err != nil {
		return fmt.Errorf("save id counter: %w", err)
	}
	return tx.Commit()
}

// Load reads the stored state. ok is false when nothing has been saved yet.
func (s *Store) Load(ctx context.Context) (st memory.State, ok bool, err error) {
	var raw string
	err = s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, nextIDKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return memory.State{}, false, nil
	}
	if err != nil {
		return memory.State{}, false, fmt.Errorf("read id counter: %w", err)
	}
	if st.NextID, err = strconv.ParseInt(raw, 10, 64); err != nil {
		return memory.State{}, false, fmt.Errorf("bad id counter %q: %w", raw, err)
	}

	if st.Schedules, err = s.schedules(ctx); err != nil {
		return memory.State{}, false, err
	}
	if st.DriverDays, err = s.driverDays(ctx); err != nil {
		return memory.State{}, false, err
	}
	if st.Assignments, err = s.assignments(ctx); err != nil {
		return memory.State{}, false, err
	}
	return st, true, nil
}

func (s *Store) schedules(ctx context.Context) ([]memory.Schedule, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT date, id, locked, notes FROM schedules ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("load schedules: %w", err)
	}
	defer rows.Close()

	var out []memory.Schedule
	index := map[string]int{}
	for rows.Next() {
		var sc memory.Schedule
		var notes sql.NullString
		if err := rows.Scan(&sc.Date, &sc.ID, &sc.Locked, &notes); err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		sc.Notes = nullable(notes)
		index[sc.Date] = len(out)
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load schedules: %w", err)
	}

	trows, err := s.db.QueryContext(ctx, `SELECT date, body FROM trips ORDER BY date, id`)
	if err != nil {
		return nil, fmt.Errorf("load trips: %w", err)
	}
	defer trows.Close()
	for trows.Next() {
		var date, body string
		if err := trows.Scan(&date, &body); err != nil {
			return nil, fmt.Errorf("scan trip: %w", err)
		}
		var t models.Trip
		if err := json.Unmarshal([]byte(body), &t); err != nil {
			return nil, fmt.Errorf("decode trip on %s: %w", date, err)
		}
		i := index[date]
		out[i].Trips = append(out[i].Trips, t)
	}
	return out, trows.Err()
}

func (s *Store) driverDays(ctx context.Context) ([]models.DriverDay, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT driver_id, date, id, status, notes FROM driver_days ORDER BY driver_id, date`)
	if err != nil {
		return nil, fmt.Errorf("load driver days: %w", err)
	}
	defer rows.Close()

	var out []models.DriverDay
	for rows.Next() {
		var d models.DriverDay
		var status string
		var notes sql.NullString
		if err := rows.Scan(&d.DriverID, &d.Date, &d.ID, &status, &notes); err != nil {
			return nil, fmt.Errorf("scan driver day: %w", err)
		}
		d.Status = models.DriverDayStatus(status)
		d.Notes = nullable(notes)
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) assignments(ctx context.Context) ([]models.Assignment, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT body FROM assignments ORDER BY week_start, id`)
	if err != nil {
		return nil, fmt.Errorf("load assignments: %w", err)
	}
	defer rows.Close()

	var out []models.Assignment
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		var a models.Assignment
		if err := json.Unmarshal([]byte(body), &a); err != nil {
			return nil, fmt.Errorf("decode assignment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func nullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
