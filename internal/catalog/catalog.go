// Package catalog records batch validation outcomes in SQLite.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/OpenVietcong/blender-plugin-vietcong/internal/batch"
	"github.com/OpenVietcong/blender-plugin-vietcong/internal/catalog/migrations"
)

var ErrNoPath = errors.New("catalog: database path is required")

type Store struct {
	db *sql.DB
}

// Open opens or creates the catalog at path and applies pending migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrNoPath
	}
	dsn := "file:" + filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("catalog: open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("catalog: ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("catalog: run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record stores a finished batch run and all of its results in one transaction.
func (s *Store) Record(ctx context.Context, r *batch.Report) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("catalog: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, elapsed_ms, files, failed) VALUES (?, ?, ?, ?, ?)`,
		r.RunID, r.Started.UTC().UnixMilli(), r.Elapsed.Milliseconds(), len(r.Results), r.Failed(),
	); err != nil {
		return fmt.Errorf("catalog: insert run %s: %w", r.RunID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO results
    (run_id, path, size, version, objects, meshes, vertices, faces, materials, textures, duration_ms, error_kind, error_path, error)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("catalog: prepare result insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, res := range r.Results {
		msg := ""
		if res.Err != nil {
			msg = res.Err.Error()
		}
		st := res.Stats
		if _, err := stmt.ExecContext(ctx,
			r.RunID, res.Path, res.Size, res.Version,
			st.Objects, st.Meshes, st.Vertices, st.Faces, st.Materials, st.Textures,
			res.Duration.Milliseconds(), res.ErrorKind(), res.ErrorPath(), msg,
		); err != nil {
			return fmt.Errorf("catalog: insert result %s: %w", res.Path, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("catalog: commit run %s: %w", r.RunID, err)
	}
	return nil
}

// Entry is one recorded file result.
type Entry struct {
	RunID     string
	Started   time.Time
	Path      string
	Size      int64
	Version   string
	Objects   int
	Meshes    int
	Vertices  int
	Faces     int
	Materials int
	Textures  int
	Duration  time.Duration
	ErrorKind string
	ErrorPath string
	Error     string
}

func (e Entry) OK() bool { return e.ErrorKind == "" }

type Filter struct {
	RunID      string
	FailedOnly bool
	// Limit caps the number of entries; <= 0 means no limit.
	Limit int
}

// List returns matching entries, newest run first, then by path.
func (s *Store) List(ctx context.Context, f Filter) ([]Entry, error) {
	q := `SELECT r.run_id, runs.started_at, r.path, r.size, r.version, r.objects, r.meshes, r.vertices,
    r.faces, r.materials, r.textures, r.duration_ms, r.error_kind, r.error_path, r.error
FROM results r JOIN runs ON runs.id = r.run_id`
	var where []string
	var args []any
	if f.RunID != "" {
		where = append(where, "r.run_id = ?")
		args = append(args, f.RunID)
	}
	if f.FailedOnly {
		where = append(where, "r.error_kind <> ''")
	}
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY runs.started_at DESC, r.path"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var e Entry
		var started, durMS int64
		if err := rows.Scan(&e.RunID, &started, &e.Path, &e.Size, &e.Version, &e.Objects, &e.Meshes, &e.Vertices,
			&e.Faces, &e.Materials, &e.Textures, &durMS, &e.ErrorKind, &e.ErrorPath, &e.Error); err != nil {
			return nil, fmt.Errorf("catalog: scan: %w", err)
		}
		e.Started = time.UnixMilli(started).UTC()
		e.Duration = time.Duration(durMS) * time.Millisecond
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	return out, nil
}
