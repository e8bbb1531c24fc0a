// Package jobcache keeps a local SQLite index of job metadata records.
// It is a best-effort copy; the object store stays authoritative.
package jobcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nguyentantai21042004/carenote/internal/model"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no entry exists for a job
var ErrNotFound = errors.New("job not cached")

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	job_id        TEXT PRIMARY KEY,
	session_id    TEXT NOT NULL,
	user_id       TEXT NOT NULL,
	audio_uri     TEXT NOT NULL DEFAULT '',
	patient_id    TEXT NOT NULL DEFAULT '',
	patient_name  TEXT NOT NULL DEFAULT '',
	facility_id   TEXT NOT NULL DEFAULT '',
	facility_name TEXT NOT NULL DEFAULT '',
	created_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs (created_at DESC);
`

// Store is the SQLite-backed job cache
type Store struct {
	db *sql.DB
}

// Open opens (and migrates) the cache database at path
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put inserts or replaces the entry for meta.JobID
func (s *Store) Put(ctx context.Context, meta model.Metadata) error {
	created := meta.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO jobs
			(job_id, session_id, user_id, audio_uri, patient_id, patient_name, facility_id, facility_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, meta.JobID, meta.SessionID, meta.UserID, meta.AudioURI,
		meta.PatientID, meta.PatientName, meta.FacilityID, meta.FacilityName, created.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert job %s: %w", meta.JobID, err)
	}
	return nil
}

// Get returns the cached metadata for jobID
func (s *Store) Get(ctx context.Context, jobID string) (model.Metadata, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT job_id, session_id, user_id, audio_uri, patient_id, patient_name, facility_id, facility_name, created_at
		FROM jobs WHERE job_id = ?
	`, jobID)
	meta, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Metadata{}, ErrNotFound
	}
	if err != nil {
		return model.Metadata{}, fmt.Errorf("query job %s: %w", jobID, err)
	}
	return meta, nil
}

// Recent returns up to limit entries, newest first
func (s *Store) Recent(ctx context.Context, limit int) ([]model.Metadata, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT job_id, session_id, user_id, audio_uri, patient_id, patient_name, facility_id, facility_name, created_at
		FROM jobs
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent jobs: %w", err)
	}
	defer rows.Close()

	var out []model.Metadata
	for rows.Next() {
		meta, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, meta)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(r scanner) (model.Metadata, error) {
	var m model.Metadata
	var created int64
	err := r.Scan(&m.JobID, &m.SessionID, &m.UserID, &m.AudioURI,
		&m.PatientID, &m.PatientName, &m.FacilityID, &m.FacilityName, &created)
	if err != nil {
		return model.Metadata{}, err
	}
	m.CreatedAt = time.UnixMilli(created)
	return m, nil
}
