package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)

	"github.com/leapstack-labs/leapsisso/internal/reportio"
	"github.com/leapstack-labs/leapsisso/pkg/sisso"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite state store instance.
// A nil logger discards output.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{logger: logger}
}

// NewSQLiteStoreWithDB wraps an existing connection.
func NewSQLiteStoreWithDB(db *sql.DB, logger *slog.Logger) *SQLiteStore {
	s := NewSQLiteStore(logger)
	s.db = db
	return s
}

// Open opens a connection to the SQLite database.
// Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	if path == ":memory:" {
		dsn = ":memory:?_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if path == ":memory:" {
		// Every connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DB returns the underlying connection.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Fingerprint returns the content hash used to deduplicate reports.
func Fingerprint(raw []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(raw))
}

// generateID creates a new UUID.
func generateID() string {
	return uuid.New().String()
}

// SaveReport stores a parsed report and its raw text. A byte-identical report
// that was already stored is not duplicated: its existing id is returned with
// created == false.
func (s *SQLiteStore) SaveReport(ctx context.Context, path string, raw []byte, r *sisso.Report) (string, bool, error) {
	if s.db == nil {
		return "", false, fmt.Errorf("database not opened")
	}

	fp := Fingerprint(raw)
	existing, err := s.FindByFingerprint(ctx, fp)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", false, err
	}
	if existing != nil {
		s.logger.Debug("report already stored", slog.String("report_id", existing.ID), slog.String("path", path))
		return existing.ID, false, nil
	}

	id := generateID()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertReport(ctx, tx, id, path, fp, raw, r); err != nil {
		_ = tx.Rollback()
		// A concurrent ingest of the same bytes may have won the insert.
		if existing, ferr := s.FindByFingerprint(ctx, fp); ferr == nil {
			return existing.ID, false, nil
		}
		return "", false, err
	}
	if err := tx.Commit(); err != nil {
		return "", false, fmt.Errorf("failed to commit report: %w", err)
	}

	s.logger.Debug("stored report",
		slog.String("report_id", id),
		slog.String("path", path),
		slog.Int("iterations", len(r.Iterations)),
	)
	return id, true, nil
}

func insertReport(ctx context.Context, tx *sql.Tx, id, path, fp string, raw []byte, r *sisso.Report) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO reports (id, path, fingerprint, header, version, total_cpu_time, finished, dimensions, raw, ingested_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, path, fp, r.Version.Header, r.Version.String(), r.TotalCPUTime, r.Finished,
		len(r.Iterations), reportio.Pack(raw), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}

	for _, it := range r.Iterations {
		if err := insertIteration(ctx, tx, id, it); err != nil {
			return err
		}
	}

	for i, f := range r.Parameters.Fields() {
		if !f.Set {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO parameters (report_id, position, name, value) VALUES (?, ?, ?, ?)`,
			id, i, f.Name, f.Value,
		); err != nil {
			return fmt.Errorf("failed to insert parameter %s: %w", f.Name, err)
		}
	}
	return nil
}

func insertIteration(ctx context.Context, tx *sql.Tx, id string, it *sisso.Iteration) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO iterations (report_id, dimension, subspace_size, cpu_time) VALUES (?, ?, ?, ?)`,
		id, it.Dimension, it.SubspaceSize, it.CPUTime,
	); err != nil {
		return fmt.Errorf("failed to insert iteration %d: %w", it.Dimension, err)
	}

	for i, rc := range it.FeatureSpaces {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO feature_spaces (report_id, dimension, position, rung, features) VALUES (?, ?, ?, ?, ?)`,
			id, it.Dimension, i, rc.Rung, rc.Features,
		); err != nil {
			return fmt.Errorf("failed to insert feature space %s: %w", rc.Rung, err)
		}
	}

	m := it.Model
	for i, d := range m.Descriptors {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO descriptors (report_id, dimension, position, descriptor_id, notation, fingerprint) VALUES (?, ?, ?, ?, ?, ?)`,
			id, it.Dimension, i+1, d.ID, d.Notation(), d.FingerprintHex(),
		); err != nil {
			return fmt.Errorf("failed to insert descriptor: %w", err)
		}
	}

	for task, row := range m.Coefficients {
		for i, c := range row {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO coefficients (report_id, dimension, task, position, value) VALUES (?, ?, ?, ?, ?)`,
				id, it.Dimension, task+1, i+1, c,
			); err != nil {
				return fmt.Errorf("failed to insert coefficient: %w", err)
			}
		}

		var rmse, maxae sql.NullFloat64
		if task < len(m.RMSE) {
			rmse = sql.NullFloat64{Float64: m.RMSE[task], Valid: true}
			maxae = sql.NullFloat64{Float64: m.MaxAE[task], Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO task_fits (report_id, dimension, task, intercept, rmse, maxae) VALUES (?, ?, ?, ?, ?, ?)`,
			id, it.Dimension, task+1, m.Intercepts[task], rmse, maxae,
		); err != nil {
			return fmt.Errorf("failed to insert task fit: %w", err)
		}
	}
	return nil
}

const reportColumns = `id, path, fingerprint, header, version, total_cpu_time, finished, dimensions, ingested_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(row scanner) (*ReportRecord, error) {
	rec := &ReportRecord{}
	var ingestedAt string
	if err := row.Scan(&rec.ID, &rec.Path, &rec.Fingerprint, &rec.Header, &rec.Version,
		&rec.TotalCPUTime, &rec.Finished, &rec.Dimensions, &ingestedAt); err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, ingestedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid ingested_at %q: %w", ingestedAt, err)
	}
	rec.IngestedAt = t
	return rec, nil
}

// GetReport retrieves a report summary by ID.
func (s *SQLiteStore) GetReport(ctx context.Context, id string) (*ReportRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rec, err := scanReport(s.db.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return rec, nil
}

// FindByFingerprint retrieves the report with the given content hash.
func (s *SQLiteStore) FindByFingerprint(ctx context.Context, fingerprint string) (*ReportRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rec, err := scanReport(s.db.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE fingerprint = ?`, fingerprint))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: fingerprint %s", ErrNotFound, fingerprint)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find report: %w", err)
	}
	return rec, nil
}

// ListReports returns all reports, most recently ingested first.
func (s *SQLiteStore) ListReports(ctx context.Context) ([]*ReportRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+reportColumns+` FROM reports ORDER BY ingested_at DESC, path`)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*ReportRecord
	for rows.Next() {
		rec, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reports: %w", err)
	}
	return out, nil
}

// ReportText returns the stored raw text of a report.
func (s *SQLiteStore) ReportText(ctx context.Context, id string) ([]byte, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	var packed []byte
	err := s.db.QueryRowContext(ctx, `SELECT raw FROM reports WHERE id = ?`, id).Scan(&packed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read report text: %w", err)
	}
	return reportio.Unpack(packed)
}

// LoadReport re-parses the stored text of a report. Unfinished reports are
// accepted since they were accepted at ingest time.
func (s *SQLiteStore) LoadReport(ctx context.Context, id string, opts sisso.ParseOptions) (*sisso.Report, error) {
	raw, err := s.ReportText(ctx, id)
	if err != nil {
		return nil, err
	}
	opts.AllowUnfinished = true
	return sisso.Parse(string(raw), opts)
}
