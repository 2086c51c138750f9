// Package state persists ingested solver reports in SQLite.
package state

import (
	"context"
	"errors"
	"time"

	"github.com/leapstack-labs/leapsisso/pkg/sisso"
)

// ErrNotFound is returned when a report does not exist.
var ErrNotFound = errors.New("report not found")

// ReportRecord is the summary row of one ingested report.
type ReportRecord struct {
	ID           string
	Path         string
	Fingerprint  string
	Header       string
	Version      string
	TotalCPUTime float64
	Finished     bool
	Dimensions   int
	IngestedAt   time.Time
}

// Store is the report history interface used by the CLI.
type Store interface {
	SaveReport(ctx context.Context, path string, raw []byte, r *sisso.Report) (id string, created bool, err error)
	GetReport(ctx context.Context, id string) (*ReportRecord, error)
	ListReports(ctx context.Context) ([]*ReportRecord, error)
	FindByFingerprint(ctx context.Context, fingerprint string) (*ReportRecord, error)
	LoadReport(ctx context.Context, id string, opts sisso.ParseOptions) (*sisso.Report, error)
	Close() error
}
