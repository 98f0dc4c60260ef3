// Package seeder loads customer fixtures into a target database.
//
// A seed run is one synchronous sequence: connect, insert the whole fixture
// in a single batch, close. Nothing is retried and nothing guards against
// running twice; a second run appends a second copy of the fixture.
package seeder

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/supporttools/dbseed/pkg/database/common"
	"github.com/supporttools/dbseed/pkg/fixtures"
	"github.com/supporttools/dbseed/pkg/logging"
	"github.com/supporttools/dbseed/pkg/metrics"
)

// Seeder writes fixtures through a provider
type Seeder struct {
	provider common.Provider
	logger   *log.Logger
	metrics  *metrics.Recorder
}

// Option configures a Seeder
type Option func(*Seeder)

// WithLogger sets the logger
func WithLogger(logger *log.Logger) Option {
	return func(s *Seeder) {
		s.logger = logger
	}
}

// WithMetrics records run metrics on r
func WithMetrics(r *metrics.Recorder) Option {
	return func(s *Seeder) {
		s.metrics = r
	}
}

// New creates a Seeder for provider
func New(provider common.Provider, opts ...Option) *Seeder {
	s := &Seeder{provider: provider}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	return s
}

// Result describes a completed seed run
type Result struct {
	RunID           string
	Target          string
	Inserted        int
	TotalSpentCents int64
	Duration        time.Duration
}

// Seed inserts records in a single batch. Connection failures are returned as
// *common.ConnectionError and rejected batches as *common.InsertError.
func (s *Seeder) Seed(ctx context.Context, records []fixtures.CustomerRecord) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := s.logger.With("run", runID, "provider", s.provider.Name(), "target", s.provider.Target())

	logger.Debug("connecting")
	if err := s.provider.Connect(ctx); err != nil {
		s.observeFailure("connect", start)
		return nil, &common.ConnectionError{
			Provider: s.provider.Name(),
			Target:   s.provider.Target(),
			Err:      err,
		}
	}
	defer s.close(logger)

	result := &Result{
		RunID:           runID,
		Target:          s.provider.Target(),
		TotalSpentCents: fixtures.TotalSpentCents(records),
	}

	if len(records) == 0 {
		logger.Warn("no records to insert")
		result.Duration = time.Since(start)
		s.observeSuccess(result)
		return result, nil
	}

	logger.Info("inserting customers", "count", len(records))
	inserted, err := s.provider.InsertCustomers(ctx, records)
	if err != nil {
		s.observeFailure("insert", start)
		return nil, &common.InsertError{
			Provider:  s.provider.Name(),
			Target:    s.provider.Target(),
			Attempted: len(records),
			Inserted:  inserted,
			Err:       err,
		}
	}
	if inserted != len(records) {
		logger.Warn("server acknowledged a different number of documents", "expected", len(records), "acknowledged", inserted)
	}

	result.Inserted = inserted
	result.Duration = time.Since(start)
	s.observeSuccess(result)

	logger.Info("seed complete", "inserted", inserted, "totalSpent", fixtures.FormatCents(result.TotalSpentCents), "took", result.Duration.Round(time.Millisecond))
	return result, nil
}

// Ping connects, pings and disconnects
func (s *Seeder) Ping(ctx context.Context) error {
	connErr := func(err error) error {
		return &common.ConnectionError{Provider: s.provider.Name(), Target: s.provider.Target(), Err: err}
	}

	if err := s.provider.Connect(ctx); err != nil {
		return connErr(err)
	}
	defer s.close(s.logger)

	if err := s.provider.Ping(ctx); err != nil {
		return connErr(err)
	}
	return nil
}

// Mismatch is an expected record that was missing or stored with different values
type Mismatch struct {
	Expected fixtures.CustomerRecord
	Actual   *fixtures.CustomerRecord // nil when no document has the email
}

// Report compares a target's contents against the expected records
type Report struct {
	Target          string
	Expected        int
	Count           int64
	ExpectedCents   int64
	TotalSpentCents int64
	Matched         int
	Mismatches      []Mismatch
}

// OK reports whether the target holds exactly the expected records
func (r *Report) OK() bool {
	return r.Count == int64(r.Expected) && len(r.Mismatches) == 0 && r.TotalSpentCents == r.ExpectedCents
}

// Verify reads the target back and compares it with expected
func (s *Seeder) Verify(ctx context.Context, expected []fixtures.CustomerRecord) (*Report, error) {
	if err := s.provider.Connect(ctx); err != nil {
		return nil, &common.ConnectionError{Provider: s.provider.Name(), Target: s.provider.Target(), Err: err}
	}
	defer s.close(s.logger)

	report := &Report{
		Target:        s.provider.Target(),
		Expected:      len(expected),
		ExpectedCents: fixtures.TotalSpentCents(expected),
	}

	count, err := s.provider.CountCustomers(ctx)
	if err != nil {
		return nil, err
	}
	report.Count = count

	stored, err := s.provider.ListCustomers(ctx)
	if err != nil {
		return nil, err
	}
	report.TotalSpentCents = fixtures.TotalSpentCents(stored)

	for _, want := range expected {
		got, err := s.provider.FindCustomerByEmail(ctx, want.Email)
		if errors.Is(err, common.ErrNotFound) {
			report.Mismatches = append(report.Mismatches, Mismatch{Expected: want})
			continue
		}
		if err != nil {
			return nil, err
		}
		if !fixtures.Equal(want, *got) {
			report.Mismatches = append(report.Mismatches, Mismatch{Expected: want, Actual: got})
			continue
		}
		report.Matched++
	}

	s.logger.Debug("verify complete", "target", report.Target, "count", report.Count, "matched", report.Matched,
		"mismatches", len(report.Mismatches), "totalSpent", fixtures.FormatCents(report.TotalSpentCents))
	return report, nil
}

func (s *Seeder) close(logger *log.Logger) {
	if err := s.provider.Close(); err != nil {
		logger.Warn("failed to close connection", "err", err)
	}
}

func (s *Seeder) observeSuccess(r *Result) {
	if s.metrics == nil {
		return
	}
	database, collection := splitTarget(r.Target)
	s.metrics.ObserveSuccess(s.provider.Name(), database, collection, r.Inserted, r.Duration)
}

func (s *Seeder) observeFailure(stage string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveFailure(s.provider.Name(), stage, time.Since(start))
}

// splitTarget splits "database.collection" at the first dot
func splitTarget(target string) (string, string) {
	database, collection, _ := strings.Cut(target, ".")
	return database, collection
}
