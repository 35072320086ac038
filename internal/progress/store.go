package progress

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/example/edubot/pkg/models"
)

// DefaultEpsilon is the noise threshold below which a metric change is
// not worth a notification.
const DefaultEpsilon = 0.01

// RawRecord is one row as delivered by a data source, before validation.
// Numeric fields stay strings here; the store parses and discards
// malformed rows.
type RawRecord struct {
	Email          string
	Name           string
	CourseID       string
	StartDate      string
	EndDate        string
	Progress       string
	ExpectedResult string
}

// Source delivers the complete current set of student records. Excel and
// web-scrape backends both implement it.
type Source interface {
	FetchAll() ([]RawRecord, error)
}

// Snapshot is the complete identity->progress mapping at one refresh
// instant.
type Snapshot map[string]models.StudentProgress

// Change describes one student whose metric moved between snapshots.
type Change struct {
	Email     string
	OldMetric float64
	HasOld    bool
	NewMetric float64
}

// Store holds the latest known progress per student. Refresh replaces the
// mapping wholesale via build-then-swap, so concurrent readers observe
// either the old or the new complete mapping, never a partial one.
type Store struct {
	source  Source
	epsilon float64

	mu   sync.RWMutex
	data Snapshot

	// Serializes refresh cycles; the diff computation assumes a total
	// order of snapshots.
	refreshMu sync.Mutex
}

// NewStore creates a store over the given source. A non-positive epsilon
// falls back to DefaultEpsilon.
func NewStore(source Source, epsilon float64) *Store {
	if epsilon <= 0 {
		epsilon = DefaultEpsilon
	}
	return &Store{
		source:  source,
		epsilon: epsilon,
		data:    Snapshot{},
	}
}

// Refresh fetches all records from the source and atomically replaces the
// mapping. On fetch failure the previous snapshot is retained. Returns
// the number of records loaded.
func (s *Store) Refresh() (int, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	records, err := s.source.FetchAll()
	if err != nil {
		return 0, fmt.Errorf("failed to fetch student data: %v", err)
	}

	now := time.Now()
	next := make(Snapshot, len(records))
	for _, rec := range records {
		sp, err := parseRecord(rec, now)
		if err != nil {
			log.Printf("Skipping malformed student record %q: %v", rec.Email, err)
			continue
		}
		next[sp.Email] = sp
	}

	s.mu.Lock()
	s.data = next
	s.mu.Unlock()

	return len(next), nil
}

// Get returns the progress record for an email. Lookup is exact after
// trimming and lower-casing; no fuzzy matching.
func (s *Store) Get(email string) (models.StudentProgress, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sp, ok := s.data[models.NormalizeEmail(email)]
	return sp, ok
}

// Snapshot returns a copy of the current mapping, safe to keep across a
// later Refresh for diffing.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	copied := make(Snapshot, len(s.data))
	for k, v := range s.data {
		copied[k] = v
	}
	return copied
}

// DiffSince reports every student in the current snapshot whose metric
// differs from prev by at least epsilon, or that is new.
func (s *Store) DiffSince(prev Snapshot) []Change {
	current := s.Snapshot()

	var changes []Change
	for email, sp := range current {
		old, ok := prev[email]
		if ok && abs(sp.ExpectedResult-old.ExpectedResult) < s.epsilon {
			continue
		}
		changes = append(changes, Change{
			Email:     email,
			OldMetric: old.ExpectedResult,
			HasOld:    ok,
			NewMetric: sp.ExpectedResult,
		})
	}
	return changes
}

// parseRecord validates a raw row and converts it to a progress record.
func parseRecord(rec RawRecord, fetchedAt time.Time) (models.StudentProgress, error) {
	email := models.NormalizeEmail(rec.Email)
	if email == "" {
		return models.StudentProgress{}, fmt.Errorf("empty email")
	}

	metric, err := parseFloat(rec.ExpectedResult)
	if err != nil {
		return models.StudentProgress{}, fmt.Errorf("bad expected result %q: %v", rec.ExpectedResult, err)
	}

	// Progress percent is auxiliary; missing or malformed means zero.
	percent, err := parseFloat(rec.Progress)
	if err != nil {
		percent = 0
	}

	return models.StudentProgress{
		Email:          email,
		Name:           strings.TrimSpace(rec.Name),
		CourseID:       strings.TrimSpace(rec.CourseID),
		StartDate:      strings.TrimSpace(rec.StartDate),
		EndDate:        strings.TrimSpace(rec.EndDate),
		Progress:       percent,
		ExpectedResult: metric,
		FetchedAt:      fetchedAt,
	}, nil
}

// parseFloat parses a numeric cell, tolerating a trailing percent sign
// and decimal commas as exported by the spreadsheet.
func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	s = strings.Replace(s, ",", ".", 1)
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	return strconv.ParseFloat(s, 64)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
