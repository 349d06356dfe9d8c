// Package history keeps a summary of every finished run in a bbolt file.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	"go.etcd.io/bbolt"

	"github.com/torosent/skierload/internal/config"
	"github.com/torosent/skierload/internal/metrics"
)

const bucketRuns = "runs"

// ErrNotFound is returned by Get for an unknown run id.
var ErrNotFound = errors.New("run not found")

// Entry is the stored summary of one run.
type Entry struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Target    string    `json:"target"`

	Threads         int `json:"threads"`
	Skiers          int `json:"skiers"`
	Lifts           int `json:"lifts"`
	DurationMinutes int `json:"duration_minutes"`

	Summary Summary `json:"summary"`
}

// Summary holds the headline numbers of a run.
type Summary struct {
	Successes        int64   `json:"successes"`
	Failures         int64   `json:"failures"`
	SkippedReads     int64   `json:"skipped_reads"`
	RuntimeSeconds   int64   `json:"runtime_seconds"`
	Throughput       int64   `json:"throughput"`
	WriteP99Ms       float64 `json:"write_p99_ms"`
	ReadP99Ms        float64 `json:"read_p99_ms"`
	ThresholdsPassed *bool   `json:"thresholds_passed,omitempty"`
}

// NewEntry builds the history entry for a finished run. passed is nil when
// the run had no thresholds.
func NewEntry(cfg config.Config, stats metrics.Stats, startedAt time.Time, passed *bool) Entry {
	return Entry{
		StartedAt:       startedAt,
		Target:          cfg.BaseURL(),
		Threads:         cfg.Threads,
		Skiers:          cfg.Skiers,
		Lifts:           cfg.Lifts,
		DurationMinutes: cfg.DurationMinutes,
		Summary: Summary{
			Successes:        stats.Successes,
			Failures:         stats.Failures,
			SkippedReads:     stats.SkippedReads,
			RuntimeSeconds:   stats.RuntimeSeconds,
			Throughput:       stats.Throughput,
			WriteP99Ms:       stats.WriteLatency.P99Ms,
			ReadP99Ms:        stats.ReadLatency.P99Ms,
			ThresholdsPassed: passed,
		},
	}
}

// Store is a bbolt-backed run history. Keys are ULIDs so cursor order is
// start order.
type Store struct {
	db *bbolt.DB
}

// Open opens or creates the history database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketRuns))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init history: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores e, assigning an id derived from StartedAt when it has none,
// and returns the id.
func (s *Store) Save(e Entry) (string, error) {
	if e.ID == "" {
		if e.StartedAt.IsZero() {
			e.StartedAt = time.Now()
		}
		e.ID = ulid.MustNew(ulid.Timestamp(e.StartedAt), ulid.DefaultEntropy()).String()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketRuns)).Put([]byte(e.ID), data)
	})
	if err != nil {
		return "", fmt.Errorf("save run %s: %w", e.ID, err)
	}
	return e.ID, nil
}

// List returns up to limit entries, newest first. limit <= 0 returns all.
func (s *Store) List(limit int) ([]Entry, error) {
	var entries []Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(bucketRuns)).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(entries) >= limit {
				break
			}
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("decode run %s: %w", k, err)
			}
			entries = append(entries, e)
		}
		return nil
	})
	return entries, err
}

// Get returns the entry with the given id or ErrNotFound.
func (s *Store) Get(id string) (Entry, error) {
	var e Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(bucketRuns)).Get([]byte(id))
		if v == nil {
			return fmt.Errorf("%s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(v, &e)
	})
	return e, err
}
