package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/i474232898/pm25-forecast/internal/common"
)

var (
	// ErrNotFound is returned when no prediction is recorded for a city.
	ErrNotFound = errors.New("no predictions for city")
)

// PredictionRecord is one issued next-day forecast.
type PredictionRecord struct {
	City       string    `json:"city"`
	IssuedAt   time.Time `json:"issuedAt"` // always UTC
	TargetDate time.Time `json:"targetDate"`
	PM25       float64   `json:"pm25"`
	LatestPM25 float64   `json:"latestPm25"`
	LatestDate time.Time `json:"latestDate"`
	ArtifactID string    `json:"artifactId"`
	Fallback   []string  `json:"fallback,omitempty"`
}

// PredictionHistory holds a time-ordered list of predictions for a city.
type PredictionHistory struct {
	Records []PredictionRecord
}

// HistoryStore is a concurrency-safe in-memory log of issued predictions.
type HistoryStore struct {
	mu sync.RWMutex

	// key: normalized city, value: history
	data map[string]*PredictionHistory

	maxHistory int           // max number of records per city
	maxAge     time.Duration // optional max age for records
	now        func() time.Time
}

// NewHistoryStore creates a new HistoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewHistoryStore(maxHistory int, maxAge time.Duration) *HistoryStore {
	return &HistoryStore{
		data:       make(map[string]*PredictionHistory),
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// SavePrediction appends a record for its city and enforces retention.
func (s *HistoryStore) SavePrediction(rec PredictionRecord) {
	key := common.NormalizeCity(rec.City)
	if rec.IssuedAt.IsZero() {
		rec.IssuedAt = s.now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.data[key]
	if !ok {
		history = &PredictionHistory{}
		s.data[key] = history
	}

	history.Records = append(history.Records, rec)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(history.Records) > s.maxHistory {
		over := len(history.Records) - s.maxHistory
		history.Records = history.Records[over:]
	}

	// Enforce retention by age. The newest record is always kept.
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		i := 0
		for ; i < len(history.Records); i++ {
			if !history.Records[i].IssuedAt.Before(cutoff) {
				break
			}
		}
		if i > 0 && i < len(history.Records) {
			history.Records = history.Records[i:]
		}
	}
}

// GetLatest returns the most recent prediction for a city.
func (s *HistoryStore) GetLatest(city string) (PredictionRecord, error) {
	key := common.NormalizeCity(city)

	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[key]
	if !ok || len(history.Records) == 0 {
		return PredictionRecord{}, ErrNotFound
	}
	return history.Records[len(history.Records)-1], nil
}

// GetRange returns all predictions for a city issued between from and to (inclusive).
func (s *HistoryStore) GetRange(city string, from, to time.Time) ([]PredictionRecord, error) {
	key := common.NormalizeCity(city)

	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[key]
	if !ok || len(history.Records) == 0 {
		return nil, ErrNotFound
	}

	var result []PredictionRecord
	for _, rec := range history.Records {
		if !rec.IssuedAt.Before(from) && !rec.IssuedAt.After(to) {
			result = append(result, rec)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}

	return result, nil
}

// Cities lists every city with at least one record, sorted.
func (s *HistoryStore) Cities() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.data))
	for _, h := range s.data {
		if len(h.Records) > 0 {
			out = append(out, h.Records[len(h.Records)-1].City)
		}
	}
	sort.Strings(out)
	return out
}
