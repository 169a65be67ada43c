package store

import (
	"sync"

	"lattice-siem/internal/schema"
)

// AlertStore is a capacity-bounded, newest-first alert feed. Alerts are
// immutable once added; inserting past capacity drops the oldest alert.
type AlertStore struct {
	alerts []schema.Alert
	size   int
	mu     sync.Mutex
}

// DefaultAlertCapacity bounds the alert feed.
const DefaultAlertCapacity = 200

// NewAlertStore creates an AlertStore with the given capacity.
func NewAlertStore(size int) *AlertStore {
	if size <= 0 {
		size = DefaultAlertCapacity
	}
	return &AlertStore{size: size}
}

// Add prepends an alert, evicting the oldest when at capacity.
func (s *AlertStore) Add(alert schema.Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.alerts = append([]schema.Alert{alert}, s.alerts...)
	if len(s.alerts) > s.size {
		s.alerts = s.alerts[:s.size]
	}
}

// List returns up to limit alerts, newest first.
func (s *AlertStore) List(limit int) []schema.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > len(s.alerts) {
		limit = len(s.alerts)
	}
	out := make([]schema.Alert, limit)
	copy(out, s.alerts[:limit])
	return out
}

// Len returns the number of alerts currently held.
func (s *AlertStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.alerts)
}
