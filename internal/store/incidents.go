package store

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"lattice-siem/internal/schema"
)

// ErrIncidentNotFound is returned for lookups and updates on unknown ids.
var ErrIncidentNotFound = errors.New("incident not found")

// IncidentStore holds correlation incidents, newest first, bounded by
// capacity. Add is the only place incidents are created; Update is the
// only sanctioned post-creation mutation path.
type IncidentStore struct {
	incidents []*schema.Incident
	size      int
	mu        sync.Mutex
}

// DefaultIncidentCapacity bounds the incident store.
const DefaultIncidentCapacity = 200

// NewIncidentStore creates an IncidentStore with the given capacity.
func NewIncidentStore(size int) *IncidentStore {
	if size <= 0 {
		size = DefaultIncidentCapacity
	}
	return &IncidentStore{size: size}
}

// slaBySeverity maps a severity tier to response SLA minutes.
func slaBySeverity(severity string) int {
	s := strings.ToLower(severity)
	switch {
	case strings.Contains(s, "crit"):
		return 60
	case strings.Contains(s, "high"):
		return 240
	case strings.Contains(s, "med"):
		return 480
	default:
		return 1440
	}
}

// Add stores a fired incident, assigning identity and lifecycle defaults,
// and returns the stored copy.
func (s *IncidentStore) Add(inc schema.Incident) *schema.Incident {
	now := time.Now().UTC()

	if inc.IncidentID == "" {
		inc.IncidentID = "INC-" + uuid.NewString()
	}
	if inc.Status == "" {
		inc.Status = schema.IncidentStatusNew
	}
	if inc.CreatedAt.IsZero() {
		if !inc.FirstSeen.IsZero() {
			inc.CreatedAt = inc.FirstSeen
		} else {
			inc.CreatedAt = now
		}
	}
	inc.UpdatedAt = now
	if inc.SLAMinutes == 0 {
		inc.SLAMinutes = slaBySeverity(inc.Severity)
	}

	stored := inc

	s.mu.Lock()
	defer s.mu.Unlock()

	s.incidents = append([]*schema.Incident{&stored}, s.incidents...)
	if len(s.incidents) > s.size {
		s.incidents = s.incidents[:s.size]
	}

	copied := stored
	return &copied
}

// Get returns a copy of the incident with the given id.
func (s *IncidentStore) Get(id string) (*schema.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, inc := range s.incidents {
		if inc.IncidentID == id {
			copied := *inc
			return &copied, nil
		}
	}
	return nil, ErrIncidentNotFound
}

// IncidentUpdate carries the optional fields of an update request. Nil
// pointers leave the field untouched.
type IncidentUpdate struct {
	Status   *string
	Assignee *string
	Comment  *string
}

// Update mutates the lifecycle fields of an incident and bumps UpdatedAt.
// Returns ErrIncidentNotFound for unknown ids without side effects.
func (s *IncidentStore) Update(id string, upd IncidentUpdate) (*schema.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, inc := range s.incidents {
		if inc.IncidentID != id {
			continue
		}
		if upd.Status != nil {
			inc.Status = *upd.Status
		}
		if upd.Assignee != nil {
			inc.Assignee = *upd.Assignee
		}
		if upd.Comment != nil {
			inc.Comment = *upd.Comment
		}
		inc.UpdatedAt = time.Now().UTC()

		copied := *inc
		return &copied, nil
	}
	return nil, ErrIncidentNotFound
}

// List returns up to limit incidents, newest first.
func (s *IncidentStore) List(limit int) []*schema.Incident {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > len(s.incidents) {
		limit = len(s.incidents)
	}
	out := make([]*schema.Incident, 0, limit)
	for _, inc := range s.incidents[:limit] {
		copied := *inc
		out = append(out, &copied)
	}
	return out
}

// Len returns the number of incidents currently held.
func (s *IncidentStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.incidents)
}
