package store

import (
	"errors"
	"strings"
	"testing"
	"time"

	"lattice-siem/internal/schema"
)

func TestIncidentStore_AddAssignsDefaults(t *testing.T) {
	s := NewIncidentStore(10)
	firstSeen := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	stored := s.Add(schema.Incident{
		Type:      "BRUTEFORCE_VPN",
		Severity:  "critical",
		FirstSeen: firstSeen,
	})

	if !strings.HasPrefix(stored.IncidentID, "INC-") {
		t.Errorf("IncidentID = %q, want INC- prefix", stored.IncidentID)
	}
	if stored.Status != schema.IncidentStatusNew {
		t.Errorf("Status = %q, want %q", stored.Status, schema.IncidentStatusNew)
	}
	if !stored.CreatedAt.Equal(firstSeen) {
		t.Errorf("CreatedAt = %v, want FirstSeen %v", stored.CreatedAt, firstSeen)
	}
	if stored.UpdatedAt.IsZero() {
		t.Error("UpdatedAt should be set")
	}
	if stored.SLAMinutes != 60 {
		t.Errorf("SLAMinutes = %d, want 60", stored.SLAMinutes)
	}
}

func TestSLABySeverity(t *testing.T) {
	tests := []struct {
		severity string
		want     int
	}{
		{"critical", 60},
		{"CRITICAL", 60},
		{"high", 240},
		{"medium", 480},
		{"med", 480},
		{"low", 1440},
		{"", 1440},
		{"info", 1440},
	}
	for _, tt := range tests {
		if got := slaBySeverity(tt.severity); got != tt.want {
			t.Errorf("slaBySeverity(%q) = %d, want %d", tt.severity, got, tt.want)
		}
	}
}

func TestIncidentStore_GetAndUpdate(t *testing.T) {
	s := NewIncidentStore(10)
	stored := s.Add(schema.Incident{Type: "PORT_SCAN", Severity: "high"})

	t.Run("get returns a copy", func(t *testing.T) {
		got, err := s.Get(stored.IncidentID)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		got.Status = "tampered"

		again, err := s.Get(stored.IncidentID)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if again.Status != schema.IncidentStatusNew {
			t.Errorf("Status = %q, stored incident was mutated through a copy", again.Status)
		}
	})

	t.Run("get unknown id", func(t *testing.T) {
		if _, err := s.Get("INC-missing"); !errors.Is(err, ErrIncidentNotFound) {
			t.Errorf("Get() error = %v, want ErrIncidentNotFound", err)
		}
	})

	t.Run("update lifecycle fields", func(t *testing.T) {
		status := "Investigating"
		assignee := "analyst1"
		upd, err := s.Update(stored.IncidentID, IncidentUpdate{Status: &status, Assignee: &assignee})
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if upd.Status != "Investigating" || upd.Assignee != "analyst1" {
			t.Errorf("Update() = %q/%q", upd.Status, upd.Assignee)
		}
		if upd.Comment != "" {
			t.Errorf("Comment = %q, nil pointer should leave field untouched", upd.Comment)
		}
		if !upd.UpdatedAt.After(stored.UpdatedAt) && !upd.UpdatedAt.Equal(stored.UpdatedAt) {
			t.Error("UpdatedAt should not go backwards")
		}
	})

	t.Run("update unknown id", func(t *testing.T) {
		status := "Closed"
		if _, err := s.Update("INC-missing", IncidentUpdate{Status: &status}); !errors.Is(err, ErrIncidentNotFound) {
			t.Errorf("Update() error = %v, want ErrIncidentNotFound", err)
		}
	})
}

func TestIncidentStore_CapacityBound(t *testing.T) {
	s := NewIncidentStore(2)

	first := s.Add(schema.Incident{Type: "A", Severity: "low"})
	s.Add(schema.Incident{Type: "B", Severity: "low"})
	s.Add(schema.Incident{Type: "C", Severity: "low"})

	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}

	list := s.List(0)
	if list[0].Type != "C" || list[1].Type != "B" {
		t.Errorf("List() types = [%s %s], want [C B]", list[0].Type, list[1].Type)
	}

	if _, err := s.Get(first.IncidentID); !errors.Is(err, ErrIncidentNotFound) {
		t.Errorf("evicted incident should be gone, got err = %v", err)
	}
}
