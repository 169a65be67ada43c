// Package schema defines the canonical event model for lattice-siem.
// All ingested telemetry is normalized to NormalizedEvent before scoring
// and correlation.
package schema

import (
	"time"
)

// RawPayload is the unit handed to the pipeline by an external collector.
// SourceType and Format are case-insensitive enumerations; unknown values
// degrade to a tagged "unknown" classification instead of failing.
type RawPayload struct {
	SourceType string `json:"source_type"`
	Format     string `json:"format"`
	// Data is either free text (CEF/CSV line) or an already-structured
	// object (map[string]any).
	Data any `json:"data"`
}

// NormalizedEvent is the canonical representation of one telemetry record.
// Created once at normalization time and immutable thereafter.
type NormalizedEvent struct {
	// Identity
	EventID    string    `json:"event_id" validate:"required"`
	ReceivedAt time.Time `json:"received_at" validate:"required"`
	ParsedAt   time.Time `json:"parsed_at"`

	// Source metadata
	SourceType string `json:"source_type" validate:"required"`
	Format     string `json:"format" validate:"required"`
	Vendor     string `json:"vendor,omitempty" validate:"max=256"`
	Product    string `json:"product,omitempty" validate:"max=256"`

	// Classification
	EventType     string `json:"event_type"`
	EventCategory string `json:"event_category"`
	Severity      int    `json:"severity" validate:"min=1,max=10"`

	// Network / identity context, best-effort extracted. Zero values
	// mean "not present in the source record".
	SrcIP   string `json:"src_ip,omitempty" validate:"omitempty,ip"`
	DstIP   string `json:"dst_ip,omitempty" validate:"omitempty,ip"`
	SrcPort int    `json:"src_port,omitempty" validate:"omitempty,min=0,max=65535"`
	DstPort int    `json:"dst_port,omitempty" validate:"omitempty,min=0,max=65535"`
	Host    string `json:"host,omitempty" validate:"max=256"`
	User    string `json:"user,omitempty" validate:"max=256"`

	// Asset enrichment, populated upstream if an enrichment collaborator
	// ran. Absence simply means "unknown asset".
	AssetID          string `json:"asset_id,omitempty"`
	AssetCriticality int    `json:"asset_criticality,omitempty" validate:"omitempty,min=1,max=5"`
	AssetOwner       string `json:"asset_owner,omitempty"`
	AssetZone        string `json:"asset_zone,omitempty"`

	// Raw residue
	Message string         `json:"message,omitempty"`
	Fields  map[string]any `json:"fields,omitempty"`
	Tags    []string       `json:"tags,omitempty"`
}

// Priority is the coarse operator-facing tier derived from risk.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// IsValid checks if the priority is a known tier.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Alert is the flattened, user-facing projection of either a single
// alert-worthy event or a fired correlation rule. Immutable once created.
type Alert struct {
	RawID      string    `json:"raw_id,omitempty"`
	Priority   Priority  `json:"priority"`
	Risk       int       `json:"risk"`
	SourceType string    `json:"source_type"`
	Format     string    `json:"format"`
	ReceivedAt time.Time `json:"received_at"`
	EventType  string    `json:"event_type"`
	SrcIP      string    `json:"src_ip,omitempty"`
	DstIP      string    `json:"dst_ip,omitempty"`
	User       string    `json:"user,omitempty"`
	Snippet    string    `json:"snippet"`
}

// Incident is a stored correlation finding. The correlation engine fills
// the detection fields; the incident store attaches lifecycle defaults.
// After creation only Status, Assignee and Comment may change, via the
// incident-management boundary.
type Incident struct {
	// Detection
	Type          string    `json:"type"`
	Title         string    `json:"title"`
	SrcIP         string    `json:"src_ip,omitempty"`
	Host          string    `json:"host,omitempty"`
	User          string    `json:"user,omitempty"`
	SrcHost       string    `json:"src_host,omitempty"`
	DstHosts      []string  `json:"dst_hosts,omitempty"`
	DstIPs        []string  `json:"dst_ips,omitempty"`
	Users         []string  `json:"users,omitempty"`
	Ports         []int     `json:"ports,omitempty"`
	Events        []string  `json:"events,omitempty"`
	Count         int       `json:"count"`
	UniqueUsers   int       `json:"unique_users,omitempty"`
	WindowSeconds int       `json:"window_seconds"`
	FirstSeen     time.Time `json:"first_seen"`
	LastSeen      time.Time `json:"last_seen"`
	Severity      string    `json:"severity"`
	Priority      Priority  `json:"priority"`
	Risk          int       `json:"risk"`

	// Asset context copied from the first evidence event.
	AssetID          string `json:"asset_id,omitempty"`
	AssetCriticality int    `json:"asset_criticality,omitempty"`
	AssetOwner       string `json:"asset_owner,omitempty"`
	AssetZone        string `json:"asset_zone,omitempty"`

	EvidenceEventIDs []string `json:"evidence_event_ids"`

	// Lifecycle, attached by the incident store.
	IncidentID string    `json:"incident_id"`
	Status     string    `json:"status"`
	Assignee   string    `json:"assignee"`
	Comment    string    `json:"comment"`
	SLAMinutes int       `json:"sla_minutes"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// IncidentStatusNew is the status every incident is created with.
const IncidentStatusNew = "New"
