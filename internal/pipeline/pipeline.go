// Package pipeline wires normalization, scoring, the event window and the
// correlation engine into the single synchronous ingestion step.
package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"lattice-siem/internal/correlate"
	"lattice-siem/internal/normalize"
	"lattice-siem/internal/schema"
	"lattice-siem/internal/scoring"
	"lattice-siem/internal/store"
)

// RawArchiver persists raw payloads before normalization (the raw-archive
// boundary). Archive failures are logged, never propagated: archival is
// off the correlation critical path.
type RawArchiver interface {
	Archive(ctx context.Context, rawID string, receivedAt time.Time, payload schema.RawPayload) error
}

// EventSink receives every normalized event for durable storage behind the
// query/reporting boundary. Sink failures are logged, never propagated.
type EventSink interface {
	Write(ctx context.Context, event *schema.NormalizedEvent) error
}

// IngestResult is what the ingestion boundary returns to the caller.
type IngestResult struct {
	RawID     string                  `json:"raw_id"`
	Risk      int                     `json:"risk"`
	Priority  schema.Priority         `json:"priority"`
	Event     *schema.NormalizedEvent `json:"normalized_event"`
	Incidents []*schema.Incident      `json:"correlation_incidents"`
}

// Pipeline is the correlation core. Ingestion is serialized with one
// mutex: a concurrent insert-and-scan on the shared window could let two
// ingestions observe inconsistent group counts and double-fire a rule.
type Pipeline struct {
	mu sync.Mutex

	window     *store.EventWindow
	alerts     *store.AlertStore
	incidents  *store.IncidentStore
	normalizer *normalize.Normalizer
	validator  *schema.Validator
	engine     *correlate.Engine

	archiver RawArchiver // optional
	sink     EventSink   // optional
}

// New creates a Pipeline over the given stores and engine.
func New(window *store.EventWindow, alerts *store.AlertStore, incidents *store.IncidentStore, engine *correlate.Engine) *Pipeline {
	return &Pipeline{
		window:     window,
		alerts:     alerts,
		incidents:  incidents,
		normalizer: normalize.NewNormalizer(),
		validator:  schema.NewValidator(),
		engine:     engine,
	}
}

// WithArchiver attaches a raw-payload archiver.
func (p *Pipeline) WithArchiver(a RawArchiver) *Pipeline {
	p.archiver = a
	return p
}

// WithSink attaches a persistent event sink.
func (p *Pipeline) WithSink(s EventSink) *Pipeline {
	p.sink = s
	return p
}

// Ingest runs one payload through the full pipeline: archive, score,
// normalize, window insert, standalone alert, correlation sweep, incident
// sink. It never fails for malformed payloads; those degrade to a tagged
// event so the pipeline stays live.
func (p *Pipeline) Ingest(ctx context.Context, payload schema.RawPayload) *IngestResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	rawID := uuid.NewString()
	receivedAt := time.Now().UTC()

	if p.archiver != nil {
		if err := p.archiver.Archive(ctx, rawID, receivedAt, payload); err != nil {
			slog.Warn("raw archive failed", "raw_id", rawID, "error", err)
		}
	}

	risk, priority, alertWorthy := scoring.Score(payload)
	event := p.normalizer.Normalize(payload, rawID, receivedAt)

	if err := p.validator.Validate(event); err != nil {
		slog.Warn("normalized event failed schema validation",
			"raw_id", rawID, "source_type", event.SourceType, "error", err)
	}

	p.window.Append(event)

	if alertWorthy {
		p.alerts.Add(schema.Alert{
			RawID:      rawID,
			Priority:   priority,
			Risk:       risk,
			SourceType: event.SourceType,
			Format:     event.Format,
			ReceivedAt: receivedAt,
			EventType:  event.EventType,
			SrcIP:      event.SrcIP,
			DstIP:      event.DstIP,
			User:       event.User,
			Snippet:    snippet(event.Message),
		})
	}

	if p.sink != nil {
		if err := p.sink.Write(ctx, event); err != nil {
			slog.Warn("event sink write failed", "raw_id", rawID, "error", err)
		}
	}

	fired := p.engine.Evaluate(ctx, p.window.Snapshot(), receivedAt)

	stored := make([]*schema.Incident, 0, len(fired))
	for _, inc := range fired {
		s := p.incidents.Add(inc)
		p.alerts.Add(alertFromIncident(s))
		stored = append(stored, s)
	}

	return &IngestResult{
		RawID:     rawID,
		Risk:      risk,
		Priority:  priority,
		Event:     event,
		Incidents: stored,
	}
}

// Events lists recent events, newest first (query boundary).
func (p *Pipeline) Events(limit int) []*schema.NormalizedEvent {
	return p.window.List(limit)
}

// Alerts lists recent alerts, newest first (query boundary).
func (p *Pipeline) Alerts(limit int) []schema.Alert {
	return p.alerts.List(limit)
}

// Incidents lists recent incidents, newest first (query boundary).
func (p *Pipeline) Incidents(limit int) []*schema.Incident {
	return p.incidents.List(limit)
}

// GetIncident returns one incident by id (incident-management boundary).
func (p *Pipeline) GetIncident(id string) (*schema.Incident, error) {
	return p.incidents.Get(id)
}

// UpdateIncident mutates incident lifecycle fields (incident-management
// boundary); the engine itself never updates an incident it emitted.
func (p *Pipeline) UpdateIncident(id string, upd store.IncidentUpdate) (*schema.Incident, error) {
	return p.incidents.Update(id, upd)
}

// alertFromIncident projects a stored incident into the alert feed. The
// network/identity columns are best-effort joins of the incident's
// grouping fields.
func alertFromIncident(inc *schema.Incident) schema.Alert {
	dstIP := strings.Join(inc.DstIPs, ",")
	if dstIP == "" {
		dstIP = inc.Host
	}
	if dstIP == "" {
		dstIP = strings.Join(inc.DstHosts, ",")
	}

	user := inc.User
	if user == "" {
		user = strings.Join(inc.Users, ",")
	}

	return schema.Alert{
		Priority:   inc.Priority,
		Risk:       inc.Risk,
		SourceType: "correlation",
		Format:     "rule",
		ReceivedAt: time.Now().UTC(),
		EventType:  inc.Type,
		SrcIP:      inc.SrcIP,
		DstIP:      dstIP,
		User:       user,
		Snippet:    inc.Title,
	}
}

func snippet(message string) string {
	const max = 160
	if len(message) <= max {
		return message
	}
	return message[:max]
}
