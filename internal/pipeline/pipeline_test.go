package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"lattice-siem/internal/correlate"
	"lattice-siem/internal/schema"
	"lattice-siem/internal/store"
)

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	engine := correlate.NewEngine(
		correlate.BuildRules(correlate.DefaultRulesConfig()),
		correlate.NewTTLCache(time.Minute),
	)
	return New(
		store.NewEventWindow(100),
		store.NewAlertStore(100),
		store.NewIncidentStore(100),
		engine,
	)
}

func vpnFailPayload() schema.RawPayload {
	return schema.RawPayload{
		SourceType: "firewall",
		Format:     "cef",
		Data:       "CEF:0|PaloAlto|PA-FW|1.0|100|VPN_LOGIN_FAIL|7|src=203.0.113.7 dst=10.0.0.1 spt=51000 dpt=443 suser=alice",
	}
}

func TestPipeline_Ingest(t *testing.T) {
	ctx := context.Background()
	p := newTestPipeline(t)

	res := p.Ingest(ctx, vpnFailPayload())

	if res.RawID == "" {
		t.Error("RawID should be assigned")
	}
	if res.Event == nil {
		t.Fatal("Event should be returned")
	}
	if res.Event.EventID != res.RawID {
		t.Errorf("EventID = %q, want raw id %q", res.Event.EventID, res.RawID)
	}
	if res.Event.EventType != "VPN_LOGIN_FAIL" {
		t.Errorf("EventType = %q", res.Event.EventType)
	}
	if res.Priority != schema.PriorityCritical {
		t.Errorf("Priority = %v, want critical", res.Priority)
	}
	if len(res.Incidents) != 0 {
		t.Errorf("one event fired %d incidents, want 0", len(res.Incidents))
	}

	if got := len(p.Events(0)); got != 1 {
		t.Errorf("len(Events()) = %d, want 1", got)
	}
	if got := len(p.Alerts(0)); got != 1 {
		t.Errorf("len(Alerts()) = %d, want 1 for an alert-worthy event", got)
	}
}

func TestPipeline_BruteForceCorrelation(t *testing.T) {
	ctx := context.Background()
	p := newTestPipeline(t)

	var incidents []*schema.Incident
	for i := 0; i < 5; i++ {
		res := p.Ingest(ctx, vpnFailPayload())
		incidents = res.Incidents
	}

	if len(incidents) != 1 {
		t.Fatalf("fifth ingest fired %d incidents, want 1", len(incidents))
	}
	inc := incidents[0]
	if inc.Type != "BRUTEFORCE_VPN" {
		t.Errorf("Type = %q", inc.Type)
	}
	if inc.IncidentID == "" || inc.Status != schema.IncidentStatusNew {
		t.Errorf("lifecycle = %q/%q, store defaults not applied", inc.IncidentID, inc.Status)
	}
	if inc.SLAMinutes != 60 {
		t.Errorf("SLAMinutes = %d, want 60 for critical", inc.SLAMinutes)
	}

	// The armed dedup key suppresses an immediate re-fire.
	res := p.Ingest(ctx, vpnFailPayload())
	if len(res.Incidents) != 0 {
		t.Errorf("sixth ingest fired %d incidents, want 0 while armed", len(res.Incidents))
	}

	if got := p.Incidents(0); len(got) != 1 {
		t.Errorf("len(Incidents()) = %d, want 1", len(got))
	}

	// Incident alert is layered on top of the per-event alerts.
	alerts := p.Alerts(0)
	if len(alerts) != 7 {
		t.Fatalf("len(Alerts()) = %d, want 6 event alerts + 1 incident alert", len(alerts))
	}
	var incidentAlert *schema.Alert
	for i := range alerts {
		if alerts[i].SourceType == "correlation" {
			incidentAlert = &alerts[i]
		}
	}
	if incidentAlert == nil {
		t.Fatal("no correlation alert in the feed")
	}
	if incidentAlert.EventType != "BRUTEFORCE_VPN" || incidentAlert.Format != "rule" {
		t.Errorf("correlation alert = %q/%q", incidentAlert.EventType, incidentAlert.Format)
	}
}

func TestPipeline_EvictionLimitsCorrelation(t *testing.T) {
	ctx := context.Background()
	engine := correlate.NewEngine(
		correlate.BuildRules(correlate.DefaultRulesConfig()),
		correlate.NewTTLCache(time.Minute),
	)
	// Window holds 3 events; the brute-force threshold of 5 can never
	// accumulate.
	p := New(
		store.NewEventWindow(3),
		store.NewAlertStore(100),
		store.NewIncidentStore(100),
		engine,
	)

	for i := 0; i < 10; i++ {
		res := p.Ingest(ctx, vpnFailPayload())
		if len(res.Incidents) != 0 {
			t.Fatalf("ingest %d fired %d incidents, evicted events should not count", i, len(res.Incidents))
		}
	}
	if got := len(p.Events(0)); got != 3 {
		t.Errorf("len(Events()) = %d, want window capacity 3", got)
	}
}

func TestPipeline_IncidentLifecycle(t *testing.T) {
	ctx := context.Background()
	p := newTestPipeline(t)

	for i := 0; i < 5; i++ {
		p.Ingest(ctx, vpnFailPayload())
	}
	stored := p.Incidents(0)
	if len(stored) != 1 {
		t.Fatalf("len(Incidents()) = %d, want 1", len(stored))
	}
	id := stored[0].IncidentID

	got, err := p.GetIncident(id)
	if err != nil {
		t.Fatalf("GetIncident() error = %v", err)
	}
	if got.IncidentID != id {
		t.Errorf("IncidentID = %q, want %q", got.IncidentID, id)
	}

	status := "Investigating"
	upd, err := p.UpdateIncident(id, store.IncidentUpdate{Status: &status})
	if err != nil {
		t.Fatalf("UpdateIncident() error = %v", err)
	}
	if upd.Status != "Investigating" {
		t.Errorf("Status = %q", upd.Status)
	}

	if _, err := p.GetIncident("INC-missing"); !errors.Is(err, store.ErrIncidentNotFound) {
		t.Errorf("GetIncident() error = %v, want ErrIncidentNotFound", err)
	}
}

func TestPipeline_MalformedPayloadStaysLive(t *testing.T) {
	ctx := context.Background()
	p := newTestPipeline(t)

	res := p.Ingest(ctx, schema.RawPayload{SourceType: "firewall", Format: "cef", Data: "garbage"})
	if res.Event == nil {
		t.Fatal("malformed payload should still produce an event")
	}
	if len(res.Event.Tags) == 0 {
		t.Error("malformed payload should carry a parse diagnostic tag")
	}
	if got := len(p.Events(0)); got != 1 {
		t.Errorf("len(Events()) = %d, want 1", got)
	}
}

type recordingArchiver struct {
	calls int
	err   error
}

func (a *recordingArchiver) Archive(context.Context, string, time.Time, schema.RawPayload) error {
	a.calls++
	return a.err
}

type recordingSink struct {
	events []*schema.NormalizedEvent
}

func (s *recordingSink) Write(_ context.Context, ev *schema.NormalizedEvent) error {
	s.events = append(s.events, ev)
	return nil
}

func TestPipeline_BoundaryAdapters(t *testing.T) {
	ctx := context.Background()

	t.Run("archiver and sink receive every payload", func(t *testing.T) {
		p := newTestPipeline(t)
		archiver := &recordingArchiver{}
		sink := &recordingSink{}
		p.WithArchiver(archiver).WithSink(sink)

		p.Ingest(ctx, vpnFailPayload())
		p.Ingest(ctx, vpnFailPayload())

		if archiver.calls != 2 {
			t.Errorf("archiver calls = %d, want 2", archiver.calls)
		}
		if len(sink.events) != 2 {
			t.Errorf("sink events = %d, want 2", len(sink.events))
		}
	})

	t.Run("archiver failure does not abort ingestion", func(t *testing.T) {
		p := newTestPipeline(t)
		p.WithArchiver(&recordingArchiver{err: errors.New("s3 down")})

		res := p.Ingest(ctx, vpnFailPayload())
		if res.Event == nil {
			t.Fatal("ingestion should survive an archive failure")
		}
		if got := len(p.Events(0)); got != 1 {
			t.Errorf("len(Events()) = %d, want 1", got)
		}
	})
}
