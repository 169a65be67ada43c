package correlate

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"lattice-siem/internal/schema"
)

func bruteForceWindow(n int) []*schema.NormalizedEvent {
	var events []*schema.NormalizedEvent
	for i := 0; i < n; i++ {
		events = append(events, &schema.NormalizedEvent{
			EventID:    fmt.Sprintf("e%d", i),
			ReceivedAt: ruleNow.Add(-time.Minute),
			EventType:  "VPN_LOGIN_FAIL",
			SrcIP:      "203.0.113.7",
		})
	}
	return events
}

func TestEngine_Evaluate(t *testing.T) {
	ctx := context.Background()
	rules := []Rule{BruteForceRule{Window: 120 * time.Second, Threshold: 5}}

	t.Run("fires once then suppressed", func(t *testing.T) {
		engine := NewEngine(rules, NewTTLCache(time.Minute))
		events := bruteForceWindow(5)

		fired := engine.Evaluate(ctx, events, ruleNow)
		if len(fired) != 1 {
			t.Fatalf("first Evaluate() fired %d incidents, want 1", len(fired))
		}
		if fired[0].Type != "BRUTEFORCE_VPN" {
			t.Errorf("Type = %q", fired[0].Type)
		}

		fired = engine.Evaluate(ctx, events, ruleNow)
		if len(fired) != 0 {
			t.Errorf("second Evaluate() fired %d incidents, want 0 while the key is armed", len(fired))
		}
	})

	t.Run("re-fires after ttl expiry", func(t *testing.T) {
		engine := NewEngine(rules, NewTTLCache(20*time.Millisecond))
		events := bruteForceWindow(5)

		if fired := engine.Evaluate(ctx, events, ruleNow); len(fired) != 1 {
			t.Fatalf("first Evaluate() fired %d incidents, want 1", len(fired))
		}
		if fired := engine.Evaluate(ctx, events, ruleNow); len(fired) != 0 {
			t.Fatal("armed key should suppress inside the TTL")
		}

		time.Sleep(40 * time.Millisecond)

		if fired := engine.Evaluate(ctx, events, ruleNow); len(fired) != 1 {
			t.Error("persisting condition should re-fire after the TTL expires")
		}
	})

	t.Run("dedup failure is fail-open", func(t *testing.T) {
		engine := NewEngine(rules, failingDeduper{})
		events := bruteForceWindow(5)

		if fired := engine.Evaluate(ctx, events, ruleNow); len(fired) != 1 {
			t.Errorf("Evaluate() fired %d incidents, want 1 despite dedup error", len(fired))
		}
	})

	t.Run("no qualifying events", func(t *testing.T) {
		engine := NewEngine(rules, NewTTLCache(time.Minute))
		if fired := engine.Evaluate(ctx, bruteForceWindow(3), ruleNow); len(fired) != 0 {
			t.Errorf("Evaluate() fired %d incidents below threshold", len(fired))
		}
	})
}

type failingDeduper struct{}

func (failingDeduper) Seen(context.Context, string) (bool, error) {
	return false, errors.New("backend down")
}

func TestBuildRules(t *testing.T) {
	t.Run("default config builds full catalog", func(t *testing.T) {
		rules := BuildRules(DefaultRulesConfig())
		if len(rules) != 8 {
			t.Fatalf("len(BuildRules()) = %d, want 8", len(rules))
		}

		names := make(map[string]bool)
		for _, r := range rules {
			names[r.Name()] = true
		}
		for _, want := range []string{
			"BRUTEFORCE_VPN", "PORT_SCAN", "IAM_PASSWORD_SPRAY", "ENDPOINT_BRUTEFORCE",
			"MALWARE_DETECTED", "AV_ACTIONS", "EDR_DETECTIONS", "LATERAL_MOVEMENT",
		} {
			if !names[want] {
				t.Errorf("rule %q missing from catalog", want)
			}
		}
	})

	t.Run("disabled rules are skipped", func(t *testing.T) {
		cfg := DefaultRulesConfig()
		cfg.BruteForce.Enabled = false
		cfg.LateralMovement.Enabled = false

		rules := BuildRules(cfg)
		if len(rules) != 6 {
			t.Fatalf("len(BuildRules()) = %d, want 6", len(rules))
		}
		for _, r := range rules {
			if r.Name() == "BRUTEFORCE_VPN" || r.Name() == "LATERAL_MOVEMENT" {
				t.Errorf("disabled rule %q built anyway", r.Name())
			}
		}
	})
}
