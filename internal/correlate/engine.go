package correlate

import (
	"context"
	"log/slog"
	"time"

	"lattice-siem/internal/schema"
)

// RulesConfig carries the per-rule windows and thresholds. Zero values
// fall back to the defaults the rules were tuned with.
type RulesConfig struct {
	BruteForce        BruteForceConfig        `yaml:"brute_force"`
	PortScan          PortScanConfig          `yaml:"port_scan"`
	Malware           WindowOnlyConfig        `yaml:"malware"`
	AVActions         WindowOnlyConfig        `yaml:"av_actions"`
	EDRDetections     WindowOnlyConfig        `yaml:"edr_detections"`
	PasswordSpray     PasswordSprayConfig     `yaml:"password_spray"`
	EndpointLoginFail EndpointLoginFailConfig `yaml:"endpoint_login_fail"`
	LateralMovement   WindowOnlyConfig        `yaml:"lateral_movement"`
}

// BruteForceConfig configures the VPN brute-force rule.
type BruteForceConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Window    time.Duration `yaml:"window"`
	Threshold int           `yaml:"threshold"`
}

// PortScanConfig configures the port-scan rule.
type PortScanConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Window         time.Duration `yaml:"window"`
	PortsThreshold int           `yaml:"ports_threshold"`
}

// PasswordSprayConfig configures the IAM password-spray rule.
type PasswordSprayConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Window        time.Duration `yaml:"window"`
	UserThreshold int           `yaml:"user_threshold"`
}

// EndpointLoginFailConfig configures the endpoint login-failure rule.
type EndpointLoginFailConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Window    time.Duration `yaml:"window"`
	Threshold int           `yaml:"threshold"`
}

// WindowOnlyConfig configures rules that only take a window.
type WindowOnlyConfig struct {
	Enabled bool          `yaml:"enabled"`
	Window  time.Duration `yaml:"window"`
}

// DefaultRulesConfig returns the default rule catalog configuration.
func DefaultRulesConfig() RulesConfig {
	return RulesConfig{
		BruteForce:        BruteForceConfig{Enabled: true, Window: 120 * time.Second, Threshold: 5},
		PortScan:          PortScanConfig{Enabled: true, Window: 120 * time.Second, PortsThreshold: 10},
		Malware:           WindowOnlyConfig{Enabled: true, Window: 300 * time.Second},
		AVActions:         WindowOnlyConfig{Enabled: true, Window: 300 * time.Second},
		EDRDetections:     WindowOnlyConfig{Enabled: true, Window: 300 * time.Second},
		PasswordSpray:     PasswordSprayConfig{Enabled: true, Window: 180 * time.Second, UserThreshold: 4},
		EndpointLoginFail: EndpointLoginFailConfig{Enabled: true, Window: 180 * time.Second, Threshold: 6},
		LateralMovement:   WindowOnlyConfig{Enabled: true, Window: 300 * time.Second},
	}
}

// BuildRules instantiates the rule catalog from configuration, skipping
// disabled rules.
func BuildRules(cfg RulesConfig) []Rule {
	var rules []Rule
	if cfg.BruteForce.Enabled {
		rules = append(rules, BruteForceRule{Window: cfg.BruteForce.Window, Threshold: cfg.BruteForce.Threshold})
	}
	if cfg.PortScan.Enabled {
		rules = append(rules, PortScanRule{Window: cfg.PortScan.Window, PortsThreshold: cfg.PortScan.PortsThreshold})
	}
	if cfg.PasswordSpray.Enabled {
		rules = append(rules, PasswordSprayRule{Window: cfg.PasswordSpray.Window, UserThreshold: cfg.PasswordSpray.UserThreshold})
	}
	if cfg.EndpointLoginFail.Enabled {
		rules = append(rules, EndpointLoginFailRule{Window: cfg.EndpointLoginFail.Window, Threshold: cfg.EndpointLoginFail.Threshold})
	}
	if cfg.Malware.Enabled {
		rules = append(rules, MalwareRule{Window: cfg.Malware.Window})
	}
	if cfg.AVActions.Enabled {
		rules = append(rules, AVActionsRule{Window: cfg.AVActions.Window})
	}
	if cfg.EDRDetections.Enabled {
		rules = append(rules, EDRDetectionsRule{Window: cfg.EDRDetections.Window})
	}
	if cfg.LateralMovement.Enabled {
		rules = append(rules, LateralMovementRule{Window: cfg.LateralMovement.Window})
	}
	return rules
}

// Engine evaluates the rule catalog against the event window. Each
// invocation yields at most one incident per rule; the shared Deduper
// suppresses re-fires while a condition persists.
type Engine struct {
	rules []Rule
	dedup Deduper
}

// NewEngine creates an Engine over the given rules and dedup gate.
func NewEngine(rules []Rule, dedup Deduper) *Engine {
	return &Engine{rules: rules, dedup: dedup}
}

// Evaluate runs every rule over the window snapshot and returns the newly
// fired incidents. A dedup backend failure is fail-open: the candidate is
// emitted rather than silently suppressed.
func (e *Engine) Evaluate(ctx context.Context, events []*schema.NormalizedEvent, now time.Time) []schema.Incident {
	var fired []schema.Incident
	for _, rule := range e.rules {
		inc, key, ok := rule.Evaluate(events, now)
		if !ok {
			continue
		}

		seen, err := e.dedup.Seen(ctx, key)
		if err != nil {
			slog.Warn("dedup check failed, emitting anyway", "rule", rule.Name(), "key", key, "error", err)
		} else if seen {
			slog.Debug("incident suppressed by dedup", "rule", rule.Name(), "key", key)
			continue
		}

		slog.Info("correlation rule fired",
			"rule", rule.Name(),
			"type", inc.Type,
			"count", inc.Count,
			"risk", inc.Risk,
		)
		fired = append(fired, inc)
	}
	return fired
}
