// Package normalize converts raw payloads into canonical events.
//
// The normalizer is pure: it never errors and has no side effects.
// Missing fields degrade to zero values and an "unknown" classification.
package normalize

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"lattice-siem/internal/parser"
	"lattice-siem/internal/schema"
)

// Source types with dedicated field mappings. Anything else gets an empty
// mapping (all context fields blank, event type UNKNOWN).
const (
	SourceFirewall = "firewall"
	SourceAV       = "av"
	SourceEDR      = "edr"
	SourceIAM      = "iam"
)

// classification is the (category, base severity) pair for a known
// source/event-type combination.
type classification struct {
	Category string
	Severity int
}

// eventTypeMap is the static source -> raw event type -> classification
// table. Misses map to ("unknown", 1).
var eventTypeMap = map[string]map[string]classification{
	SourceFirewall: {
		"VPN_LOGIN_FAIL":    {"authentication", 7},
		"VPN_LOGIN_SUCCESS": {"authentication", 4},
		"PORTSCAN":          {"network", 8},
	},
	SourceAV: {
		"AV_DETECT":      {"malware", 9},
		"MALWARE_DETECT": {"malware", 9},
	},
	SourceEDR: {
		"PROCESS_START":      {"process", 4},
		"NETWORK_CONNECTION": {"network", 5},
		"CREDENTIAL_DUMP":    {"process", 9},
	},
	SourceIAM: {
		"LOGIN_FAIL":    {"authentication", 6},
		"LOGIN_SUCCESS": {"authentication", 3},
		"ACCOUNT_LOCK":  {"account", 8},
	},
}

// sourceMapping declares, per logical field, the ordered list of raw field
// aliases to read. The first alias with a non-empty value wins.
type sourceMapping struct {
	EventType        []string
	EventTypeDefault string
	SrcIP            []string
	DstIP            []string
	SrcPort          []string
	DstPort          []string
	User             []string
	Host             []string
	Vendor           []string
	Product          []string
}

var sourceMappings = map[string]sourceMapping{
	SourceFirewall: {
		EventType: []string{"event_type", "signature"},
		SrcIP:     []string{"src", "src_ip"},
		DstIP:     []string{"dst", "dst_ip"},
		SrcPort:   []string{"spt", "src_port"},
		DstPort:   []string{"dpt", "dst_port"},
		User:      []string{"suser"},
		Host:      []string{"shost", "dhost"},
		Vendor:    []string{"vendor"},
		Product:   []string{"product"},
	},
	SourceAV: {
		EventType:        []string{"event_type"},
		EventTypeDefault: "AV_DETECT",
		Host:             []string{"host"},
		User:             []string{"user"},
		Vendor:           []string{"vendor"},
		Product:          []string{"product"},
	},
	SourceEDR: {
		EventType: []string{"event_type", "action"},
		Host:      []string{"host"},
		User:      []string{"user"},
		SrcIP:     []string{"src_ip"},
		DstIP:     []string{"dst_ip"},
		SrcPort:   []string{"src_port", "spt"},
		DstPort:   []string{"dst_port", "dpt"},
	},
	SourceIAM: {
		EventType: []string{"event_type", "action"},
		User:      []string{"user"},
		Host:      []string{"host"},
		SrcIP:     []string{"ip"},
	},
}

// Normalizer converts raw payloads into NormalizedEvents.
type Normalizer struct{}

// NewNormalizer creates a Normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize produces a canonical event from a raw payload. The caller has
// already assigned the stable event ID and the ingestion timestamp (the
// raw-archive boundary contract). Never fails: unparseable input yields a
// valid event tagged with the parse diagnostics.
func (n *Normalizer) Normalize(payload schema.RawPayload, rawID string, receivedAt time.Time) *schema.NormalizedEvent {
	source := strings.ToLower(strings.TrimSpace(payload.SourceType))
	if source == "" {
		source = "unknown"
	}
	format := strings.ToLower(strings.TrimSpace(payload.Format))
	if format == "" {
		format = "unknown"
	}

	res := parser.Extract(format, payload.Data)
	tags := append([]string(nil), res.Diagnostics...)

	mapping := sourceMappings[source]

	eventType := firstString(res.Fields, mapping.EventType)
	if eventType == "" {
		eventType = mapping.EventTypeDefault
	}
	if eventType == "" {
		eventType = "UNKNOWN"
	}

	cls, ok := eventTypeMap[source][eventType]
	if !ok {
		cls = classification{Category: "unknown", Severity: 1}
	}

	return &schema.NormalizedEvent{
		EventID:    rawID,
		ReceivedAt: receivedAt,
		ParsedAt:   time.Now().UTC(),

		SourceType: source,
		Format:     format,
		Vendor:     firstString(res.Fields, mapping.Vendor),
		Product:    firstString(res.Fields, mapping.Product),

		EventType:     eventType,
		EventCategory: cls.Category,
		Severity:      clampSeverity(cls.Severity),

		SrcIP:   firstString(res.Fields, mapping.SrcIP),
		DstIP:   firstString(res.Fields, mapping.DstIP),
		SrcPort: firstInt(res.Fields, mapping.SrcPort),
		DstPort: firstInt(res.Fields, mapping.DstPort),
		Host:    firstString(res.Fields, mapping.Host),
		User:    firstString(res.Fields, mapping.User),

		Message: stringify(payload.Data),
		Fields:  res.Fields,
		Tags:    tags,
	}
}

// firstString returns the first non-empty value among the aliases.
func firstString(fields map[string]any, aliases []string) string {
	for _, alias := range aliases {
		if v, ok := fields[alias]; ok {
			if s := strings.TrimSpace(fmt.Sprintf("%v", v)); s != "" {
				return s
			}
		}
	}
	return ""
}

// firstInt returns the first alias value convertible to an int, 0 if none.
// Tolerates string values with trailing commas, e.g. "443,".
func firstInt(fields map[string]any, aliases []string) int {
	for _, alias := range aliases {
		v, ok := fields[alias]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			return int(n)
		case string:
			s := strings.TrimSuffix(strings.TrimSpace(n), ",")
			if i, err := strconv.Atoi(s); err == nil {
				return i
			}
		}
	}
	return 0
}

// stringify renders the raw data for the audit message. Structured objects
// are rendered with sorted keys so the output is deterministic.
func stringify(data any) string {
	switch d := data.(type) {
	case nil:
		return ""
	case string:
		return d
	case map[string]any:
		keys := make([]string, 0, len(d))
		for k := range d {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%s=%v", k, d[k])
		}
		return b.String()
	default:
		return fmt.Sprintf("%v", d)
	}
}

func clampSeverity(sev int) int {
	if sev < 1 {
		return 1
	}
	if sev > 10 {
		return 10
	}
	return sev
}
