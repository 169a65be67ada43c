// Package scoring computes the risk score and priority tier for a raw
// payload. Scoring runs on raw content before normalization completes, so
// a payload that fails to parse still gets a usable priority.
package scoring

import (
	"fmt"
	"sort"
	"strings"

	"lattice-siem/internal/schema"
)

// sourceWeights are the fixed per-source base weights. Unknown sources get
// defaultWeight.
var sourceWeights = map[string]int{
	"firewall": 10,
	"av":       8,
	"edr":      6,
	"iam":      5,
	"arm":      3,
}

const defaultWeight = 2

// criticalMarkers are matched case-insensitively against the concatenated
// raw text; each marker present adds markerPoints to the risk.
var criticalMarkers = []string{
	"VPN_LOGIN_FAIL", "PORTSCAN", "AV_DETECT", "MALWARE_DETECT",
	"credential_dumping", "ransom", "C2",
	"4688", "4697", "GROUP_ADD", "ACCOUNT_LOCK",
}

const (
	baseMultiplier = 6
	markerPoints   = 12
	maxRisk        = 100
)

// Priority thresholds on the clamped risk score.
const (
	criticalThreshold = 70
	highThreshold     = 45
	mediumThreshold   = 25
)

// Score computes (risk 0-100, priority, alert-worthy) for a raw payload.
// Deterministic and side-effect-free: the same payload always yields the
// same result.
func Score(payload schema.RawPayload) (int, schema.Priority, bool) {
	source := strings.ToLower(strings.TrimSpace(payload.SourceType))
	base, ok := sourceWeights[source]
	if !ok {
		base = defaultWeight
	}

	text := strings.ToLower(concatText(payload.Data))

	hits := 0
	for _, marker := range criticalMarkers {
		if strings.Contains(text, strings.ToLower(marker)) {
			hits++
		}
	}

	risk := base*baseMultiplier + hits*markerPoints
	if risk > maxRisk {
		risk = maxRisk
	}

	var priority schema.Priority
	switch {
	case risk >= criticalThreshold:
		priority = schema.PriorityCritical
	case risk >= highThreshold:
		priority = schema.PriorityHigh
	case risk >= mediumThreshold:
		priority = schema.PriorityMedium
	default:
		priority = schema.PriorityLow
	}

	return risk, priority, priority == schema.PriorityHigh || priority == schema.PriorityCritical
}

// concatText flattens the raw data into one searchable string. Map values
// are joined in sorted key order so scoring stays deterministic.
func concatText(data any) string {
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
		parts := make([]string, 0, len(d))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%v", d[k]))
		}
		return strings.Join(parts, " ")
	default:
		return fmt.Sprintf("%v", d)
	}
}
