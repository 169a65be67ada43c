package parser

import (
	"regexp"
	"strconv"
	"strings"
)

// cefHeaderRe matches the fixed CEF header:
//
//	CEF:version|vendor|product|version|event_id|signature|severity|extension
//
// Header fields must not contain pipes and severity must be numeric; a
// message that does not match yields an empty result, never an error.
var cefHeaderRe = regexp.MustCompile(
	`^CEF:(\d+)\|([^|]*)\|([^|]*)\|([^|]*)\|([^|]*)\|([^|]*)\|(\d+)\|(.*)$`)

// cefKVRe matches key=value tokens in the CEF extension. Values run to the
// next whitespace; tokens without '=' are ignored.
var cefKVRe = regexp.MustCompile(`(\w+)=(\S+)`)

// ParseCEF parses a CEF-shaped line into a flat field map. The extracted
// severity is clamped to [1,10] and defaults to 1 when unparseable.
func ParseCEF(text string) Result {
	m := cefHeaderRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return Result{Fields: map[string]any{}, Diagnostics: []string{"parse_failed:cef"}}
	}

	sev, err := strconv.Atoi(m[7])
	if err != nil {
		sev = 1
	}
	sev = clampSeverity(sev)

	eventType := m[6]
	if eventType == "" {
		eventType = "UNKNOWN"
	}

	fields := map[string]any{
		"vendor":     m[2],
		"product":    m[3],
		"event_type": eventType,
		"severity":   sev,
	}

	for _, kv := range cefKVRe.FindAllStringSubmatch(m[8], -1) {
		fields[kv[1]] = kv[2]
	}

	return Result{Fields: fields}
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
