package parser

import "strings"

// ParseCSV parses a comma-delimited line of the form
//
//	timestamp, user, event_type[, key=value ...]
//
// At least the three positional fields are required; remaining tokens are
// parsed as key=value pairs and tokens without '=' are ignored. Trailing
// commas and surrounding whitespace are tolerated.
func ParseCSV(text string) Result {
	var parts []string
	for _, p := range strings.Split(strings.TrimSpace(text), ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}

	if len(parts) < 3 {
		return Result{Fields: map[string]any{}, Diagnostics: []string{"parse_failed:csv"}}
	}

	fields := map[string]any{
		"timestamp":  parts[0],
		"user":       parts[1],
		"event_type": parts[2],
	}

	for _, part := range parts[3:] {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		fields[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}

	return Result{Fields: fields}
}
