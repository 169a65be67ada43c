// Package parser extracts flat field maps from raw telemetry payloads.
// Parsers are format-specific and know nothing about the security domain;
// classification of the extracted fields is the normalizer's job.
//
// Parsing never fails hard: a malformed payload yields an empty field map
// plus a diagnostic tag, so ingestion of a single event can never abort.
package parser

// Result carries the outcome of a parse attempt.
type Result struct {
	// Fields is the flat key-value map extracted from the payload.
	// Empty when the payload did not match the format grammar.
	Fields map[string]any
	// Diagnostics lists parse-quality markers such as "parse_failed:cef"
	// or "unknown_format:xml". Empty on a clean parse.
	Diagnostics []string
}

// Empty reports whether nothing was extracted.
func (r Result) Empty() bool {
	return len(r.Fields) == 0
}

// Format names understood by Extract. Anything else degrades to an empty
// result tagged unknown_format.
const (
	FormatCEF  = "cef"
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// Extract dispatches on the declared format. Structured objects are used
// verbatim as the field map regardless of the declared format.
func Extract(format string, data any) Result {
	if obj, ok := data.(map[string]any); ok {
		fields := make(map[string]any, len(obj))
		for k, v := range obj {
			fields[k] = v
		}
		return Result{Fields: fields}
	}

	text, ok := data.(string)
	if !ok {
		return Result{Fields: map[string]any{}, Diagnostics: []string{"unknown_format:" + format}}
	}

	switch format {
	case FormatCEF:
		return ParseCEF(text)
	case FormatCSV:
		return ParseCSV(text)
	default:
		return Result{Fields: map[string]any{}, Diagnostics: []string{"unknown_format:" + format}}
	}
}
