package parser

import "testing"

func TestParseCSV(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, res Result)
	}{
		{
			name:  "three positional fields",
			input: "2026-01-15T10:00:00Z, alice, LOGIN_FAIL",
			check: func(t *testing.T, res Result) {
				if len(res.Diagnostics) != 0 {
					t.Fatalf("Diagnostics = %v, want none", res.Diagnostics)
				}
				if got := res.Fields["timestamp"]; got != "2026-01-15T10:00:00Z" {
					t.Errorf("Fields[timestamp] = %v", got)
				}
				if got := res.Fields["user"]; got != "alice" {
					t.Errorf("Fields[user] = %v, want alice", got)
				}
				if got := res.Fields["event_type"]; got != "LOGIN_FAIL" {
					t.Errorf("Fields[event_type] = %v, want LOGIN_FAIL", got)
				}
			},
		},
		{
			name:  "key value tail",
			input: "ts, bob, ACCOUNT_LOCK, ip=198.51.100.4, host=dc01",
			check: func(t *testing.T, res Result) {
				if got := res.Fields["ip"]; got != "198.51.100.4" {
					t.Errorf("Fields[ip] = %v", got)
				}
				if got := res.Fields["host"]; got != "dc01" {
					t.Errorf("Fields[host] = %v", got)
				}
			},
		},
		{
			name:  "tail token without equals is ignored",
			input: "ts, bob, LOGIN_FAIL, noise",
			check: func(t *testing.T, res Result) {
				if _, ok := res.Fields["noise"]; ok {
					t.Error("bare token should not become a field")
				}
				if len(res.Fields) != 3 {
					t.Errorf("len(Fields) = %d, want 3", len(res.Fields))
				}
			},
		},
		{
			name:  "trailing comma tolerated",
			input: "ts, bob, LOGIN_FAIL,",
			check: func(t *testing.T, res Result) {
				if len(res.Diagnostics) != 0 {
					t.Errorf("Diagnostics = %v, want none", res.Diagnostics)
				}
			},
		},
		{
			name:  "two fields fails",
			input: "ts, alice",
			check: func(t *testing.T, res Result) {
				if !res.Empty() {
					t.Errorf("Fields = %v, want empty", res.Fields)
				}
				if len(res.Diagnostics) != 1 || res.Diagnostics[0] != "parse_failed:csv" {
					t.Errorf("Diagnostics = %v, want [parse_failed:csv]", res.Diagnostics)
				}
			},
		},
		{
			name:  "empty input fails",
			input: "",
			check: func(t *testing.T, res Result) {
				if !res.Empty() {
					t.Errorf("Fields = %v, want empty", res.Fields)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, ParseCSV(tt.input))
		})
	}
}

func TestExtract(t *testing.T) {
	t.Run("structured object used verbatim", func(t *testing.T) {
		res := Extract(FormatJSON, map[string]any{"event_type": "PROCESS_START", "host": "ws01"})
		if got := res.Fields["event_type"]; got != "PROCESS_START" {
			t.Errorf("Fields[event_type] = %v", got)
		}
		if len(res.Diagnostics) != 0 {
			t.Errorf("Diagnostics = %v, want none", res.Diagnostics)
		}
	})

	t.Run("structured object ignores declared format", func(t *testing.T) {
		res := Extract(FormatCEF, map[string]any{"host": "ws01"})
		if got := res.Fields["host"]; got != "ws01" {
			t.Errorf("Fields[host] = %v, want ws01", got)
		}
	})

	t.Run("cef dispatch", func(t *testing.T) {
		res := Extract(FormatCEF, "CEF:0|V|P|1|id|SIG|5|src=10.0.0.1")
		if got := res.Fields["src"]; got != "10.0.0.1" {
			t.Errorf("Fields[src] = %v", got)
		}
	})

	t.Run("unknown format tagged", func(t *testing.T) {
		res := Extract("xml", "<event/>")
		if !res.Empty() {
			t.Errorf("Fields = %v, want empty", res.Fields)
		}
		if len(res.Diagnostics) != 1 || res.Diagnostics[0] != "unknown_format:xml" {
			t.Errorf("Diagnostics = %v, want [unknown_format:xml]", res.Diagnostics)
		}
	})

	t.Run("non-string non-map data tagged", func(t *testing.T) {
		res := Extract(FormatCSV, 42)
		if len(res.Diagnostics) != 1 || res.Diagnostics[0] != "unknown_format:csv" {
			t.Errorf("Diagnostics = %v, want [unknown_format:csv]", res.Diagnostics)
		}
	})
}
