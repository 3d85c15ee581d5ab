package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewJSONFormatter(t *testing.T) {
	for _, opts := range []*Options{nil, {NoColor: true}} {
		formatter := NewJSONFormatter(opts)
		if formatter == nil {
			t.Fatal("NewJSONFormatter returned nil")
		}
		if formatter.options == nil {
			t.Error("formatter.options is nil")
		}
	}
}

func TestJSONFormatter_Format(t *testing.T) {
	tests := []struct {
		name     string
		data     interface{}
		validate func(t *testing.T, output string)
	}{
		{
			name: "simple map",
			data: map[string]interface{}{
				"name":  "test",
				"value": 123,
			},
			validate: func(t *testing.T, output string) {
				var result map[string]interface{}
				if err := json.Unmarshal([]byte(output), &result); err != nil {
					t.Fatalf("Failed to parse JSON: %v", err)
				}
				if result["name"] != "test" {
					t.Errorf("name = %v, want test", result["name"])
				}
				if result["value"] != float64(123) {
					t.Errorf("value = %v, want 123", result["value"])
				}
			},
		},
		{
			name: "indented",
			data: map[string]interface{}{"key": "value"},
			validate: func(t *testing.T, output string) {
				if !strings.Contains(output, "\n  \"key\"") {
					t.Errorf("output not indented with two spaces:\n%s", output)
				}
			},
		},
		{
			name: "nil",
			data: nil,
			validate: func(t *testing.T, output string) {
				if trimmed := strings.TrimSpace(output); trimmed != "null" {
					t.Errorf("output = %q, want %q", trimmed, "null")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			formatter := NewJSONFormatter(&Options{})
			var buf bytes.Buffer

			if err := formatter.Format(&buf, tt.data); err != nil {
				t.Fatalf("Format() error = %v", err)
			}
			tt.validate(t, buf.String())
		})
	}
}

func TestJSONFormatter_FormatReport(t *testing.T) {
	formatter := NewJSONFormatter(&Options{})
	var buf bytes.Buffer

	if err := formatter.FormatReport(&buf, sampleReport()); err != nil {
		t.Fatalf("FormatReport() error = %v", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("Failed to parse JSON: %v", err)
	}

	if result["accepted"] != float64(9) {
		t.Errorf("accepted = %v, want 9", result["accepted"])
	}
	if result["verification"] != "passed" {
		t.Errorf("verification = %v, want passed", result["verification"])
	}
	if result["kind"] != "sleep" {
		t.Errorf("kind = %v, want sleep", result["kind"])
	}

	pool, ok := result["pool"].(map[string]interface{})
	if !ok {
		t.Fatalf("pool = %#v, want object", result["pool"])
	}
	if pool["mode"] != "fixed" {
		t.Errorf("pool.mode = %v, want fixed", pool["mode"])
	}
	if workers, ok := pool["workerStats"].([]interface{}); !ok || len(workers) != 2 {
		t.Errorf("pool.workerStats = %#v, want 2 entries", pool["workerStats"])
	}
}

func TestJSONFormatter_FormatReportFailed(t *testing.T) {
	formatter := NewJSONFormatter(&Options{})
	var buf bytes.Buffer

	if err := formatter.FormatReport(&buf, failedReport()); err != nil {
		t.Fatalf("FormatReport() error = %v", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("Failed to parse JSON: %v", err)
	}
	if result["verification"] != "failed" {
		t.Errorf("verification = %v, want failed", result["verification"])
	}
	if msg, _ := result["error"].(string); !strings.Contains(msg, "lost") {
		t.Errorf("error = %q, want it to mention lost tasks", msg)
	}
}
