package run

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aryankumar/taskpool/internal/config"
	"github.com/aryankumar/taskpool/internal/util"
)

// newTestCmd returns the run command with the root's persistent flags
func newTestCmd(t *testing.T, args ...string) (*bytes.Buffer, error) {
	t.Helper()

	cmd := NewRunCmd()
	cmd.Flags().String("config", filepath.Join(t.TempDir(), "missing.yaml"), "")
	cmd.Flags().StringP("output", "o", "", "")
	cmd.Flags().Bool("no-color", true, "")

	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)

	return out, cmd.Execute()
}

func TestRunCommandFlags(t *testing.T) {
	cmd := NewRunCmd()

	tests := []struct {
		flag     string
		expected string
	}{
		{flag: "mode", expected: "fixed"},
		{flag: "workers", expected: "4"},
		{flag: "capacity", expected: "1024"},
		{flag: "submit-timeout", expected: "1s"},
		{flag: "wake-policy", expected: "signal"},
		{flag: "producers", expected: "4"},
		{flag: "tasks", expected: "10000"},
		{flag: "kind", expected: "sleep"},
		{flag: "wide", expected: "false"},
	}

	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			flag := cmd.Flags().Lookup(tt.flag)
			if flag == nil {
				t.Fatalf("flag %q not found", tt.flag)
			}
			if flag.DefValue != tt.expected {
				t.Errorf("expected default value %q, got %q", tt.expected, flag.DefValue)
			}
		})
	}
}

func TestFlagKeysBind(t *testing.T) {
	cmd := NewRunCmd()
	mgr := config.NewManager("")

	for name, key := range flagKeys {
		if err := mgr.BindFlag(key, cmd.Flags().Lookup(name)); err != nil {
			t.Errorf("BindFlag(%q, --%s) error = %v", key, name, err)
		}
	}
}

func TestRunCommand(t *testing.T) {
	out, err := newTestCmd(t,
		"--workers", "2", "--producers", "3", "--tasks", "30",
		"--kind", "noop", "--wide")
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, out.String())
	}

	for _, want := range []string{"PRODUCER", "WORKER", "30 accepted", "0 rejected", "exactly once"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out.String())
		}
	}
}

func TestRunCommandBackpressure(t *testing.T) {
	out, err := newTestCmd(t,
		"-o", "json",
		"--workers", "1", "--capacity", "1", "--submit-timeout", "1ms",
		"--producers", "4", "--tasks", "20",
		"--kind", "sleep", "--duration", "20ms")
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, out.String())
	}

	var report map[string]interface{}
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("report is not valid JSON: %v\n%s", err, out.String())
	}

	rejected, _ := report["rejected"].(float64)
	accepted, _ := report["accepted"].(float64)
	executed, _ := report["executed"].(float64)
	if rejected == 0 {
		t.Error("expected rejections with a single-slot queue and a slow worker")
	}
	if accepted+rejected != 20 {
		t.Errorf("accepted+rejected = %v, want 20", accepted+rejected)
	}
	if executed != accepted {
		t.Errorf("executed = %v, want %v (accepted)", executed, accepted)
	}
	if report["verification"] != "passed" {
		t.Errorf("verification = %v, want passed", report["verification"])
	}
}

func TestRunCommandConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskpool.yaml")
	content := `pool:
  workers: 3
  capacity: 16
load:
  producers: 2
  tasks: 12
  kind: noop
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	out, err := newTestCmd(t, "--config", path, "-o", "json")
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, out.String())
	}

	var report map[string]interface{}
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}
	if report["submitted"] != float64(12) {
		t.Errorf("submitted = %v, want 12 from the config file", report["submitted"])
	}
	pool, _ := report["pool"].(map[string]interface{})
	if pool["capacity"] != float64(16) {
		t.Errorf("pool.capacity = %v, want 16 from the config file", pool["capacity"])
	}
	if pool["peakWorkers"] != float64(3) {
		t.Errorf("pool.peakWorkers = %v, want 3 from the config file", pool["peakWorkers"])
	}
}

func TestRunCommandInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "zero workers", args: []string{"--workers", "0"}},
		{name: "unknown mode", args: []string{"--mode", "elastic"}},
		{name: "unknown kind", args: []string{"--kind", "explode"}},
		{name: "zero producers", args: []string{"--producers", "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestCmd(t, tt.args...)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !util.IsInvalidConfig(err) {
				t.Errorf("expected an invalid config error, got %v", err)
			}
		})
	}
}
