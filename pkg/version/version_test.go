package version

import (
	"encoding/json"
	"runtime"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestGet(t *testing.T) {
	info := Get()

	if info.Version == "" {
		t.Error("Version should not be empty")
	}
	if info.Commit == "" {
		t.Error("Commit should not be empty")
	}
	if info.GoVersion == "" {
		t.Error("GoVersion should not be empty")
	}

	expectedPlatform := runtime.GOOS + "/" + runtime.GOARCH
	if info.Platform != expectedPlatform {
		t.Errorf("Platform = %s, want %s", info.Platform, expectedPlatform)
	}
}

func TestString(t *testing.T) {
	info := Get()
	output := info.String()

	for _, want := range []string{"Taskpool CLI", info.Version, info.Commit, info.Platform} {
		if !strings.Contains(output, want) {
			t.Errorf("String output should contain %q", want)
		}
	}
}

func TestFields(t *testing.T) {
	info := Info{Version: "v1.2.3", Commit: "abc123", BuildTime: "now", GoVersion: "go1.25", Platform: "linux/amd64"}
	fields := info.Fields()

	if len(fields) != 5 {
		t.Fatalf("len(Fields()) = %d, want 5", len(fields))
	}
	if fields[0]["component"] != "Version" || fields[0]["value"] != "v1.2.3" {
		t.Errorf("first row = %v, want Version v1.2.3", fields[0])
	}
	if fields[4]["value"] != "linux/amd64" {
		t.Errorf("last row = %v, want platform", fields[4])
	}
}

func TestSerialization(t *testing.T) {
	info := Get()

	data, err := json.Marshal(info)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	var fromJSON map[string]string
	if err := json.Unmarshal(data, &fromJSON); err != nil {
		t.Fatalf("JSON output is not valid: %v", err)
	}
	if fromJSON["buildTime"] != info.BuildTime {
		t.Errorf("JSON buildTime = %s, want %s", fromJSON["buildTime"], info.BuildTime)
	}

	data, err = yaml.Marshal(info)
	if err != nil {
		t.Fatalf("yaml.Marshal() error = %v", err)
	}
	var fromYAML map[string]string
	if err := yaml.Unmarshal(data, &fromYAML); err != nil {
		t.Fatalf("YAML output is not valid: %v", err)
	}
	if fromYAML["goVersion"] != info.GoVersion {
		t.Errorf("YAML goVersion = %s, want %s", fromYAML["goVersion"], info.GoVersion)
	}
}
