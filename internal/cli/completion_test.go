package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestCompletionCommand(t *testing.T) {
	tests := []struct {
		name        string
		shell       string
		wantErr     bool
		errContains string
		contains    []string
	}{
		{
			name:    "bash completion",
			shell:   "bash",
			wantErr: false,
			contains: []string{
				"bash completion",
			},
		},
		{
			name:    "zsh completion",
			shell:   "zsh",
			wantErr: false,
			contains: []string{
				"#compdef",
			},
		},
		{
			name:    "fish completion",
			shell:   "fish",
			wantErr: false,
			contains: []string{
				"fish completion",
			},
		},
		{
			name:    "powershell completion",
			shell:   "powershell",
			wantErr: false,
			contains: []string{
				"Register-ArgumentCompleter",
			},
		},
		{
			name:        "invalid shell",
			shell:       "invalid",
			wantErr:     true,
			errContains: "invalid argument",
		},
		{
			name:        "no arguments",
			shell:       "",
			wantErr:     true,
			errContains: "accepts 1 arg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rootCmd := newRootCmd()

			var args []string
			if tt.shell != "" {
				args = []string{"completion", tt.shell}
			} else {
				args = []string{"completion"}
			}

			rootCmd.SetArgs(args)

			// Capture both stdout and stderr
			output := &bytes.Buffer{}
			errOutput := &bytes.Buffer{}
			rootCmd.SetOut(output)
			rootCmd.SetErr(errOutput)

			err := rootCmd.Execute()

			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error containing %q, got nil", tt.errContains)
				}
				if !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("expected error containing %q, got %q", tt.errContains, err.Error())
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v\nStderr: %s", err, errOutput.String())
			}

			script := output.String()
			for _, want := range tt.contains {
				if !strings.Contains(script, want) {
					t.Errorf("expected %s script to contain %q", tt.shell, want)
				}
			}
			if !strings.Contains(script, "taskpool") {
				t.Errorf("expected %s script to reference the taskpool command", tt.shell)
			}
		})
	}
}

func TestCompletionCommand_Help(t *testing.T) {
	cmd := newCompletionCmd()
	cmd.SetArgs([]string{"--help"})

	output := &bytes.Buffer{}
	cmd.SetOut(output)

	err := cmd.Execute()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	help := output.String()

	expectedStrings := []string{
		"Generate shell completion scripts",
		"bash",
		"zsh",
		"fish",
		"powershell",
		"Bash:",
		"Zsh:",
		"Fish:",
		"PowerShell:",
	}

	for _, want := range expectedStrings {
		if !strings.Contains(help, want) {
			t.Errorf("expected help to contain %q", want)
		}
	}
}
