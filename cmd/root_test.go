package cmd

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestSetVersion(t *testing.T) {
	testVersion := "1.2.3-test"
	SetVersion(testVersion)

	if rootCmd.Version != testVersion {
		t.Errorf("Expected version to be %s, got %s", testVersion, rootCmd.Version)
	}
}

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "chi-tui" {
		t.Errorf("Expected Use to be 'chi-tui', got %s", rootCmd.Use)
	}
	if rootCmd.Short == "" {
		t.Error("Expected Short description to be set")
	}
	if rootCmd.Long == "" {
		t.Error("Expected Long description to be set")
	}
	if !rootCmd.SilenceUsage {
		t.Error("Expected SilenceUsage to be true")
	}
	// Persistent flags only merge into Flags() when a command executes.
	for _, name := range []string{"config-dir", "debug"} {
		if rootCmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("Expected persistent flag --%s on the root command", name)
		}
	}
	for _, name := range []string{"headless", "ticks", "headless-enter-id", "smoke-summary", "options-ttl-sec", "tick-ms"} {
		if rootCmd.Flags().Lookup(name) == nil {
			t.Errorf("Expected flag --%s on the root command", name)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	SetVersion("1.0.0")
	var buf bytes.Buffer
	c := newVersionCmd()
	c.SetOut(&buf)
	c.SetArgs(nil)
	if err := c.Execute(); err != nil {
		t.Fatalf("Error executing version command: %v", err)
	}
	if got := buf.String(); got != "chi-tui version 1.0.0\n" {
		t.Errorf("Expected version output %q, got %q", "chi-tui version 1.0.0\n", got)
	}
}

func TestSubcommands(t *testing.T) {
	found := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		found[c.Name()] = true
	}
	for _, expected := range []string{"version", "validate", "watchdog"} {
		if !found[expected] {
			t.Errorf("Expected subcommand %s to be registered", expected)
		}
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "chi-index.yaml"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CHI_TUI_CONFIG_DIR", dir)
	return dir
}

func TestValidateCommand(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		wantErr bool
		want    []string
	}{
		{
			name: "valid",
			config: `header: Demo
menu:
  - id: hello
    title: Hello
    command: echo hi
  - id: docs
    widget: markdown
    content: "# Docs"
`,
			want: []string{"ok (2 menu items, 0 tabs)"},
		},
		{
			name: "duplicate ids and missing sources",
			config: `menu:
  - id: a
    command: echo a
  - id: a
    widget: markdown
`,
			wantErr: true,
			want:    []string{"problem(s)", "  - "},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writeConfig(t, tt.config)
			var out bytes.Buffer
			c := newValidateCmd()
			c.SetOut(&out)
			c.SetErr(&out)
			c.SetArgs(nil)

			err := c.Execute()
			if tt.wantErr && err == nil {
				t.Fatalf("Expected an error, output: %s", out.String())
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(out.String(), w) {
					t.Errorf("Output should contain %q. Got: %q", w, out.String())
				}
			}
		})
	}
}

func TestWatchdogFlagsToItem(t *testing.T) {
	var f watchdogFlags
	c := newWatchdogCmd()
	if err := c.ParseFlags([]string{
		"--cmd", "make build", "--cmd", "make test",
		"--sequential", "--max-retries", "3",
		"--allowed-exit-code", "0", "--allowed-exit-code", "2",
		"--stats", "errors=ERROR",
	}); err != nil {
		t.Fatal(err)
	}
	f.commands, _ = c.Flags().GetStringArray("cmd")
	f.sequential, _ = c.Flags().GetBool("sequential")
	f.maxRetries, _ = c.Flags().GetInt("max-retries")
	f.allowedCodes, _ = c.Flags().GetIntSlice("allowed-exit-code")
	f.stats, _ = c.Flags().GetStringArray("stats")

	item, err := f.item(c)
	if err != nil {
		t.Fatal(err)
	}
	if len(item.Commands) != 2 || !item.Sequential || item.MaxRetries != 3 {
		t.Errorf("Unexpected item: %+v", item)
	}
	if len(item.AllowedExitCodes) != 2 || item.AllowedExitCodes[1] != 2 {
		t.Errorf("Expected allowed exit codes [0 2], got %v", item.AllowedExitCodes)
	}
	if len(item.Stats) != 1 || item.Stats[0].Label != "errors" {
		t.Errorf("Expected one stats pattern, got %v", item.Stats)
	}

	if _, err := (watchdogFlags{stats: []string{"broken"}, commands: []string{"x"}}).item(c); err == nil {
		t.Error("Expected an error for a malformed --stats value")
	}
	if _, err := (watchdogFlags{}).item(&cobra.Command{}); err == nil {
		t.Error("Expected an error without --cmd")
	}
}

func TestRootHeadlessSmokeSummary(t *testing.T) {
	writeConfig(t, `header: Smoke
menu:
  - id: docs
    title: Docs
    widget: markdown
    content: "# Hello"
`)
	var out bytes.Buffer
	c := &cobra.Command{Use: "chi-tui", RunE: runRoot, SilenceUsage: true}
	addRunFlags(c)
	c.PersistentFlags().Bool("debug", false, "")
	c.SetOut(&out)
	c.SetErr(&bytes.Buffer{})
	c.SetArgs([]string{"--headless", "--ticks", "2", "--tick-ms", "1", "--smoke-summary", "--headless-enter-id", "docs"})

	if err := c.Execute(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	got := out.String()
	for _, want := range []string{`"ok":true`, `"enter_done":true`, `"view":"Markdown"`, "Smoke"} {
		if !strings.Contains(got, want) {
			t.Errorf("Output should contain %q. Got: %q", want, got)
		}
	}
}

func TestWatchdogCommand(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	tests := []struct {
		name    string
		args    []string
		wantErr error
		want    []string
	}{
		{
			name: "sequential success",
			args: []string{"--cmd", "echo first", "--cmd", "echo second", "--sequential", "--stats", "lines=^(first|second)$"},
			want: []string{"[1] first", "[2] second", "Succeeded", "lines=2"},
		},
		{
			name:    "failure without retries panics",
			args:    []string{"--cmd", "exit 3"},
			wantErr: errWatchdogFailed,
			want:    []string{"[1] [failed] exit code 3", "Panicked"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			c := newWatchdogCmd()
			c.SetOut(&out)
			c.SetErr(&bytes.Buffer{})
			c.SetArgs(append(tt.args, "--tick-ms", "5"))
			c.Flags().Int("tick-ms", 5, "")
			c.Flags().Bool("debug", false, "")

			err := c.Execute()
			if tt.wantErr == nil && err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("Expected %v, got %v", tt.wantErr, err)
			}
			for _, w := range tt.want {
				if !strings.Contains(out.String(), w) {
					t.Errorf("Output should contain %q. Got: %q", w, out.String())
				}
			}
		})
	}
}
