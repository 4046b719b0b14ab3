package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"

	"github.com/matzehuels/pkgmeta/pkg/pipeline"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const fullConfig = `
input         = "registry/packages.json"
output        = "out/meta.json"
commits       = 3
workers       = 4
max_clones    = 1
timeout       = "5s"
clone_timeout = "2m"
run_timeout   = "10m"
temp_dir      = "/var/tmp/pkgmeta"
user_agent    = "pkgmeta-ci"

[mirrors]
"https://core.tcl-lang.org/tklib/" = "https://github.com/tcltk/tklib"
`

func TestLoadConfig(t *testing.T) {
	path := writeFile(t, t.TempDir(), "pkgmeta.toml", fullConfig)

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	var opts pipeline.Options
	if err := cfg.apply(&opts); err != nil {
		t.Fatalf("apply() error: %v", err)
	}

	if opts.InputPath != "registry/packages.json" || opts.OutputPath != "out/meta.json" {
		t.Errorf("paths = %q, %q", opts.InputPath, opts.OutputPath)
	}
	if opts.Commits != 3 || opts.Workers != 4 || opts.MaxClones != 1 {
		t.Errorf("limits = %d/%d/%d", opts.Commits, opts.Workers, opts.MaxClones)
	}
	if opts.Timeout != 5*time.Second || opts.CloneTimeout != 2*time.Minute || opts.RunTimeout != 10*time.Minute {
		t.Errorf("timeouts = %v/%v/%v", opts.Timeout, opts.CloneTimeout, opts.RunTimeout)
	}
	if opts.TempDir != "/var/tmp/pkgmeta" || opts.UserAgent != "pkgmeta-ci" {
		t.Errorf("temp dir = %q, user agent = %q", opts.TempDir, opts.UserAgent)
	}
	want := map[string]string{"https://core.tcl-lang.org/tklib": "https://github.com/tcltk/tklib"}
	if diff := cmp.Diff(want, opts.Mirrors); diff != "" {
		t.Errorf("mirrors mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"unknown key", "workerz = 3\n", "unknown keys: workerz"},
		{"bad syntax", "workers = \n", "read config"},
		{"wrong type", "workers = \"eight\"\n", "read config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, strings.ReplaceAll(tt.name, " ", "_")+".toml", tt.content)
			_, err := loadConfig(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("loadConfig() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestApplyBadDuration(t *testing.T) {
	cfg := &fileConfig{CloneTimeout: "forever"}
	var opts pipeline.Options
	err := cfg.apply(&opts)
	if err == nil || !strings.Contains(err.Error(), "clone_timeout") {
		t.Errorf("apply() error = %v, want clone_timeout error", err)
	}
}

func TestLoadConfigMissing(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("missing default config should be ignored, got %v", err)
	}
	if diff := cmp.Diff(&fileConfig{}, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}

	if _, err := loadConfig("elsewhere.toml"); err == nil {
		t.Error("missing explicit config should fail")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("GITHUB_TOKEN", "")
	os.Unsetenv("GITHUB_TOKEN")

	path := writeFile(t, dir, ".env", "GITHUB_TOKEN=ghp_from_dotenv\n")
	if err := loadDotEnv(path); err != nil {
		t.Fatalf("loadDotEnv() error: %v", err)
	}
	if got := githubToken(); got != "ghp_from_dotenv" {
		t.Errorf("githubToken() = %q", got)
	}

	if err := loadDotEnv(filepath.Join(dir, "absent.env")); err != nil {
		t.Errorf("absent dotenv file should be ignored, got %v", err)
	}
}

func TestLoadDotEnvKeepsEnvironment(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "ghp_from_env")
	path := writeFile(t, t.TempDir(), ".env", "GITHUB_TOKEN=ghp_from_dotenv\n")

	if err := loadDotEnv(path); err != nil {
		t.Fatal(err)
	}
	if got := githubToken(); got != "ghp_from_env" {
		t.Errorf("githubToken() = %q, want environment value", got)
	}
}

func TestUpdateFlagsOverrideConfig(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("GITHUB_TOKEN", "ghp_test")
	writeFile(t, dir, "pkgmeta.toml", fullConfig)

	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, opts pipeline.Options)
	}{
		{
			name: "config only",
			check: func(t *testing.T, opts pipeline.Options) {
				if opts.Workers != 4 || opts.Timeout != 5*time.Second || opts.InputPath != "registry/packages.json" {
					t.Errorf("config values not applied: %+v", opts)
				}
			},
		},
		{
			name: "flags win",
			args: []string{"--workers", "16", "--timeout", "30s", "-i", "other.json", "--run-timeout", "0"},
			check: func(t *testing.T, opts pipeline.Options) {
				if opts.Workers != 16 || opts.Timeout != 30*time.Second || opts.InputPath != "other.json" {
					t.Errorf("flags not applied: %+v", opts)
				}
				if opts.RunTimeout != 0 {
					t.Errorf("RunTimeout = %v, want 0", opts.RunTimeout)
				}
				if opts.Commits != 3 {
					t.Errorf("Commits = %d, want config value 3", opts.Commits)
				}
			},
		},
		{
			name: "switches",
			args: []string{"--dry-run", "--unversioned"},
			check: func(t *testing.T, opts pipeline.Options) {
				if !opts.DryRun || !opts.Unversioned {
					t.Errorf("DryRun = %v, Unversioned = %v", opts.DryRun, opts.Unversioned)
				}
				if opts.GitHubToken != "ghp_test" {
					t.Errorf("GitHubToken = %q", opts.GitHubToken)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f updateFlags
			fs := pflag.NewFlagSet("update", pflag.ContinueOnError)
			f.register(fs)
			if err := fs.Parse(tt.args); err != nil {
				t.Fatal(err)
			}
			opts, err := f.options(fs)
			if err != nil {
				t.Fatalf("options() error: %v", err)
			}
			tt.check(t, opts)
		})
	}
}

func TestUpdateFlagsDefaultsWithoutConfig(t *testing.T) {
	t.Chdir(t.TempDir())

	var f updateFlags
	fs := pflag.NewFlagSet("update", pflag.ContinueOnError)
	f.register(fs)
	if err := fs.Parse(nil); err != nil {
		t.Fatal(err)
	}
	opts, err := f.options(fs)
	if err != nil {
		t.Fatal(err)
	}

	if opts.InputPath != pipeline.DefaultInputPath || opts.OutputPath != pipeline.DefaultOutputPath {
		t.Errorf("paths = %q, %q", opts.InputPath, opts.OutputPath)
	}
	if opts.Commits != pipeline.DefaultCommits || opts.Workers != pipeline.DefaultWorkers || opts.MaxClones != pipeline.DefaultMaxClones {
		t.Errorf("limits = %d/%d/%d", opts.Commits, opts.Workers, opts.MaxClones)
	}
	if opts.Timeout != pipeline.DefaultTimeout || opts.CloneTimeout != pipeline.DefaultCloneTimeout {
		t.Errorf("timeouts = %v/%v", opts.Timeout, opts.CloneTimeout)
	}
}
