package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/matzehuels/pkgmeta/pkg/pipeline"
)

// fileConfig is the layout of pkgmeta.toml. Durations use time.ParseDuration
// syntax ("15s", "2m").
//
//	input   = "packages.json"
//	output  = "metadata/packages-meta.json"
//	commits = 5
//	workers = 8
//	timeout = "15s"
//
//	[mirrors]
//	"https://core.tcl-lang.org/tklib" = "https://github.com/tcltk/tklib"
type fileConfig struct {
	Input         string            `toml:"input"`
	Output        string            `toml:"output"`
	Commits       int               `toml:"commits"`
	Workers       int               `toml:"workers"`
	MaxClones     int               `toml:"max_clones"`
	Timeout       string            `toml:"timeout"`
	CloneTimeout  string            `toml:"clone_timeout"`
	RunTimeout    string            `toml:"run_timeout"`
	TempDir       string            `toml:"temp_dir"`
	UserAgent     string            `toml:"user_agent"`
	GitHubBaseURL string            `toml:"github_base_url"`
	Mirrors       map[string]string `toml:"mirrors"`
}

// loadConfig reads the configuration file at path. When path is empty the
// default file is tried and may be absent; an explicitly named file must exist.
func loadConfig(path string) (*fileConfig, error) {
	explicit := path != ""
	if !explicit {
		path = defaultConfigFile
	}

	var cfg fileConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return &fileConfig{}, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return &cfg, nil
}

// apply copies the file settings into opts.
func (c *fileConfig) apply(opts *pipeline.Options) error {
	opts.InputPath = c.Input
	opts.OutputPath = c.Output
	opts.Commits = c.Commits
	opts.Workers = c.Workers
	opts.MaxClones = c.MaxClones
	opts.TempDir = c.TempDir
	opts.UserAgent = c.UserAgent
	opts.GitHubBaseURL = c.GitHubBaseURL
	if len(c.Mirrors) > 0 {
		opts.Mirrors = make(map[string]string, len(c.Mirrors))
		for k, v := range c.Mirrors {
			opts.Mirrors[strings.TrimRight(k, "/")] = v
		}
	}

	for _, d := range []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"timeout", c.Timeout, &opts.Timeout},
		{"clone_timeout", c.CloneTimeout, &opts.CloneTimeout},
		{"run_timeout", c.RunTimeout, &opts.RunTimeout},
	} {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("config %s: %w", d.key, err)
		}
		*d.dst = v
	}
	return nil
}

// loadDotEnv loads a .env file from the working directory, if present.
// Variables already set in the environment win.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// githubToken returns the API token from the environment.
func githubToken() string {
	return strings.TrimSpace(os.Getenv("GITHUB_TOKEN"))
}
