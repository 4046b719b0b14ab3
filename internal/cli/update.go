package cli

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/matzehuels/pkgmeta/pkg/observability"
	"github.com/matzehuels/pkgmeta/pkg/pipeline"
)

// updateFlags holds the command-line flags for the update command.
// Flags that were set explicitly override the configuration file.
type updateFlags struct {
	config       string
	envFile      string
	input        string
	output       string
	commits      int
	workers      int
	maxClones    int
	timeout      time.Duration
	cloneTimeout time.Duration
	runTimeout   time.Duration
	tempDir      string
	dryRun       bool
	unversioned  bool
}

// updateCommand creates the update command, which runs the enrichment pipeline.
func (c *CLI) updateCommand() *cobra.Command {
	var flags updateFlags

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Enrich the registry and write the metadata artifact",
		Long: `Update probes every source in the registry, collects archival state,
releases, recent commits and the latest version tag, and writes the metadata
artifact. The artifact's version is bumped only when its package data changed.

Individual source failures are recorded in the artifact and do not fail the
command; only an unreadable registry or an unwritable artifact does.`,
		Example: `  # Enrich packages.json into metadata/packages-meta.json
  pkgmeta update

  # Preview without writing, with a hard limit on the whole run
  pkgmeta update --dry-run --run-timeout 5m`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(cmd.Flags())
			if err != nil {
				return err
			}
			return c.runUpdate(cmd.Context(), opts)
		},
	}

	flags.register(cmd.Flags())

	return cmd
}

// register binds the flags to fs with their pipeline defaults.
func (f *updateFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.config, "config", "", "configuration file (default "+defaultConfigFile+" if present)")
	fs.StringVar(&f.envFile, "env-file", ".env", "dotenv file with GITHUB_TOKEN and friends")
	fs.StringVarP(&f.input, "input", "i", pipeline.DefaultInputPath, "registry file")
	fs.StringVarP(&f.output, "output", "o", pipeline.DefaultOutputPath, "metadata artifact")
	fs.IntVarP(&f.commits, "commits", "n", pipeline.DefaultCommits, "recent commits recorded per source")
	fs.IntVar(&f.workers, "workers", pipeline.DefaultWorkers, "sources resolved in parallel")
	fs.IntVar(&f.maxClones, "max-clones", pipeline.DefaultMaxClones, "concurrent git clones")
	fs.DurationVar(&f.timeout, "timeout", pipeline.DefaultTimeout, "timeout per HTTP request or git command")
	fs.DurationVar(&f.cloneTimeout, "clone-timeout", pipeline.DefaultCloneTimeout, "timeout per git clone")
	fs.DurationVar(&f.runTimeout, "run-timeout", 0, "cancel unfinished sources after this long (0 = no limit)")
	fs.StringVar(&f.tempDir, "temp-dir", "", "scratch directory for clones (default $TMPDIR)")
	fs.BoolVar(&f.dryRun, "dry-run", false, "resolve and compare, but do not write the artifact")
	fs.BoolVar(&f.unversioned, "unversioned", false, "always rewrite the artifact and skip version bookkeeping")
}

// options merges the config file, the dotenv file and explicitly set flags.
func (f *updateFlags) options(fs *pflag.FlagSet) (pipeline.Options, error) {
	var opts pipeline.Options

	if err := loadDotEnv(f.envFile); err != nil {
		return opts, err
	}
	cfg, err := loadConfig(f.config)
	if err != nil {
		return opts, err
	}
	if err := cfg.apply(&opts); err != nil {
		return opts, err
	}

	changed := fs.Changed
	if changed("input") || opts.InputPath == "" {
		opts.InputPath = f.input
	}
	if changed("output") || opts.OutputPath == "" {
		opts.OutputPath = f.output
	}
	if changed("commits") || opts.Commits == 0 {
		opts.Commits = f.commits
	}
	if changed("workers") || opts.Workers == 0 {
		opts.Workers = f.workers
	}
	if changed("max-clones") || opts.MaxClones == 0 {
		opts.MaxClones = f.maxClones
	}
	if changed("timeout") || opts.Timeout == 0 {
		opts.Timeout = f.timeout
	}
	if changed("clone-timeout") || opts.CloneTimeout == 0 {
		opts.CloneTimeout = f.cloneTimeout
	}
	if changed("run-timeout") {
		opts.RunTimeout = f.runTimeout
	}
	if changed("temp-dir") {
		opts.TempDir = f.tempDir
	}
	opts.DryRun = f.dryRun
	opts.Unversioned = f.unversioned
	opts.GitHubToken = githubToken()

	return opts, nil
}

// runUpdate executes the pipeline and prints the run summary.
func (c *CLI) runUpdate(ctx context.Context, opts pipeline.Options) error {
	logger := loggerFromContext(ctx)
	opts.Logger = logger

	counter := observability.NewCounter()
	opts.Hooks = observability.Hooks{Resolver: counter, Cache: counter, HTTP: counter}

	if opts.GitHubToken == "" {
		logger.Warn("GITHUB_TOKEN not set, GitHub API requests are rate limited")
	}

	prog := newProgress(logger)
	result, err := c.newRunner().Execute(ctx, opts)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Enriched %d packages", result.Stats.Packages))

	c.printSummary(opts, result, counter)
	return nil
}

func (c *CLI) printSummary(opts pipeline.Options, result *pipeline.Result, counter *observability.Counter) {
	d := result.Decision
	switch {
	case opts.DryRun && d.Changed:
		printInfo(c.out, "Dry run: artifact would be written as version %d", d.Version)
	case opts.DryRun:
		printInfo(c.out, "Dry run: artifact unchanged at version %d", d.Version)
	case d.Written && opts.Unversioned:
		printSuccess(c.out, "Wrote unversioned artifact")
	case d.Written:
		printSuccess(c.out, "Wrote artifact version %d", d.Version)
	default:
		printSuccess(c.out, "Artifact unchanged, kept version %d", d.Version)
	}
	if d.Written {
		printFile(c.out, opts.OutputPath)
	}

	s := result.Stats
	printStats(c.out, []stat{
		{n: s.Packages, label: "packages"},
		{n: s.Sources, label: "sources"},
		{n: s.Unreachable, label: "unreachable", omitZero: true},
		{n: s.Errors, label: "errors", omitZero: true},
		{n: s.Cancelled, label: "cancelled", omitZero: true},
		{n: s.Skipped, label: "skipped", omitZero: true},
		{n: counter.TotalRequests(), label: "requests"},
	}, d.Changed)
	printDetail(c.out, "run %s in %s", result.RunID, s.Duration.Round(time.Millisecond))

	if s.Cancelled > 0 {
		printWarning(c.out, "%d sources did not finish before the run timeout", s.Cancelled)
	}
	hosts := make([]string, 0, len(result.Breakers))
	for host, state := range result.Breakers {
		if state == "open" {
			hosts = append(hosts, host)
		}
	}
	sort.Strings(hosts)
	for _, host := range hosts {
		printError(c.out, "circuit open for %s", host)
	}
}
