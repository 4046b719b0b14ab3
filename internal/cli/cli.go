// Package cli implements the pkgmeta command-line interface.
package cli

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pkgmeta/pkg/buildinfo"
	"github.com/matzehuels/pkgmeta/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for display and config lookup.
	appName = "pkgmeta"

	// defaultConfigFile is read when --config is not given and the file exists.
	defaultConfigFile = appName + ".toml"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// out receives operator-facing summaries.
	out io.Writer
}

// New creates a new CLI instance. Logs go to w; summaries go to stdout.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level), out: stdout}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// SetOutput redirects operator-facing summaries.
func (c *CLI) SetOutput(w io.Writer) {
	c.out = w
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   appName,
		Short: "pkgmeta enriches a package registry with upstream repository metadata",
		Long: `pkgmeta reads a curated package registry, probes every source repository
(GitHub, Fossil or any Git remote) for reachability, archival state, releases,
recent commits and version tags, and writes a versioned metadata artifact.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				c.SetLogLevel(LogDebug)
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(c.updateCommand())
	root.AddCommand(c.tagCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner() *pipeline.Runner {
	return pipeline.NewRunner(c.Logger)
}
