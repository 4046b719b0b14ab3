package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pkgmeta/pkg/versiontag"
)

// tagCommand creates the tag command, a debugging aid that shows which tag
// the version tag selector picks from a list.
func (c *CLI) tagCommand() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "tag <tag>...",
		Short: "Show which version tag would be selected from a list",
		Example: `  pkgmeta tag trunk tip core-8-6-13 core-8-6-9 core-9-0-0
  git ls-remote --tags --refs origin | cut -d/ -f3 | xargs pkgmeta tag --all`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			selected := versiontag.Select(args)
			if selected == "" {
				return fmt.Errorf("no version tag among %d candidates", len(args))
			}
			if !all {
				fmt.Fprintln(c.out, selected)
				return nil
			}

			candidates := versiontag.Filter(args)
			sort.Slice(candidates, func(i, j int) bool {
				return versiontag.Compare(candidates[i], candidates[j]) > 0
			})
			printKeyValue(c.out, "selected", selected)
			printKeyValue(c.out, "candidates", strings.Join(candidates, " "))
			if skipped := len(args) - len(candidates); skipped > 0 {
				printDetail(c.out, "%d tags skipped", skipped)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "also list the ranked candidates")
	return cmd
}
