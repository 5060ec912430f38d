package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/covpare/pare/internal/removal"
	"github.com/covpare/pare/internal/removeconfig"
	"github.com/covpare/pare/internal/store"
)

var (
	removeConfigFlag   string
	removeNoChangeFlag bool
)

var removeCmd = &cobra.Command{
	Use:   "remove",
	Short: "Rewrite unused function bodies in place, driven by a decision table",
	Long: `remove reads the optimization decision table selected by the configured
threshold p, locates each function marked unused through the boundary
detector, and replaces its body with the configured placeholder. Pass
--no-change to echo the rewritten files to stdout instead of editing them.`,
	RunE: runRemove,
}

func init() {
	rootCmd.AddCommand(removeCmd)
	removeCmd.Flags().StringVar(&removeConfigFlag, "config", "", "TOML configuration file")
	removeCmd.Flags().BoolVar(&removeNoChangeFlag, "no-change", false, "Dry run: echo results to stdout, leave sources untouched")
	removeCmd.MarkFlagRequired("config")
}

func runRemove(cmd *cobra.Command, args []string) error {
	cfg, err := removeconfig.Load(removeConfigFlag)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("no-change") {
		cfg.NoChange = removeNoChangeFlag
	}

	st, err := store.OpenForRead(cfg.DB)
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := removal.NewEngine(cfg, st).Run()
	if err != nil {
		return err
	}

	printRemovalSummary(stats)
	return nil
}

func printRemovalSummary(stats *removal.RunStats) {
	fmt.Printf("✓ Removed %d functions (%d lines), %d reported functions missed\n",
		stats.FunctionsRemoved, stats.LinesRemoved, stats.FunctionsMissed)

	if stats.FunctionsMissed == 0 {
		return
	}
	paths := make([]string, 0, len(stats.PerFile))
	for p := range stats.PerFile {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		fs := stats.PerFile[p]
		if len(fs.Missed) == 0 {
			continue
		}
		fmt.Printf("  %s: missed %v\n", p, fs.Missed)
	}
}
