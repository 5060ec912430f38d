package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/covpare/pare/internal/diagnostics"
	"github.com/covpare/pare/internal/store"
)

var (
	retrieveDBFlag          string
	retrievePFlag           float64
	retrieveTopTokensFlag   int
	retrievePathRewriteFlag []string
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve-smallest-benches",
	Short: "Print the smallest benchmark exercising each to-be-removed function",
	Long: `retrieve-smallest-benches reads the decision table for the given threshold
and, for every function marked unused, prints the smallest benchmarks (by
whitespace-token count of their non-set-info content) whose usage bitmap has
that function's bit set. Useful for building a minimal reproduction corpus
before committing to a removal.`,
	RunE: runRetrieve,
}

func init() {
	rootCmd.AddCommand(retrieveCmd)
	retrieveCmd.Flags().StringVar(&retrieveDBFlag, "db", "", "Store produced by a coverage run")
	retrieveCmd.Flags().Float64VarP(&retrievePFlag, "threshold", "p", 0, "Confidence threshold selecting the decision table")
	retrieveCmd.Flags().IntVar(&retrieveTopTokensFlag, "top-tokens", 1, "How many smallest benchmarks to list per function")
	retrieveCmd.Flags().StringSliceVar(&retrievePathRewriteFlag, "path-rewrite", nil, "FROM,TO prefix pair mapping recorded benchmark paths to real locations")
	retrieveCmd.MarkFlagRequired("db")
	retrieveCmd.MarkFlagRequired("threshold")
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	rewrite, err := pathRewriter(retrievePathRewriteFlag)
	if err != nil {
		return err
	}

	st, err := store.OpenForRead(retrieveDBFlag)
	if err != nil {
		return err
	}
	defer st.Close()

	results, err := diagnostics.SmallestBenches(st, retrievePFlag, retrieveTopTokensFlag, rewrite)
	if err != nil {
		return err
	}

	for _, r := range results {
		if len(r.Benches) == 0 {
			fmt.Printf("%s (%s): no benchmark exercised it\n", r.Name, r.SourcePath)
			continue
		}
		for _, b := range r.Benches {
			fmt.Printf("%s (%s): bench %d %s (%d tokens)\n", r.Name, r.SourcePath, b.BenchmarkID, b.Path, b.Tokens)
		}
	}
	return nil
}
