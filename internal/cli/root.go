// Package cli wires the pare commands: the coverage pipeline (coverage,
// evaluate), the removal engine (remove), and the store diagnostics
// (visualize-function-ranges, retrieve-smallest-benches).
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var verbose bool

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pare",
	Short: "Coverage-driven dead function removal for instrumented native solvers",
	Long: `pare measures which functions and source lines of a coverage-instrumented
binary are exercised by each input in a benchmark corpus, persists the
resulting usage matrix into a single SQLite store, and later rewrites the
source tree in place, replacing the bodies of functions no benchmark needs.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(); exit code 1 signals a fatal
// initialization or I/O failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.SetEnvPrefix("PARE")
	viper.AutomaticEnv()
}
