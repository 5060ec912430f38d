package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/covpare/pare/internal/runner"
	"github.com/covpare/pare/internal/scheduler"
	"github.com/covpare/pare/internal/store"
)

var (
	evalIDFlag    string
	evalExecFlag  string
	evalJobsFlag  int
	evalQuietFlag bool
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <result.db>",
	Short: "Re-run the binary over a store's benchmarks and record fresh timings",
	Long: `evaluate opens an existing store and runs the exec template against every
benchmark already recorded in it — no coverage collection, just exit codes
and wall-clock timings — appending the results to a new
evaluation_benchmarks_<tag>_<millis> table. Re-running after source edits
lets the same store accumulate comparable timing runs across revisions.`,
	Args: cobra.ExactArgs(1),
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
	evaluateCmd.Flags().StringVar(&evalIDFlag, "id", "", "Tag for the evaluation table (default: generated)")
	evaluateCmd.Flags().StringVar(&evalExecFlag, "exec", "", "Override the exec template recorded in the store")
	evaluateCmd.Flags().IntVarP(&evalJobsFlag, "jobs", "j", 1, "Number of parallel runner workers")
	evaluateCmd.Flags().BoolVarP(&evalQuietFlag, "quiet", "q", false, "Disable the progress bar")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	st, err := store.OpenForReadWrite(args[0])
	if err != nil {
		return err
	}
	defer st.Close()

	execStr := evalExecFlag
	if execStr == "" {
		stored, ok, err := st.GetConfig("exec")
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("store %s records no exec template; pass --exec", args[0])
		}
		execStr = stored
	}
	tmpl, err := runner.ParseTemplate(execStr)
	if err != nil {
		return err
	}

	benches, err := st.ListBenchmarks()
	if err != nil {
		return err
	}
	if len(benches) == 0 {
		return fmt.Errorf("store %s holds no benchmarks", args[0])
	}

	tag := evalIDFlag
	if tag == "" {
		tag = shortTag()
	}
	table, err := st.CreateEvaluationTable(tag, time.Now().UnixMilli())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	noPrefix := func(int64) string { return "" }
	sched := scheduler.New(runner.New(tmpl, noPrefix), nil, st, noPrefix, evalJobsFlag, 100)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		<-sigChan
		fmt.Println("\nInterrupted! Finishing in-flight benchmarks...")
		sched.Cancel()
	}()

	statusCh := sched.SubscribeStatus("cli")
	go runProgressBar(statusCh, len(benches), evalQuietFlag || verbose)
	defer sched.UnsubscribeStatus("cli")

	// Empty target path: results land directly in the on-disk store via the
	// read-write attachment; there is nothing to materialize.
	if err := sched.Run(ctx, benches, table, ""); err != nil {
		return err
	}

	if !evalQuietFlag {
		fmt.Printf("✓ %d benchmarks evaluated into %s\n", len(benches), table)
	}
	return nil
}
