package cli

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/covpare/pare/internal/benchset"
	"github.com/covpare/pare/internal/coverreader"
	"github.com/covpare/pare/internal/runner"
	"github.com/covpare/pare/internal/scheduler"
	"github.com/covpare/pare/internal/store"
)

var (
	repoFlag         string
	jobsFlag         int
	execFlag         string
	benchmarksFlag   string
	usePrefixesFlag  bool
	noIgnoreLibsFlag bool
	tmpDirFlag       string
	trackAllFlag     bool
	kindsFlag        string
	quietFlag        bool
)

var coverageCmd = &cobra.Command{
	Use:   "coverage <result.db>",
	Short: "Run every benchmark against the instrumented binary and record coverage",
	Long: `coverage executes the instrumented binary once per benchmark, collects the
.gcda artifacts each run produces, and aggregates per-function and per-line
usage into a new SQLite store. The store is built in memory and written to
<result.db> atomically at the end; the target path must not already exist.

Examples:
  # 16 parallel workers, isolated coverage prefixes per benchmark
  pare coverage --repo ~/solver -j 16 --exec "./solver --tlimit 10 {}" \
      --benchmarks "corpus/**.smt2" --use-prefixes result.db

  # functions only, keeping zero-usage rows
  pare coverage --repo ~/solver --exec "./solver {}" \
      --benchmarks "corpus/*.smt2" -k functions --track-all result.db
`,
	Args: cobra.ExactArgs(1),
	RunE: runCoverage,
}

func init() {
	rootCmd.AddCommand(coverageCmd)
	coverageCmd.Flags().StringVar(&repoFlag, "repo", ".", "Build tree of the instrumented binary (source of .gcno companions)")
	coverageCmd.Flags().IntVarP(&jobsFlag, "jobs", "j", 1, "Number of parallel runner workers")
	coverageCmd.Flags().StringVar(&execFlag, "exec", "", "Command template with {} as the benchmark path placeholder")
	coverageCmd.Flags().StringVar(&benchmarksFlag, "benchmarks", "", "Glob pattern selecting the benchmark corpus")
	coverageCmd.Flags().BoolVar(&usePrefixesFlag, "use-prefixes", false, "Give each benchmark an isolated coverage output directory (required for -j > 1)")
	coverageCmd.Flags().BoolVar(&noIgnoreLibsFlag, "no-ignore-libs", false, "Keep coverage for system headers and library paths")
	coverageCmd.Flags().StringVar(&tmpDirFlag, "tmp-dir", "", "Directory for per-benchmark prefix directories (default: system temp)")
	coverageCmd.Flags().BoolVar(&trackAllFlag, "track-all", false, "Record functions and lines with zero usage as well")
	coverageCmd.Flags().StringVarP(&kindsFlag, "kinds", "k", "functions,lines", "Coverage kinds to persist (functions,lines,branches)")
	coverageCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "Disable the progress bar")
	coverageCmd.MarkFlagRequired("exec")
	coverageCmd.MarkFlagRequired("benchmarks")
}

func runCoverage(cmd *cobra.Command, args []string) error {
	resultPath := args[0]

	kinds, err := parseKinds(kindsFlag)
	if err != nil {
		return err
	}
	tmpl, err := runner.ParseTemplate(execFlag)
	if err != nil {
		return err
	}

	paths, err := benchset.Discover(benchmarksFlag)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no benchmarks match %q", benchmarksFlag)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	st, err := store.OpenForIngest(resultPath)
	if err != nil {
		return err
	}
	defer st.Close()

	prefixOfPath, cleanupPrefixes, err := setupPrefixes(usePrefixesFlag, tmpDirFlag, paths)
	if err != nil {
		return err
	}
	defer cleanupPrefixes()

	benches, err := st.InsertBenchmarks(paths, prefixOfPath)
	if err != nil {
		return err
	}
	prefixByID := make(map[int64]string, len(benches))
	for _, b := range benches {
		prefixByID[b.ID] = b.Prefix
	}
	prefixOf := func(id int64) string { return prefixByID[id] }

	err = st.SetConfigBatch(map[string]string{
		"args":         strings.Join(os.Args, " "),
		"git_head":     gitHead(repoFlag),
		"exec":         execFlag,
		"kinds":        kindsFlag,
		"benchmarks":   benchmarksFlag,
		"use_prefixes": fmt.Sprintf("%t", usePrefixesFlag),
	})
	if err != nil {
		return err
	}

	table, err := st.CreateResultTable(shortTag())
	if err != nil {
		return err
	}

	reader := &coverreader.Reader{
		ToolPath: "gcov",
		ToolArgs: []string{"--json-format", "--stdout"},
		BuildDir: repoFlag,
	}
	if noIgnoreLibsFlag {
		reader.IgnorePrefixes = []string{}
	}
	if err := reader.CheckToolAvailable(ctx); err != nil {
		return err
	}

	sched := scheduler.New(runner.New(tmpl, prefixOf), reader, st, prefixOf, jobsFlag, 100)
	sched.SetTracking(kinds.Functions, kinds.Lines, trackAllFlag)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		<-sigChan
		fmt.Println("\nInterrupted! Finishing in-flight benchmarks, discarding partial store...")
		sched.Cancel()
	}()

	statusCh := sched.SubscribeStatus("cli")
	go runProgressBar(statusCh, len(benches), quietFlag || verbose)
	defer sched.UnsubscribeStatus("cli")

	if err := sched.Run(ctx, benches, table, resultPath); err != nil {
		return err
	}

	if !quietFlag {
		fmt.Printf("✓ Coverage for %d benchmarks written to %s\n", len(benches), resultPath)
	}
	return nil
}

// setupPrefixes allocates one isolated coverage-output directory per
// benchmark when enabled. The returned cleanup removes whatever the workers
// have not already deleted.
func setupPrefixes(enabled bool, tmpDir string, paths []string) (prefixOf func(string) string, cleanup func(), err error) {
	if !enabled {
		return func(string) string { return "" }, func() {}, nil
	}

	base, err := os.MkdirTemp(tmpDir, "pare-prefixes-")
	if err != nil {
		return nil, nil, fmt.Errorf("create prefix base dir: %w", err)
	}

	prefixes := make(map[string]string, len(paths))
	for i, p := range paths {
		prefixes[p] = filepath.Join(base, fmt.Sprintf("bench-%d", i+1))
	}
	return func(p string) string { return prefixes[p] }, func() { os.RemoveAll(base) }, nil
}

// gitHead records the build tree's HEAD commit into the store config; best
// effort, empty on failure (the repo may not be a git checkout at all).
func gitHead(repo string) string {
	out, err := exec.Command("git", "-C", repo, "rev-parse", "HEAD").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// shortTag derives a fresh result-table tag from a UUID fragment.
func shortTag() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}
