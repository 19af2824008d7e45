package main

import (
	"fmt"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nicad/filescan/lib"
	"github.com/spf13/cobra"
)

const (
	ExitSuccess  = 0
	ExitUsage    = 1
	ExitFatal    = 2
	ExitNonFatal = 3
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitUsage)
	}
}

var ignoreCase bool
var followSymlinks bool
var excludePatterns []string
var hashAlg string
var numWorkers int
var dirBatchSize int
var strategyName string
var outputFormat string
var quiet bool

var rootCmd = &cobra.Command{
	Use:   "filescan <pattern>",
	Short: "Scan files matching a glob pattern, with metadata and parallel content hashing",
	Long: "Discover every file matching a glob pattern (** crosses directory levels), " +
		"report size, timestamps, permissions and inode for each match, and hash file " +
		"content in parallel with bounded memory.",
	Args: cobra.ExactArgs(1),
	RunE: runRoot,
}

func init() {
	rootCmd.Flags().BoolVar(&ignoreCase, "ignore-case", false, "Match the pattern case-insensitively")
	rootCmd.Flags().BoolVar(&followSymlinks, "follow-symlinks", true, "Follow symlinks when probing metadata and descending directories")
	rootCmd.Flags().StringArrayVar(&excludePatterns, "exclude", nil, "Exclude pattern; a trailing / prunes whole directories (repeatable)")
	rootCmd.Flags().StringVar(&hashAlg, "hash", "sha256", "Content hash algorithm: sha256, xxhash, md5, none")
	rootCmd.Flags().IntVar(&numWorkers, "workers", runtime.NumCPU(), "Number of worker goroutines for hashing")
	rootCmd.Flags().IntVar(&dirBatchSize, "dir-batch-size", 4096, "Batch size for directory reads (entries per syscall)")
	rootCmd.Flags().StringVar(&strategyName, "strategy", "glob", "Traversal strategy: glob, walk")
	rootCmd.Flags().StringVar(&outputFormat, "format", "text", "Output format: text, table, json, yaml")
	rootCmd.Flags().BoolVar(&quiet, "quiet", false, "Suppress progress and summary output (for scripting)")
}

func parseStrategy(name string) (lib.Strategy, error) {
	switch name {
	case "glob":
		return lib.StrategyGlob, nil
	case "walk":
		return lib.StrategyParallelWalk, nil
	default:
		return lib.StrategyGlob, fmt.Errorf("unknown strategy: %s", name)
	}
}

func parseAlgorithm(name string) (string, error) {
	if name == "none" {
		return "", nil
	}
	if !lib.ValidAlgorithm(name) {
		return "", fmt.Errorf("unknown hash algorithm: %s", name)
	}
	return name, nil
}

func runRoot(cmd *cobra.Command, args []string) error {
	strategy, err := parseStrategy(strategyName)
	if err != nil {
		return err
	}
	algorithm, err := parseAlgorithm(hashAlg)
	if err != nil {
		return err
	}

	logger, err := lib.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(ExitFatal)
	}
	defer logger.Close()
	if !quiet {
		defer logger.PrintLogPaths()
	}
	logger.Log("scan started: " + args[0])

	opts := lib.DefaultOptions(args[0])
	opts.IgnoreCase = ignoreCase
	opts.FollowSymlinks = followSymlinks
	opts.Exclude = excludePatterns
	opts.Algorithm = algorithm
	opts.Strategy = strategy
	opts.Workers = numWorkers
	opts.DirBatchSize = dirBatchSize

	var doneCh chan struct{}
	if !quiet && lib.IsTTY(os.Stderr) && algorithm != "" {
		opts.Progress = &lib.ProgressCounts{}
		opts.Utilization = lib.NewWorkerUtilization(numWorkers, 10)
		doneCh = make(chan struct{})
		go progressLoop(opts.Progress, opts.Utilization, doneCh)
	}
	result, err := lib.Scan(opts)
	if doneCh != nil {
		close(doneCh)
		fmt.Fprintln(os.Stderr, "")
	}
	if err != nil {
		logger.LogError(err)
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(ExitFatal)
	}
	logger.Log(fmt.Sprintf("scan finished: %d rows", len(result.Records)))

	switch outputFormat {
	case "table":
		formatTable(result.Records, os.Stdout)
	case "json":
		formatJSON(result.Records, os.Stdout)
	case "yaml":
		formatYAML(result.Records, os.Stdout)
	case "text":
		formatText(result.Records, os.Stdout)
	default:
		return fmt.Errorf("unknown format: %s", outputFormat)
	}

	if !quiet {
		printSummary(result)
	}
	nonFatal := result.Stats.ProbeErrors + result.Stats.HashErrors + int(result.Stats.DirErrors)
	if nonFatal > 0 {
		logger.LogError(fmt.Errorf("%d paths skipped due to errors", nonFatal))
		if !quiet {
			fmt.Fprintln(os.Stderr, "Some paths were skipped due to errors; check the error log for details.")
		}
		os.Exit(ExitNonFatal)
	}
	return nil
}

func printSummary(result *lib.ScanResult) {
	stats := result.Stats
	avgPerItem := time.Duration(0)
	if len(result.Records) > 0 {
		avgPerItem = stats.Elapsed / time.Duration(len(result.Records))
	}
	var totalBytes int64
	for _, record := range result.Records {
		if record.IsFile {
			totalBytes += record.Size
		}
	}
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintf(os.Stderr, "Summary:\n")
	fmt.Fprintf(os.Stderr, "  Paths discovered:  %d\n", stats.PathsDiscovered)
	fmt.Fprintf(os.Stderr, "  Files:             %d (%s)\n", stats.Files, humanize.Bytes(uint64(totalBytes)))
	fmt.Fprintf(os.Stderr, "  Directories:       %d\n", stats.Dirs)
	fmt.Fprintf(os.Stderr, "  Symlinks:          %d\n", stats.Symlinks)
	if stats.Other > 0 {
		fmt.Fprintf(os.Stderr, "  Other entries:     %d\n", stats.Other)
	}
	fmt.Fprintf(os.Stderr, "  Pruned subtrees:   %d\n", stats.DirsPruned)
	fmt.Fprintf(os.Stderr, "  Errors skipped:    %d\n", stats.ProbeErrors+stats.HashErrors+int(stats.DirErrors))
	fmt.Fprintf(os.Stderr, "  Workers:           %d\n", stats.Workers)
	fmt.Fprintf(os.Stderr, "  Total time:        %s\n", stats.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(os.Stderr, "  Average per item:  %s\n", avgPerItem.Round(time.Microsecond))
}

func progressLoop(progress *lib.ProgressCounts, utilization *lib.WorkerUtilization, doneCh <-chan struct{}) {
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-doneCh:
			return
		case <-tick.C:
			processed := atomic.LoadInt32(&progress.Processed)
			total := atomic.LoadInt32(&progress.TotalJobs)
			fmt.Fprintf(os.Stderr, "\rhashing %d/%d (%d%% workers active)   ", processed, total, utilization.Tick())
		}
	}
}
