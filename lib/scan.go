package lib

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"runtime"
	"sort"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

// Strategy selects how candidate paths are enumerated. Both strategies
// return the same path set for the same inputs; the choice exists for
// benchmarking and cross-checking, not correctness.
type Strategy int

const (
	// StrategyGlob walks from the pattern root and tests every descendant
	// against the compiled pattern.
	StrategyGlob Strategy = iota
	// StrategyParallelWalk lists directories concurrently with a worker pool
	// and applies the same matcher.
	StrategyParallelWalk
)

// ScanOptions configures one scan. Immutable once the scan starts.
type ScanOptions struct {
	Pattern        string
	IgnoreCase     bool
	FollowSymlinks bool
	Exclude        []string
	// Algorithm is the content hash to compute for matched regular files:
	// sha256, xxhash, or md5. Empty means metadata only.
	Algorithm    string
	Strategy     Strategy
	Workers      int
	DirBatchSize int
	Tracer       *Tracer
	// Progress and Utilization, when non-nil, are updated live during the
	// hashing phase for an external progress display.
	Progress    *ProgressCounts
	Utilization *WorkerUtilization
}

// DefaultOptions returns scan options with the defaults callers expect:
// symlinks followed, sha256 hashing, glob strategy, one worker per CPU.
func DefaultOptions(pattern string) ScanOptions {
	return ScanOptions{
		Pattern:        pattern,
		FollowSymlinks: true,
		Algorithm:      AlgSHA256,
		Strategy:       StrategyGlob,
		Workers:        runtime.NumCPU(),
	}
}

// FileRecord is one row of scan output.
type FileRecord struct {
	Path        string
	Size        int64
	ModTime     time.Time
	AccessTime  time.Time
	CreateTime  time.Time
	Permissions string
	Inode       uint64
	IsFile      bool
	IsDir       bool
	IsSymlink   bool
	Hash        string
}

// ScanStats counts what a scan saw and skipped. Errors are accounted here,
// never surfaced as rows.
type ScanStats struct {
	PathsDiscovered int
	Files           int
	Dirs            int
	Symlinks        int
	Other           int
	ProbeErrors     int
	HashErrors      int
	DirsPruned      int64
	DirErrors       int64
	Elapsed         time.Duration
	Workers         int
}

// ScanResult is the assembled output of one scan.
type ScanResult struct {
	Records []FileRecord
	Stats   ScanStats
}

// Scan discovers every path matching the pattern, probes its metadata, and,
// when an algorithm is set, hashes matched regular files across a worker
// pool. A malformed pattern fails immediately; per-path failures are counted
// and skipped so one inaccessible file never fails the scan.
func Scan(opts ScanOptions) (*ScanResult, error) {
	tracer := opts.Tracer
	if tracer == nil {
		tracer = DefaultTracer()
	}
	matcher, err := CompileMatcher(opts.Pattern, opts.IgnoreCase, opts.Exclude)
	if err != nil {
		return nil, err
	}
	if opts.Algorithm != "" && !ValidAlgorithm(opts.Algorithm) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, opts.Algorithm)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	start := time.Now()
	var walkStats WalkStats
	paths := enumerate(matcher, opts, workers, &walkStats, tracer)
	tracer.Tracef("enumerated %d paths for %q in %s", len(paths), opts.Pattern, time.Since(start))

	// Probe and assemble rows; probe failures are dropped and counted.
	probeStart := time.Now()
	records := make([]FileRecord, 0, len(paths))
	stats := ScanStats{PathsDiscovered: len(paths), Workers: workers}
	for _, p := range paths {
		meta, probeErr := Probe(p, opts.FollowSymlinks)
		if probeErr != nil {
			stats.ProbeErrors++
			continue
		}
		switch {
		case meta.IsSymlink:
			stats.Symlinks++
		case meta.IsDir:
			stats.Dirs++
		case meta.IsFile:
			stats.Files++
		default:
			// FIFOs, sockets, devices.
			stats.Other++
		}
		records = append(records, newRecord(p, meta))
	}
	tracer.Tracef("probed %d records (%d files, %d dirs, %d symlinks, %d errors) in %s",
		len(records), stats.Files, stats.Dirs, stats.Symlinks, stats.ProbeErrors, time.Since(probeStart))

	if opts.Algorithm != "" {
		hashStart := time.Now()
		var jobs []hashJob
		for i := range records {
			// Only regular files are hashed; symlinks kept as symlinks and
			// directories never are.
			if records[i].IsFile && !records[i].IsSymlink {
				jobs = append(jobs, hashJob{slot: len(jobs), record: i, path: records[i].Path})
			}
		}
		if opts.Progress != nil {
			atomic.StoreInt32(&opts.Progress.TotalJobs, int32(len(jobs)))
		}
		outcomes := runHashWorkers(jobs, workers, opts.Algorithm, tracer, opts.Progress, opts.Utilization)
		var hashedBytes int64
		for j, outcome := range outcomes {
			if outcome.Err != nil {
				stats.HashErrors++
				continue
			}
			records[jobs[j].record].Hash = outcome.Digest
			hashedBytes += records[jobs[j].record].Size
		}
		hashElapsed := time.Since(hashStart)
		perSec := float64(hashedBytes) / math.Max(hashElapsed.Seconds(), 1e-9)
		tracer.Tracef("hashed %d files, %s (%d errors) with %d workers in %s, %s/s",
			len(jobs)-stats.HashErrors, humanize.Bytes(uint64(hashedBytes)), stats.HashErrors,
			workers, hashElapsed, humanize.Bytes(uint64(perSec)))
	}

	loaded := walkStats.Load()
	stats.DirsPruned = loaded.DirsPruned
	stats.DirErrors = loaded.DirErrors
	stats.Elapsed = time.Since(start)
	tracer.Tracef("scan done: %d rows in %s", len(records), stats.Elapsed)
	return &ScanResult{Records: records, Stats: stats}, nil
}

// enumerate runs the selected traversal strategy. When diagnostics are on,
// the parallel strategy is cross-checked against the glob strategy and any
// set difference is logged; the glob result is authoritative in that mode.
func enumerate(matcher *Matcher, opts ScanOptions, workers int, stats *WalkStats, tracer *Tracer) []string {
	switch opts.Strategy {
	case StrategyParallelWalk:
		var parStats WalkStats
		paths := enumerateParallel(matcher, workers, opts.FollowSymlinks, &parStats)
		if tracer.Enabled() {
			// The glob rows are authoritative here, so the reported counters
			// come from the glob run; the parallel walk's counters are only
			// part of the diagnostic comparison.
			globPaths := enumerateGlob(matcher, opts.DirBatchSize, opts.FollowSymlinks, stats)
			logStrategyDiff(tracer, globPaths, paths)
			return globPaths
		}
		*stats = parStats.Load()
		return paths
	default:
		return enumerateGlob(matcher, opts.DirBatchSize, opts.FollowSymlinks, stats)
	}
}

// logStrategyDiff reports paths seen by only one of the two traversal
// strategies. Disagreement is a traversal or pattern bug, not a runtime
// condition, so it is only ever visible in diagnostics.
func logStrategyDiff(tracer *Tracer, globPaths, walkPaths []string) {
	tracer.Tracef("strategy check: glob found %d, parallel walk found %d", len(globPaths), len(walkPaths))
	inGlob := make(map[string]bool, len(globPaths))
	for _, p := range globPaths {
		inGlob[p] = true
	}
	inWalk := make(map[string]bool, len(walkPaths))
	for _, p := range walkPaths {
		inWalk[p] = true
	}
	logMissing := func(label string, paths map[string]bool, other map[string]bool) {
		var only []string
		for p := range paths {
			if !other[p] {
				only = append(only, p)
			}
		}
		if len(only) == 0 {
			return
		}
		sort.Strings(only)
		tracer.Tracef("strategy check: %d paths only in %s", len(only), label)
		for i, p := range only {
			if i == 5 {
				tracer.Tracef("  ... and %d more", len(only)-5)
				break
			}
			tracer.Tracef("  %s", p)
		}
	}
	logMissing("glob", inGlob, inWalk)
	logMissing("parallel walk", inWalk, inGlob)
}

func newRecord(path string, meta *Metadata) FileRecord {
	return FileRecord{
		Path:        path,
		Size:        meta.Size,
		ModTime:     meta.ModTime,
		AccessTime:  meta.AccessTime,
		CreateTime:  meta.CreateTime,
		Permissions: meta.Permissions,
		Inode:       meta.Inode,
		IsFile:      meta.IsFile,
		IsDir:       meta.IsDir,
		IsSymlink:   meta.IsSymlink,
	}
}

// StatFile is the single-path metadata lookup. A missing or unreadable path
// returns (nil, nil) so bulk callers see "no result" instead of a failure;
// other errors are returned.
func StatFile(path string) (*FileRecord, error) {
	meta, err := Probe(path, true)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return nil, nil
		}
		return nil, err
	}
	record := newRecord(path, meta)
	return &record, nil
}

// HashFile is the single-path content hash lookup. Missing or unreadable
// files return ("", nil); an unknown algorithm or a mid-stream failure is an
// error.
func HashFile(path, algorithm string) (string, error) {
	digest, err := HashFileStreaming(path, algorithm, DefaultTracer())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return "", nil
		}
		return "", err
	}
	return digest, nil
}
