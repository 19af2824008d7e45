package lib

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"testing"
)

func scanPaths(t *testing.T, root string, result *ScanResult) []string {
	t.Helper()
	var paths []string
	for _, record := range result.Records {
		paths = append(paths, record.Path)
	}
	return relSet(t, root, paths)
}

func TestScan_basicScenario(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a.txt", "b.tmp", "sub/c.txt")
	opts := DefaultOptions(filepath.Join(root, "**", "*.txt"))
	opts.Exclude = []string{"*.tmp"}
	result, err := Scan(opts)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	got := scanPaths(t, root, result)
	want := []string{"a.txt", "sub/c.txt"}
	if !equalSlices(got, want) {
		t.Fatalf("paths = %v, want %v", got, want)
	}
	for _, record := range result.Records {
		if record.Hash == "" {
			t.Errorf("%s: expected a digest", record.Path)
		}
		if !record.IsFile {
			t.Errorf("%s: expected a regular file", record.Path)
		}
	}
	if result.Stats.Files != 2 {
		t.Errorf("Stats.Files = %d, want 2", result.Stats.Files)
	}
}

func TestScan_bothStrategiesSameRecords(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a.txt", "sub/b.txt", "sub/deep/c.txt", "skip/d.txt")
	for _, strategy := range []Strategy{StrategyGlob, StrategyParallelWalk} {
		opts := DefaultOptions(filepath.Join(root, "**", "*.txt"))
		opts.Exclude = []string{"skip/"}
		opts.Strategy = strategy
		result, err := Scan(opts)
		if err != nil {
			t.Fatalf("strategy %v: %v", strategy, err)
		}
		got := scanPaths(t, root, result)
		want := []string{"a.txt", "sub/b.txt", "sub/deep/c.txt"}
		if !equalSlices(got, want) {
			t.Errorf("strategy %v: paths = %v, want %v", strategy, got, want)
		}
	}
}

func TestScan_metadataOnly(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a.txt")
	opts := DefaultOptions(filepath.Join(root, "*.txt"))
	opts.Algorithm = ""
	result, err := Scan(opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Records) != 1 {
		t.Fatalf("records = %d, want 1", len(result.Records))
	}
	if result.Records[0].Hash != "" {
		t.Error("metadata-only scan should not hash")
	}
	if result.Records[0].Size == 0 {
		t.Error("metadata should still be populated")
	}
}

func TestScan_digestMatchesReference(t *testing.T) {
	root := t.TempDir()
	content := []byte("reference content")
	if err := os.WriteFile(filepath.Join(root, "a.txt"), content, 0644); err != nil {
		t.Fatal(err)
	}
	result, err := Scan(DefaultOptions(filepath.Join(root, "*.txt")))
	if err != nil {
		t.Fatal(err)
	}
	reference := sha256.Sum256(content)
	if got := result.Records[0].Hash; got != hex.EncodeToString(reference[:]) {
		t.Errorf("digest = %s, want reference sha256", got)
	}
}

func TestScan_invalidPatternFailsFast(t *testing.T) {
	_, err := Scan(DefaultOptions("["))
	if !errors.Is(err, ErrInvalidPattern) {
		t.Fatalf("expected ErrInvalidPattern, got %v", err)
	}
}

func TestScan_unknownAlgorithmFailsFast(t *testing.T) {
	opts := DefaultOptions(filepath.Join(t.TempDir(), "*"))
	opts.Algorithm = "crc32"
	_, err := Scan(opts)
	if !errors.Is(err, ErrUnknownAlgorithm) {
		t.Fatalf("expected ErrUnknownAlgorithm, got %v", err)
	}
}

func TestScan_unreadableFileAccounted(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("running as root; permission checks do not apply")
	}
	root := t.TempDir()
	readable := 20
	for i := 0; i < readable; i++ {
		writeTree(t, root, fmt.Sprintf("f%02d.dat", i))
	}
	locked := filepath.Join(root, "locked.dat")
	if err := os.WriteFile(locked, []byte("secret"), 0); err != nil {
		t.Fatal(err)
	}
	result, err := Scan(DefaultOptions(filepath.Join(root, "*.dat")))
	if err != nil {
		t.Fatalf("one unreadable file must not abort the scan: %v", err)
	}
	if len(result.Records) != readable+1 {
		t.Fatalf("records = %d, want %d", len(result.Records), readable+1)
	}
	hashed := 0
	for _, record := range result.Records {
		if record.Hash != "" {
			hashed++
		}
	}
	if hashed != readable {
		t.Errorf("hashed = %d, want %d", hashed, readable)
	}
	if result.Stats.HashErrors != 1 {
		t.Errorf("HashErrors = %d, want 1", result.Stats.HashErrors)
	}
}

func TestScan_symlinkPolicy(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "target.txt")
	if err := os.WriteFile(target, []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(target, filepath.Join(root, "link.txt")); err != nil {
		t.Skip("symlink not supported")
	}

	noFollow := DefaultOptions(filepath.Join(root, "link.txt"))
	noFollow.FollowSymlinks = false
	result, err := Scan(noFollow)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Records) != 1 {
		t.Fatalf("records = %d, want 1", len(result.Records))
	}
	record := result.Records[0]
	if !record.IsSymlink {
		t.Error("no-follow: record should be a symlink")
	}
	if record.Hash != "" {
		t.Error("no-follow: symlinks are never hashed")
	}

	follow := DefaultOptions(filepath.Join(root, "link.txt"))
	result, err = Scan(follow)
	if err != nil {
		t.Fatal(err)
	}
	record = result.Records[0]
	if record.IsSymlink || !record.IsFile {
		t.Error("follow: record should report the target")
	}
	if record.Hash == "" {
		t.Error("follow: target content should be hashed")
	}
	if record.Size != 4 {
		t.Errorf("follow: Size = %d, want 4", record.Size)
	}
}

func TestScan_caseInsensitive(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a.csv", "B.CSV", "c.CsV", "d.txt")
	opts := DefaultOptions(filepath.Join(root, "*.csv"))
	opts.IgnoreCase = true
	opts.Algorithm = ""
	result, err := Scan(opts)
	if err != nil {
		t.Fatal(err)
	}
	got := scanPaths(t, root, result)
	want := []string{"B.CSV", "a.csv", "c.CsV"}
	if !equalSlices(got, want) {
		t.Errorf("paths = %v, want %v", got, want)
	}

	opts.IgnoreCase = false
	result, err = Scan(opts)
	if err != nil {
		t.Fatal(err)
	}
	got = scanPaths(t, root, result)
	if !equalSlices(got, []string{"a.csv"}) {
		t.Errorf("case-sensitive paths = %v, want just a.csv", got)
	}
}

func TestScan_idempotent(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a.txt", "sub/b.txt", "sub/deep/c.txt")
	opts := DefaultOptions(filepath.Join(root, "**", "*.txt"))
	first, err := Scan(opts)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Scan(opts)
	if err != nil {
		t.Fatal(err)
	}
	type row struct {
		path, hash string
		size       int64
	}
	rows := func(result *ScanResult) []row {
		var out []row
		for _, record := range result.Records {
			out = append(out, row{record.Path, record.Hash, record.Size})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].path < out[j].path })
		return out
	}
	firstRows, secondRows := rows(first), rows(second)
	if len(firstRows) != len(secondRows) {
		t.Fatalf("row counts differ: %d vs %d", len(firstRows), len(secondRows))
	}
	for i := range firstRows {
		if firstRows[i] != secondRows[i] {
			t.Errorf("row %d differs: %+v vs %+v", i, firstRows[i], secondRows[i])
		}
	}
}

func TestStatFile(t *testing.T) {
	root := t.TempDir()
	filePath := filepath.Join(root, "f")
	if err := os.WriteFile(filePath, []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}
	record, err := StatFile(filePath)
	if err != nil {
		t.Fatalf("StatFile: %v", err)
	}
	if record == nil || record.Size != 4 || !record.IsFile {
		t.Errorf("record = %+v", record)
	}

	record, err = StatFile(filepath.Join(root, "missing"))
	if err != nil {
		t.Fatalf("missing file should be a no-result, got %v", err)
	}
	if record != nil {
		t.Errorf("record = %+v, want nil", record)
	}
}

func TestHashFile(t *testing.T) {
	root := t.TempDir()
	content := []byte("scalar hash")
	filePath := filepath.Join(root, "f")
	if err := os.WriteFile(filePath, content, 0644); err != nil {
		t.Fatal(err)
	}
	digest, err := HashFile(filePath, AlgSHA256)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	reference := sha256.Sum256(content)
	if digest != hex.EncodeToString(reference[:]) {
		t.Errorf("digest = %s", digest)
	}

	digest, err = HashFile(filepath.Join(root, "missing"), AlgSHA256)
	if err != nil {
		t.Fatalf("missing file should be a no-result, got %v", err)
	}
	if digest != "" {
		t.Errorf("digest = %q, want empty", digest)
	}

	if _, err := HashFile(filePath, "crc32"); !errors.Is(err, ErrUnknownAlgorithm) {
		t.Errorf("expected ErrUnknownAlgorithm, got %v", err)
	}
}

func TestScan_progressCountersLiveReads(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 30; i++ {
		writeTree(t, root, fmt.Sprintf("f%02d.dat", i))
	}
	opts := DefaultOptions(filepath.Join(root, "*.dat"))
	opts.Progress = &ProgressCounts{}
	// A progress display reads the counters with atomic loads while the scan
	// runs; every counter write must be atomic too.
	stop := make(chan struct{})
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			select {
			case <-stop:
				return
			default:
				atomic.LoadInt32(&opts.Progress.TotalJobs)
				atomic.LoadInt32(&opts.Progress.Processed)
				atomic.LoadInt32(&opts.Progress.Enqueued)
			}
		}
	}()
	_, err := Scan(opts)
	close(stop)
	<-readerDone
	if err != nil {
		t.Fatal(err)
	}
	if got := atomic.LoadInt32(&opts.Progress.TotalJobs); got != 30 {
		t.Errorf("TotalJobs = %d, want 30", got)
	}
	if got := atomic.LoadInt32(&opts.Progress.Processed); got != 30 {
		t.Errorf("Processed = %d, want 30", got)
	}
}

func TestScan_debugParallelStatsFollowReportedRows(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a.txt", "node_modules/x.txt", "sub/b.txt", "sub/deep/c.txt")
	run := func(strategy Strategy, tracer *Tracer) *ScanResult {
		opts := DefaultOptions(filepath.Join(root, "**", "*.txt"))
		opts.Exclude = []string{"node_modules/"}
		opts.Algorithm = ""
		opts.Strategy = strategy
		opts.Tracer = tracer
		result, err := Scan(opts)
		if err != nil {
			t.Fatal(err)
		}
		return result
	}
	reference := run(StrategyGlob, nil)
	// With diagnostics on, the parallel strategy re-enumerates with the glob
	// walker and reports its rows; the counters must describe that same run.
	debug := run(StrategyParallelWalk, NewTracer(true))
	if got := scanPaths(t, root, debug); !equalSlices(got, scanPaths(t, root, reference)) {
		t.Fatalf("rows differ from glob run: %v", got)
	}
	if debug.Stats.DirsPruned != reference.Stats.DirsPruned {
		t.Errorf("DirsPruned = %d, want %d", debug.Stats.DirsPruned, reference.Stats.DirsPruned)
	}
	if debug.Stats.DirErrors != reference.Stats.DirErrors {
		t.Errorf("DirErrors = %d, want %d", debug.Stats.DirErrors, reference.Stats.DirErrors)
	}
	if debug.Stats.DirsPruned != 1 {
		t.Errorf("DirsPruned = %d, want 1", debug.Stats.DirsPruned)
	}
}

func TestScan_prunedCountInStats(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a.txt", "node_modules/x.txt", "node_modules/deep/y.txt")
	opts := DefaultOptions(filepath.Join(root, "**", "*.txt"))
	opts.Exclude = []string{"node_modules/"}
	opts.Algorithm = ""
	result, err := Scan(opts)
	if err != nil {
		t.Fatal(err)
	}
	if got := scanPaths(t, root, result); !equalSlices(got, []string{"a.txt"}) {
		t.Errorf("paths = %v, want just a.txt", got)
	}
	if result.Stats.DirsPruned != 1 {
		t.Errorf("DirsPruned = %d, want 1", result.Stats.DirsPruned)
	}
}
