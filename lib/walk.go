package lib

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
)

// defaultDirBatchSize is used when the caller passes <= 0; ReadDir(batchSize)
// uses fewer syscalls than reading one entry at a time.
const defaultDirBatchSize = 4096

// WalkStats counts traversal events. Fields are updated atomically so the
// parallel strategy's workers can share one instance.
type WalkStats struct {
	EntriesSeen int64
	DirsWalked  int64
	DirsPruned  int64
	DirErrors   int64
}

func (s *WalkStats) sawEntry()  { atomic.AddInt64(&s.EntriesSeen, 1) }
func (s *WalkStats) walkedDir() { atomic.AddInt64(&s.DirsWalked, 1) }
func (s *WalkStats) prunedDir() { atomic.AddInt64(&s.DirsPruned, 1) }
func (s *WalkStats) dirError()  { atomic.AddInt64(&s.DirErrors, 1) }

// Load returns a consistent copy for reporting.
func (s *WalkStats) Load() WalkStats {
	return WalkStats{
		EntriesSeen: atomic.LoadInt64(&s.EntriesSeen),
		DirsWalked:  atomic.LoadInt64(&s.DirsWalked),
		DirsPruned:  atomic.LoadInt64(&s.DirsPruned),
		DirErrors:   atomic.LoadInt64(&s.DirErrors),
	}
}

// globWalker is the pattern-driven strategy: a single-goroutine recursive
// walk from the pattern root using batched directory reads, testing every
// entry against the matcher and pruning excluded directories before they are
// opened.
type globWalker struct {
	matcher *Matcher
	batch   int
	follow  bool
	stats   *WalkStats
	out     []string
}

// linkChainCycles reports whether descending into a symlinked directory that
// resolves to target would revisit a directory already on the descent stack.
// ident is the resolved identity of the link's parent directory and chain the
// resolved targets of symlinks already crossed on this stack. The check
// depends only on the path, so every traversal order gives the same answer.
func linkChainCycles(target, ident string, chain []string) bool {
	if target == ident || strings.HasPrefix(ident+"/", target+"/") {
		return true
	}
	for _, seen := range chain {
		if seen == target {
			return true
		}
	}
	return false
}

// extendChain copies the chain before appending so sibling descents (which
// the parallel strategy runs concurrently) never share a backing array.
func extendChain(chain []string, target string) []string {
	next := make([]string, len(chain)+1)
	copy(next, chain)
	next[len(chain)] = target
	return next
}

// enumerateGlob returns every path under the matcher's root that matches the
// include pattern and no exclude rule. A missing root matches nothing; an
// unreadable directory is counted and skipped.
func enumerateGlob(matcher *Matcher, batchSize int, followSymlinks bool, stats *WalkStats) []string {
	if batchSize <= 0 {
		batchSize = defaultDirBatchSize
	}
	walker := &globWalker{
		matcher: matcher,
		batch:   batchSize,
		follow:  followSymlinks,
		stats:   stats,
	}
	root := matcher.Root()
	info, err := os.Lstat(root)
	if err != nil {
		return nil
	}
	walker.consider(root)
	isDir := info.IsDir()
	if !isDir && info.Mode()&fs.ModeSymlink != 0 && followSymlinks {
		if target, statErr := os.Stat(root); statErr == nil && target.IsDir() {
			isDir = true
		}
	}
	if isDir && !matcher.PruneDir(root) {
		ident, resolveErr := filepath.EvalSymlinks(root)
		if resolveErr != nil {
			ident = root
		}
		walker.walkDir(root, ident, nil)
	}
	return walker.out
}

func (w *globWalker) walkDir(dir, ident string, chain []string) {
	w.stats.walkedDir()
	dirFile, err := os.Open(dir)
	if err != nil {
		w.stats.dirError()
		return
	}
	defer dirFile.Close()
	for {
		entries, err := dirFile.ReadDir(w.batch)
		for _, entry := range entries {
			w.stats.sawEntry()
			entryPath := filepath.Join(dir, entry.Name())
			if entry.IsDir() {
				if w.matcher.PruneDir(entryPath) {
					w.stats.prunedDir()
					continue
				}
				w.consider(entryPath)
				w.walkDir(entryPath, ident+"/"+entry.Name(), chain)
				continue
			}
			if entry.Type()&fs.ModeSymlink != 0 && w.follow {
				if target, statErr := os.Stat(entryPath); statErr == nil && target.IsDir() {
					if w.matcher.PruneDir(entryPath) {
						w.stats.prunedDir()
						continue
					}
					w.consider(entryPath)
					resolved, resolveErr := filepath.EvalSymlinks(entryPath)
					if resolveErr != nil {
						w.stats.dirError()
						continue
					}
					if !linkChainCycles(resolved, ident, chain) {
						w.walkDir(entryPath, resolved, extendChain(chain, resolved))
					}
					continue
				}
			}
			w.consider(entryPath)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				w.stats.dirError()
			}
			break
		}
		if len(entries) == 0 {
			break
		}
	}
}

func (w *globWalker) consider(candidate string) {
	if w.matcher.Match(candidate) && !w.matcher.Excluded(candidate) {
		w.out = append(w.out, candidate)
	}
}
