package lib

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// dirJob is one directory to list for the parallel walk. ident is the
// directory's resolved identity and chain the resolved symlink targets
// crossed on the way here, for the cycle check.
type dirJob struct {
	Path  string
	Ident string
	Chain []string
}

// parallelWalker is the second traversal strategy: a worker pool takes
// directories from a queue, lists them, collects matching entries, and
// enqueues subdirectories. Independent of globWalker by construction so the
// two can cross-check each other.
type parallelWalker struct {
	matcher *Matcher
	follow  bool
	stats   *WalkStats

	mu    sync.Mutex
	found []string
}

// enumerateParallel walks the matcher's root with numWorkers goroutines and
// returns the same path set enumerateGlob produces for the same inputs.
// Enumeration order differs run to run; only the set is stable.
func enumerateParallel(matcher *Matcher, numWorkers int, followSymlinks bool, stats *WalkStats) []string {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	walker := &parallelWalker{
		matcher: matcher,
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
	if !isDir || matcher.PruneDir(root) {
		return walker.found
	}
	ident, resolveErr := filepath.EvalSymlinks(root)
	if resolveErr != nil {
		ident = root
	}

	dirCh := make(chan dirJob, numWorkers*4)
	var jobWg sync.WaitGroup
	jobWg.Add(1)
	go func() {
		dirCh <- dirJob{Path: root, Ident: ident}
	}()
	go func() {
		jobWg.Wait()
		close(dirCh)
	}()
	var workerWg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		workerWg.Add(1)
		go func() {
			defer workerWg.Done()
			for job := range dirCh {
				walker.processDir(job, dirCh, &jobWg)
			}
		}()
	}
	workerWg.Wait()
	return walker.found
}

// processDir lists one directory, collects matches, and enqueues
// subdirectories; when the queue is full the subdirectory is walked inline to
// avoid deadlocking the pool.
func (w *parallelWalker) processDir(job dirJob, dirCh chan dirJob, jobWg *sync.WaitGroup) {
	defer jobWg.Done()
	w.stats.walkedDir()
	entries, err := os.ReadDir(job.Path)
	if err != nil {
		w.stats.dirError()
		return
	}
	for _, entry := range entries {
		w.stats.sawEntry()
		entryPath := filepath.Join(job.Path, entry.Name())
		child := dirJob{Path: entryPath, Ident: job.Ident + "/" + entry.Name(), Chain: job.Chain}
		isDir := entry.IsDir()
		if !isDir && entry.Type()&fs.ModeSymlink != 0 && w.follow {
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
				if linkChainCycles(resolved, job.Ident, job.Chain) {
					continue
				}
				child.Ident = resolved
				child.Chain = extendChain(job.Chain, resolved)
				isDir = true
			}
		}
		if !isDir {
			w.consider(entryPath)
			continue
		}
		if entry.IsDir() {
			if w.matcher.PruneDir(entryPath) {
				w.stats.prunedDir()
				continue
			}
			w.consider(entryPath)
		}
		jobWg.Add(1)
		select {
		case dirCh <- child:
		default:
			// Queue full: walk this directory inline.
			w.processDir(child, dirCh, jobWg)
		}
	}
}

func (w *parallelWalker) consider(candidate string) {
	if w.matcher.Match(candidate) && !w.matcher.Excluded(candidate) {
		w.mu.Lock()
		w.found = append(w.found, candidate)
		w.mu.Unlock()
	}
}
