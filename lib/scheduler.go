package lib

import (
	"sync"
	"sync/atomic"
	"time"
)

// HashOutcome is the result of hashing one path: exactly one of Digest or Err
// is meaningful.
type HashOutcome struct {
	Path   string
	Digest string
	Err    error
}

// hashJob is one file to hash; slot is the job's own position in the batch,
// record the index of the scan record the digest belongs to.
type hashJob struct {
	slot   int
	record int
	path   string
}

// ProgressCounts holds counters for a progress display. Exported fields so
// callers can read them with atomic loads while a scan runs. TotalJobs is set
// before workers start; 0 means unknown.
type ProgressCounts struct {
	Enqueued          int32
	Processed         int32
	TotalJobs         int32
	StartTimeUnixNano int64
}

// runHashWorkers fans the jobs across a fixed worker pool and returns one
// outcome per job, in job order. Each worker writes only its own job's slot,
// so no synchronization is needed on the result slice. A slow or failing
// file never blocks the others; the pool is fully joined before returning.
func runHashWorkers(jobs []hashJob, numWorkers int, algorithm string, tracer *Tracer, progress *ProgressCounts, util *WorkerUtilization) []HashOutcome {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	outcomes := make([]HashOutcome, len(jobs))
	jobCh := make(chan hashJob, numWorkers*2)
	var wg sync.WaitGroup
	for workerIdx := 0; workerIdx < numWorkers; workerIdx++ {
		idx := workerIdx
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				start := time.Now()
				digest, err := HashFileStreaming(job.path, algorithm, tracer)
				outcomes[job.slot] = HashOutcome{Path: job.path, Digest: digest, Err: err}
				tracer.SlowItem(job.path, time.Since(start))
				if progress != nil {
					atomic.AddInt32(&progress.Processed, 1)
				}
				util.Poke(idx)
			}
		}()
	}
	for _, job := range jobs {
		if progress != nil {
			atomic.AddInt32(&progress.Enqueued, 1)
			atomic.CompareAndSwapInt64(&progress.StartTimeUnixNano, 0, time.Now().UnixNano())
		}
		jobCh <- job
	}
	close(jobCh)
	wg.Wait()
	return outcomes
}
