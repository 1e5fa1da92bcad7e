package snapshot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"stdutil/internal/procfs"
)

const (
	defaultWorkers     = 8
	defaultReadTimeout = 500 * time.Millisecond
)

// overridable in tests
var now = time.Now

// Source is the slice of the process reader the builder depends on.
type Source interface {
	PIDs() ([]procfs.PID, error)
	ReadProcess(pid procfs.PID) procfs.Record
}

// Builder produces consecutive snapshots. Per-pid reads fan out over a
// bounded worker pool and are abandoned after readTimeout so one hung read
// cannot stall the cycle.
type Builder struct {
	src         Source
	workers     int
	readTimeout time.Duration
}

// NewBuilder returns a builder over src. Non-positive workers or timeout
// select the defaults.
func NewBuilder(src Source, workers int, readTimeout time.Duration) *Builder {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if readTimeout <= 0 {
		readTimeout = defaultReadTimeout
	}
	return &Builder{src: src, workers: workers, readTimeout: readTimeout}
}

// Refresh enumerates live pids, reads each one, and assembles the next
// snapshot plus its diff against prev (which may be nil for the first
// cycle). A failed per-process read never fails the refresh; only an
// unreadable process table does.
func (b *Builder) Refresh(ctx context.Context, prev *Snapshot) (*Snapshot, Diff, error) {
	pids, err := b.src.PIDs()
	if err != nil {
		return nil, Diff{}, fmt.Errorf("enumerate processes: %w", err)
	}

	takenAt := now()
	records := b.readAll(ctx, pids)

	var seq uint64 = 1
	if prev != nil {
		seq = prev.seq + 1
		deriveCPU(records, prev, takenAt)
	}

	snap := newSnapshot(seq, takenAt, records)
	return snap, Classify(prev, snap), nil
}

func (b *Builder) readAll(ctx context.Context, pids []procfs.PID) map[procfs.PID]procfs.Record {
	jobs := make(chan procfs.PID)
	results := make(chan procfs.Record)

	var wg sync.WaitGroup
	for i := 0; i < b.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for pid := range jobs {
				results <- b.readOne(ctx, pid)
			}
		}()
	}
	go func() {
		for _, pid := range pids {
			jobs <- pid
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	records := make(map[procfs.PID]procfs.Record, len(pids))
	for rec := range results {
		records[rec.PID] = rec
	}
	return records
}

// readOne runs a single detail read with a deadline. A read that overruns is
// abandoned, not retried; its goroutine finishes in the background and the
// pid gets a timeout record for this cycle.
func (b *Builder) readOne(ctx context.Context, pid procfs.PID) procfs.Record {
	done := make(chan procfs.Record, 1)
	go func() {
		done <- b.src.ReadProcess(pid)
	}()

	timer := time.NewTimer(b.readTimeout)
	defer timer.Stop()
	select {
	case rec := <-done:
		return rec
	case <-timer.C:
		return procfs.TimeoutRecord(pid)
	case <-ctx.Done():
		return procfs.CancelledRecord(pid)
	}
}

// deriveCPU fills in instantaneous CPU fractions from the cumulative time
// delta against the previous snapshot. A pid seen for the first time, or one
// whose cpu field failed on either side, stays unavailable.
func deriveCPU(records map[procfs.PID]procfs.Record, prev *Snapshot, takenAt time.Time) {
	wall := takenAt.Sub(prev.takenAt)
	if wall <= 0 {
		return
	}
	for pid, rec := range records {
		if rec.Unavailable(procfs.FieldCPU) {
			continue
		}
		old, ok := prev.procs[pid]
		if !ok || old.Unavailable(procfs.FieldCPU) {
			continue
		}
		delta := rec.CPUTime - old.CPUTime
		if delta < 0 {
			continue
		}
		rec.CPU = procfs.CPUSample{
			Fraction: float64(delta) / float64(wall),
			Known:    true,
		}
		records[pid] = rec
	}
}
