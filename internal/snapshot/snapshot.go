// Package snapshot turns per-process reads into immutable, diffable
// point-in-time views of the process table.
package snapshot

import (
	"sort"
	"time"

	"stdutil/internal/procfs"
)

// Snapshot is an immutable view of the process table at one refresh tick.
// Once published it is never mutated; the builder produces a fresh snapshot
// each cycle and consumers may hold old ones for as long as they like.
type Snapshot struct {
	seq     uint64
	takenAt time.Time
	procs   map[procfs.PID]procfs.Record
}

// Seq is the monotonic sequence number, starting at 1.
func (s *Snapshot) Seq() uint64 { return s.seq }

// TakenAt is the capture timestamp.
func (s *Snapshot) TakenAt() time.Time { return s.takenAt }

// Len returns the number of processes captured.
func (s *Snapshot) Len() int { return len(s.procs) }

// PIDs returns the captured pids in ascending order.
func (s *Snapshot) PIDs() []procfs.PID {
	pids := make([]procfs.PID, 0, len(s.procs))
	for pid := range s.procs {
		pids = append(pids, pid)
	}
	sort.Slice(pids, func(i, j int) bool { return pids[i] < pids[j] })
	return pids
}

// Get returns the record for pid. The record and its slices are read-only.
func (s *Snapshot) Get(pid procfs.PID) (procfs.Record, bool) {
	rec, ok := s.procs[pid]
	return rec, ok
}

func newSnapshot(seq uint64, takenAt time.Time, procs map[procfs.PID]procfs.Record) *Snapshot {
	return &Snapshot{seq: seq, takenAt: takenAt, procs: procs}
}
