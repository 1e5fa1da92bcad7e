package snapshot

import (
	"context"
	"math"
	"testing"
	"time"

	"stdutil/internal/procfs"
)

type stubSource struct {
	pids []procfs.PID
	recs map[procfs.PID]procfs.Record
	read func(procfs.PID) procfs.Record
	err  error
}

func (s *stubSource) PIDs() ([]procfs.PID, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.pids, nil
}

func (s *stubSource) ReadProcess(pid procfs.PID) procfs.Record {
	if s.read != nil {
		return s.read(pid)
	}
	if rec, ok := s.recs[pid]; ok {
		return rec
	}
	return procfs.VanishedRecord(pid)
}

func stubRecord(pid procfs.PID, cpuTime time.Duration) procfs.Record {
	return procfs.Record{
		PID:           pid,
		Command:       "stub",
		Owner:         "root",
		State:         procfs.StateSleeping,
		ResidentBytes: 4096,
		CPUTime:       cpuTime,
		Errors:        procfs.FieldErrors{},
	}
}

// stubClock makes every refresh land exactly step apart.
func stubClock(t *testing.T, step time.Duration) {
	t.Helper()
	base := time.Unix(1_700_000_000, 0)
	n := 0
	now = func() time.Time {
		n++
		return base.Add(time.Duration(n) * step)
	}
	t.Cleanup(func() { now = time.Now })
}

func TestRefreshPartition(t *testing.T) {
	stubClock(t, time.Second)
	src := &stubSource{
		pids: []procfs.PID{1, 2, 3},
		recs: map[procfs.PID]procfs.Record{
			1: stubRecord(1, 0),
			2: stubRecord(2, 0),
			3: stubRecord(3, 0),
		},
	}
	b := NewBuilder(src, 2, 0)

	snap1, diff1, err := b.Refresh(context.Background(), nil)
	if err != nil {
		t.Fatalf("refresh 1: %v", err)
	}
	if snap1.Seq() != 1 {
		t.Fatalf("seq = %d", snap1.Seq())
	}
	if len(diff1.Appeared) != 3 || len(diff1.Vanished) != 0 || len(diff1.Changed) != 0 {
		t.Fatalf("first diff should mark everything appeared: %+v", diff1)
	}

	// Second cycle: cpu fractions become derivable, which counts as a
	// change on every pid.
	snap2, diff2, err := b.Refresh(context.Background(), snap1)
	if err != nil {
		t.Fatalf("refresh 2: %v", err)
	}
	if snap2.Seq() != 2 {
		t.Fatalf("seq = %d", snap2.Seq())
	}
	if fields, ok := diff2.Changed[1]; !ok || fields[0] != procfs.FieldCPU {
		t.Fatalf("cpu derivation should surface as a change: %+v", diff2)
	}

	// Third cycle: pid 1 exits, pid 4 appears, pid 3 grows.
	src.pids = []procfs.PID{2, 3, 4}
	grown := src.recs[3]
	grown.ResidentBytes = 8192
	src.recs[3] = grown
	src.recs[4] = stubRecord(4, 0)

	snap3, diff3, err := b.Refresh(context.Background(), snap2)
	if err != nil {
		t.Fatalf("refresh 3: %v", err)
	}
	if snap3.Seq() != 3 {
		t.Fatalf("seq = %d", snap3.Seq())
	}
	if len(diff3.Appeared) != 1 || diff3.Appeared[0] != 4 {
		t.Fatalf("appeared = %v", diff3.Appeared)
	}
	if len(diff3.Vanished) != 1 || diff3.Vanished[0] != 1 {
		t.Fatalf("vanished = %v", diff3.Vanished)
	}
	if len(diff3.Unchanged) != 1 || diff3.Unchanged[0] != 2 {
		t.Fatalf("unchanged = %v", diff3.Unchanged)
	}
	fields, ok := diff3.Changed[3]
	if !ok || len(fields) != 1 || fields[0] != procfs.FieldMemory {
		t.Fatalf("changed = %v", diff3.Changed)
	}

	// Every live pid lands in exactly one bucket.
	if got := len(diff3.Appeared) + len(diff3.Unchanged) + len(diff3.Changed); got != snap3.Len() {
		t.Fatalf("partition covers %d of %d pids", got, snap3.Len())
	}
}

func TestRefreshVanishMidRead(t *testing.T) {
	stubClock(t, time.Second)
	src := &stubSource{
		pids: []procfs.PID{1, 2},
		recs: map[procfs.PID]procfs.Record{
			1: stubRecord(1, 0),
			2: stubRecord(2, 0),
		},
	}
	b := NewBuilder(src, 2, 0)

	snap1, _, err := b.Refresh(context.Background(), nil)
	if err != nil {
		t.Fatalf("refresh 1: %v", err)
	}

	// pid 2 dies between enumeration and its detail read.
	src.read = func(pid procfs.PID) procfs.Record {
		if pid == 2 {
			return procfs.VanishedRecord(pid)
		}
		return src.recs[pid]
	}

	snap2, diff, err := b.Refresh(context.Background(), snap1)
	if err != nil {
		t.Fatalf("refresh 2: %v", err)
	}
	rec, ok := snap2.Get(2)
	if !ok {
		t.Fatalf("pid 2 should still be present in the snapshot")
	}
	if rec.Errors[procfs.FieldState] != procfs.CauseVanished {
		t.Fatalf("state cause = %q", rec.Errors[procfs.FieldState])
	}
	for _, pid := range diff.Vanished {
		if pid == 2 {
			t.Fatalf("pid 2 was enumerated and must not be classified vanished")
		}
	}
	if _, ok := diff.Changed[2]; !ok {
		t.Fatalf("pid 2 should be classified changed: %+v", diff)
	}
}

func TestRefreshAbandonsSlowRead(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	src := &stubSource{
		pids: []procfs.PID{1, 7},
		recs: map[procfs.PID]procfs.Record{1: stubRecord(1, 0)},
	}
	src.read = func(pid procfs.PID) procfs.Record {
		if pid == 7 {
			<-release
		}
		return src.recs[pid]
	}
	b := NewBuilder(src, 2, 30*time.Millisecond)

	snap, _, err := b.Refresh(context.Background(), nil)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	rec, ok := snap.Get(7)
	if !ok {
		t.Fatalf("timed-out pid missing from snapshot")
	}
	if rec.Errors[procfs.FieldState] != procfs.CauseTimeout {
		t.Fatalf("state cause = %q", rec.Errors[procfs.FieldState])
	}
	if fast, _ := snap.Get(1); fast.Unavailable(procfs.FieldState) {
		t.Fatalf("healthy pid should be unaffected by the slow one")
	}
}

func TestRefreshCancelledReadsMarkedCancelled(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	src := &stubSource{pids: []procfs.PID{1}}
	src.read = func(pid procfs.PID) procfs.Record {
		<-release
		return stubRecord(pid, 0)
	}
	b := NewBuilder(src, 1, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	snap, _, err := b.Refresh(ctx, nil)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	rec, ok := snap.Get(1)
	if !ok {
		t.Fatalf("pid missing from snapshot")
	}
	if rec.Errors[procfs.FieldState] != procfs.CauseCancelled {
		t.Fatalf("state cause = %q, want %q", rec.Errors[procfs.FieldState], procfs.CauseCancelled)
	}
}

func TestRefreshDerivesCPUFraction(t *testing.T) {
	stubClock(t, time.Second)
	src := &stubSource{
		pids: []procfs.PID{1},
		recs: map[procfs.PID]procfs.Record{1: stubRecord(1, time.Second)},
	}
	b := NewBuilder(src, 1, 0)

	snap1, _, err := b.Refresh(context.Background(), nil)
	if err != nil {
		t.Fatalf("refresh 1: %v", err)
	}
	rec, _ := snap1.Get(1)
	if rec.CPU.Known {
		t.Fatalf("cpu fraction must be unknown on first observation")
	}

	// 500ms of cpu over a 1s wall interval.
	src.recs[1] = stubRecord(1, 1500*time.Millisecond)
	snap2, _, err := b.Refresh(context.Background(), snap1)
	if err != nil {
		t.Fatalf("refresh 2: %v", err)
	}
	rec, _ = snap2.Get(1)
	if !rec.CPU.Known {
		t.Fatalf("cpu fraction should be derivable on second observation")
	}
	if math.Abs(rec.CPU.Fraction-0.5) > 1e-9 {
		t.Fatalf("fraction = %f, want 0.5", rec.CPU.Fraction)
	}
}

func TestRefreshEnumerationFailure(t *testing.T) {
	src := &stubSource{err: context.DeadlineExceeded}
	b := NewBuilder(src, 1, 0)
	if _, _, err := b.Refresh(context.Background(), nil); err == nil {
		t.Fatalf("expected enumeration error")
	}
}
