package snapshot

import (
	"slices"
	"sort"

	"stdutil/internal/procfs"
)

// Diff classifies pid membership and change between two consecutive
// snapshots. Every pid of the old snapshot lands in exactly one of Vanished,
// Unchanged, or Changed; every new pid lands in Appeared.
type Diff struct {
	Appeared  []procfs.PID
	Vanished  []procfs.PID
	Unchanged []procfs.PID
	Changed   map[procfs.PID][]procfs.Field
}

// Classify diffs next against prev. A nil prev marks everything Appeared.
func Classify(prev, next *Snapshot) Diff {
	d := Diff{Changed: make(map[procfs.PID][]procfs.Field)}
	for pid := range next.procs {
		if prev == nil {
			d.Appeared = append(d.Appeared, pid)
			continue
		}
		old, ok := prev.procs[pid]
		if !ok {
			d.Appeared = append(d.Appeared, pid)
			continue
		}
		if fields := changedFields(old, next.procs[pid]); len(fields) > 0 {
			d.Changed[pid] = fields
		} else {
			d.Unchanged = append(d.Unchanged, pid)
		}
	}
	if prev != nil {
		for pid := range prev.procs {
			if _, ok := next.procs[pid]; !ok {
				d.Vanished = append(d.Vanished, pid)
			}
		}
	}
	sortPIDs(d.Appeared)
	sortPIDs(d.Vanished)
	sortPIDs(d.Unchanged)
	return d
}

// changedFields returns the fields whose value or availability differs
// between two records of the same pid, in AllFields order.
func changedFields(old, cur procfs.Record) []procfs.Field {
	var fields []procfs.Field
	for _, f := range procfs.AllFields {
		if !fieldEqual(old, cur, f) {
			fields = append(fields, f)
		}
	}
	return fields
}

func fieldEqual(old, cur procfs.Record, f procfs.Field) bool {
	if old.Errors[f] != cur.Errors[f] {
		return false
	}
	switch f {
	case procfs.FieldCommand:
		return old.Command == cur.Command
	case procfs.FieldOwner:
		return old.Owner == cur.Owner
	case procfs.FieldState:
		return old.State == cur.State
	case procfs.FieldMemory:
		return old.ResidentBytes == cur.ResidentBytes && old.VirtualBytes == cur.VirtualBytes
	case procfs.FieldCPU:
		return old.CPUTime == cur.CPUTime && old.CPU == cur.CPU
	case procfs.FieldFDs:
		return old.FDsTruncated == cur.FDsTruncated && slices.Equal(old.FDs, cur.FDs)
	case procfs.FieldLimits:
		return slices.Equal(old.Limits, cur.Limits)
	case procfs.FieldMaps:
		return old.MapsTruncated == cur.MapsTruncated && slices.Equal(old.Maps, cur.Maps)
	case procfs.FieldIO:
		return old.IO == cur.IO
	default:
		return true
	}
}

func sortPIDs(pids []procfs.PID) {
	sort.Slice(pids, func(i, j int) bool { return pids[i] < pids[j] })
}
