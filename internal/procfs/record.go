package procfs

import (
	"strconv"
	"time"
)

// PID identifies a process for the duration of its lifetime.
type PID int

// State is the scheduler state reported by the kernel, folded into the
// handful of values the inspector distinguishes.
type State string

const (
	StateRunning  State = "running"
	StateSleeping State = "sleeping"
	StateStopped  State = "stopped"
	StateZombie   State = "zombie"
	StateUnknown  State = "unknown"
)

// Field names one readable attribute of a process. Each field is read by its
// own extractor and can fail independently of the others.
type Field string

const (
	FieldCommand Field = "command"
	FieldOwner   Field = "owner"
	FieldState   Field = "state"
	FieldMemory  Field = "memory"
	FieldCPU     Field = "cpu"
	FieldFDs     Field = "fds"
	FieldLimits  Field = "limits"
	FieldMaps    Field = "maps"
	FieldIO      Field = "io"
)

// AllFields lists every readable field in display order.
var AllFields = []Field{
	FieldCommand, FieldOwner, FieldState, FieldMemory, FieldCPU,
	FieldFDs, FieldLimits, FieldMaps, FieldIO,
}

// Cause explains why a field could not be read this cycle.
type Cause string

const (
	CausePermission Cause = "permission-denied"
	CauseVanished   Cause = "process-vanished"
	CauseTimeout    Cause = "read-timeout"
	CauseCancelled  Cause = "read-cancelled"
	CauseUnreadable Cause = "unreadable"
)

// FieldErrors maps failed fields to the reason they failed. A field present
// here never carries a fabricated value in the record.
type FieldErrors map[Field]Cause

// FDEntry is one open file descriptor and its link target.
type FDEntry struct {
	Num    int
	Target string
}

// MapEntry is one region of the process address space.
type MapEntry struct {
	Start uint64
	End   uint64
	Perms string
	Path  string // empty for anonymous mappings
}

// LimitValue is a single rlimit bound. The kernel's "unlimited" sentinel is
// preserved as a flag, never folded into a numeric maximum.
type LimitValue struct {
	Value     uint64
	Unlimited bool
}

func (v LimitValue) String() string {
	if v.Unlimited {
		return "unlimited"
	}
	return strconv.FormatUint(v.Value, 10)
}

// Limit is one row of /proc/<pid>/limits.
type Limit struct {
	Name  string
	Soft  LimitValue
	Hard  LimitValue
	Units string
}

// IOStats mirrors /proc/<pid>/io counters.
type IOStats struct {
	ReadChars  uint64
	WriteChars uint64
	ReadCalls  uint64
	WriteCalls uint64
	ReadBytes  uint64
	WriteBytes uint64
}

// CPUSample is an instantaneous utilization estimate derived from two
// consecutive observations. Known is false on a pid's first observation.
type CPUSample struct {
	Fraction float64
	Known    bool
}

// Record is one process's point-in-time attributes. Fields listed in Errors
// hold their zero value and must be treated as unavailable, not as zero.
type Record struct {
	PID     PID
	Command string
	Owner   string
	State   State

	ResidentBytes uint64
	VirtualBytes  uint64

	// CPUTime is cumulative user+system time; CPU is derived from the delta
	// against the previous snapshot by the snapshot builder.
	CPUTime time.Duration
	CPU     CPUSample

	FDs          []FDEntry
	FDsTruncated bool

	Maps          []MapEntry
	MapsTruncated bool

	Limits []Limit

	IO IOStats

	Errors FieldErrors
}

// Unavailable reports whether the given field failed to read this cycle.
func (r Record) Unavailable(f Field) bool {
	_, ok := r.Errors[f]
	return ok
}

// VanishedRecord builds the record for a process that disappeared between
// enumeration and detail read.
func VanishedRecord(pid PID) Record {
	return errorRecord(pid, CauseVanished)
}

// TimeoutRecord builds the record for a process whose detail read exceeded
// its per-cycle budget.
func TimeoutRecord(pid PID) Record {
	return errorRecord(pid, CauseTimeout)
}

// CancelledRecord builds the record for a process whose detail read was cut
// short by refresh cancellation rather than its own slowness.
func CancelledRecord(pid PID) Record {
	return errorRecord(pid, CauseCancelled)
}

func errorRecord(pid PID, cause Cause) Record {
	errs := make(FieldErrors, len(AllFields))
	for _, f := range AllFields {
		errs[f] = cause
	}
	return Record{PID: pid, State: StateUnknown, Errors: errs}
}
