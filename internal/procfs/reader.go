package procfs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"golang.org/x/sys/unix"
)

const (
	// DefaultRoot is the mount point of the proc filesystem.
	DefaultRoot = "/proc"

	defaultMaxFDs  = 256
	defaultMaxMaps = 512
)

// Reader queries the proc filesystem for live pids and per-process
// attributes. It holds no cache; every call reads the kernel's current view.
type Reader struct {
	root    string
	maxFDs  int
	maxMaps int
}

// NewReader returns a reader rooted at root (DefaultRoot if empty). maxFDs
// and maxMaps cap the number of fd and memory-map entries returned per
// process; non-positive values select the defaults.
func NewReader(root string, maxFDs, maxMaps int) *Reader {
	if root == "" {
		root = DefaultRoot
	}
	if maxFDs <= 0 {
		maxFDs = defaultMaxFDs
	}
	if maxMaps <= 0 {
		maxMaps = defaultMaxMaps
	}
	return &Reader{root: root, maxFDs: maxFDs, maxMaps: maxMaps}
}

// PIDs enumerates the currently live process identifiers. An error here
// means the proc root itself is unreadable, which is not recoverable.
func (r *Reader) PIDs() ([]PID, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.root, err)
	}
	pids := make([]PID, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		n, err := strconv.Atoi(e.Name())
		if err != nil || n <= 0 {
			continue
		}
		pids = append(pids, PID(n))
	}
	sort.Slice(pids, func(i, j int) bool { return pids[i] < pids[j] })
	return pids, nil
}

// Alive reports whether the pid's proc directory still exists.
func (r *Reader) Alive(pid PID) bool {
	_, err := os.Stat(r.procDir(pid))
	return err == nil
}

// extractor reads exactly one field into the record. Extractors share no
// state; a failing one leaves its field at the zero value.
type extractor struct {
	field Field
	read  func(*Reader, PID, *Record) error
}

var extractors = []extractor{
	{FieldCommand, (*Reader).readCommand},
	{FieldOwner, (*Reader).readOwner},
	{FieldState, (*Reader).readState},
	{FieldMemory, (*Reader).readMemory},
	{FieldCPU, (*Reader).readCPUTime},
	{FieldFDs, (*Reader).readFDs},
	{FieldLimits, (*Reader).readLimits},
	{FieldMaps, (*Reader).readMaps},
	{FieldIO, (*Reader).readIO},
}

// ReadProcess builds a best-effort record for pid. Individual field failures
// are recorded in Record.Errors and never abort the rest of the read.
func (r *Reader) ReadProcess(pid PID) Record {
	if !r.Alive(pid) {
		return VanishedRecord(pid)
	}
	rec := Record{PID: pid, State: StateUnknown, Errors: FieldErrors{}}
	for _, ex := range extractors {
		if err := ex.read(r, pid, &rec); err != nil {
			rec.Errors[ex.field] = classify(err)
		}
	}
	return rec
}

func (r *Reader) procDir(pid PID) string {
	return filepath.Join(r.root, strconv.Itoa(int(pid)))
}

func (r *Reader) procFile(pid PID, name string) string {
	return filepath.Join(r.root, strconv.Itoa(int(pid)), name)
}

// classify folds an OS error into the cause taxonomy. A pid directory that
// disappears mid-read surfaces as ENOENT or ESRCH depending on the file.
func classify(err error) Cause {
	switch {
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, unix.ESRCH):
		return CauseVanished
	case errors.Is(err, fs.ErrPermission), errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		return CausePermission
	default:
		return CauseUnreadable
	}
}
