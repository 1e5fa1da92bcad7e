package procfs

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// readFDs walks /proc/<pid>/fd and resolves each descriptor's link target.
// The fd directory requires ownership or CAP_SYS_PTRACE, so this is the
// field most likely to fail with permission-denied on foreign processes.
func (r *Reader) readFDs(pid PID, rec *Record) error {
	dir := r.procFile(pid, "fd")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	nums := make([]int, 0, len(entries))
	for _, e := range entries {
		n, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		nums = append(nums, n)
	}
	sort.Ints(nums)

	if len(nums) > r.maxFDs {
		nums = nums[:r.maxFDs]
		rec.FDsTruncated = true
	}

	fds := make([]FDEntry, 0, len(nums))
	for _, n := range nums {
		target, err := os.Readlink(filepath.Join(dir, strconv.Itoa(n)))
		if err != nil {
			// The descriptor closed between ReadDir and Readlink.
			continue
		}
		fds = append(fds, FDEntry{Num: n, Target: target})
	}
	rec.FDs = fds
	return nil
}
