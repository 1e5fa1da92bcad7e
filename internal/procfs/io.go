package procfs

import (
	"bufio"
	"os"
	"strconv"
	"strings"
)

// readIO parses /proc/<pid>/io. Readable only by the process owner or a
// privileged inspector; counters the kernel does not expose stay zero.
func (r *Reader) readIO(pid PID, rec *Record) error {
	f, err := os.Open(r.procFile(pid, "io"))
	if err != nil {
		return err
	}
	defer f.Close()

	var stats IOStats
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		n, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
		if err != nil {
			continue
		}
		switch key {
		case "rchar":
			stats.ReadChars = n
		case "wchar":
			stats.WriteChars = n
		case "syscr":
			stats.ReadCalls = n
		case "syscw":
			stats.WriteCalls = n
		case "read_bytes":
			stats.ReadBytes = n
		case "write_bytes":
			stats.WriteBytes = n
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	rec.IO = stats
	return nil
}
