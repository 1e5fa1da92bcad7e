package procfs

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// readMaps parses /proc/<pid>/maps up to the configured ceiling. Lines look
// like:
//
//	7f3a8c000000-7f3a8c021000 rw-p 00000000 00:00 0 [heap]
func (r *Reader) readMaps(pid PID, rec *Record) error {
	f, err := os.Open(r.procFile(pid, "maps"))
	if err != nil {
		return err
	}
	defer f.Close()

	var maps []MapEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if len(maps) >= r.maxMaps {
			rec.MapsTruncated = true
			break
		}
		entry, err := parseMapLine(scanner.Text())
		if err != nil {
			return err
		}
		maps = append(maps, entry)
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	rec.Maps = maps
	return nil
}

func parseMapLine(line string) (MapEntry, error) {
	fields := strings.Fields(line)
	if len(fields) < 5 {
		return MapEntry{}, fmt.Errorf("malformed maps line: %q", line)
	}
	start, end, ok := strings.Cut(fields[0], "-")
	if !ok {
		return MapEntry{}, fmt.Errorf("malformed address range: %q", fields[0])
	}
	startAddr, err := strconv.ParseUint(start, 16, 64)
	if err != nil {
		return MapEntry{}, fmt.Errorf("parse range start: %w", err)
	}
	endAddr, err := strconv.ParseUint(end, 16, 64)
	if err != nil {
		return MapEntry{}, fmt.Errorf("parse range end: %w", err)
	}
	entry := MapEntry{Start: startAddr, End: endAddr, Perms: fields[1]}
	if len(fields) > 5 {
		// Deleted backing files keep their "(deleted)" suffix as-is.
		entry.Path = strings.Join(fields[5:], " ")
	}
	return entry, nil
}
