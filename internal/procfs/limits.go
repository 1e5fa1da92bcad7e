package procfs

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// readLimits parses /proc/<pid>/limits. The table is fixed-width text:
//
//	Limit                     Soft Limit           Hard Limit           Units
//	Max cpu time              unlimited            unlimited            seconds
//
// Limit names contain spaces, and the Units column may be empty (Max nice,
// Max rt priority), so the parser walks fields left to right until it meets
// the first value token.
func (r *Reader) readLimits(pid PID, rec *Record) error {
	f, err := os.Open(r.procFile(pid, "limits"))
	if err != nil {
		return err
	}
	defer f.Close()

	var limits []Limit
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "Limit") || strings.TrimSpace(line) == "" {
			continue
		}
		limit, err := parseLimitLine(line)
		if err != nil {
			return err
		}
		limits = append(limits, limit)
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	rec.Limits = limits
	return nil
}

func parseLimitLine(line string) (Limit, error) {
	fields := strings.Fields(line)
	i := 0
	for i < len(fields) && !isLimitValue(fields[i]) {
		i++
	}
	if i == 0 || i+1 >= len(fields) {
		return Limit{}, fmt.Errorf("malformed limits line: %q", line)
	}
	soft, err := parseLimitValue(fields[i])
	if err != nil {
		return Limit{}, err
	}
	hard, err := parseLimitValue(fields[i+1])
	if err != nil {
		return Limit{}, err
	}
	limit := Limit{
		Name: strings.Join(fields[:i], " "),
		Soft: soft,
		Hard: hard,
	}
	if i+2 < len(fields) {
		limit.Units = fields[i+2]
	}
	return limit, nil
}

func isLimitValue(s string) bool {
	if s == "unlimited" {
		return true
	}
	_, err := strconv.ParseUint(s, 10, 64)
	return err == nil
}

func parseLimitValue(s string) (LimitValue, error) {
	if s == "unlimited" {
		return LimitValue{Unlimited: true}, nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return LimitValue{}, fmt.Errorf("parse limit value %q: %w", s, err)
	}
	return LimitValue{Value: v}, nil
}
