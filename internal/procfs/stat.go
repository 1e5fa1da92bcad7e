package procfs

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// userHZ is the kernel clock tick rate used for the stat time counters.
// Fixed at 100 on every mainstream Linux build.
const userHZ = 100

// procStat is the subset of /proc/<pid>/stat the inspector needs.
type procStat struct {
	comm    string
	state   byte
	utime   uint64 // clock ticks
	stime   uint64 // clock ticks
}

// parseStat splits a stat line. The command is wrapped in parentheses and
// may itself contain spaces or parentheses, so the line is split around the
// last closing paren.
func parseStat(data []byte) (procStat, error) {
	raw := string(data)
	open := strings.Index(raw, "(")
	close := strings.LastIndex(raw, ")")
	if open == -1 || close == -1 || close < open || close+2 > len(raw) {
		return procStat{}, fmt.Errorf("malformed stat line")
	}
	fields := strings.Fields(raw[close+2:])
	// After the comm: state, ppid, pgrp, session, tty, tpgid, flags,
	// minflt, cminflt, majflt, cmajflt, utime, stime, ...
	if len(fields) < 13 {
		return procStat{}, fmt.Errorf("stat line too short: %d fields", len(fields))
	}
	st := procStat{comm: raw[open+1 : close]}
	if len(fields[0]) > 0 {
		st.state = fields[0][0]
	}
	var err error
	if st.utime, err = strconv.ParseUint(fields[11], 10, 64); err != nil {
		return procStat{}, fmt.Errorf("parse utime: %w", err)
	}
	if st.stime, err = strconv.ParseUint(fields[12], 10, 64); err != nil {
		return procStat{}, fmt.Errorf("parse stime: %w", err)
	}
	return st, nil
}

func stateFromLetter(letter byte) State {
	switch letter {
	case 'R':
		return StateRunning
	case 'S', 'D', 'I':
		return StateSleeping
	case 'T', 't':
		return StateStopped
	case 'Z':
		return StateZombie
	default:
		return StateUnknown
	}
}

func (r *Reader) readStat(pid PID) (procStat, error) {
	data, err := os.ReadFile(r.procFile(pid, "stat"))
	if err != nil {
		return procStat{}, err
	}
	return parseStat(data)
}

func (r *Reader) readState(pid PID, rec *Record) error {
	st, err := r.readStat(pid)
	if err != nil {
		return err
	}
	rec.State = stateFromLetter(st.state)
	return nil
}

func (r *Reader) readCPUTime(pid PID, rec *Record) error {
	st, err := r.readStat(pid)
	if err != nil {
		return err
	}
	rec.CPUTime = time.Duration(st.utime+st.stime) * (time.Second / userHZ)
	return nil
}

// readMemory derives resident and virtual sizes from statm, which counts
// pages: total program size first, resident set second.
func (r *Reader) readMemory(pid PID, rec *Record) error {
	data, err := os.ReadFile(r.procFile(pid, "statm"))
	if err != nil {
		return err
	}
	fields := strings.Fields(string(data))
	if len(fields) < 2 {
		return fmt.Errorf("statm too short: %q", string(data))
	}
	total, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		return fmt.Errorf("parse statm size: %w", err)
	}
	resident, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return fmt.Errorf("parse statm resident: %w", err)
	}
	pageSize := uint64(os.Getpagesize())
	rec.VirtualBytes = total * pageSize
	rec.ResidentBytes = resident * pageSize
	return nil
}

// readCommand prefers the full cmdline; kernel threads have an empty
// cmdline and fall back to the bracketed comm from stat.
func (r *Reader) readCommand(pid PID, rec *Record) error {
	data, err := os.ReadFile(r.procFile(pid, "cmdline"))
	if err != nil {
		return err
	}
	parts := bytes.Split(data, []byte{0})
	args := make([]string, 0, len(parts))
	for _, part := range parts {
		if len(part) == 0 {
			continue
		}
		args = append(args, string(part))
	}
	if len(args) > 0 {
		rec.Command = strings.Join(args, " ")
		return nil
	}
	st, err := r.readStat(pid)
	if err != nil {
		return err
	}
	rec.Command = "[" + st.comm + "]"
	return nil
}
