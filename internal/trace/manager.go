// Package trace manages a single strace-backed capture of a target
// process's stdout and stderr writes.
package trace

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"stdutil/internal/procfs"
)

// ErrTargetNotFound is returned by Start when the target pid is already
// gone.
var ErrTargetNotFound = errors.New("target process not found")

const (
	// DefaultTracer is the external tracing binary.
	DefaultTracer = "strace"

	defaultCapacity = 1000
	defaultGrace    = 2 * time.Second

	scanBufSize = 1 << 20
)

// Manager owns at most one live Session. Start serializes against the
// teardown of any previous session, so two tracers never write into
// overlapping state.
type Manager struct {
	mu   sync.Mutex
	sess *Session

	tracer   string
	capacity int
	grace    time.Duration

	// command builds the tracer invocation; replaced in tests.
	command func(pid procfs.PID) *exec.Cmd
}

// NewManager returns a manager launching tracerPath (DefaultTracer if
// empty) with a ring of capacity lines and the given kill grace period.
func NewManager(tracerPath string, capacity int, grace time.Duration) *Manager {
	if tracerPath == "" {
		tracerPath = DefaultTracer
	}
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	if grace <= 0 {
		grace = defaultGrace
	}
	m := &Manager{tracer: tracerPath, capacity: capacity, grace: grace}
	m.command = m.traceCommand
	return m
}

// traceCommand builds the strace invocation used by the original tool:
// attach to the pid and all its threads, trace only write calls, keep up to
// 1024 bytes of each payload.
func (m *Manager) traceCommand(pid procfs.PID) *exec.Cmd {
	return exec.Command(m.tracer, "-f", "-p", strconv.Itoa(int(pid)), "-e", "trace=write", "-s", "1024")
}

// Start attaches a tracer to pid, tearing down any existing session first.
// A dead target returns ErrTargetNotFound and leaves no session. A tracer
// that cannot be launched leaves the session in Failed and returns the
// launch error.
func (m *Manager) Start(pid procfs.PID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked()

	if !targetAlive(pid) {
		return nil, fmt.Errorf("pid %d: %w", pid, ErrTargetNotFound)
	}

	sess := &Session{
		pid:    pid,
		ring:   NewRing(m.capacity),
		done:   make(chan struct{}),
		status: StatusStarting,
	}

	cmd := m.command(pid)
	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("create tracer pipe: %w", err)
	}
	// strace writes its trace to stderr; merge both streams into one pipe.
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		launchErr := fmt.Errorf("launch tracer %s: %w", m.tracer, err)
		sess.fail(launchErr)
		close(sess.done)
		m.sess = sess
		return sess, launchErr
	}
	pw.Close()

	sess.cmd = cmd
	sess.setStatus(StatusActive)
	m.sess = sess
	go m.capture(sess, pr)
	return sess, nil
}

// Stop tears down the active session, if any. Idempotent: stopping an
// absent or already-terminal session is a no-op.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

// stopLocked signals the tracer, escalates to SIGKILL after the grace
// period, and waits for the capture goroutine to finish. The session stays
// referenced so leftover output remains pollable until the next Start.
func (m *Manager) stopLocked() {
	sess := m.sess
	if sess == nil {
		return
	}
	if sess.Status().Terminal() {
		return
	}

	sess.markStopping()
	if sess.cmd != nil && sess.cmd.Process != nil {
		_ = sess.cmd.Process.Signal(unix.SIGTERM)
		select {
		case <-sess.done:
		case <-time.After(m.grace):
			_ = sess.cmd.Process.Kill()
			<-sess.done
		}
	}
	sess.setStatus(StatusStopped)
}

// Poll drains newly captured lines from the current session's ring buffer.
// Returns nil when there is no session or nothing new arrived.
func (m *Manager) Poll() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		return nil
	}
	return m.sess.ring.Drain()
}

// Session returns the current session, which may be in a terminal state, or
// nil if none was ever started.
func (m *Manager) Session() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess
}

// capture reads merged tracer output until EOF, then classifies why the
// tracer exited. Runs as the session's single long-lived reader goroutine.
func (m *Manager) capture(sess *Session, pr *os.File) {
	defer close(sess.done)

	scanner := bufio.NewScanner(pr)
	scanner.Buffer(make([]byte, 0, 64*1024), scanBufSize)
	for scanner.Scan() {
		raw := scanner.Text()
		sess.noteRaw(raw)
		out, ok := FormatLine(raw)
		if !ok {
			continue
		}
		for _, line := range strings.Split(out, "\n") {
			if line != "" {
				sess.ring.Append(line)
			}
		}
	}
	pr.Close()
	waitErr := sess.cmd.Wait()

	switch {
	case sess.isStopping():
		sess.setStatus(StatusStopped)
	case !targetAlive(sess.pid):
		// Target exit ends the capture; deliver an explicit marker so the
		// consumer sees the boundary of the partial output.
		sess.ring.Append(fmt.Sprintf("+++ process %d exited +++", sess.pid))
		sess.setStatus(StatusStopped)
	case waitErr != nil:
		diag := strings.Join(sess.recentRaw(), "\n")
		sess.fail(fmt.Errorf("tracer exited unexpectedly: %v\n%s", waitErr, diag))
	default:
		// Tracer detached cleanly on its own.
		sess.setStatus(StatusStopped)
	}
}

// targetAlive probes pid with signal 0. EPERM means the process exists but
// belongs to someone else, which still counts as alive.
func targetAlive(pid procfs.PID) bool {
	err := unix.Kill(int(pid), 0)
	if err == nil {
		return true
	}
	return errors.Is(err, unix.EPERM)
}
