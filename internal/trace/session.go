package trace

import (
	"os/exec"
	"sync"

	"stdutil/internal/procfs"
)

// Status tracks the session state machine:
//
//	Starting → Active → {Stopped, Failed}
//	Starting → Failed (launch error)
//
// Terminal states require a fresh Start to leave.
type Status int

const (
	StatusStarting Status = iota
	StatusActive
	StatusStopped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusStarting:
		return "starting"
	case StatusActive:
		return "active"
	case StatusStopped:
		return "stopped"
	case StatusFailed:
		return "failed"
	default:
		return "invalid"
	}
}

// Terminal reports whether the status can only be left via Start.
func (s Status) Terminal() bool {
	return s == StatusStopped || s == StatusFailed
}

const diagLines = 20

// Session is one capture in progress. Created and torn down exclusively by
// the Manager; callers observe it through Status, Err, and the manager's
// Poll.
type Session struct {
	pid  procfs.PID
	ring *Ring
	cmd  *exec.Cmd
	// closed by the capture goroutine when the tracer is fully reaped
	done chan struct{}

	mu       sync.Mutex
	status   Status
	err      error
	stopping bool
	// recent raw tracer lines kept for failure diagnostics
	diag []string
}

// PID is the traced target.
func (s *Session) PID() procfs.PID { return s.pid }

// Status returns the current state-machine position.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Err returns the failure detail for a Failed session, nil otherwise.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Done is closed once the tracer process has been reaped and the capture
// goroutine has exited.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) setStatus(st Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.Terminal() {
		return
	}
	s.status = st
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.Terminal() {
		return
	}
	s.status = StatusFailed
	s.err = err
}

func (s *Session) markStopping() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopping = true
}

func (s *Session) isStopping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopping
}

func (s *Session) noteRaw(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.diag) == diagLines {
		copy(s.diag, s.diag[1:])
		s.diag[len(s.diag)-1] = line
		return
	}
	s.diag = append(s.diag, line)
}

func (s *Session) recentRaw() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.diag))
	copy(out, s.diag)
	return out
}
