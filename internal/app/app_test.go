package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"stdutil/internal/config"
	"stdutil/internal/procfs"
	"stdutil/internal/trace"
)

func fakeProc(t *testing.T, pids ...int) string {
	t.Helper()
	root := t.TempDir()
	for _, pid := range pids {
		dir := filepath.Join(root, strconv.Itoa(pid))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		stat := strconv.Itoa(pid) + " (fake) S 1 1 1 0 -1 0 0 0 0 0 5 5 0 0 20 0 1 0 1 0 0 0"
		files := map[string]string{
			"stat":    stat,
			"statm":   "100 50 10 1 0 5 0",
			"cmdline": "fake\x00",
			"limits":  "Limit  Soft Limit  Hard Limit  Units\nMax open files 1024 4096 files\n",
			"maps":    "00400000-00401000 r-xp 00000000 08:02 1 /usr/bin/fake\n",
			"io":      "rchar: 1\nwchar: 2\nsyscr: 3\nsyscw: 4\nread_bytes: 5\nwrite_bytes: 6\n",
		}
		for name, content := range files {
			if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
				t.Fatalf("write %s: %v", name, err)
			}
		}
	}
	return root
}

func testApp(t *testing.T, pids ...int) *App {
	t.Helper()
	cfg := config.Default()
	cfg.ProcRoot = fakeProc(t, pids...)
	return New(Options{Config: cfg})
}

func TestRefreshOnce(t *testing.T) {
	a := testApp(t, 100, 200)

	if a.Current() != nil {
		t.Fatalf("snapshot should be nil before the first refresh")
	}

	snap, diff, err := a.RefreshOnce(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if snap.Len() != 2 {
		t.Fatalf("snapshot holds %d processes", snap.Len())
	}
	if len(diff.Appeared) != 2 {
		t.Fatalf("appeared = %v", diff.Appeared)
	}
	if a.Current() != snap {
		t.Fatalf("current snapshot not updated")
	}

	rec, ok := snap.Get(100)
	if !ok || rec.Command != "fake" {
		t.Fatalf("record = %+v", rec)
	}

	snap2, _, err := a.RefreshOnce(context.Background())
	if err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	if snap2.Seq() != snap.Seq()+1 {
		t.Fatalf("seq %d after %d", snap2.Seq(), snap.Seq())
	}
}

func TestRefreshOnceEnumerationFailure(t *testing.T) {
	cfg := config.Default()
	cfg.ProcRoot = filepath.Join(t.TempDir(), "missing")
	a := New(Options{Config: cfg})

	if _, _, err := a.RefreshOnce(context.Background()); err == nil {
		t.Fatalf("expected error for unreadable proc root")
	}
	if a.Current() != nil {
		t.Fatalf("failed refresh must not publish a snapshot")
	}
}

func TestStartTraceDeadTarget(t *testing.T) {
	a := testApp(t, 100)

	err := a.StartTrace(procfs.PID(1 << 30))
	if !errors.Is(err, trace.ErrTargetNotFound) {
		t.Fatalf("err = %v", err)
	}
	if a.TraceSession() != nil {
		t.Fatalf("no session should exist after a dead-target start")
	}
	if lines := a.PollTrace(); lines != nil {
		t.Fatalf("poll = %v", lines)
	}
}
