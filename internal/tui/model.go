package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"stdutil/internal/app"
	"stdutil/internal/procfs"
	"stdutil/internal/snapshot"
	"stdutil/internal/trace"
)

const (
	tracePollInterval = 200 * time.Millisecond
	traceScrollback   = 2000
)

// Controller defines the subset of app.App behaviour the TUI needs.
type Controller interface {
	Current() *snapshot.Snapshot
	Updates() <-chan app.Update
	RefreshNow()
	StartTrace(pid procfs.PID) error
	StopTrace()
	PollTrace() []string
	TraceSession() *trace.Session
}

type screen int

const (
	screenList screen = iota
	screenDetail
	screenTrace
)

var (
	statusOKStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	statusErrStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	sectionStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	errFieldStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	traceStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// Model represents the Bubble Tea state.
type Model struct {
	controller Controller

	screen screen
	list   list.Model
	detail viewport.Model
	trace  viewport.Model

	selectedPID procfs.PID
	traceLines  []string

	statusMsg string
	err       error
	loading   bool

	width  int
	height int

	lastUpdated time.Time
}

// New constructs a TUI model with default styles.
func New(ctrl Controller) *Model {
	delegate := list.NewDefaultDelegate()
	lst := list.New([]list.Item{}, delegate, 0, 0)
	lst.Title = "Processes"
	lst.SetShowHelp(false)
	lst.SetFilteringEnabled(true)
	lst.DisableQuitKeybindings()

	return &Model{
		controller: ctrl,
		list:       lst,
		statusMsg:  "Waiting for first snapshot…",
		loading:    true,
	}
}

// Run spins up the Bubble Tea program with sensible defaults.
func Run(ctrl Controller) error {
	m := New(ctrl)
	prog := tea.NewProgram(m, tea.WithAltScreen())
	_, err := prog.Run()
	return err
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.controller), traceTick())
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.height > 4 {
			m.list.SetSize(msg.Width, msg.Height-4)
			m.detail.Width = msg.Width
			m.detail.Height = msg.Height - 3
			m.trace.Width = msg.Width - 4
			m.trace.Height = msg.Height - 5
		}

	case updateMsg:
		return m.applyUpdate(app.Update(msg))

	case traceTickMsg:
		m.drainTrace()
		return m, traceTick()

	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering && m.screen == screenList {
			break
		}
		return m.handleKey(msg)
	}

	return m.updateChild(msg)
}

func (m *Model) applyUpdate(u app.Update) (tea.Model, tea.Cmd) {
	m.loading = false
	if u.Err != nil {
		m.err = u.Err
		m.statusMsg = "Process table unavailable"
		return m, waitForUpdate(m.controller)
	}
	m.err = nil
	m.lastUpdated = u.Snapshot.TakenAt()
	m.statusMsg = fmt.Sprintf(
		"Snapshot #%d • %d processes • +%d −%d Δ%d",
		u.Snapshot.Seq(), u.Snapshot.Len(),
		len(u.Diff.Appeared), len(u.Diff.Vanished), len(u.Diff.Changed),
	)

	items := make([]list.Item, 0, u.Snapshot.Len())
	for _, pid := range u.Snapshot.PIDs() {
		rec, _ := u.Snapshot.Get(pid)
		items = append(items, processItem{rec})
	}
	cursor := m.list.Index()
	m.list.SetItems(items)
	if cursor < len(items) {
		m.list.Select(cursor)
	}

	if m.screen == screenDetail {
		m.renderDetail()
	}
	return m, waitForUpdate(m.controller)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.screen {
	case screenList:
		switch msg.String() {
		case "ctrl+c", "q":
			m.controller.StopTrace()
			return m, tea.Quit
		case "r":
			m.controller.RefreshNow()
			return m, nil
		case "enter":
			if item, ok := m.list.SelectedItem().(processItem); ok {
				m.selectedPID = item.rec.PID
				m.screen = screenDetail
				m.renderDetail()
			}
			return m, nil
		case "t":
			if item, ok := m.list.SelectedItem().(processItem); ok {
				return m.startTrace(item.rec.PID)
			}
			return m, nil
		}

	case screenDetail:
		switch msg.String() {
		case "ctrl+c":
			m.controller.StopTrace()
			return m, tea.Quit
		case "q", "esc":
			m.screen = screenList
			return m, nil
		case "r":
			m.controller.RefreshNow()
			return m, nil
		case "t":
			return m.startTrace(m.selectedPID)
		}

	case screenTrace:
		switch msg.String() {
		case "ctrl+c":
			m.controller.StopTrace()
			return m, tea.Quit
		case "q", "esc":
			m.screen = screenList
			return m, nil
		case "s":
			m.controller.StopTrace()
			return m, nil
		}
	}
	return m.updateChild(msg)
}

func (m *Model) startTrace(pid procfs.PID) (tea.Model, tea.Cmd) {
	m.traceLines = nil
	m.trace.SetContent("")
	if err := m.controller.StartTrace(pid); err != nil {
		m.err = err
		return m, nil
	}
	m.err = nil
	m.selectedPID = pid
	m.screen = screenTrace
	return m, nil
}

func (m *Model) updateChild(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.screen {
	case screenList:
		m.list, cmd = m.list.Update(msg)
	case screenDetail:
		m.detail, cmd = m.detail.Update(msg)
	case screenTrace:
		m.trace, cmd = m.trace.Update(msg)
	}
	return m, cmd
}

func (m *Model) drainTrace() {
	lines := m.controller.PollTrace()
	if len(lines) == 0 {
		return
	}
	m.traceLines = append(m.traceLines, lines...)
	if len(m.traceLines) > traceScrollback {
		m.traceLines = m.traceLines[len(m.traceLines)-traceScrollback:]
	}
	if m.screen == screenTrace {
		m.trace.SetContent(strings.Join(m.traceLines, "\n"))
		m.trace.GotoBottom()
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder

	style := statusOKStyle
	if m.err != nil {
		style = statusErrStyle
	}
	b.WriteString(style.Render(m.statusMsg))
	b.WriteByte('\n')

	if m.err != nil {
		b.WriteString(errFieldStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteByte('\n')
	}

	switch m.screen {
	case screenList:
		if m.loading {
			b.WriteString("Loading processes…\n")
		} else {
			b.WriteString(m.list.View())
			b.WriteByte('\n')
		}
		b.WriteString(m.helpLine("enter details • t trace • / filter • r refresh • q quit"))

	case screenDetail:
		b.WriteString(m.detail.View())
		b.WriteByte('\n')
		b.WriteString(m.helpLine("t trace • r refresh • esc back"))

	case screenTrace:
		b.WriteString(m.traceHeader())
		b.WriteByte('\n')
		b.WriteString(traceStyle.Render(m.trace.View()))
		b.WriteByte('\n')
		b.WriteString(m.helpLine("s stop trace • esc back • q quit"))
	}
	return b.String()
}

func (m *Model) traceHeader() string {
	sess := m.controller.TraceSession()
	if sess == nil {
		return sectionStyle.Render("No trace session")
	}
	header := fmt.Sprintf("Tracing pid %d • %s", int(sess.PID()), sess.Status())
	if err := sess.Err(); err != nil {
		header += " • " + firstLine(err.Error())
	}
	if sess.Status() == trace.StatusFailed {
		return statusErrStyle.Render(header)
	}
	return sectionStyle.Render(header)
}

func (m *Model) helpLine(help string) string {
	if !m.lastUpdated.IsZero() {
		help += fmt.Sprintf(" • last update %s", m.lastUpdated.Format(time.Kitchen))
	}
	return helpStyle.Render(help)
}

func (m *Model) renderDetail() {
	snap := m.controller.Current()
	if snap == nil {
		m.detail.SetContent("no snapshot yet")
		return
	}
	rec, ok := snap.Get(m.selectedPID)
	if !ok {
		m.detail.SetContent(fmt.Sprintf("process %d is gone", int(m.selectedPID)))
		return
	}
	m.detail.SetContent(renderRecord(rec))
}

// processItem adapts a process record to the bubbles list item interface.
type processItem struct {
	rec procfs.Record
}

func (p processItem) Title() string {
	return fmt.Sprintf("%6d  %-10s %-8s %7s  %6s  %s",
		int(p.rec.PID),
		fieldOrDash(p.rec, procfs.FieldOwner, p.rec.Owner),
		p.rec.State,
		cpuString(p.rec),
		memString(p.rec),
		p.rec.Command,
	)
}

func (p processItem) Description() string {
	parts := []string{fmt.Sprintf("fds=%d", len(p.rec.FDs))}
	if p.rec.FDsTruncated {
		parts[0] += "+"
	}
	parts = append(parts, fmt.Sprintf("maps=%d", len(p.rec.Maps)))
	if len(p.rec.Errors) > 0 {
		parts = append(parts, errFieldStyle.Render(errorSummary(p.rec.Errors)))
	}
	return strings.Join(parts, "  ")
}

func (p processItem) FilterValue() string {
	return fmt.Sprintf("%d %s %s", int(p.rec.PID), p.rec.Command, p.rec.Owner)
}

// --- rendering helpers ---

func renderRecord(rec procfs.Record) string {
	var b strings.Builder

	section := func(name string) {
		b.WriteString(sectionStyle.Render("── " + name))
		b.WriteByte('\n')
	}
	row := func(field procfs.Field, key, value string) {
		if cause, bad := rec.Errors[field]; bad {
			b.WriteString(fmt.Sprintf("  %-14s %s\n", key+":", errFieldStyle.Render("(unavailable: "+string(cause)+")")))
			return
		}
		b.WriteString(fmt.Sprintf("  %-14s %s\n", key+":", value))
	}

	section("General")
	row(procfs.FieldCommand, "command", rec.Command)
	row(procfs.FieldOwner, "owner", rec.Owner)
	row(procfs.FieldState, "state", string(rec.State))

	section("Memory")
	row(procfs.FieldMemory, "resident", humanBytes(rec.ResidentBytes))
	row(procfs.FieldMemory, "virtual", humanBytes(rec.VirtualBytes))

	section("CPU")
	row(procfs.FieldCPU, "total time", rec.CPUTime.String())
	row(procfs.FieldCPU, "usage", cpuString(rec))

	section("File descriptors")
	if rec.Unavailable(procfs.FieldFDs) {
		row(procfs.FieldFDs, "fds", "")
	} else {
		for _, fd := range rec.FDs {
			b.WriteString(fmt.Sprintf("  %4d → %s\n", fd.Num, fd.Target))
		}
		if rec.FDsTruncated {
			b.WriteString("  … truncated\n")
		}
	}

	section("Resource limits")
	if rec.Unavailable(procfs.FieldLimits) {
		row(procfs.FieldLimits, "limits", "")
	} else {
		for _, l := range rec.Limits {
			b.WriteString(fmt.Sprintf("  %-22s %-12s %-12s %s\n", l.Name, l.Soft, l.Hard, l.Units))
		}
	}

	section("Memory maps")
	if rec.Unavailable(procfs.FieldMaps) {
		row(procfs.FieldMaps, "maps", "")
	} else {
		for _, mp := range rec.Maps {
			path := mp.Path
			if path == "" {
				path = "(anonymous)"
			}
			b.WriteString(fmt.Sprintf("  %012x-%012x %s %s\n", mp.Start, mp.End, mp.Perms, path))
		}
		if rec.MapsTruncated {
			b.WriteString("  … truncated\n")
		}
	}

	section("I/O")
	row(procfs.FieldIO, "read", humanBytes(rec.IO.ReadBytes))
	row(procfs.FieldIO, "written", humanBytes(rec.IO.WriteBytes))
	row(procfs.FieldIO, "syscalls", fmt.Sprintf("r=%d w=%d", rec.IO.ReadCalls, rec.IO.WriteCalls))

	return b.String()
}

func cpuString(rec procfs.Record) string {
	if rec.Unavailable(procfs.FieldCPU) || !rec.CPU.Known {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", rec.CPU.Fraction*100)
}

func memString(rec procfs.Record) string {
	if rec.Unavailable(procfs.FieldMemory) {
		return "-"
	}
	return humanBytes(rec.ResidentBytes)
}

func fieldOrDash(rec procfs.Record, f procfs.Field, v string) string {
	if rec.Unavailable(f) || strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}

func errorSummary(errs procfs.FieldErrors) string {
	names := make([]string, 0, len(errs))
	for _, f := range procfs.AllFields {
		if _, ok := errs[f]; ok {
			names = append(names, string(f))
		}
	}
	return "unreadable: " + strings.Join(names, ",")
}

func humanBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%c", float64(n)/float64(div), "KMGTPE"[exp])
}

// --- messages and commands ---

type updateMsg app.Update

type traceTickMsg struct{}

func waitForUpdate(ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-ctrl.Updates()
		if !ok {
			return nil
		}
		return updateMsg(u)
	}
}

func traceTick() tea.Cmd {
	return tea.Tick(tracePollInterval, func(time.Time) tea.Msg {
		return traceTickMsg{}
	})
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
