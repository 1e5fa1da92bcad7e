package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"stdutil/internal/procfs"
)

// cpuSampleGap separates the two snapshots needed to derive CPU fractions.
const cpuSampleGap = 400 * time.Millisecond

func init() {
	rootCmd.AddCommand(cmdList)
}

var cmdList = &cobra.Command{
	Use:   "list",
	Short: "Print a one-shot table of running processes",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		// Two samples so cpu fractions are derivable on the second one.
		if _, _, err := a.RefreshOnce(cmd.Context()); err != nil {
			return err
		}
		time.Sleep(cpuSampleGap)
		snap, _, err := a.RefreshOnce(cmd.Context())
		if err != nil {
			return err
		}

		maxWidth := 0
		if term.IsTerminal(int(os.Stdout.Fd())) {
			if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
				maxWidth = w
			}
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PID\tOWNER\tSTATE\tCPU\tRSS\tCOMMAND")
		for _, pid := range snap.PIDs() {
			rec, _ := snap.Get(pid)
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
				int(rec.PID),
				stringOrDash(rec, procfs.FieldOwner, rec.Owner),
				rec.State,
				cpuColumn(rec),
				memColumn(rec),
				clip(rec.Command, maxWidth-48),
			)
		}
		return w.Flush()
	},
}

func cpuColumn(rec procfs.Record) string {
	if rec.Unavailable(procfs.FieldCPU) || !rec.CPU.Known {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", rec.CPU.Fraction*100)
}

func memColumn(rec procfs.Record) string {
	if rec.Unavailable(procfs.FieldMemory) {
		return "-"
	}
	return fmt.Sprintf("%.1fM", float64(rec.ResidentBytes)/(1024*1024))
}

func stringOrDash(rec procfs.Record, f procfs.Field, v string) string {
	if rec.Unavailable(f) || v == "" {
		return "-"
	}
	return v
}

// clip shortens s to max runes, never splitting a multi-byte character.
func clip(s string, max int) string {
	if max <= 3 || len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
