package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"stdutil/internal/procfs"
)

func init() {
	rootCmd.AddCommand(cmdInspect)
}

var cmdInspect = &cobra.Command{
	Use:   "inspect <pid>",
	Short: "Dump one process's attributes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pid, err := strconv.Atoi(args[0])
		if err != nil || pid <= 0 {
			return fmt.Errorf("invalid pid %q", args[0])
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		if !a.Reader().Alive(procfs.PID(pid)) {
			return fmt.Errorf("process %d does not exist", pid)
		}

		rec := a.Reader().ReadProcess(procfs.PID(pid))
		printRecord(rec)
		return nil
	},
}

func printRecord(rec procfs.Record) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	value := func(f procfs.Field, v string) string {
		if cause, bad := rec.Errors[f]; bad {
			return "(unavailable: " + string(cause) + ")"
		}
		return v
	}

	fmt.Fprintf(w, "pid:\t%d\n", int(rec.PID))
	fmt.Fprintf(w, "command:\t%s\n", value(procfs.FieldCommand, rec.Command))
	fmt.Fprintf(w, "owner:\t%s\n", value(procfs.FieldOwner, rec.Owner))
	fmt.Fprintf(w, "state:\t%s\n", value(procfs.FieldState, string(rec.State)))
	fmt.Fprintf(w, "resident:\t%s\n", value(procfs.FieldMemory, fmt.Sprintf("%d bytes", rec.ResidentBytes)))
	fmt.Fprintf(w, "virtual:\t%s\n", value(procfs.FieldMemory, fmt.Sprintf("%d bytes", rec.VirtualBytes)))
	fmt.Fprintf(w, "cpu time:\t%s\n", value(procfs.FieldCPU, rec.CPUTime.String()))
	fmt.Fprintf(w, "io read:\t%s\n", value(procfs.FieldIO, fmt.Sprintf("%d bytes (%d calls)", rec.IO.ReadBytes, rec.IO.ReadCalls)))
	fmt.Fprintf(w, "io written:\t%s\n", value(procfs.FieldIO, fmt.Sprintf("%d bytes (%d calls)", rec.IO.WriteBytes, rec.IO.WriteCalls)))

	fmt.Fprintln(w, "\nfile descriptors:")
	if cause, bad := rec.Errors[procfs.FieldFDs]; bad {
		fmt.Fprintf(w, "\t(unavailable: %s)\n", cause)
	} else {
		for _, fd := range rec.FDs {
			fmt.Fprintf(w, "\t%d\t%s\n", fd.Num, fd.Target)
		}
		if rec.FDsTruncated {
			fmt.Fprintln(w, "\t...\t(truncated)")
		}
	}

	fmt.Fprintln(w, "\nresource limits:")
	if cause, bad := rec.Errors[procfs.FieldLimits]; bad {
		fmt.Fprintf(w, "\t(unavailable: %s)\n", cause)
	} else {
		for _, l := range rec.Limits {
			fmt.Fprintf(w, "\t%s\t%s\t%s\t%s\n", l.Name, l.Soft, l.Hard, l.Units)
		}
	}

	fmt.Fprintln(w, "\nmemory maps:")
	if cause, bad := rec.Errors[procfs.FieldMaps]; bad {
		fmt.Fprintf(w, "\t(unavailable: %s)\n", cause)
	} else {
		for _, m := range rec.Maps {
			path := m.Path
			if path == "" {
				path = "(anonymous)"
			}
			fmt.Fprintf(w, "\t%x-%x\t%s\t%s\n", m.Start, m.End, m.Perms, path)
		}
		if rec.MapsTruncated {
			fmt.Fprintln(w, "\t...\t(truncated)")
		}
	}
}
