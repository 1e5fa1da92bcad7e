package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"stdutil/internal/procfs"
	"stdutil/internal/trace"
)

func init() {
	rootCmd.AddCommand(cmdTrace)
}

var cmdTrace = &cobra.Command{
	Use:   "trace <pid>",
	Short: "Stream a process's stdout/stderr writes until interrupted",
	Long: `Attaches the external tracer to the target process and prints every
captured write to stdout or stderr. Press Ctrl+C to detach.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pid, err := strconv.Atoi(args[0])
		if err != nil || pid <= 0 {
			return fmt.Errorf("invalid pid %q", args[0])
		}

		a, err := newApp()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, unix.SIGTERM)
		defer stop()

		spin := spinner.New(spinner.CharSets[14], 120*time.Millisecond, spinner.WithWriter(os.Stderr))
		spin.Suffix = fmt.Sprintf(" attaching to pid %d...", pid)
		spin.Start()
		err = a.StartTrace(procfs.PID(pid))
		spin.Stop()
		if err != nil {
			return err
		}
		defer a.StopTrace()

		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				fmt.Fprintln(os.Stderr, "detached")
				return nil
			case <-ticker.C:
				for _, line := range a.PollTrace() {
					fmt.Println(line)
				}
				sess := a.TraceSession()
				if sess == nil || !sess.Status().Terminal() {
					continue
				}
				for _, line := range a.PollTrace() {
					fmt.Println(line)
				}
				if sess.Status() == trace.StatusFailed {
					return fmt.Errorf("trace failed: %w", sess.Err())
				}
				fmt.Fprintln(os.Stderr, "trace stopped")
				return nil
			}
		}
	},
}
