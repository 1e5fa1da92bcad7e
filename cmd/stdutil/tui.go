package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"stdutil/internal/tui"
)

func init() {
	rootCmd.AddCommand(cmdTUI)
}

var cmdTUI = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, unix.SIGTERM)
		defer stop()

		go func() {
			if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("refresh loop exited", "err", err)
			}
		}()

		if err := tui.Run(a); err != nil {
			return fmt.Errorf("tui exited with error: %w", err)
		}
		return nil
	},
}
