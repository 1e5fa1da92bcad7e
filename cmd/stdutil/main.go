package main

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"stdutil/internal/app"
	"stdutil/internal/config"
)

var (
	configPath string
	verbose    bool

	logger = log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
)

var rootCmd = &cobra.Command{
	Use:   "stdutil [command]",
	Short: "stdutil: interactive process inspector",
	Long: `stdutil inspects running processes: live resource usage, open file
descriptors, memory maps, resource limits, and stdout/stderr capture through
an external tracer.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// newApp builds the shared facade used by every subcommand.
func newApp() (*app.App, error) {
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return app.New(app.Options{Config: cfg, Logger: logger}), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Fatal(err)
	}
}
