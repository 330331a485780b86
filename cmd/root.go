// Package cmd is the CLI surface: a cobra root command with two
// subcommands, run and batch, scaffolded the way the teacher's own
// cmd/root.go sets up its rootCmd/Execute pair, trimmed to what a
// two-subcommand crawler needs (no job-plan folders, no STE
// concurrency bootstrap, no benchmarking mode).
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/webdavcrawl/batchdav/common"
)

var logLevelRaw string
var logger common.ILogger

var rootCmd = &cobra.Command{
	Use:     "batchdav",
	Short:   "Traverse WebDAV hierarchies using concurrent tasks",
	Version: common.BatchdavVersion,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := parseLogLevel(logLevelRaw)
		if err != nil {
			return err
		}
		logger = common.NewConsoleLogger(level)
		return nil
	},
}

// Execute runs the root command; it is the sole entry point main.go
// calls.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if cause := common.Cause(err); cause != err {
			fmt.Fprintln(os.Stderr, "caused by:", cause)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevelRaw, "log-level", "warning", "Minimum severity to log: none, error, warning, info, debug.")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(batchCmd)
}

func parseLogLevel(s string) (common.LogLevel, error) {
	switch s {
	case "none":
		return common.LogNone, nil
	case "error":
		return common.LogError, nil
	case "warning":
		return common.LogWarning, nil
	case "info":
		return common.LogInfo, nil
	case "debug":
		return common.LogDebug, nil
	default:
		return 0, fmt.Errorf("unrecognized --log-level %q", s)
	}
}
