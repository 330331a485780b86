package cmd

import (
	"context"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/webdavcrawl/batchdav/traverse"
	"github.com/webdavcrawl/batchdav/webdav"
)

var runQuiet bool

var runCmd = &cobra.Command{
	Use:   "run <base-url> <workers>",
	Short: "Traverse a hierarchy once",
	Args:  cobra.ExactArgs(2),
	RunE:  runRun,
}

func init() {
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "Do not print details on each request as it's completed.")
}

func runRun(cmd *cobra.Command, args []string) error {
	baseURL, err := url.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid base-url %q: %w", args[0], err)
	}
	workers, err := parseWorkers(args[1])
	if err != nil {
		return err
	}

	client := webdav.NewClient()
	report, err := traverse.Traverse(context.Background(), client, baseURL, workers, runQuiet, logger)
	if err != nil {
		return err
	}

	fmt.Printf("Performed %d requests with %d workers in %s\n", report.Requests(), report.Workers, report.OverallTime)
	return nil
}

func parseWorkers(s string) (int, error) {
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return 0, fmt.Errorf("invalid workers value %q: %w", s, err)
	}
	if n < 1 {
		return 0, fmt.Errorf("workers must be a positive integer, got %q", s)
	}
	return n, nil
}
