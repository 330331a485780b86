package cmd

import (
	"context"
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"

	"github.com/webdavcrawl/batchdav/traverse"
	"github.com/webdavcrawl/batchdav/webdav"
)

var (
	batchJSONFile          string
	batchPerTraversalStats bool
	batchSamples           int
)

var batchCmd = &cobra.Command{
	Use:   "batch <base-url> <workers>...",
	Short: "Traverse a hierarchy multiple times and summarize the results",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runBatch,
}

func init() {
	batchCmd.Flags().StringVarP(&batchJSONFile, "json-file", "J", "", "Write full per-traversal stats as JSON to this file. Conflicts with --per-traversal-stats.")
	batchCmd.Flags().BoolVarP(&batchPerTraversalStats, "per-traversal-stats", "T", false, "Emit a CSV line for each traversal rather than for each set of traversals per worker quantity.")
	batchCmd.Flags().IntVarP(&batchSamples, "samples", "s", 10, "Number of traversals to make for each number of workers.")
}

func runBatch(cmd *cobra.Command, args []string) error {
	if batchJSONFile != "" && batchPerTraversalStats {
		return fmt.Errorf("--json-file and --per-traversal-stats are mutually exclusive")
	}
	if batchSamples < 1 {
		return fmt.Errorf("--samples must be a positive integer")
	}

	baseURL, err := url.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid base-url %q: %w", args[0], err)
	}
	workersList := make([]int, 0, len(args)-1)
	for _, a := range args[1:] {
		w, err := parseWorkers(a)
		if err != nil {
			return err
		}
		workersList = append(workersList, w)
	}

	var statter statManager
	switch {
	case batchJSONFile != "":
		statter = newJSONFileStatManager(batchJSONFile, baseURL.String())
	case batchPerTraversalStats:
		statter = newPerTraversalStatManager(os.Stdout)
	default:
		statter = newPerWorkersStatManager(os.Stdout)
	}

	client := webdav.NewClient()
	statter.start()
	for _, workers := range workersList {
		for i := 0; i < batchSamples; i++ {
			report, err := traverse.Traverse(context.Background(), client, baseURL, workers, true, logger)
			if err != nil {
				return err
			}
			statter.process(report)
		}
	}
	return statter.end()
}
