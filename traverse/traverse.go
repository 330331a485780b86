// Package traverse composes the nursery and webdav packages into the
// actual crawl: a self-recursive directory walk whose concurrency is
// entirely delegated to nursery.Nursery, and whose only domain logic is
// "list a directory, spawn a child task per entry, report what
// happened."
//
// Grounded on original_source/src/traverse.rs's process_dir/
// process_file pair; the WorkerNursery<T> there is this repository's
// nursery.Nursery[T].
package traverse

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/webdavcrawl/batchdav/common"
	"github.com/webdavcrawl/batchdav/nursery"
	"github.com/webdavcrawl/batchdav/webdav"
)

// crawlLogger prefixes every log line with the crawl ID that started
// it, the traversal-scoped analog of the teacher's job-ID-keyed
// jobLogger: every processDir/processFile task shares one Traverse
// call's ID, so lines from different crawls (e.g. the successive
// traversals of a batch run) can be told apart in a shared log stream.
type crawlLogger struct {
	inner common.ILogger
	id    uuid.UUID
}

func (l crawlLogger) ShouldLog(level common.LogLevel) bool { return l.inner.ShouldLog(level) }

func (l crawlLogger) Log(level common.LogLevel, msg string) {
	l.inner.Log(level, "["+l.id.String()+"] "+msg)
}

// ReportKind discriminates the two cases of Report, standing in for the
// original's Report::Dir/Report::File enum variants.
type ReportKind uint8

const (
	ReportDir ReportKind = iota
	ReportFile
)

// Report is one visited node's outcome: either a listed directory or a
// probed file. Target is set only for ReportFile, and only when the
// probe found a redirect.
type Report struct {
	Kind    ReportKind
	URL     *url.URL
	Elapsed time.Duration
	Target  *url.URL // ReportFile only; nil if not a redirect
	Err     error
}

func (r Report) String() string {
	switch r.Kind {
	case ReportDir:
		return fmt.Sprintf("DIR: %s (%s)", r.URL, r.Elapsed)
	case ReportFile:
		if r.Target == nil {
			return fmt.Sprintf("FILE: %s => <NOT A REDIRECT> (%s)", r.URL, r.Elapsed)
		}
		return fmt.Sprintf("FILE: %s => %s (%s)", r.URL, r.Target, r.Elapsed)
	default:
		return fmt.Sprintf("UNKNOWN REPORT: %+v", r)
	}
}

// TraversalReport summarizes one completed (or aborted) crawl: every
// directory and file request's round-trip latency, plus the wall-clock
// time for the whole traversal.
type TraversalReport struct {
	Workers               int
	DirectoryRequestTimes []time.Duration
	FileRequestTimes      []time.Duration
	OverallTime           time.Duration
}

// Requests is the total number of HTTP requests the crawl issued.
func (r TraversalReport) Requests() int {
	return len(r.DirectoryRequestTimes) + len(r.FileRequestTimes)
}

// Traverse walks the tree rooted at baseURL, bounding concurrent
// requests at workers. Each visited node is printed to stdout as it
// completes unless quiet is set. The first error or panic encountered
// aborts the remainder of the crawl (nursery.Close cancels every
// outstanding task); an error is returned to the caller, and a task's
// panic is re-raised in the caller's goroutine.
func Traverse(ctx context.Context, client *webdav.Client, baseURL *url.URL, workers int, quiet bool, logger common.ILogger) (TraversalReport, error) {
	start := time.Now()
	scopedLogger := crawlLogger{inner: logger, id: uuid.New()}
	if scopedLogger.ShouldLog(common.LogInfo) {
		scopedLogger.Log(common.LogInfo, "starting traversal of "+baseURL.String())
	}

	n := nursery.New(workers, func(sp *nursery.Spawner[Report]) Report {
		return processDir(sp, client, baseURL, scopedLogger)
	})
	defer n.Close()

	stopWatching := make(chan struct{})
	defer close(stopWatching)
	go func() {
		select {
		case <-ctx.Done():
			n.Close()
		case <-stopWatching:
		}
	}()

	report := TraversalReport{Workers: workers}
	for result := range n.Results() {
		if result.Recovered() {
			n.Close()
			panic(result.Panic)
		}
		r := result.Value
		if r.Err != nil {
			n.Close()
			return report, r.Err
		}
		if !quiet {
			fmt.Println(r.String())
		}
		switch r.Kind {
		case ReportDir:
			report.DirectoryRequestTimes = append(report.DirectoryRequestTimes, r.Elapsed)
		case ReportFile:
			report.FileRequestTimes = append(report.FileRequestTimes, r.Elapsed)
		}
	}

	report.OverallTime = time.Since(start)
	return report, nil
}

// processDir lists one collection, spawns processDir for every child
// collection and processFile for every child file (spawned in listing
// order; they complete, and are reported, in whatever order they
// finish), and returns its
// own Report. It is self-recursive through the Spawner it's given,
// the Go equivalent of the original's boxed-future recursion trick
// (Go needs no such trick: a plain function value closes over itself
// just fine).
func processDir(sp *nursery.Spawner[Report], client *webdav.Client, target *url.URL, logger common.ILogger) Report {
	if logger.ShouldLog(common.LogDebug) {
		logger.Log(common.LogDebug, "listing "+target.String())
	}

	listing, elapsed, err := client.ListDirectory(sp.Context(), target)
	if err != nil {
		return Report{Kind: ReportDir, URL: target, Elapsed: elapsed, Err: errors.Wrapf(err, "listing %s", target)}
	}

	for _, child := range listing.Directories {
		child := child
		sp.Spawn(func(sp2 *nursery.Spawner[Report]) Report {
			return processDir(sp2, client, child, logger)
		})
	}
	for _, child := range listing.Files {
		child := child
		sp.Spawn(func(sp2 *nursery.Spawner[Report]) Report {
			return processFile(sp2, client, child, logger)
		})
	}

	return Report{Kind: ReportDir, URL: target, Elapsed: elapsed}
}

// processFile probes target with a HEAD request and reports whether it
// redirected.
func processFile(sp *nursery.Spawner[Report], client *webdav.Client, target *url.URL, logger common.ILogger) Report {
	if logger.ShouldLog(common.LogDebug) {
		logger.Log(common.LogDebug, "probing "+target.String())
	}

	redirect, elapsed, err := client.GetFileRedirect(sp.Context(), target)
	if err != nil {
		return Report{Kind: ReportFile, URL: target, Elapsed: elapsed, Err: errors.Wrapf(err, "probing %s", target)}
	}
	return Report{Kind: ReportFile, URL: target, Elapsed: elapsed, Target: redirect}
}
