package cmd

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/webdavcrawl/batchdav/traverse"
)

func TestPerTraversalStatManagerEmitsCSVLine(t *testing.T) {
	a := assert.New(t)
	var buf bytes.Buffer
	m := newPerTraversalStatManager(&buf)
	m.start()
	m.process(traverse.TraversalReport{
		Workers:               4,
		DirectoryRequestTimes: []time.Duration{time.Second},
		FileRequestTimes:      []time.Duration{time.Second, time.Second},
		OverallTime:           2 * time.Second,
	})
	a.NoError(m.end())

	out := buf.String()
	a.Contains(out, "workers,requests,elapsed")
	a.Contains(out, "4,3,2.000000")
}

func TestPerWorkersStatManagerComputesMeanAndStddev(t *testing.T) {
	a := assert.New(t)
	var buf bytes.Buffer
	m := newPerWorkersStatManager(&buf)
	m.start()
	m.process(traverse.TraversalReport{Workers: 2, OverallTime: 1 * time.Second})
	m.process(traverse.TraversalReport{Workers: 2, OverallTime: 3 * time.Second})
	a.NoError(m.end())

	out := buf.String()
	a.Contains(out, "workers,time_mean,time_stddev")
	// samples [1, 3] -> mean 2.0, sample stddev sqrt(2) ~= 1.414214
	a.Contains(out, "2,2.000000,1.414214")
}
