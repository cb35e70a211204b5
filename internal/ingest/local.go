// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package ingest

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cc-accesslog/aggregator/pkg/accesslog"
	"github.com/cc-accesslog/aggregator/pkg/aggregate"
	"github.com/cc-accesslog/aggregator/pkg/log"
	"github.com/cc-accesslog/aggregator/pkg/pathexpr"
)

// Local pool sizes, per the concurrency model: one enumerator feeding
// six parse workers.
const (
	localParseWorkers = 6
)

type localResult struct {
	identifier string
	consumer   *aggregate.Consumer
}

// Options tunes progress reporting common to both topologies. The
// zero value is usable: progress lines go to os.Stdout and no
// prometheus gauge is mirrored.
type Options struct {
	Progress io.Writer
	Gauge    prometheus.Gauge
}

func (o Options) progress() io.Writer {
	if o.Progress == nil {
		return os.Stdout
	}
	return o.Progress
}

// RunLocal enumerates files under expr (specialised by opts) on the
// local filesystem, parses each with 6 concurrent workers, and folds
// the results into a single Consumer.
func RunLocal(expr *pathexpr.PathExpression, opts pathexpr.PathMatchOptions, progress Options) (*aggregate.Consumer, error) {
	counter := newWorkCounter(progress.Gauge)
	actionsIn, actionsOut := newUnboundedChan[string]()
	resultsIn, resultsOut := newUnboundedChan[localResult]()

	it, err := expr.ListLocal(opts)
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}

	go func() {
		defer close(actionsIn)
		yielded := 0
		for {
			path, err := nextLocal(it)
			if path == "" && err == nil {
				break
			}
			if err != nil {
				log.Errorf("ingest: local enumeration: %s", err)
				continue
			}
			yielded++
			counter.inc()
			actionsIn <- path
		}
		if yielded == 0 {
			fmt.Fprintf(progress.progress(), "pattern did not match: %s\n", expr.CommonPrefix())
		} else {
			fmt.Fprintf(progress.progress(), "enumeration complete: %d known left\n", counter.load())
		}
	}()

	var wg sync.WaitGroup
	wg.Add(localParseWorkers)
	for i := 0; i < localParseWorkers; i++ {
		go func() {
			defer wg.Done()
			for path := range actionsOut {
				resultsIn <- parseLocalFile(path, progress.progress())
			}
		}()
	}
	go func() {
		wg.Wait()
		close(resultsIn)
	}()

	reduced := aggregate.New()
	completed := 0
	for r := range resultsOut {
		reduced.Merge(r.consumer)
		completed++
		remaining := counter.dec()
		fmt.Fprintf(progress.progress(), "%d completed (%d known left)\n", completed, remaining)
	}
	return reduced, nil
}

// nextLocal adapts (path, err, ok) into a (path, err) pair where an
// empty path and nil error means exhausted.
func nextLocal(it *pathexpr.LocalIterator) (string, error) {
	path, err, ok := it.Next()
	if !ok {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return path, nil
}

func parseLocalFile(path string, progress io.Writer) localResult {
	start := time.Now()
	consumer := aggregate.New()

	f, err := os.Open(path)
	if err != nil {
		log.Errorf("ingest: open %s: %s", path, err)
		return localResult{identifier: path, consumer: consumer}
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			log.Errorf("ingest: gunzip %s: %s", path, err)
			return localResult{identifier: path, consumer: consumer}
		}
		defer gz.Close()
		r = gz
	}

	parser := accesslog.NewParser()
	if err := parser.Parse(r, consumer.Handle); err != nil {
		log.Errorf("ingest: parse %s: %s", path, err)
	}

	fmt.Fprintf(progress, "%s (%dms)\n", path, time.Since(start).Milliseconds())
	return localResult{identifier: path, consumer: consumer}
}
