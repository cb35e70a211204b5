// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package ingest

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cc-accesslog/aggregator/pkg/accesslog"
	"github.com/cc-accesslog/aggregator/pkg/aggregate"
	"github.com/cc-accesslog/aggregator/pkg/log"
	"github.com/cc-accesslog/aggregator/pkg/pathexpr"
)

// S3 pool sizes, per the concurrency model: one specialisation
// enumerator, two listing workers, seven fetch-and-parse workers.
const (
	s3ListingWorkers    = 2
	s3FetchParseWorkers = 7
)

// Fetcher is the collaborator the S3 topology depends on: it both
// lists (via the embedded pathexpr.ObjectStoreClient) and fetches
// object bodies.
type Fetcher interface {
	pathexpr.ObjectStoreClient
	GetObject(ctx context.Context, key string) (io.ReadCloser, error)
}

type s3Action struct {
	key string
}

// RunS3 specialises expr per top-level variable, lists matching
// objects in bucket with 2 concurrent listing workers, fetches and
// parses each with 7 concurrent workers, and folds the results into a
// single Consumer.
func RunS3(ctx context.Context, client Fetcher, bucket string, expr *pathexpr.PathExpression, opts pathexpr.PathMatchOptions, progress Options) (*aggregate.Consumer, error) {
	counter := newWorkCounter(progress.Gauge)

	specialisedIn, specialisedOut := newUnboundedChan[*pathexpr.PathExpression]()
	actionsIn, actionsOut := newUnboundedChan[s3Action]()
	resultsIn, resultsOut := newUnboundedChan[localResult]()

	specIt, err := expr.SpecialiseFirstElement(client, bucket, opts)
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}

	go func() {
		defer close(specialisedIn)
		yielded := 0
		for {
			specialised, err, ok := specIt.Next(ctx)
			if !ok {
				break
			}
			if err != nil {
				log.Errorf("ingest: s3 specialisation: %s", err)
				continue
			}
			yielded++
			specialisedIn <- specialised
		}
		if yielded == 0 {
			fmt.Fprintf(progress.progress(), "pattern did not match: %s\n", expr.CommonPrefix())
		}
	}()

	var listingWG sync.WaitGroup
	listingWG.Add(s3ListingWorkers)
	for i := 0; i < s3ListingWorkers; i++ {
		go func() {
			defer listingWG.Done()
			for specialised := range specialisedOut {
				listS3Into(ctx, client, bucket, specialised, opts, counter, actionsIn, progress.progress())
			}
		}()
	}
	go func() {
		listingWG.Wait()
		close(actionsIn)
	}()

	var fetchWG sync.WaitGroup
	fetchWG.Add(s3FetchParseWorkers)
	for i := 0; i < s3FetchParseWorkers; i++ {
		go func() {
			defer fetchWG.Done()
			for action := range actionsOut {
				resultsIn <- fetchAndParse(ctx, client, action.key, progress.progress())
			}
		}()
	}
	go func() {
		fetchWG.Wait()
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

func listS3Into(ctx context.Context, client pathexpr.ObjectStoreClient, bucket string, expr *pathexpr.PathExpression, opts pathexpr.PathMatchOptions, counter *workCounter, actionsIn chan<- s3Action, progress io.Writer) {
	it, err := expr.ListS3(client, bucket, opts)
	if err != nil {
		log.Errorf("ingest: s3 listing: %s", err)
		return
	}
	listed := 0
	for {
		key, err, ok := it.Next(ctx)
		if !ok {
			break
		}
		if err != nil {
			log.Errorf("ingest: s3 listing: %s", err)
			return
		}
		listed++
		counter.inc()
		actionsIn <- s3Action{key: key}
	}
	if listed > 0 {
		fmt.Fprintf(progress, "listing %s complete: %d known left\n", expr.CommonPrefix(), counter.load())
	}
}

func fetchAndParse(ctx context.Context, client Fetcher, key string, progress io.Writer) localResult {
	start := time.Now()
	consumer := aggregate.New()

	body, err := client.GetObject(ctx, key)
	if err != nil {
		log.Errorf("ingest: fetch %s: %s", key, err)
		return localResult{identifier: key, consumer: consumer}
	}
	defer body.Close()

	parser := accesslog.NewParser()
	if err := parser.Parse(body, consumer.Handle); err != nil {
		log.Errorf("ingest: parse %s: %s", key, err)
	}

	fmt.Fprintf(progress, "%s (%dms)\n", key, time.Since(start).Milliseconds())
	return localResult{identifier: key, consumer: consumer}
}
