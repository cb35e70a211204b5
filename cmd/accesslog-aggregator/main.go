// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
// Command accesslog-aggregator ingests a named access-log source
// (local filesystem or S3) over an optional time range and writes
// three summary TSVs to its working directory.
package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cc-accesslog/aggregator/internal/ingest"
	"github.com/cc-accesslog/aggregator/internal/objectstore"
	"github.com/cc-accesslog/aggregator/internal/sourceconfig"
	"github.com/cc-accesslog/aggregator/pkg/aggregate"
	"github.com/cc-accesslog/aggregator/pkg/log"
	"github.com/cc-accesslog/aggregator/pkg/pathexpr"
)

func main() {
	cliInit()
	log.SetLevel(flagLogLevel)
	log.SetDateTime(flagLogDateTime)

	if flagSource == "" {
		log.Fatal("main: -source is required")
	}

	start := time.Now()

	datasources, err := sourceconfig.Load(flagSourceFile)
	if err != nil {
		log.Fatal(err)
	}

	from, to, err := sourceconfig.ParsePeriod(flagPeriod)
	if err != nil {
		log.Fatal(err)
	}
	opts := pathexpr.PathMatchOptions{From: from, To: to}

	var gauge prometheus.Gauge
	if flagMetrics {
		gauge = ingest.WorkInFlightGauge()
		prometheus.MustRegister(gauge)
		go serveMetrics()
	}
	runOpts := ingest.Options{Progress: os.Stdout, Gauge: gauge}

	reduced, err := run(datasources, opts, runOpts)
	if err != nil {
		log.Fatal(err)
	}

	if err := ingest.Dump(reduced, flagWorkdir); err != nil {
		log.Fatal(err)
	}

	log.Infof("Complete in %d ms", time.Since(start).Milliseconds())
}

func run(datasources *sourceconfig.Datasources, opts pathexpr.PathMatchOptions, runOpts ingest.Options) (*aggregate.Consumer, error) {
	if fileSrc, ok := datasources.FindFile(flagSource); ok {
		expr, err := pathexpr.Parse(fileSrc.PathExp)
		if err != nil {
			return nil, err
		}
		return ingest.RunLocal(expr, opts, runOpts)
	}

	s3Src, ok := datasources.FindS3(flagSource)
	if !ok {
		log.Fatalf("main: unknown source %q", flagSource)
	}
	expr, err := pathexpr.Parse(s3Src.PathExp)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	client, err := objectstore.New(ctx, objectstore.Config{
		Region:   s3Src.Region,
		Endpoint: s3Src.Endpoint,
	}, s3Src.Bucket)
	if err != nil {
		return nil, err
	}
	return ingest.RunS3(ctx, client, s3Src.Bucket, expr, opts, runOpts)
}

func serveMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(":9090", mux); err != nil {
		log.Warnf("main: metrics server: %s", err)
	}
}
