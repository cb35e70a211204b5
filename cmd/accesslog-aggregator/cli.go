// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import "flag"

var (
	flagSource      string
	flagSourceFile  string
	flagPeriod      string
	flagWorkdir     string
	flagLogLevel    string
	flagLogDateTime bool
	flagMetrics     bool
)

func cliInit() {
	flag.StringVar(&flagSource, "source", "", "Name of the configured source to ingest (required)")
	flag.StringVar(&flagSourceFile, "sources-file", "./datasources.json", "Path to the datasources configuration")
	flag.StringVar(&flagPeriod, "period", "", "Time range `YYYY-MM-DD:hh:mm:ss..YYYY-MM-DD:hh:mm:ss` (either side may be omitted)")
	flag.StringVar(&flagWorkdir, "workdir", ".", "Directory the three output TSVs are written into")
	flag.StringVar(&flagLogLevel, "loglevel", "info", "Sets the logging level: `[debug, info, warn, err]`")
	flag.BoolVar(&flagLogDateTime, "logdate", false, "Set this flag to add date and time to log messages")
	flag.BoolVar(&flagMetrics, "metrics", false, "Serve a Prometheus /metrics endpoint mirroring the in-flight work gauge")
	flag.Parse()
}
