// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package ingest

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// workCounter is the single shared in-flight work counter described in
// the concurrency model: producers (enumeration/listing) increment it
// for each unit queued, the reducer decrements it for each unit
// consumed. atomic.Int64 gives it acquire-release semantics, so an
// increment on the producer side happens-before the matching
// decrement on the consumer side.
type workCounter struct {
	n     atomic.Int64
	gauge prometheus.Gauge
}

func newWorkCounter(gauge prometheus.Gauge) *workCounter {
	return &workCounter{gauge: gauge}
}

func (c *workCounter) inc() {
	c.n.Add(1)
	if c.gauge != nil {
		c.gauge.Inc()
	}
}

func (c *workCounter) dec() int64 {
	v := c.n.Add(-1)
	if c.gauge != nil {
		c.gauge.Dec()
	}
	return v
}

func (c *workCounter) load() int64 {
	return c.n.Load()
}

// WorkInFlightGauge is an optional prometheus gauge an operator can
// register and pass to the orchestrator to mirror the in-flight work
// counter alongside the required stdout progress lines.
func WorkInFlightGauge() prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "accesslog_aggregator_work_in_flight",
		Help: "Units of enumerated work queued but not yet reduced.",
	})
}
