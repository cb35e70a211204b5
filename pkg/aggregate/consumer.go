// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
//
// Package aggregate accumulates parsed access-log records into the
// three summary dimensions the pipeline reports on: response status,
// URI category, and response-time distribution, each bucketed into
// fixed-width time-slices. A Consumer is built per worker and folded
// into a single result with Merge, so Merge must stay associative and
// commutative.
package aggregate

import (
	"fmt"
	"io"
	"sort"

	hdrhistogram "github.com/HdrHistogram/hdrhistogram-go"

	"github.com/cc-accesslog/aggregator/pkg/accesslog"
	"github.com/cc-accesslog/aggregator/pkg/uritype"
)

const (
	statusSliceWidth  = 300
	latencySliceWidth = 1200

	// histogramMax bounds the tracked microsecond range: a generous 24h,
	// far beyond any plausible single-request service time.
	histogramMin     = int64(1)
	histogramMax     = int64(24 * 3600 * 1_000_000)
	histogramSigFigs = 1
)

type statusKey struct {
	timeslice int64
	status    string
}

type uritypeKey struct {
	timeslice int64
	uritype   uritype.Type
}

// Consumer is the per-worker accumulator described in spec.md §4.3.
type Consumer struct {
	byStatusTimeslice map[statusKey]uint64
	timeslices        map[int64]struct{}
	statuses          map[string]struct{}

	byUritypeTimeslice map[uritypeKey]uint64
	uritypes           map[uritype.Type]struct{}

	histByTimeslice map[int64]*hdrhistogram.Histogram
	totalHist       *hdrhistogram.Histogram
}

// New returns an empty Consumer ready to Handle records.
func New() *Consumer {
	return &Consumer{
		byStatusTimeslice:  make(map[statusKey]uint64),
		timeslices:         make(map[int64]struct{}),
		statuses:           make(map[string]struct{}),
		byUritypeTimeslice: make(map[uritypeKey]uint64),
		uritypes:           make(map[uritype.Type]struct{}),
		histByTimeslice:    make(map[int64]*hdrhistogram.Histogram),
		totalHist:          newHistogram(),
	}
}

func newHistogram() *hdrhistogram.Histogram {
	return hdrhistogram.New(histogramMin, histogramMax, histogramSigFigs)
}

// timeslice returns the start second of the width-second bin
// containing epochSeconds.
func timeslice(epochSeconds int64, width int64) int64 {
	return (epochSeconds / width) * width
}

// Handle folds one record's status, URI category, and response time
// into the accumulator.
func (c *Consumer) Handle(r accesslog.Record) {
	epoch := r.Timestamp.Unix()
	slice300 := timeslice(epoch, statusSliceWidth)
	slice1200 := timeslice(epoch, latencySliceWidth)

	c.timeslices[slice300] = struct{}{}

	sk := statusKey{timeslice: slice300, status: r.ResponseStatus}
	c.byStatusTimeslice[sk]++
	c.statuses[r.ResponseStatus] = struct{}{}

	ut := uritype.Classify(r.RequestURI)
	uk := uritypeKey{timeslice: slice300, uritype: ut}
	c.byUritypeTimeslice[uk]++
	c.uritypes[ut] = struct{}{}

	h, ok := c.histByTimeslice[slice1200]
	if !ok {
		h = newHistogram()
		c.histByTimeslice[slice1200] = h
	}
	_ = h.RecordValue(int64(r.ResponseTimeMicros))
	_ = c.totalHist.RecordValue(int64(r.ResponseTimeMicros))
}

// Merge folds other into c. It is associative and commutative, which
// is required for the reduce stage of the ingest pipeline to be safe
// regardless of arrival order.
func (c *Consumer) Merge(other *Consumer) {
	for ts := range other.timeslices {
		c.timeslices[ts] = struct{}{}
	}
	for s := range other.statuses {
		c.statuses[s] = struct{}{}
	}
	for k, v := range other.byStatusTimeslice {
		c.byStatusTimeslice[k] += v
	}
	for ut := range other.uritypes {
		c.uritypes[ut] = struct{}{}
	}
	for k, v := range other.byUritypeTimeslice {
		c.byUritypeTimeslice[k] += v
	}
	for ts, oh := range other.histByTimeslice {
		h, ok := c.histByTimeslice[ts]
		if !ok {
			h = newHistogram()
			c.histByTimeslice[ts] = h
		}
		h.Merge(oh)
	}
	c.totalHist.Merge(other.totalHist)
}

func sortedInt64s(m map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DumpByStatusTimeslice writes the by_status_timeslice TSV: one column
// per observed HTTP status, one row per observed 300s timeslice.
func (c *Consumer) DumpByStatusTimeslice(w io.Writer) error {
	cols := make([]string, 0, len(c.statuses))
	for s := range c.statuses {
		cols = append(cols, s)
	}
	sort.Strings(cols)

	if _, err := io.WriteString(w, "timeslice"); err != nil {
		return err
	}
	for _, col := range cols {
		if _, err := fmt.Fprintf(w, "\t%s", col); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}

	for _, ts := range sortedInt64s(c.timeslices) {
		if _, err := fmt.Fprintf(w, "%d\t", ts); err != nil {
			return err
		}
		for _, col := range cols {
			v := c.byStatusTimeslice[statusKey{timeslice: ts, status: col}]
			if _, err := fmt.Fprintf(w, "%d\t", v); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}

// DumpByUritypeTimeslice writes the by_uritype_timeslice TSV, same
// shape as DumpByStatusTimeslice but keyed on URI category.
func (c *Consumer) DumpByUritypeTimeslice(w io.Writer) error {
	cols := make([]uritype.Type, 0, len(c.uritypes))
	for ut := range c.uritypes {
		cols = append(cols, ut)
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i] < cols[j] })

	if _, err := io.WriteString(w, "timeslice"); err != nil {
		return err
	}
	for _, col := range cols {
		if _, err := fmt.Fprintf(w, "\t%s", col); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}

	for _, ts := range sortedInt64s(c.timeslices) {
		if _, err := fmt.Fprintf(w, "%d\t", ts); err != nil {
			return err
		}
		for _, col := range cols {
			v := c.byUritypeTimeslice[uritypeKey{timeslice: ts, uritype: col}]
			if _, err := fmt.Fprintf(w, "%d\t", v); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}

// DumpServicetimesByTimeslice writes servicetime_by_timeslice.tsv.
// Columns are the distinct latency values recorded in the grand-total
// histogram (ascending); a row's cells are the count at that value in
// the per-slice histogram for that 1200s timeslice. Rows are the
// timeslices that have a per-slice histogram; a value not recorded in
// a row's slice dumps as 0.
func (c *Consumer) DumpServicetimesByTimeslice(w io.Writer) error {
	totalBars := c.totalHist.Distribution()
	cols := make([]int64, 0, len(totalBars))
	for _, bar := range totalBars {
		if bar.Count > 0 {
			cols = append(cols, bar.From)
		}
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i] < cols[j] })

	if _, err := io.WriteString(w, "timeslice"); err != nil {
		return err
	}
	for _, col := range cols {
		if _, err := fmt.Fprintf(w, "\t%d", col); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}

	timeslices := make(map[int64]struct{}, len(c.histByTimeslice))
	for ts := range c.histByTimeslice {
		timeslices[ts] = struct{}{}
	}
	for _, ts := range sortedInt64s(timeslices) {
		if _, err := fmt.Fprintf(w, "%d\t", ts); err != nil {
			return err
		}
		counts := countsByValue(c.histByTimeslice[ts])
		for _, col := range cols {
			if _, err := fmt.Fprintf(w, "%d\t", counts[col]); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}

func countsByValue(h *hdrhistogram.Histogram) map[int64]int64 {
	out := make(map[int64]int64)
	if h == nil {
		return out
	}
	for _, bar := range h.Distribution() {
		if bar.Count > 0 {
			out[bar.From] = bar.Count
		}
	}
	return out
}
