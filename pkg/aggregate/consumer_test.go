// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package aggregate

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cc-accesslog/aggregator/pkg/accesslog"
)

func mustRecord(t *testing.T, tsLayout, ts, status, uri string, micros uint64) accesslog.Record {
	t.Helper()
	parsed, err := time.Parse(tsLayout, ts)
	require.NoError(t, err)
	return accesslog.Record{
		Timestamp:          parsed,
		ResponseStatus:     status,
		RequestURI:         uri,
		ResponseTimeMicros: micros,
	}
}

func TestEmptyConsumerDumpsHeaderRowOnly(t *testing.T) {
	c := New()

	var statusBuf, uritypeBuf bytes.Buffer
	require.NoError(t, c.DumpByStatusTimeslice(&statusBuf))
	require.NoError(t, c.DumpByUritypeTimeslice(&uritypeBuf))

	assert.Equal(t, "timeslice\n", statusBuf.String())
	assert.Equal(t, "timeslice\n", uritypeBuf.String())
}

func TestHandleRecordsExampleLineShape(t *testing.T) {
	// Mirrors the worked example: a single 200 HlsMasterManifest hit with
	// a 4200-microsecond service time at 2017-02-03T11:30:15Z falls into
	// the 300s timeslice 1486121400 and the 1200s timeslice 1486120800.
	// At a 1-significant-figure histogram, the recorded value rounds down
	// to its bucket floor: 4200 falls in the bucket starting at 4096.
	c := New()
	r := mustRecord(t, time.RFC3339, "2017-02-03T11:30:15Z", "200", "/video/x.m3u8", 4200)
	c.Handle(r)

	var buf bytes.Buffer
	require.NoError(t, c.DumpByStatusTimeslice(&buf))
	assert.Equal(t, "timeslice\t200\n1486121400\t1\t\n", buf.String())

	buf.Reset()
	require.NoError(t, c.DumpByUritypeTimeslice(&buf))
	assert.Equal(t, "timeslice\tHlsMasterManifest\n1486121400\t1\t\n", buf.String())

	buf.Reset()
	require.NoError(t, c.DumpServicetimesByTimeslice(&buf))
	assert.Equal(t, "timeslice\t4096\n1486120800\t1\t\n", buf.String())
}

func TestHandleTwoIdenticalLinesProduceCountTwo(t *testing.T) {
	c := New()
	r := mustRecord(t, time.RFC3339, "2017-02-03T11:30:15Z", "200", "/video/x.m3u8", 4200)
	c.Handle(r)
	c.Handle(r)

	var buf bytes.Buffer
	require.NoError(t, c.DumpByStatusTimeslice(&buf))
	assert.Equal(t, "timeslice\t200\n1486121400\t2\t\n", buf.String())
}

func TestHandleUnknownURIClassifiesUnknownOther(t *testing.T) {
	c := New()
	r := mustRecord(t, time.RFC3339, "2017-02-03T11:30:15Z", "200", "/unknown", 1)
	c.Handle(r)

	var buf bytes.Buffer
	require.NoError(t, c.DumpByUritypeTimeslice(&buf))
	assert.Equal(t, "timeslice\tUnknownOther\n1486121400\t1\t\n", buf.String())
}

func TestHandleHlsSegmentURI(t *testing.T) {
	c := New()
	r := mustRecord(t, time.RFC3339, "2017-02-03T11:30:15Z", "200", "/foo/bar.ts", 1)
	c.Handle(r)

	var buf bytes.Buffer
	require.NoError(t, c.DumpByUritypeTimeslice(&buf))
	assert.Equal(t, "timeslice\tHlsSegment\n1486121400\t1\t\n", buf.String())
}

func TestMergeIsCommutative(t *testing.T) {
	a := New()
	a.Handle(mustRecord(t, time.RFC3339, "2017-02-03T11:30:15Z", "200", "/x.m3u8", 100))
	b := New()
	b.Handle(mustRecord(t, time.RFC3339, "2017-02-03T11:31:15Z", "404", "/missing", 200))

	ab := New()
	ab.Merge(a)
	ab.Merge(b)

	ba := New()
	ba.Merge(b)
	ba.Merge(a)

	var abBuf, baBuf bytes.Buffer
	require.NoError(t, ab.DumpByStatusTimeslice(&abBuf))
	require.NoError(t, ba.DumpByStatusTimeslice(&baBuf))
	assert.Equal(t, abBuf.String(), baBuf.String())
}

func TestMergeIsAssociative(t *testing.T) {
	a := New()
	a.Handle(mustRecord(t, time.RFC3339, "2017-02-03T11:30:15Z", "200", "/x.m3u8", 100))
	b := New()
	b.Handle(mustRecord(t, time.RFC3339, "2017-02-03T11:31:15Z", "404", "/missing", 200))
	c := New()
	c.Handle(mustRecord(t, time.RFC3339, "2017-02-03T11:32:15Z", "500", "/boom", 300))

	left := New()
	left.Merge(a)
	left.Merge(b)
	leftThenC := New()
	leftThenC.Merge(left)
	leftThenC.Merge(c)

	right := New()
	right.Merge(b)
	right.Merge(c)
	aThenRight := New()
	aThenRight.Merge(a)
	aThenRight.Merge(right)

	var leftBuf, rightBuf bytes.Buffer
	require.NoError(t, leftThenC.DumpByStatusTimeslice(&leftBuf))
	require.NoError(t, aThenRight.DumpByStatusTimeslice(&rightBuf))
	assert.Equal(t, leftBuf.String(), rightBuf.String())
}

func TestDumpServicetimesSharedValueAcrossSlicesIsOneColumn(t *testing.T) {
	// Two records 1200s apart land in different latency timeslices but
	// share a recorded value, so the header has a single column for it.
	// At 1 significant figure, 500 falls in the bucket starting at 496.
	c := New()
	c.Handle(mustRecord(t, time.RFC3339, "2017-02-03T11:00:00Z", "200", "/a", 500))
	c.Handle(mustRecord(t, time.RFC3339, "2017-02-03T11:20:00Z", "200", "/a", 500))

	var buf bytes.Buffer
	require.NoError(t, c.DumpServicetimesByTimeslice(&buf))
	assert.Contains(t, buf.String(), "timeslice\t496\n")
}
