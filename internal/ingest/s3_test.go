// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package ingest

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cc-accesslog/aggregator/pkg/pathexpr"
)

// fakeS3 is an in-memory stand-in for the object store, keyed by exact
// object key, with no pagination (every ListObjects call returns its
// full matching set in one non-truncated batch).
type fakeS3 struct {
	objects map[string]string
}

func (f *fakeS3) ListObjects(ctx context.Context, input pathexpr.ListObjectsInput) (*pathexpr.ListObjectsOutput, error) {
	if input.Delimiter != "" {
		seen := map[string]bool{}
		var prefixes []string
		for key := range f.objects {
			if !strings.HasPrefix(key, input.Prefix) {
				continue
			}
			rest := strings.TrimPrefix(key, input.Prefix)
			if idx := strings.Index(rest, input.Delimiter); idx >= 0 {
				p := input.Prefix + rest[:idx+1]
				if !seen[p] {
					seen[p] = true
					prefixes = append(prefixes, p)
				}
			}
		}
		return &pathexpr.ListObjectsOutput{CommonPrefixes: prefixes}, nil
	}

	var out pathexpr.ListObjectsOutput
	for key := range f.objects {
		if strings.HasPrefix(key, input.Prefix) {
			out.Contents = append(out.Contents, pathexpr.ObjectSummary{Key: key})
		}
	}
	return &out, nil
}

func (f *fakeS3) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	body, ok := f.objects[key]
	if !ok {
		return nil, &pathexpr.ObjectStoreError{Kind: pathexpr.KindNoSuchKey}
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func TestRunS3AggregatesAcrossInstances(t *testing.T) {
	client := &fakeS3{objects: map[string]string{
		"logs/host-a/access.log": line200,
		"logs/host-b/access.log": line200,
	}}

	expr, err := pathexpr.Parse("logs/{host}/access.log")
	require.NoError(t, err)

	var progress bytes.Buffer
	reduced, err := RunS3(context.Background(), client, "bucket", expr, pathexpr.PathMatchOptions{}, Options{Progress: &progress})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, reduced.DumpByStatusTimeslice(&buf))
	assert.Equal(t, "timeslice\t200\n1486121400\t2\t\n", buf.String())
}

func TestRunS3NoMatchReportsPattern(t *testing.T) {
	client := &fakeS3{objects: map[string]string{}}
	expr, err := pathexpr.Parse("logs/{host}/access.log")
	require.NoError(t, err)

	var progress bytes.Buffer
	_, err = RunS3(context.Background(), client, "bucket", expr, pathexpr.PathMatchOptions{}, Options{Progress: &progress})
	require.NoError(t, err)
	assert.Contains(t, progress.String(), "pattern did not match")
}
