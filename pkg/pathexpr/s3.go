// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package pathexpr

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/jpillora/backoff"
)

// ObjectStoreClient is the collaborator the object-store enumerator and
// specialiser depend on. Credential acquisition and request signing
// are entirely the concrete client's concern; this package only issues
// ListObjects calls and interprets the fixed ErrorKind set.
type ObjectStoreClient interface {
	ListObjects(ctx context.Context, input ListObjectsInput) (*ListObjectsOutput, error)
}

// ListObjectsInput mirrors the subset of S3's ListObjects parameters
// the enumerator needs.
type ListObjectsInput struct {
	Bucket    string
	Prefix    string
	Delimiter string
	Marker    string
}

// ListObjectsOutput is the paginated result of a ListObjects call.
type ListObjectsOutput struct {
	Contents       []ObjectSummary
	CommonPrefixes []string
	IsTruncated    bool
	NextMarker     string
}

// ObjectSummary is one object entry in a ListObjects response.
type ObjectSummary struct {
	Key string
}

// retryListObjects issues input against client, making up to 3
// attempts in total while the failure is KindHTTPDispatch (a transient
// dispatch error); when all 3 fail, the last error is returned wrapped
// as KindUnknown. Any other error kind fails immediately.
func retryListObjects(ctx context.Context, client ObjectStoreClient, input ListObjectsInput) (*ListObjectsOutput, error) {
	b := &backoff.Backoff{Min: 50 * time.Millisecond, Max: 2 * time.Second, Factor: 2, Jitter: true}
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		out, err := client.ListObjects(ctx, input)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if KindOf(err) != KindHTTPDispatch {
			return nil, err
		}
		if attempt < 2 {
			time.Sleep(b.Duration())
		}
	}
	return nil, &ObjectStoreError{Kind: KindUnknown, Err: lastErr}
}

// ListS3Iterator lazily yields object keys matching a specialised
// PathExpression, paging ListObjects calls with prefix = CommonPrefix.
type ListS3Iterator struct {
	client ObjectStoreClient
	bucket string
	expr   *PathExpression
	prefix string
	opts   PathMatchOptions

	batch      []ObjectSummary
	batchIdx   int
	lastKey    string
	haveMarker bool
	finalBatch bool
	ended      bool
	yielded    int
}

// ListS3 returns a ListS3Iterator over bucket for e specialised by
// opts.
func (e *PathExpression) ListS3(client ObjectStoreClient, bucket string, opts PathMatchOptions) (*ListS3Iterator, error) {
	specialised, err := e.With(opts)
	if err != nil {
		return nil, err
	}
	return &ListS3Iterator{
		client: client,
		bucket: bucket,
		expr:   specialised,
		prefix: specialised.CommonPrefix(),
		opts:   opts,
	}, nil
}

// Next yields the next matching object key. A listing error is
// returned once with ok true and err non-nil; after that, and once the
// listing is exhausted or opts.MaxResults has been reached, ok is false.
func (it *ListS3Iterator) Next(ctx context.Context) (key string, err error, ok bool) {
	for {
		if it.ended || it.yielded >= it.opts.maxResults() {
			return "", nil, false
		}
		if it.batchIdx < len(it.batch) {
			obj := it.batch[it.batchIdx]
			it.batchIdx++
			if it.expr.IsMatch(obj.Key) {
				it.yielded++
				return obj.Key, nil, true
			}
			continue
		}

		if it.finalBatch && it.batch != nil {
			it.ended = true
			return "", nil, false
		}

		input := ListObjectsInput{Bucket: it.bucket, Prefix: it.prefix}
		if it.haveMarker {
			input.Marker = it.lastKey
		}
		out, listErr := retryListObjects(ctx, it.client, input)
		if listErr != nil {
			it.ended = true
			return "", listErr, true
		}
		if len(out.Contents) == 0 {
			it.ended = true
			return "", fmt.Errorf("pathexpr: list objects: empty contents for prefix %q", it.prefix), true
		}
		it.batch = out.Contents
		it.batchIdx = 0
		if out.IsTruncated {
			it.lastKey = out.Contents[len(out.Contents)-1].Key
			it.haveMarker = true
		} else {
			it.haveMarker = false
			it.finalBatch = true
		}
	}
}

// SpecialiseIterator lazily yields copies of a PathExpression with its
// first still-variable Placeholder bound to a discovered common
// prefix, used to fan out enumeration per top-level variable (e.g. a
// per-instance directory) before per-object listing.
type SpecialiseIterator struct {
	client ObjectStoreClient
	bucket string
	expr   *PathExpression
	first  Element
	prefix string
	ctx    *matchContext

	batch      []string
	batchIdx   int
	lastKey    string
	haveMarker bool
	finalBatch bool
	ended      bool
}

// SpecialiseFirstElement returns a SpecialiseIterator over e
// specialised by opts.
func (e *PathExpression) SpecialiseFirstElement(client ObjectStoreClient, bucket string, opts PathMatchOptions) (*SpecialiseIterator, error) {
	specialised, err := e.With(opts)
	if err != nil {
		return nil, err
	}
	first, ok := specialised.firstVariableElement()
	if !ok {
		return nil, fmt.Errorf("pathexpr: expression has no variable element to specialise")
	}
	return &SpecialiseIterator{
		client: client,
		bucket: bucket,
		expr:   specialised,
		first:  first,
		prefix: specialised.CommonPrefix(),
		ctx:    newMatchContext(opts),
	}, nil
}

// Next yields the next specialised PathExpression.
func (it *SpecialiseIterator) Next(ctx context.Context) (*PathExpression, error, bool) {
	for {
		if it.ended {
			return nil, nil, false
		}
		if it.batchIdx < len(it.batch) {
			prefix := it.batch[it.batchIdx]
			it.batchIdx++
			last := path.Base(path.Clean(prefix))
			if it.first.Matches(it.ctx, last) {
				specialised, err := withFirstPlaceholderBound(it.expr, last)
				if err != nil {
					return nil, err, true
				}
				return specialised, nil, true
			}
			continue
		}

		if it.finalBatch && it.batch != nil {
			it.ended = true
			return nil, nil, false
		}

		input := ListObjectsInput{Bucket: it.bucket, Prefix: it.prefix, Delimiter: "/"}
		if it.haveMarker {
			input.Marker = it.lastKey
		}
		out, listErr := retryListObjects(ctx, it.client, input)
		if listErr != nil {
			it.ended = true
			return nil, listErr, true
		}
		if len(out.CommonPrefixes) == 0 {
			it.ended = true
			return nil, fmt.Errorf("pathexpr: list objects: empty common prefixes for prefix %q", it.prefix), true
		}
		it.batch = out.CommonPrefixes
		it.batchIdx = 0
		if out.IsTruncated {
			it.lastKey = out.NextMarker
			it.haveMarker = it.lastKey != ""
		} else {
			it.haveMarker = false
			it.finalBatch = true
		}
	}
}
