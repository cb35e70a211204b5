// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
//
// Package objectstore adapts the AWS SDK's S3 client to the narrow
// pathexpr.ObjectStoreClient interface the core enumerator depends on,
// and fetches object bodies with transparent gzip handling.
package objectstore

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/cc-accesslog/aggregator/pkg/log"
	"github.com/cc-accesslog/aggregator/pkg/pathexpr"
)

// FetchTimeout bounds a single GetObject call, including reading the
// whole body into memory. Decompression and parsing happen after
// GetObject returns and are not bounded by it.
const FetchTimeout = 10 * time.Second

// Config describes how to reach an S3-compatible endpoint.
type Config struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	// UsePathStyle selects path-style addressing, needed by most
	// non-AWS S3-compatible endpoints.
	UsePathStyle bool
}

// Client wraps an S3 client, satisfying pathexpr.ObjectStoreClient and
// adding the object-fetch operation C7 needs.
type Client struct {
	s3     *s3.Client
	bucket string
}

// New builds a Client against cfg for the given bucket.
func New(ctx context.Context, cfg Config, bucket string) (*Client, error) {
	var optsFns []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		optsFns = append(optsFns, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		optsFns = append(optsFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, optsFns...)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return &Client{s3: client, bucket: bucket}, nil
}

// ListObjects implements pathexpr.ObjectStoreClient.
func (c *Client) ListObjects(ctx context.Context, input pathexpr.ListObjectsInput) (*pathexpr.ListObjectsOutput, error) {
	req := &s3.ListObjectsInput{
		Bucket: aws.String(input.Bucket),
		Prefix: aws.String(input.Prefix),
	}
	if input.Delimiter != "" {
		req.Delimiter = aws.String(input.Delimiter)
	}
	if input.Marker != "" {
		req.Marker = aws.String(input.Marker)
	}

	out, err := c.s3.ListObjects(ctx, req)
	if err != nil {
		return nil, classifyError(err)
	}

	result := &pathexpr.ListObjectsOutput{
		IsTruncated: aws.ToBool(out.IsTruncated),
		NextMarker:  aws.ToString(out.NextMarker),
	}
	for _, obj := range out.Contents {
		result.Contents = append(result.Contents, pathexpr.ObjectSummary{Key: aws.ToString(obj.Key)})
	}
	for _, p := range out.CommonPrefixes {
		result.CommonPrefixes = append(result.CommonPrefixes, aws.ToString(p.Prefix))
	}
	return result, nil
}

// GetObject fetches key's body, transparently gunzipping it when the
// response announces gzip content either explicitly
// (Content-Type: application/gzip) or implicitly (an octet-stream
// response to a ".gz"-suffixed key). The request and the body download
// are bounded by FetchTimeout; the returned gzip reader decompresses
// lazily from memory, outside that bound.
func (c *Client) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	ctx, cancel := context.WithTimeout(ctx, FetchTimeout)
	defer cancel()

	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, classifyError(err)
	}

	body, err := io.ReadAll(out.Body)
	out.Body.Close()
	if err != nil {
		return nil, err
	}

	contentType := aws.ToString(out.ContentType)
	isGzip := contentType == "application/gzip" ||
		(strings.HasSuffix(contentType, "/octet-stream") && strings.HasSuffix(key, ".gz"))
	if !isGzip {
		return io.NopCloser(bytes.NewReader(body)), nil
	}

	gz, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		log.Warnf("objectstore: %s: content-type %q suggested gzip but decompression failed: %s", key, contentType, err)
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	return gz, nil
}

// classifyError maps an AWS SDK error onto pathexpr's closed ErrorKind
// set, the only vocabulary the core understands.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey":
			return &pathexpr.ObjectStoreError{Kind: pathexpr.KindNoSuchKey, Err: err}
		case "NoSuchBucket":
			return &pathexpr.ObjectStoreError{Kind: pathexpr.KindNoSuchBucket, Err: err}
		case "InvalidArgument", "InvalidRequest":
			return &pathexpr.ObjectStoreError{Kind: pathexpr.KindValidation, Err: err}
		}
	}

	var credErr *smithy.OperationError
	if errors.As(err, &credErr) && strings.Contains(strings.ToLower(credErr.Error()), "credential") {
		return &pathexpr.ObjectStoreError{Kind: pathexpr.KindCredentials, Err: err}
	}

	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		return &pathexpr.ObjectStoreError{Kind: pathexpr.KindHTTPDispatch, Err: err}
	}

	var dnsErr interface{ Timeout() bool }
	if errors.As(err, &dnsErr) {
		return &pathexpr.ObjectStoreError{Kind: pathexpr.KindHTTPDispatch, Err: err}
	}

	return &pathexpr.ObjectStoreError{Kind: pathexpr.KindUnknown, Err: err}
}
