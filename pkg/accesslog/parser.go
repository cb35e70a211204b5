// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
//
// Package accesslog decodes the fixed Apache combined-extended access
// log format into structured Records.
//
// LogFormat "[%t] %h %l %u \"%r\" %>s %b \"%{Referer}i\" \"%{User-Agent}i\"
//
//	\"%{Host}i\" %D \"%{X-Forwarded-For}i\" %{local}p %{cache-status}e %R"
package accesslog

import (
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cc-accesslog/aggregator/pkg/log"
)

// timeLayout is Go's reference-time spelling of "%d/%b/%Y:%H:%M:%S %z".
const timeLayout = "02/Jan/2006:15:04:05 -0700"

// Parser decodes one file's worth of access-log lines.
type Parser struct{}

// NewParser returns a ready-to-use Parser. The zero value also works;
// this exists to match the teacher's `New()` constructor convention.
func NewParser() Parser { return Parser{} }

// Parse reads all of r into memory (access-log files are expected to
// be at most a few hundred MiB after gunzip) and invokes handle once
// per well-formed line. A malformed line is logged and skipped; it
// never aborts the whole file. The returned error is non-nil only if
// reading from r itself failed.
func (Parser) Parse(r io.Reader, handle func(Record)) error {
	buf, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("accesslog: read: %w", err)
	}

	lineno := 0
	idx := 0
	for idx < len(buf) {
		lineno++
		rec, ok := parseLine(buf, &idx, lineno)
		if ok {
			handle(rec)
		}
	}
	return nil
}

// parseLine parses the single line starting at buf[*idx], advances
// *idx past it (to the start of the next line, or len(buf)) regardless
// of outcome, and reports whether a Record was produced.
func parseLine(buf []byte, idx *int, lineno int) (Record, bool) {
	start := *idx
	if buf[start] != '[' {
		log.Errorf("accesslog: line %d: timestamp not at line start", lineno)
		skipToEOL(buf, idx)
		return Record{}, false
	}
	*idx++

	tsStart := *idx
	var ts time.Time
	found := false
	for *idx < len(buf) {
		if buf[*idx] == ']' {
			raw := string(buf[tsStart:*idx])
			t, err := time.Parse(timeLayout, raw)
			if err != nil {
				log.Errorf("accesslog: line %d: bad timestamp %q: %s", lineno, raw, err)
				skipToEOL(buf, idx)
				return Record{}, false
			}
			ts = t.UTC()
			*idx++
			found = true
			break
		}
		*idx++
	}
	if !found {
		log.Errorf("accesslog: line %d: unterminated timestamp", lineno)
		skipToEOL(buf, idx)
		return Record{}, false
	}

	if !expectByte(buf, idx, ' ') {
		log.Errorf("accesslog: line %d: expected space after timestamp", lineno)
		skipToEOL(buf, idx)
		return Record{}, false
	}

	remoteHost, ok := fieldWS(buf, idx)
	if !ok {
		return invalid(buf, idx, lineno, "remote_host")
	}
	remoteLogname, ok := fieldWS(buf, idx)
	if !ok {
		return invalid(buf, idx, lineno, "remote_logname")
	}
	remoteUser, ok := fieldWS(buf, idx)
	if !ok {
		return invalid(buf, idx, lineno, "remote_user")
	}

	requestLine, ok := fieldQuoted(buf, idx)
	if !ok {
		return invalid(buf, idx, lineno, "request-line")
	}
	parts := strings.Fields(string(requestLine))
	if len(parts) < 3 {
		return invalid(buf, idx, lineno, "request-line fields")
	}
	method, uri, proto := parts[0], parts[1], parts[2]

	if !expectByte(buf, idx, ' ') {
		return invalid(buf, idx, lineno, "space before status")
	}
	status, ok := fieldWS(buf, idx)
	if !ok {
		return invalid(buf, idx, lineno, "status")
	}

	bytesField, ok := fieldWS(buf, idx)
	if !ok {
		return invalid(buf, idx, lineno, "bytes")
	}
	var responseBytes *uint64
	if string(bytesField) != "-" {
		n, err := strconv.ParseUint(string(bytesField), 10, 64)
		if err != nil {
			return invalid(buf, idx, lineno, "bytes: "+string(bytesField))
		}
		responseBytes = &n
	}

	referer, ok := fieldQuoted(buf, idx)
	if !ok {
		return invalid(buf, idx, lineno, "referer")
	}
	if !expectByte(buf, idx, ' ') {
		return invalid(buf, idx, lineno, "space before agent")
	}
	userAgent, ok := fieldQuoted(buf, idx)
	if !ok {
		return invalid(buf, idx, lineno, "user-agent")
	}
	if !expectByte(buf, idx, ' ') {
		return invalid(buf, idx, lineno, "space before host")
	}
	reqHost, ok := fieldQuoted(buf, idx)
	if !ok {
		return invalid(buf, idx, lineno, "request_host")
	}
	if !expectByte(buf, idx, ' ') {
		return invalid(buf, idx, lineno, "space before service-time")
	}

	micros, ok := fieldWS(buf, idx)
	if !ok {
		return invalid(buf, idx, lineno, "service-time")
	}
	responseTimeMicros, err := strconv.ParseUint(string(micros), 10, 64)
	if err != nil {
		return invalid(buf, idx, lineno, "service-time")
	}

	forwardedFor, ok := fieldQuoted(buf, idx)
	if !ok {
		return invalid(buf, idx, lineno, "forwarded-for")
	}
	if !expectByte(buf, idx, ' ') {
		return invalid(buf, idx, lineno, "space before port")
	}
	port, ok := fieldWS(buf, idx)
	if !ok {
		return invalid(buf, idx, lineno, "port")
	}
	localPort, err := strconv.ParseUint(string(port), 10, 32)
	if err != nil {
		return invalid(buf, idx, lineno, "port")
	}

	cacheStatus, ok := fieldWS(buf, idx)
	if !ok {
		return invalid(buf, idx, lineno, "cache-status")
	}
	handler, ok := fieldWS(buf, idx)
	if !ok {
		return invalid(buf, idx, lineno, "handler")
	}

	decodedURI, err := url.PathUnescape(uri)
	if err != nil {
		return invalid(buf, idx, lineno, "failed to url-decode request uri")
	}

	return Record{
		Timestamp:           ts,
		RemoteHost:          string(remoteHost),
		RemoteLogname:       string(remoteLogname),
		RemoteUser:          string(remoteUser),
		RequestMethod:       method,
		RequestURI:          decodedURI,
		RequestProto:        proto,
		ResponseStatus:      string(status),
		ResponseBytes:       responseBytes,
		RequestReferer:      string(referer),
		RequestUserAgent:    string(userAgent),
		RequestHost:         string(reqHost),
		ResponseTimeMicros:  responseTimeMicros,
		RequestForwardedFor: string(forwardedFor),
		RequestLocalPort:    uint32(localPort),
		ResponseCacheStatus: string(cacheStatus),
		RequestHandler:      string(handler),
	}, true
}

func invalid(buf []byte, idx *int, lineno int, what string) (Record, bool) {
	log.Errorf("accesslog: line %d: invalid data: %s", lineno, what)
	skipToEOL(buf, idx)
	return Record{}, false
}

func expectByte(data []byte, idx *int, expected byte) bool {
	if *idx >= len(data) {
		return false
	}
	ok := data[*idx] == expected
	*idx++
	return ok
}

func skipToEOL(data []byte, idx *int) {
	for i := *idx; i < len(data); i++ {
		if data[i] == '\n' {
			*idx = i + 1
			return
		}
	}
	*idx = len(data)
}

// fieldWS consumes up to the next space or newline (consuming the
// delimiter), or to EOF if neither is found.
func fieldWS(data []byte, idx *int) ([]byte, bool) {
	start := *idx
	for i := start; i < len(data); i++ {
		if data[i] == ' ' || data[i] == '\n' {
			*idx = i + 1
			return data[start:i], true
		}
	}
	*idx = len(data)
	return data[start:], true
}

// fieldQuoted expects *idx to point at an opening '"', then consumes
// through the matching unescaped closing '"'. A backslash escapes the
// following byte (including a backslash-escaped quote).
func fieldQuoted(data []byte, idx *int) ([]byte, bool) {
	if !expectByte(data, idx, '"') {
		return nil, false
	}
	start := *idx
	i := start
	for i < len(data) {
		switch data[i] {
		case '\\':
			i += 2
		case '"':
			*idx = i + 1
			return data[start:i], true
		default:
			i++
		}
	}
	return nil, false
}
