// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package accesslog

import "time"

// Record is one parsed access-log line. Records are transient: owned
// by the worker that produced them and handed straight to a consumer.
type Record struct {
	Timestamp time.Time

	RemoteHost    string
	RemoteLogname string
	RemoteUser    string

	RequestMethod string
	RequestURI    string
	RequestProto  string

	ResponseStatus string
	// ResponseBytes is nil when the log field was "-".
	ResponseBytes *uint64

	RequestReferer      string
	RequestUserAgent    string
	RequestHost         string
	RequestForwardedFor string
	ResponseCacheStatus string
	RequestHandler      string
	ResponseTimeMicros  uint64
	RequestLocalPort    uint32
}
