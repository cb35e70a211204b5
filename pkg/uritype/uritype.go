// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
//
// Package uritype classifies request URIs from access-log records into
// a fixed enumeration of media-delivery path shapes.
package uritype

import "regexp"

// Type is a closed enumeration of request-URI categories.
type Type int

const (
	HdsBootstrap Type = iota
	HlsSegment
	HdsSegment
	HlsMediaManifest
	HlsMasterManifest
	HdsF4mManifest
	DashInitialisationSegment
	DashSegment
	DashManifest
	Admin
	UnknownOther
)

func (t Type) String() string {
	switch t {
	case HdsBootstrap:
		return "HdsBootstrap"
	case HlsSegment:
		return "HlsSegment"
	case HdsSegment:
		return "HdsSegment"
	case HlsMediaManifest:
		return "HlsMediaManifest"
	case HlsMasterManifest:
		return "HlsMasterManifest"
	case HdsF4mManifest:
		return "HdsF4mManifest"
	case DashInitialisationSegment:
		return "DashInitialisationSegment"
	case DashSegment:
		return "DashSegment"
	case DashManifest:
		return "DashManifest"
	case Admin:
		return "Admin"
	default:
		return "UnknownOther"
	}
}

// patterns is ordered; the first match wins. Indices line up 1:1 with
// the Type constants above (HdsBootstrap==0 .. Admin==9).
var patterns = []*regexp.Regexp{
	regexp.MustCompile(`\.bootstrap`),
	regexp.MustCompile(`/[^/]+.ts`),
	regexp.MustCompile(`-Seg1-Frag(\d+)`),
	regexp.MustCompile(`(?:audio=|video=)[^/]+\.m3u8`),
	regexp.MustCompile(`\.m3u8`),
	regexp.MustCompile(`\.f4m`),
	regexp.MustCompile(`\.dash`),
	regexp.MustCompile(`\.m4s`),
	regexp.MustCompile(`\.mpd`),
	regexp.MustCompile(`/test\.txt$|/Manifest?iss_client_manifest_version=22$|/archive-segment-length-seconds$|/state$|/statistics$|/servicePaths.txt$|/server-status$`),
}

// Classify maps a request URI to its Type. Priority is list order:
// the lowest-index matching pattern wins; no match yields UnknownOther.
func Classify(uri string) Type {
	for i, re := range patterns {
		if re.MatchString(uri) {
			return Type(i)
		}
	}
	return UnknownOther
}
