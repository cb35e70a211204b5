// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package uritype

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		uri  string
		want Type
	}{
		{"/foo.bootstrap", HdsBootstrap},
		{"/foo/bar.ts", HlsSegment},
		{"/foo-Seg1-Frag42", HdsSegment},
		{"/video/audio=128.m3u8", HlsMediaManifest},
		{"/video/x.m3u8", HlsMasterManifest},
		{"/video/x.f4m", HdsF4mManifest},
		{"/video/x.dash", DashInitialisationSegment},
		{"/video/x.m4s", DashSegment},
		{"/video/x.mpd", DashManifest},
		{"/server-status", Admin},
		{"/unknown", UnknownOther},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Classify(c.uri), "uri=%s", c.uri)
	}
}

func TestClassifyPriorityLowestIndexWins(t *testing.T) {
	// Contains both ".bootstrap" (index 0) and ".m3u8" (index 4);
	// the lower index must win.
	assert.Equal(t, HdsBootstrap, Classify("/foo.bootstrap/bar.m3u8"))
}

func TestString(t *testing.T) {
	assert.Equal(t, "HlsMasterManifest", HlsMasterManifest.String())
	assert.Equal(t, "UnknownOther", UnknownOther.String())
}
