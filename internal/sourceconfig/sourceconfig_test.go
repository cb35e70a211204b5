// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package sourceconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "datasources.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAndFind(t *testing.T) {
	path := writeConfig(t, `{
		"s3": [{"name": "prod", "region": "us-east-1", "bucket": "logs", "pathexp": "a/{b}"}],
		"file": [{"name": "local", "pathexp": "/var/log/{%Y}/{%m}/{%d}"}]
	}`)

	ds, err := Load(path)
	require.NoError(t, err)

	s3, ok := ds.FindS3("prod")
	require.True(t, ok)
	assert.Equal(t, "logs", s3.Bucket)

	_, ok = ds.FindS3("nope")
	assert.False(t, ok)

	f, ok := ds.FindFile("local")
	require.True(t, ok)
	assert.Equal(t, "/var/log/{%Y}/{%m}/{%d}", f.PathExp)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, `{"s3": [{"name": "x", "bogus": true}]}`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestParsePeriodEmptyStringYieldsNilBounds(t *testing.T) {
	from, to, err := ParsePeriod("")
	require.NoError(t, err)
	assert.Nil(t, from)
	assert.Nil(t, to)
}

func TestParsePeriodBothSides(t *testing.T) {
	from, to, err := ParsePeriod("2017-02-03:11:00:00..2017-02-03:12:00:00")
	require.NoError(t, err)
	require.NotNil(t, from)
	require.NotNil(t, to)
	assert.True(t, from.Before(*to))
}

func TestParsePeriodOneSideOmitted(t *testing.T) {
	from, to, err := ParsePeriod("..2017-02-03:12:00:00")
	require.NoError(t, err)
	assert.Nil(t, from)
	require.NotNil(t, to)

	from, to, err = ParsePeriod("2017-02-03:11:00:00..")
	require.NoError(t, err)
	require.NotNil(t, from)
	assert.Nil(t, to)
}

func TestParsePeriodRejectsBackwardsRange(t *testing.T) {
	_, _, err := ParsePeriod("2017-02-03:12:00:00..2017-02-03:11:00:00")
	assert.Error(t, err)
}

func TestParsePeriodRejectsMalformedInput(t *testing.T) {
	_, _, err := ParsePeriod("not-a-period")
	assert.Error(t, err)
}
