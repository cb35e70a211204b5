// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package pathexpr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, exp string) *PathExpression {
	t.Helper()
	e, err := Parse(exp)
	require.NoError(t, err)
	return e
}

func TestConstant(t *testing.T) {
	e := mustParse(t, "a")
	assert.Equal(t, "a", e.CommonPrefix())
	assert.True(t, e.IsMatch("a"))
	assert.False(t, e.IsMatch("b"))
	assert.False(t, e.IsMatch(""))
	assert.False(t, e.IsMatch("aa"))
}

func TestSeparator(t *testing.T) {
	e := mustParse(t, "/")
	assert.Equal(t, "/", e.CommonPrefix())
	assert.True(t, e.IsMatch("/"))

	e = mustParse(t, "a/")
	assert.Equal(t, "a/", e.CommonPrefix())
	assert.True(t, e.IsMatch("a/"))
	assert.False(t, e.IsMatch("a/b"))

	e = mustParse(t, "a/b")
	assert.Equal(t, "a/b", e.CommonPrefix())
	assert.True(t, e.IsMatch("a/b"))
	assert.True(t, e.IsMatch("a///b"))
	assert.False(t, e.IsMatch("a"))

	e = mustParse(t, "a///b")
	assert.Equal(t, "a/b", e.CommonPrefix())
	assert.True(t, e.IsMatch("a/b"))
}

func TestPlaceholder(t *testing.T) {
	e := mustParse(t, "a/{b}/c")
	assert.Equal(t, "a/", e.CommonPrefix())
	assert.True(t, e.IsMatch("a/bbb/c"))
}

func TestTimeCommonHour(t *testing.T) {
	e := mustParse(t, "a/{%H}:{%M}/c")
	from, err := time.Parse("2006-01-02 15:04:05", "2017-02-03 11:20:34")
	require.NoError(t, err)
	to, err := time.Parse("2006-01-02 15:04:05", "2017-02-03 11:44:34")
	require.NoError(t, err)

	expr, err := e.With(PathMatchOptions{From: &from, To: &to})
	require.NoError(t, err)
	assert.Equal(t, "a/11:", expr.CommonPrefix())

	// Matched against the unspecialised expression, as in the original,
	// so no From/To bounds apply here; the expression returned by With
	// also checks its bounds when matching (see
	// TestIsMatchRejectsOutOfRangeTime).
	assert.True(t, e.IsMatch("a/11:30/c"))
}

func TestTimeDifferentMinute(t *testing.T) {
	// Seconds comes before minutes in this expression, so the differing
	// minute breaks the constant run before it ever reaches the second
	// part, meaning neither part contributes to the common prefix.
	e := mustParse(t, "a/{%S}:{%M}/c")
	from, err := time.Parse("2006-01-02 15:04:05", "2017-02-03 11:20:34")
	require.NoError(t, err)
	to, err := time.Parse("2006-01-02 15:04:05", "2017-02-03 11:44:34")
	require.NoError(t, err)

	expr, err := e.With(PathMatchOptions{From: &from, To: &to})
	require.NoError(t, err)
	assert.Equal(t, "a/", expr.CommonPrefix())
	assert.True(t, e.IsMatch("a/30:11/c"))
}

func TestParseCollapsesRepeatedSeparators(t *testing.T) {
	a := mustParse(t, "a/b")
	b := mustParse(t, "a///b")
	assert.Equal(t, a.CommonPrefix(), b.CommonPrefix())
	assert.Equal(t, len(a.Elements), len(b.Elements))
}

func TestParseRejectsEmptyPlaceholder(t *testing.T) {
	_, err := Parse("a/{}/c")
	assert.Error(t, err)
}

func TestParseRejectsUnterminatedPlaceholder(t *testing.T) {
	_, err := Parse("a/{b/c")
	assert.Error(t, err)
}

func TestMarksOnlyFinalTimePartAsLastInExpression(t *testing.T) {
	e := mustParse(t, "{%Y}/{%m}/{%d}")
	var marked []byte
	for _, el := range e.Elements {
		for _, p := range el.Parts {
			if p.LastInExpression {
				marked = append(marked, p.Fmt)
			}
		}
	}
	require.Len(t, marked, 1)
	assert.Equal(t, byte('d'), marked[0])
}

func TestIsMatchRejectsOutOfRangeTime(t *testing.T) {
	e := mustParse(t, "{%Y}-{%m}-{%d}")
	from, err := time.Parse("2006-01-02", "2017-02-01")
	require.NoError(t, err)
	to, err := time.Parse("2006-01-02", "2017-02-28")
	require.NoError(t, err)

	specialised, err := e.With(PathMatchOptions{From: &from, To: &to})
	require.NoError(t, err)

	assert.True(t, specialised.IsMatch("2017-02-15"))
	assert.False(t, specialised.IsMatch("2017-03-01"))
}
