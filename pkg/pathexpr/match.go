// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package pathexpr

import (
	"strconv"
	"strings"
)

// CommonPrefix produces the longest literal path prefix that any match
// must start with: segment prefixes concatenated left-to-right,
// stopping the first time a part has no concrete value, with the
// leading separator folded in (and the trailing one, when every
// element is fully concrete).
func (e *PathExpression) CommonPrefix() string {
	var b strings.Builder
	if e.LeadingSep {
		b.WriteByte('/')
	}
	for i, el := range e.Elements {
		ok := el.commonPrefix(&b)
		if !ok {
			return b.String()
		}
		if i < len(e.Elements)-1 {
			b.WriteByte('/')
		}
	}
	if e.TrailingSep {
		b.WriteByte('/')
	}
	return b.String()
}

// commonPrefix appends this element's contribution to prefix and
// reports whether every part had a concrete value (so the caller may
// keep going to the next element).
func (el Element) commonPrefix(b *strings.Builder) bool {
	for _, p := range el.Parts {
		switch p.Kind {
		case PartLiteral:
			b.WriteString(p.Literal)
		case PartPlaceholder, PartTimePart:
			if p.Value == nil {
				return false
			}
			b.WriteString(*p.Value)
		}
	}
	return true
}

// Matches reports whether name satisfies this element's compiled
// regex, additionally threading captured TimePart values into ctx and,
// once the LastInExpression TimePart is reached, checking the
// accumulated time against ctx's bounds.
func (el Element) Matches(ctx *matchContext, name string) bool {
	if !el.hasTimeParts {
		return el.re.MatchString(name)
	}

	m := el.re.FindStringSubmatch(name)
	if m == nil {
		return false
	}
	captures := m[1:]
	capIdx := 0
	for _, p := range el.Parts {
		if p.Kind == PartPlaceholder && p.Value == nil {
			// An unbound placeholder's (.*) group also occupies a capture slot.
			capIdx++
			continue
		}
		if p.Kind != PartTimePart {
			continue
		}
		if p.Value != nil {
			v, err := strconv.Atoi(*p.Value)
			if err != nil {
				return false
			}
			ctx.setTimePart(p.Fmt, v)
		} else {
			if capIdx >= len(captures) {
				return false
			}
			cap := captures[capIdx]
			capIdx++
			v, err := strconv.Atoi(cap)
			if err != nil {
				return false
			}
			ctx.setTimePart(p.Fmt, v)
		}
		if p.LastInExpression && !ctx.withinBounds() {
			return false
		}
	}
	return el.re.MatchString(name)
}

// IsMatch reports whether name is a concrete path matched by e,
// applying e's own PathMatchOptions bounds (set via With).
func (e *PathExpression) IsMatch(name string) bool {
	opts := PathMatchOptions{}
	if e.opts != nil {
		opts = *e.opts
	}
	ctx := newMatchContext(opts)
	return e.doMatch(name, 0, ctx)
}

func (e *PathExpression) doMatch(name string, idx int, ctx *matchContext) bool {
	if e.LeadingSep {
		if !strings.HasPrefix(name, "/") {
			return false
		}
		for strings.HasPrefix(name, "/") {
			name = name[1:]
		}
	}
	head, rest, hasRest := cutOnce(name, '/')
	if len(e.Elements) == 0 {
		return head == ""
	}
	if !e.Elements[idx].Matches(ctx, head) {
		return false
	}
	if idx == len(e.Elements)-1 {
		if !hasRest || rest == "" {
			return true
		}
		return false
	}
	if !hasRest {
		return false
	}
	if rest == "" {
		return false
	}
	for strings.HasPrefix(rest, "/") {
		rest = rest[1:]
	}
	return e.doMatch(rest, idx+1, ctx)
}

// cutOnce splits name on the first occurrence of sep, mirroring Rust's
// splitn(2, sep): ok is false only when sep does not occur at all.
func cutOnce(name string, sep byte) (head, rest string, ok bool) {
	i := strings.IndexByte(name, sep)
	if i < 0 {
		return name, "", false
	}
	return name[:i], name[i+1:], true
}
