// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package pathexpr

import (
	"fmt"
	"strings"
)

// Parse compiles a path-expression string into a PathExpression.
//
// Grammar: expr := "/"? segment ("/" segment)* "/"?
//
//	segment := (literal | "{" placeholder_body "}")+
//	placeholder_body := "%" fmt_char+ | name
//
// A literal is any run of bytes containing neither '/' nor '{'.
func Parse(exp string) (*PathExpression, error) {
	leading := strings.HasPrefix(exp, "/")
	if leading {
		exp = exp[1:]
	}
	trailing := strings.HasSuffix(exp, "/")
	if trailing {
		exp = exp[:len(exp)-1]
	}

	// A run of one or more '/' acts as a single separator between
	// segments, so "a///b" parses the same as "a/b" (collapsing is
	// applied here to the pattern text, and again in IsMatch to the
	// concrete path being tested against it).
	var elements []Element
	if exp != "" {
		for _, segment := range strings.FieldsFunc(exp, func(r rune) bool { return r == '/' }) {
			parts, err := parseSegment(segment)
			if err != nil {
				return nil, err
			}
			el, err := newElement(parts)
			if err != nil {
				return nil, err
			}
			elements = append(elements, el)
		}
	}

	markLastTimePart(elements)

	return &PathExpression{LeadingSep: leading, TrailingSep: trailing, Elements: elements}, nil
}

// parseSegment parses one "/"-free run of the expression into its
// literal/placeholder/time-part pieces.
func parseSegment(segment string) ([]Part, error) {
	var parts []Part
	i := 0
	for i < len(segment) {
		if segment[i] == '{' {
			end := strings.IndexByte(segment[i:], '}')
			if end < 0 {
				return nil, fmt.Errorf("pathexpr: unterminated placeholder in %q", segment)
			}
			body := segment[i+1 : i+end]
			if body == "" {
				return nil, fmt.Errorf("pathexpr: empty placeholder in %q", segment)
			}
			if body[0] == '%' {
				fmtChars := body[1:]
				if fmtChars == "" {
					return nil, fmt.Errorf("pathexpr: empty time format in %q", segment)
				}
				parts = append(parts, Part{Kind: PartTimePart, Fmt: fmtChars[0]})
			} else {
				parts = append(parts, Part{Kind: PartPlaceholder, Name: body})
			}
			i += end + 1
			continue
		}
		start := i
		for i < len(segment) && segment[i] != '{' {
			i++
		}
		parts = append(parts, Part{Kind: PartLiteral, Literal: segment[start:i]})
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("pathexpr: empty segment")
	}
	return parts, nil
}

// markLastTimePart flags the final TimePart, in parse order across the
// whole expression, as LastInExpression: this is where accumulated
// time bounds get checked during a match.
func markLastTimePart(elements []Element) {
	total := 0
	for _, el := range elements {
		for _, p := range el.Parts {
			if p.isTimePart() {
				total++
			}
		}
	}
	if total == 0 {
		return
	}
	seen := 0
	for ei := range elements {
		for pi := range elements[ei].Parts {
			if elements[ei].Parts[pi].isTimePart() {
				seen++
				if seen == total {
					elements[ei].Parts[pi].LastInExpression = true
				}
			}
		}
	}
}
