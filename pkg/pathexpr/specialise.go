// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package pathexpr

import "time"

// constantOrder is the fixed strftime-code ordering used to find the
// longest leading run of time components that are constant across a
// [from, to] range.
var constantOrder = []byte{'Y', 'm', 'd', 'H', 'M', 'S'}

func formatTimePart(t time.Time, fmtChar byte) string {
	switch fmtChar {
	case 'Y':
		return t.Format("2006")
	case 'm':
		return t.Format("01")
	case 'd':
		return t.Format("02")
	case 'H':
		return t.Format("15")
	case 'M':
		return t.Format("04")
	case 'S':
		return t.Format("05")
	default:
		return ""
	}
}

// constantTimeElements returns the set of strftime codes, from the
// longest leading run of constantOrder, whose formatted value is
// identical under opts.From and opts.To. An empty From/To pair yields
// an empty set.
func constantTimeElements(opts PathMatchOptions) map[byte]struct{} {
	set := make(map[byte]struct{})
	if opts.From == nil || opts.To == nil {
		return set
	}
	for _, f := range constantOrder {
		if formatTimePart(*opts.From, f) == formatTimePart(*opts.To, f) {
			set[f] = struct{}{}
		} else {
			break
		}
	}
	return set
}

// With returns a specialised copy of e: every TimePart whose fmt
// character falls in the constant leading run (see
// constantTimeElements) has its Value replaced with the concrete
// formatted value taken from opts.From. This prunes enumeration down
// to the constant prefix of the time range.
func (e *PathExpression) With(opts PathMatchOptions) (*PathExpression, error) {
	optsCopy := opts
	elements := e.Elements
	if opts.From != nil && opts.To != nil {
		constSet := constantTimeElements(opts)
		newElements := make([]Element, 0, len(e.Elements))
		for _, el := range e.Elements {
			newParts := make([]Part, len(el.Parts))
			for i, p := range el.Parts {
				switch p.Kind {
				case PartTimePart:
					if _, ok := constSet[p.Fmt]; ok {
						v := formatTimePart(*opts.From, p.Fmt)
						newParts[i] = Part{Kind: PartTimePart, Fmt: p.Fmt, Value: &v, LastInExpression: p.LastInExpression}
					} else {
						newParts[i] = p
					}
				default:
					newParts[i] = p
				}
			}
			newEl, err := newElement(newParts)
			if err != nil {
				return nil, err
			}
			newElements = append(newElements, newEl)
		}
		elements = newElements
	}
	return &PathExpression{
		LeadingSep:  e.LeadingSep,
		TrailingSep: e.TrailingSep,
		Elements:    elements,
		opts:        &optsCopy,
	}, nil
}

// firstVariableElement returns the first element with an unbound part,
// used by specialisation fan-out to pick which placeholder to bind
// next.
func (e *PathExpression) firstVariableElement() (Element, bool) {
	for _, el := range e.Elements {
		if el.HasVariable() {
			return el, true
		}
	}
	return Element{}, false
}

// withFirstPlaceholderBound returns a copy of e in which the first
// still-unbound Placeholder has literalVal bound as its Value.
func withFirstPlaceholderBound(e *PathExpression, literalVal string) (*PathExpression, error) {
	replaced := false
	newElements := make([]Element, 0, len(e.Elements))
	for _, el := range e.Elements {
		newParts := make([]Part, len(el.Parts))
		for i, p := range el.Parts {
			if !replaced && p.Kind == PartPlaceholder && p.Value == nil {
				v := literalVal
				newParts[i] = Part{Kind: PartPlaceholder, Name: p.Name, Value: &v}
				replaced = true
			} else {
				newParts[i] = p
			}
		}
		newEl, err := newElement(newParts)
		if err != nil {
			return nil, err
		}
		newElements = append(newElements, newEl)
	}
	return &PathExpression{
		LeadingSep:  e.LeadingSep,
		TrailingSep: e.TrailingSep,
		Elements:    newElements,
		opts:        e.opts,
	}, nil
}
