// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package pathexpr

import (
	"os"
	"path/filepath"
)

type localEntry struct {
	path string
	idx  int
	done bool
}

// LocalIterator lazily walks a filesystem tree matching a specialised
// PathExpression. Traversal is depth-first, driven by an explicit
// stack of (path, elementIndex) rather than host-stack recursion, so
// deep trees never risk a stack overflow.
type LocalIterator struct {
	expr    *PathExpression
	opts    PathMatchOptions
	ctx     *matchContext
	stack   []localEntry
	started bool
	scope   string
	yielded int
}

// ListLocal returns a lazy iterator over every filesystem path matching
// e specialised against opts.
func (e *PathExpression) ListLocal(opts PathMatchOptions) (*LocalIterator, error) {
	specialised, err := e.With(opts)
	if err != nil {
		return nil, err
	}
	scope := "/"
	if !e.LeadingSep {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		scope = cwd
	}
	return &LocalIterator{
		expr:  specialised,
		opts:  opts,
		ctx:   newMatchContext(opts),
		scope: scope,
	}, nil
}

// Next yields the next matching path. ok is false once the iterator is
// exhausted or opts.MaxResults has been reached; err is non-nil when a
// directory read failed outright (a caller should log and move on, not
// treat it as fatal).
func (it *LocalIterator) Next() (path string, err error, ok bool) {
	if !it.started {
		it.started = true
		if len(it.expr.Elements) > 0 {
			if err := fillTodo(&it.stack, it.expr.Elements, 0, it.scope, it.ctx); err != nil {
				return "", err, true
			}
		}
	}

	for {
		if it.yielded >= it.opts.maxResults() {
			return "", nil, false
		}
		if len(it.stack) == 0 {
			return "", nil, false
		}
		last := it.stack[len(it.stack)-1]
		it.stack = it.stack[:len(it.stack)-1]

		if last.done || last.idx == len(it.expr.Elements)-1 {
			it.yielded++
			return last.path, nil, true
		}

		info, statErr := os.Stat(last.path)
		if statErr != nil || !info.IsDir() {
			continue
		}
		if err := fillTodo(&it.stack, it.expr.Elements, last.idx+1, last.path, it.ctx); err != nil {
			return "", err, true
		}
	}
}

// fillTodo examines elements[idx] against the directory entries of
// path (if the segment has placeholders/time parts) or checks a single
// literal join for existence, pushing work for the caller's next pass.
// A literal segment that is also the expression's final element is
// pushed as an already-complete result rather than recursed further.
func fillTodo(stack *[]localEntry, elements []Element, idx int, path string, ctx *matchContext) error {
	element := elements[idx]
	if element.HasPlaceholders() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			name := entry.Name()
			if element.Matches(ctx, name) {
				*stack = append(*stack, localEntry{path: filepath.Join(path, name), idx: idx})
			}
		}
		return nil
	}

	lit := element.Parts[0].Literal
	next := filepath.Join(path, lit)
	if _, err := os.Stat(next); err != nil {
		return nil
	}
	if idx+1 == len(elements) {
		*stack = append(*stack, localEntry{path: next, done: true})
		return nil
	}
	return fillTodo(stack, elements, idx+1, next, ctx)
}
