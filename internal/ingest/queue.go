// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
//
// Package ingest wires the path-expression enumerator, the access-log
// parser, and the aggregating consumer into the two worker-pool
// topologies the spec describes: a local-filesystem pipeline and an
// S3 pipeline, both built from fixed-size pools connected by
// unbounded, typed channels.
package ingest

// newUnboundedChan returns a send side and a receive side backed by a
// goroutine holding a growable slice buffer, giving senders a channel
// that never blocks on a full buffer the way Go's native buffered
// channels do. Closing the send side drains any buffered values before
// closing the receive side.
func newUnboundedChan[T any]() (chan<- T, <-chan T) {
	in := make(chan T)
	out := make(chan T)
	go func() {
		var queue []T
		defer close(out)
		for {
			if len(queue) == 0 {
				v, ok := <-in
				if !ok {
					return
				}
				queue = append(queue, v)
				continue
			}
			select {
			case v, ok := <-in:
				if !ok {
					for _, q := range queue {
						out <- q
					}
					return
				}
				queue = append(queue, v)
			case out <- queue[0]:
				queue = queue[1:]
			}
		}
	}()
	return in, out
}
