// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package ingest

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cc-accesslog/aggregator/pkg/aggregate"
)

// Outputs, written into the working directory after a run completes.
const (
	ByStatusFilename     = "by_status_timeslice.tsv"
	ByUritypeFilename    = "by_uritype_timeslice.tsv"
	ServicetimesFilename = "servicetime_by_timeslice.tsv"
	dumpFilePermissions  = 0o644
)

// Dump writes the three summary TSVs for reduced into workdir.
func Dump(reduced *aggregate.Consumer, workdir string) error {
	writers := []struct {
		name string
		fn   func(*aggregate.Consumer, *bufio.Writer) error
	}{
		{ByStatusFilename, func(c *aggregate.Consumer, w *bufio.Writer) error { return c.DumpByStatusTimeslice(w) }},
		{ByUritypeFilename, func(c *aggregate.Consumer, w *bufio.Writer) error { return c.DumpByUritypeTimeslice(w) }},
		{ServicetimesFilename, func(c *aggregate.Consumer, w *bufio.Writer) error { return c.DumpServicetimesByTimeslice(w) }},
	}

	for _, wr := range writers {
		if err := dumpOne(reduced, filepath.Join(workdir, wr.name), wr.fn); err != nil {
			return err
		}
	}
	return nil
}

func dumpOne(c *aggregate.Consumer, path string, fn func(*aggregate.Consumer, *bufio.Writer) error) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, dumpFilePermissions)
	if err != nil {
		return fmt.Errorf("ingest: dump: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := fn(c, w); err != nil {
		return fmt.Errorf("ingest: dump %s: %w", path, err)
	}
	return w.Flush()
}
