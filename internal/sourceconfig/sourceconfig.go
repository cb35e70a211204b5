// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
//
// Package sourceconfig loads the named-source configuration the CLI's
// --source flag selects from, and parses the --period flag's time
// range.
package sourceconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// S3Source is one S3-backed log source.
type S3Source struct {
	Name     string `json:"name"`
	Region   string `json:"region"`
	Bucket   string `json:"bucket"`
	PathExp  string `json:"pathexp"`
	Endpoint string `json:"endpoint,omitempty"`
}

// FileSource is one filesystem-backed log source.
type FileSource struct {
	Name    string `json:"name"`
	PathExp string `json:"pathexp"`
}

// Datasources is the full set of configured sources, keyed by kind;
// --source selects one by name across both lists.
type Datasources struct {
	S3   []S3Source   `json:"s3"`
	File []FileSource `json:"file"`
}

// Load reads and decodes a datasources file.
func Load(path string) (*Datasources, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sourceconfig: %w", err)
	}
	defer f.Close()

	var ds Datasources
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&ds); err != nil {
		return nil, fmt.Errorf("sourceconfig: decoding %s: %w", path, err)
	}
	return &ds, nil
}

// FindS3 returns the named S3 source, if present.
func (d *Datasources) FindS3(name string) (S3Source, bool) {
	for _, s := range d.S3 {
		if s.Name == name {
			return s, true
		}
	}
	return S3Source{}, false
}

// FindFile returns the named file source, if present.
func (d *Datasources) FindFile(name string) (FileSource, bool) {
	for _, s := range d.File {
		if s.Name == name {
			return s, true
		}
	}
	return FileSource{}, false
}

const periodLayout = "2006-01-02:15:04:05"

// ParsePeriod parses the --period flag's "YYYY-MM-DD:hh:mm:ss..YYYY-MM-DD:hh:mm:ss"
// form. Either endpoint may be omitted (an empty string either side of
// "..").
func ParsePeriod(s string) (from, to *time.Time, err error) {
	if s == "" {
		return nil, nil, nil
	}
	parts := strings.SplitN(s, "..", 2)
	if len(parts) != 2 {
		return nil, nil, fmt.Errorf("sourceconfig: malformed period %q, expected FROM..TO", s)
	}
	if parts[0] != "" {
		t, err := time.ParseInLocation(periodLayout, parts[0], time.UTC)
		if err != nil {
			return nil, nil, fmt.Errorf("sourceconfig: bad period start %q: %w", parts[0], err)
		}
		from = &t
	}
	if parts[1] != "" {
		t, err := time.ParseInLocation(periodLayout, parts[1], time.UTC)
		if err != nil {
			return nil, nil, fmt.Errorf("sourceconfig: bad period end %q: %w", parts[1], err)
		}
		to = &t
	}
	if from != nil && to != nil && !from.Before(*to) {
		return nil, nil, fmt.Errorf("sourceconfig: period start %s is not before end %s", parts[0], parts[1])
	}
	return from, to, nil
}
