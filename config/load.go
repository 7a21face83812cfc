// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads and seals the job configuration in the YAML file at path.
func Load(path string) (*Job, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read job configuration: %w", err)
	}
	return Unmarshal(content)
}

// Unmarshal parses and seals a YAML job configuration.
// Empty input yields the default job; unknown keys are rejected.
func Unmarshal(conf []byte) (_ *Job, err error) {
	m := new(JobMarshall)
	dec := yaml.NewDecoder(bytes.NewReader(conf))
	dec.KnownFields(true)
	if err := dec.Decode(m); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse job configuration: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			se, ok := r.(sealError)
			if !ok {
				panic(r)
			}
			err = se.err
		}
	}()
	return TrySeal[*Job](m), nil
}
