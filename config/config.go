// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config reads smoothing job configurations from YAML.
//
// A configuration file looks like:
//
//	neighborhood:
//	  rank: 2
//	  radius: 1
//	combiner:
//	  name: mean
//	  rounding: floor
//	boundary:
//	  mode: clamp
//	contract:
//	  in: U8
//	  shape: same
//	chunk:
//	  shape: [256, 256]
//	  halo: 1
//	workers: 4
//
// Every section is optional.
package config

import (
	"slices"

	"github.com/nlpodyssey/stencil"
)

// Job is a sealed, immutable smoothing job configuration.
type Job struct {
	neighborhood stencil.Neighborhood
	combiner     stencil.Combiner
	boundary     stencil.BoundaryPolicy
	contract     stencil.Contract
	chunk        chunkConfig
	workers      int
}

type chunkConfig struct {
	shape []int
	halo  int
}

// Neighborhood returns the configured neighborhood.
func (j *Job) Neighborhood() stencil.Neighborhood {
	return j.neighborhood
}

// Combiner returns the configured combiner.
func (j *Job) Combiner() stencil.Combiner {
	return j.combiner
}

// Boundary returns the configured boundary policy.
func (j *Job) Boundary() stencil.BoundaryPolicy {
	return j.boundary
}

// Contract returns the configured contract.
func (j *Job) Contract() stencil.Contract {
	return j.contract
}

// ChunkShape returns the shape of the blocks arrays are split in.
func (j *Job) ChunkShape() []int {
	return slices.Clone(j.chunk.shape)
}

// Halo returns the halo width used when mapping blocks.
func (j *Job) Halo() int {
	return j.chunk.halo
}

// Workers returns the maximum number of blocks processed concurrently.
func (j *Job) Workers() int {
	return j.workers
}

// Compile builds the Transform described by the job.
func (j *Job) Compile() (*stencil.Transform, error) {
	return stencil.Compile(
		j.neighborhood,
		j.combiner,
		stencil.WithBoundary(j.boundary),
		stencil.WithContract(j.contract),
	)
}
