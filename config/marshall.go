// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"fmt"
	"runtime"

	"github.com/nlpodyssey/stencil"
	"github.com/nlpodyssey/stencil/dtype"
)

// Marshalled is implemented by the mutable, YAML-facing configuration
// types. Sealing verifies them and produces their immutable counterpart.
type Marshalled[S any] interface {
	trySeal(path string) S
}

// TrySeal verifies conf and returns its sealed version.
//
// It panics with an error wrapping stencil.ErrConfiguration if a
// misconfiguration is found. Unmarshal recovers it into an error.
func TrySeal[S any](conf Marshalled[S]) S {
	return conf.trySeal("(root)")
}

// JobMarshall is the mutable configuration of a smoothing job, as written
// in YAML. Use TrySeal or Unmarshal to obtain a Job.
type JobMarshall struct {
	Neighborhood *NeighborhoodMarshall `yaml:"neighborhood"`
	Combiner     *CombinerMarshall     `yaml:"combiner"`
	Boundary     *BoundaryMarshall     `yaml:"boundary"`
	Contract     *ContractMarshall     `yaml:"contract"`
	Chunk        *ChunkMarshall        `yaml:"chunk"`
	// Workers bounds the blocks processed concurrently; zero means
	// GOMAXPROCS.
	Workers int `yaml:"workers"`
}

var _ Marshalled[*Job] = &JobMarshall{}

func (m *JobMarshall) trySeal(path string) *Job {
	if m == nil {
		m = &JobMarshall{}
	}
	nb := orDefault(m.Neighborhood).trySeal(path + ".neighborhood")
	workers := m.Workers
	if workers < 0 {
		fail(path+".workers", "must not be negative, got %d", workers)
	}
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Job{
		neighborhood: nb,
		combiner:     orDefault(m.Combiner).trySeal(path + ".combiner"),
		boundary:     orDefault(m.Boundary).trySeal(path + ".boundary"),
		contract:     orDefault(m.Contract).trySeal(path + ".contract"),
		chunk:        orDefault(m.Chunk).seal(path+".chunk", nb),
		workers:      workers,
	}
}

// NeighborhoodMarshall configures the neighborhood: either a box of the
// given rank and radius, or an explicit list of offsets.
type NeighborhoodMarshall struct {
	Rank    int     `yaml:"rank"`
	Radius  *int    `yaml:"radius"`
	Offsets [][]int `yaml:"offsets"`
}

func (m *NeighborhoodMarshall) trySeal(path string) stencil.Neighborhood {
	if len(m.Offsets) > 0 {
		if m.Radius != nil {
			fail(path, "radius and offsets are mutually exclusive")
		}
		nb, err := stencil.NewNeighborhood(m.Offsets...)
		if err != nil {
			fail(path+".offsets", "%v", err)
		}
		if m.Rank != 0 && m.Rank != nb.Rank() {
			fail(path+".rank", "is %d, but offsets have rank %d", m.Rank, nb.Rank())
		}
		return nb
	}
	rank := m.Rank
	if rank == 0 {
		rank = 2
	}
	radius := 1
	if m.Radius != nil {
		radius = *m.Radius
	}
	if rank < 0 || radius < 0 {
		fail(path, "rank %d and radius %d must not be negative", rank, radius)
	}
	return stencil.Box(rank, radius)
}

// CombinerMarshall selects one of the built-in combiners by name: "mean"
// (the default), "sum", "min", "max", "weighted" (float weights) or
// "weighted_int" (integer weights and divisor).
type CombinerMarshall struct {
	Name     string    `yaml:"name"`
	Rounding string    `yaml:"rounding"`
	Weights  []float64 `yaml:"weights"`
	Divisor  int64     `yaml:"divisor"`
}

func (m *CombinerMarshall) trySeal(path string) stencil.Combiner {
	rounding := stencil.RoundFloor
	switch m.Rounding {
	case "", "floor":
	case "trunc":
		rounding = stencil.RoundTrunc
	default:
		fail(path+".rounding", "unknown rounding %q", m.Rounding)
	}

	switch m.Name {
	case "", "mean":
		return stencil.Mean(rounding)
	case "sum":
		return stencil.Sum()
	case "min":
		return stencil.Min()
	case "max":
		return stencil.Max()
	case "weighted":
		return stencil.Weighted(required(m.Weights, path+".weights"))
	case "weighted_int":
		weights := make([]int64, len(required(m.Weights, path+".weights")))
		for i, w := range m.Weights {
			if w != float64(int64(w)) {
				fail(fmt.Sprintf("%s.weights[%d]", path, i), "must be an integer, got %v", w)
			}
			weights[i] = int64(w)
		}
		if m.Divisor == 0 {
			fail(path+".divisor", "is required and must not be zero")
		}
		return stencil.WeightedInt(weights, m.Divisor, rounding)
	}
	fail(path+".name", "unknown combiner %q", m.Name)
	return stencil.Combiner{}
}

// BoundaryMarshall configures the boundary policy; the default is fill
// with zero.
type BoundaryMarshall struct {
	Mode string  `yaml:"mode"`
	Fill float64 `yaml:"fill"`
}

func (m *BoundaryMarshall) trySeal(path string) stencil.BoundaryPolicy {
	p := stencil.BoundaryPolicy{Fill: m.Fill}
	if m.Mode != "" {
		mode, err := stencil.ParseBoundaryMode(m.Mode)
		if err != nil {
			fail(path+".mode", "%v", err)
		}
		p.Mode = mode
	}
	if p.Mode != stencil.BoundaryFill && m.Fill != 0 {
		fail(path+".fill", "only applies to the fill mode, not %s", p.Mode)
	}
	return p
}

// ContractMarshall configures the type and shape contract.
type ContractMarshall struct {
	In    dtype.DType `yaml:"in"`
	Out   dtype.DType `yaml:"out"`
	Rank  int         `yaml:"rank"`
	Shape string      `yaml:"shape"`
}

func (m *ContractMarshall) trySeal(path string) stencil.Contract {
	c := stencil.Contract{In: m.In, Out: m.Out, Rank: m.Rank}
	if m.Shape != "" {
		rel, err := stencil.ParseShapeRelation(m.Shape)
		if err != nil {
			fail(path+".shape", "%v", err)
		}
		c.Shape = rel
	}
	if err := c.Validate(); err != nil {
		fail(path, "%v", err)
	}
	return c
}

// ChunkMarshall configures how arrays are split in blocks. Shape defaults
// to 256 along every dimension, Halo to the neighborhood radius.
type ChunkMarshall struct {
	Shape []int `yaml:"shape"`
	Halo  *int  `yaml:"halo"`
}

func (m *ChunkMarshall) seal(path string, nb stencil.Neighborhood) chunkConfig {
	c := chunkConfig{shape: m.Shape, halo: nb.Radius()}
	if len(c.shape) == 0 {
		c.shape = make([]int, nb.Rank())
		for d := range c.shape {
			c.shape[d] = 256
		}
	}
	if len(c.shape) != nb.Rank() {
		fail(path+".shape", "has rank %d, neighborhood has rank %d", len(c.shape), nb.Rank())
	}
	for d, v := range c.shape {
		if v <= 0 {
			fail(fmt.Sprintf("%s.shape[%d]", path, d), "must be positive, got %d", v)
		}
	}
	if m.Halo != nil {
		c.halo = *m.Halo
	}
	if c.halo < 0 {
		fail(path+".halo", "must not be negative, got %d", c.halo)
	}
	return c
}

func orDefault[T any](v *T) *T {
	if v == nil {
		return new(T)
	}
	return v
}

func required[T any](v []T, path string) []T {
	if len(v) == 0 {
		fail(path, "is required")
	}
	return v
}

// sealError is the panic value of a failed seal.
type sealError struct{ err error }

func fail(path, format string, args ...any) {
	panic(sealError{fmt.Errorf("%w: %s %s", stencil.ErrConfiguration, path, fmt.Sprintf(format, args...))})
}
