// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stencil

import (
	"fmt"

	"github.com/pkg/errors"
)

// A Neighborhood is an ordered set of relative offsets, one coordinate per
// dimension, identifying which input elements are read to compute one
// output element. It is immutable once created.
type Neighborhood struct {
	offsets [][]int
	lo, hi  []int
}

// NewNeighborhood returns a Neighborhood made of the given offsets, in the
// given order. All offsets must have the same, non-zero, length, and no
// offset can appear twice.
func NewNeighborhood(offsets ...[]int) (Neighborhood, error) {
	if len(offsets) == 0 {
		return Neighborhood{}, errors.Wrap(ErrConfiguration, "neighborhood has no offsets")
	}
	rank := len(offsets[0])
	if rank == 0 {
		return Neighborhood{}, errors.Wrap(ErrConfiguration, "neighborhood offsets must have at least one dimension")
	}

	nb := Neighborhood{
		offsets: make([][]int, len(offsets)),
		lo:      make([]int, rank),
		hi:      make([]int, rank),
	}
	seen := make(map[string]struct{}, len(offsets))
	for i, off := range offsets {
		if len(off) != rank {
			return Neighborhood{}, errors.Wrapf(ErrConfiguration, "offset %v has rank %d, expected %d", off, len(off), rank)
		}
		key := fmt.Sprint(off)
		if _, ok := seen[key]; ok {
			return Neighborhood{}, errors.Wrapf(ErrConfiguration, "duplicate offset %v", off)
		}
		seen[key] = struct{}{}

		nb.offsets[i] = append([]int(nil), off...)
		for d, v := range off {
			nb.lo[d] = max(nb.lo[d], -v)
			nb.hi[d] = max(nb.hi[d], v)
		}
	}
	return nb, nil
}

// Box returns the Neighborhood of all offsets within [-radius, radius] on
// each of rank dimensions, in row-major order. Box(2, 1) is the 3x3
// neighborhood.
func Box(rank, radius int) Neighborhood {
	if rank <= 0 || radius < 0 {
		panic(fmt.Sprintf("stencil: invalid box rank %d radius %d", rank, radius))
	}
	side := 2*radius + 1
	shape := make([]int, rank)
	for d := range shape {
		shape[d] = side
	}

	var offsets [][]int
	pos := make([]int, rank)
	for {
		off := make([]int, rank)
		for d, p := range pos {
			off[d] = p - radius
		}
		offsets = append(offsets, off)
		if !nextPosition(pos, shape) {
			break
		}
	}
	nb, err := NewNeighborhood(offsets...)
	if err != nil {
		panic(err)
	}
	return nb
}

// Rank returns the number of dimensions of the offsets.
func (nb Neighborhood) Rank() int {
	return len(nb.lo)
}

// Len returns the number of offsets.
func (nb Neighborhood) Len() int {
	return len(nb.offsets)
}

// Offsets returns a copy of the offsets.
func (nb Neighborhood) Offsets() [][]int {
	out := make([][]int, len(nb.offsets))
	for i, off := range nb.offsets {
		out[i] = append([]int(nil), off...)
	}
	return out
}

// Lo returns, for each dimension, how far the neighborhood reaches below
// the output position (never negative).
func (nb Neighborhood) Lo() []int {
	return append([]int(nil), nb.lo...)
}

// Hi returns, for each dimension, how far the neighborhood reaches above
// the output position (never negative).
func (nb Neighborhood) Hi() []int {
	return append([]int(nil), nb.hi...)
}

// Span returns the number of positions covered by the neighborhood along
// dimension d, including the output position itself.
func (nb Neighborhood) Span(d int) int {
	return nb.lo[d] + nb.hi[d] + 1
}

// Radius returns the largest absolute offset component. A halo of this
// width is always enough to compute a block independently.
func (nb Neighborhood) Radius() int {
	r := 0
	for d := range nb.lo {
		r = max(r, nb.lo[d], nb.hi[d])
	}
	return r
}

func (nb Neighborhood) String() string {
	return fmt.Sprintf("Neighborhood(rank=%d, len=%d, lo=%v, hi=%v)", nb.Rank(), nb.Len(), nb.lo, nb.hi)
}
