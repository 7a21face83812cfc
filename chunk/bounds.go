// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package chunk applies stencil transforms to arrays stored as blocks,
// exchanging halos between neighboring blocks so that the blocked result
// equals the result of applying the transform to the whole array.
package chunk

import (
	"fmt"

	"github.com/nlpodyssey/stencil"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// Bounds locates a box of a logical array: Origin is the global coordinate
// of its first element and Shape its extent along each dimension.
type Bounds struct {
	Origin []int
	Shape  []int
}

// Rank returns the number of dimensions.
func (b Bounds) Rank() int {
	return len(b.Shape)
}

// Len returns the number of elements in the box.
func (b Bounds) Len() int {
	return lo.Reduce(b.Shape, func(n, v, _ int) int { return n * v }, 1)
}

// End returns the exclusive upper corner of the box.
func (b Bounds) End() []int {
	return lo.Map(b.Origin, func(o, d int) int { return o + b.Shape[d] })
}

// Within reports whether the box lies inside an array of the given shape.
func (b Bounds) Within(shape []int) bool {
	if len(b.Origin) != len(shape) || len(b.Shape) != len(shape) {
		return false
	}
	for d, v := range shape {
		if b.Origin[d] < 0 || b.Shape[d] < 0 || b.Origin[d]+b.Shape[d] > v {
			return false
		}
	}
	return true
}

// Intersect returns the common part of b and o, and false when it is empty.
func (b Bounds) Intersect(o Bounds) (Bounds, bool) {
	if b.Rank() != o.Rank() {
		return Bounds{}, false
	}
	r := Bounds{Origin: make([]int, b.Rank()), Shape: make([]int, b.Rank())}
	for d := range b.Shape {
		start := max(b.Origin[d], o.Origin[d])
		end := min(b.Origin[d]+b.Shape[d], o.Origin[d]+o.Shape[d])
		if end <= start {
			return Bounds{}, false
		}
		r.Origin[d], r.Shape[d] = start, end-start
	}
	return r, true
}

// Relative returns the coordinates of b's origin relative to origin.
func (b Bounds) Relative(origin []int) []int {
	return lo.Map(b.Origin, func(v, d int) int { return v - origin[d] })
}

func (b Bounds) String() string {
	return fmt.Sprintf("[%v+%v]", b.Origin, b.Shape)
}

// Grid partitions an array of the given shape into blocks of chunkShape, in
// row-major order. The last block along each dimension may be smaller.
func Grid(shape, chunkShape []int) ([]Bounds, error) {
	if len(shape) != len(chunkShape) {
		return nil, errors.Wrapf(stencil.ErrShapeMismatch, "chunk rank %d differs from array rank %d", len(chunkShape), len(shape))
	}
	if len(shape) == 0 {
		return nil, errors.Wrap(stencil.ErrShapeMismatch, "cannot partition a scalar")
	}
	if lo.Min(chunkShape) <= 0 {
		return nil, errors.Wrapf(stencil.ErrConfiguration, "chunk shape %v must be positive", chunkShape)
	}
	if lo.Min(shape) <= 0 {
		return nil, errors.Wrapf(stencil.ErrShapeMismatch, "array shape %v must be positive", shape)
	}

	counts := lo.Map(shape, func(v, d int) int { return (v + chunkShape[d] - 1) / chunkShape[d] })
	var grid []Bounds
	pos := make([]int, len(shape))
	for {
		b := Bounds{Origin: make([]int, len(shape)), Shape: make([]int, len(shape))}
		for d, p := range pos {
			b.Origin[d] = p * chunkShape[d]
			b.Shape[d] = min(chunkShape[d], shape[d]-b.Origin[d])
		}
		grid = append(grid, b)
		if !next(pos, counts) {
			break
		}
	}
	return grid, nil
}

// checkDisjoint returns an error if any two boxes overlap.
func checkDisjoint(boxes []Bounds) error {
	for i := range boxes {
		for j := i + 1; j < len(boxes); j++ {
			if r, ok := boxes[i].Intersect(boxes[j]); ok {
				return errors.Wrapf(stencil.ErrShapeMismatch, "blocks %d %v and %d %v overlap on %v", i, boxes[i], j, boxes[j], r)
			}
		}
	}
	return nil
}

// next advances the row-major position pos within counts, returning false
// after the last one.
func next(pos, counts []int) bool {
	for d := len(pos) - 1; d >= 0; d-- {
		pos[d]++
		if pos[d] < counts[d] {
			return true
		}
		pos[d] = 0
	}
	return false
}
