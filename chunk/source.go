// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chunk

import (
	"context"

	"github.com/nlpodyssey/stencil"
	"github.com/nlpodyssey/stencil/dtype"
	"github.com/pkg/errors"
)

// A Block is a piece of a logical array together with its location.
type Block struct {
	Bounds
	Data stencil.Array
}

// A Source provides read-only access to regions of a logical array. Region
// is called concurrently by Map and must return a new array with the
// given bounds, which always lie inside Shape.
type Source interface {
	Shape() []int
	DType() dtype.DType
	Region(ctx context.Context, b Bounds) (stencil.Array, error)
}

// ArraySource is a Source backed by a whole in-memory array.
type ArraySource struct {
	stencil.Array
}

// Region returns a copy of the region of the array.
func (s ArraySource) Region(ctx context.Context, b Bounds) (stencil.Array, error) {
	if err := ctx.Err(); err != nil {
		return stencil.Array{}, err
	}
	return s.Slice(b.Origin, b.Shape)
}

// Split partitions a into blocks of chunkShape, as in Grid.
func Split(a stencil.Array, chunkShape []int) ([]Block, error) {
	grid, err := Grid(a.Shape(), chunkShape)
	if err != nil {
		return nil, err
	}
	blocks := make([]Block, len(grid))
	for i, b := range grid {
		data, err := a.Slice(b.Origin, b.Shape)
		if err != nil {
			return nil, err
		}
		blocks[i] = Block{Bounds: b, Data: data}
	}
	return blocks, nil
}

// MemorySource is a Source over in-memory blocks.
type MemorySource struct {
	shape  []int
	dType  dtype.DType
	blocks []Block
}

// NewMemorySource returns a Source over blocks of a logical array of the
// given type and shape. Blocks must lie inside the array and not overlap;
// regions not covered by any block cannot be read.
func NewMemorySource(dt dtype.DType, shape []int, blocks []Block) (*MemorySource, error) {
	bounds := make([]Bounds, len(blocks))
	for i, b := range blocks {
		if err := checkBlock(b, dt); err != nil {
			return nil, errors.WithMessagef(err, "block %d", i)
		}
		if !b.Within(shape) {
			return nil, errors.Wrapf(stencil.ErrShapeMismatch, "block %d %v exceeds array shape %v", i, b.Bounds, shape)
		}
		bounds[i] = b.Bounds
	}
	if err := checkDisjoint(bounds); err != nil {
		return nil, err
	}
	return &MemorySource{
		shape:  append([]int(nil), shape...),
		dType:  dt,
		blocks: blocks,
	}, nil
}

// Shape returns the shape of the logical array.
func (s *MemorySource) Shape() []int {
	return append([]int(nil), s.shape...)
}

// DType returns the element type of the logical array.
func (s *MemorySource) DType() dtype.DType {
	return s.dType
}

// Region assembles the region from the blocks intersecting it.
func (s *MemorySource) Region(ctx context.Context, b Bounds) (stencil.Array, error) {
	if err := ctx.Err(); err != nil {
		return stencil.Array{}, err
	}
	return gather(b, s.dType, s.blocks)
}

// gather copies into a new array of bounds b the parts of the blocks
// intersecting it. Every element of b must be covered.
func gather(b Bounds, dt dtype.DType, blocks []Block) (stencil.Array, error) {
	dst, err := stencil.Zeros(dt, b.Shape)
	if err != nil {
		return stencil.Array{}, err
	}
	covered := 0
	for _, blk := range blocks {
		r, ok := blk.Intersect(b)
		if !ok {
			continue
		}
		part, err := blk.Data.Slice(r.Relative(blk.Origin), r.Shape)
		if err != nil {
			return stencil.Array{}, err
		}
		if err := stencil.Paste(dst, r.Relative(b.Origin), part); err != nil {
			return stencil.Array{}, err
		}
		covered += r.Len()
	}
	if covered != b.Len() {
		return stencil.Array{}, errors.Wrapf(stencil.ErrShapeMismatch, "region %v is not covered by blocks", b)
	}
	return dst, nil
}

func checkBlock(b Block, dt dtype.DType) error {
	if b.Data.DType() != dt {
		return errors.Wrapf(stencil.ErrType, "data type %s differs from array type %s", b.Data.DType(), dt)
	}
	shape := b.Data.Shape()
	if len(shape) != b.Rank() || len(b.Origin) != b.Rank() {
		return errors.Wrapf(stencil.ErrShapeMismatch, "data shape %v does not match bounds %v", shape, b.Bounds)
	}
	for d, v := range shape {
		if v != b.Shape[d] {
			return errors.Wrapf(stencil.ErrShapeMismatch, "data shape %v does not match bounds %v", shape, b.Bounds)
		}
	}
	return nil
}
