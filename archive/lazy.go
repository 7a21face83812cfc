// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/bits"
	"sync"

	"github.com/nlpodyssey/stencil"
	"github.com/nlpodyssey/stencil/chunk"
	"github.com/nlpodyssey/stencil/dtype"
	"github.com/nlpodyssey/stencil/header"
)

// Lazy gives access to an archive loading the data of individual blocks
// only when requested. It implements chunk.Source, and can be shared by
// concurrent readers: reads from the underlying io.ReadSeeker are
// serialized.
type Lazy struct {
	mu     sync.Mutex
	rs     io.ReadSeeker
	array  header.Array
	blocks header.BlockSlice
	meta   header.Metadata
	// dataOffset is the byte-buffer offset relative to the start of rs
	dataOffset int64
}

var _ chunk.Source = (*Lazy)(nil)

// NewLazy reads from "rs" the archive header and validates it, then
// returns a new Lazy in case of success, otherwise nil and an error.
//
// If headerSizeLimit is set to a positive number, its value is used to
// limit the reading of the header. A value of zero, or a negative number,
// have no limiting effects.
//
// The current "seek" position of "rs" is used as a base for all further
// seek-based operations. The given io.ReadSeeker must remain available as
// long as the Lazy is in use.
func NewLazy(rs io.ReadSeeker, headerSizeLimit int) (*Lazy, error) {
	initialOffset, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("failed to get initial offset: %w", err)
	}

	head, err := readValidHeader(rs, headerSizeLimit)
	if err != nil {
		return nil, err
	}

	byteBufferOffset, err := checkedAddNonNegInt64(initialOffset, int64(head.ByteBufferOffset))
	if err != nil {
		return nil, fmt.Errorf("failed to calculate total byte-buffer offset: %w", err)
	}

	return &Lazy{
		rs:         rs,
		array:      head.Array,
		blocks:     sortedBlocks(head.Blocks),
		meta:       head.Metadata,
		dataOffset: byteBufferOffset,
	}, nil
}

// Shape returns the shape of the logical array.
func (l *Lazy) Shape() []int {
	return append([]int(nil), l.array.Shape...)
}

// DType returns the element type of the logical array.
func (l *Lazy) DType() dtype.DType {
	return l.array.DType
}

// Metadata returns the free-form key/value string pairs as read from the
// header. It can be nil.
func (l *Lazy) Metadata() map[string]string {
	return l.meta
}

// Bounds returns the bounds of all blocks, in the order of their data.
func (l *Lazy) Bounds() []chunk.Bounds {
	out := make([]chunk.Bounds, len(l.blocks))
	for i, hb := range l.blocks {
		out[i] = boundsOf(hb)
	}
	return out
}

// Block loads the i-th block, in the order of Bounds.
func (l *Lazy) Block(i int) (chunk.Block, error) {
	if i < 0 || i >= len(l.blocks) {
		return chunk.Block{}, fmt.Errorf("block index %d out of range [0, %d)", i, len(l.blocks))
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readBlock(l.blocks[i])
}

// Region loads the blocks intersecting b and returns the region they
// cover. It fails with stencil.ErrShapeMismatch if part of the region is
// not covered by any block.
func (l *Lazy) Region(ctx context.Context, b chunk.Bounds) (stencil.Array, error) {
	var loaded []chunk.Block
	for _, hb := range l.blocks {
		if _, ok := boundsOf(hb).Intersect(b); !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return stencil.Array{}, err
		}
		blk, err := l.lockedReadBlock(hb)
		if err != nil {
			return stencil.Array{}, err
		}
		loaded = append(loaded, blk)
	}
	src, err := chunk.NewMemorySource(l.array.DType, l.array.Shape, loaded)
	if err != nil {
		return stencil.Array{}, err
	}
	return src.Region(ctx, b)
}

func (l *Lazy) lockedReadBlock(hb header.Block) (chunk.Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readBlock(hb)
}

func (l *Lazy) readBlock(hb header.Block) (chunk.Block, error) {
	offset, err := checkedAddNonNegInt64(l.dataOffset, int64(hb.DataOffsets.Begin))
	if err != nil {
		return chunk.Block{}, fmt.Errorf("failed to calculate block data offset: %w", err)
	}
	if _, err = l.rs.Seek(offset, io.SeekStart); err != nil {
		return chunk.Block{}, fmt.Errorf("failed to seek to block data offset: %w", err)
	}
	blk, err := readBlock(l.rs, hb)
	if err != nil {
		return chunk.Block{}, fmt.Errorf("failed to read data of block %q: %w", hb.Name, err)
	}
	return blk, nil
}

func boundsOf(hb header.Block) chunk.Bounds {
	return chunk.Bounds{
		Origin: append([]int(nil), hb.Origin...),
		Shape:  append([]int(nil), hb.Shape...),
	}
}

var errInt64SumOverflow = errors.New("int64 sum overflow")

func checkedAddNonNegInt64(a, b int64) (int64, error) {
	if a < 0 || b < 0 {
		return 0, fmt.Errorf("unexpected negative number")
	}
	if a == 0 || b == 0 {
		return a + b, nil
	}
	sum, carry := bits.Add64(uint64(a), uint64(b), 0)
	if carry != 0 || sum > math.MaxInt64 {
		return 0, errInt64SumOverflow
	}
	return int64(sum), nil
}
