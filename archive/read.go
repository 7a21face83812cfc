// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package archive

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/nlpodyssey/stencil"
	"github.com/nlpodyssey/stencil/chunk"
	"github.com/nlpodyssey/stencil/dtype"
	"github.com/nlpodyssey/stencil/header"
)

// Archive is the result of reading the full content of an archive, with
// the data of all blocks loaded in memory.
type Archive struct {
	DType    dtype.DType
	Shape    []int
	Blocks   []chunk.Block
	Metadata map[string]string
}

// ReadAll reads and interprets the whole content of an archive. Blocks are
// returned in the order of their data in the stream.
//
// If headerSizeLimit is set to a positive number, its value is used to
// limit the reading of the header, guarding against tampered or garbage
// data. A value of zero, or a negative number, have no limiting effects.
func ReadAll(r io.Reader, headerSizeLimit int) (Archive, error) {
	head, err := readValidHeader(r, headerSizeLimit)
	if err != nil {
		return Archive{}, err
	}

	blocks := sortedBlocks(head.Blocks)
	out := make([]chunk.Block, len(blocks))
	for i, hb := range blocks {
		if out[i], err = readBlock(r, hb); err != nil {
			return Archive{}, fmt.Errorf("failed to read data of block %q: %w", hb.Name, err)
		}
	}
	return Archive{
		DType:    head.Array.DType,
		Shape:    head.Array.Shape,
		Blocks:   out,
		Metadata: head.Metadata,
	}, nil
}

// Array assembles the blocks into the whole logical array. It fails with
// stencil.ErrShapeMismatch if the blocks do not cover it.
func (a Archive) Array() (stencil.Array, error) {
	src, err := chunk.NewMemorySource(a.DType, a.Shape, a.Blocks)
	if err != nil {
		return stencil.Array{}, err
	}
	return src.Region(context.Background(), chunk.Bounds{Origin: make([]int, len(a.Shape)), Shape: a.Shape})
}

func readValidHeader(r io.Reader, sizeLimit int) (header.Header, error) {
	if sizeLimit > 0 {
		r = io.LimitReader(r, int64(sizeLimit))
	}
	head, err := header.Read(r)
	if err != nil {
		return header.Header{}, fmt.Errorf("failed to read archive header: %w", err)
	}
	if err = head.Validate(); err != nil {
		return header.Header{}, fmt.Errorf("archive header is invalid: %w", err)
	}
	return head, nil
}

func sortedBlocks(bm header.BlockMap) header.BlockSlice {
	bs := bm.BlockSlice()
	sort.Sort(header.BlockSliceByDataOffsets{BlockSlice: bs})
	return bs
}

func readBlock(r io.Reader, hb header.Block) (chunk.Block, error) {
	size := hb.DataOffsets.End - hb.DataOffsets.Begin
	data, err := readData(&io.LimitedReader{R: r, N: int64(size)}, hb.DType, hb.Shape)
	if err != nil {
		return chunk.Block{}, err
	}
	return chunk.Block{
		Bounds: chunk.Bounds{
			Origin: append([]int(nil), hb.Origin...),
			Shape:  append([]int(nil), hb.Shape...),
		},
		Data: data,
	}, nil
}
