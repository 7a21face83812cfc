// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package archive stores the blocks of a logical array in a single
// stream, in the format described by package header.
package archive

import (
	"fmt"
	"io"
	"math"
	"math/bits"
	"slices"

	"github.com/nlpodyssey/stencil/chunk"
	"github.com/nlpodyssey/stencil/dtype"
	"github.com/nlpodyssey/stencil/header"
)

// Write writes to w an archive of the blocks of a logical array of the
// given type and shape, with optional metadata. The blocks must lie inside
// the array and not overlap; their data is written in the given order.
func Write(w io.Writer, dt dtype.DType, shape []int, blocks []chunk.Block, metadata map[string]string) error {
	head, err := makeHeader(dt, shape, blocks, metadata)
	if err != nil {
		return err
	}
	if err = head.Validate(); err != nil {
		return fmt.Errorf("failed to generate a valid header: %w", err)
	}
	if _, err = head.WriteTo(w); err != nil {
		return err
	}
	for _, b := range blocks {
		if err := writeBlock(w, b, head.Blocks[header.BlockName(b.Origin)]); err != nil {
			return fmt.Errorf("failed to write data of block %v: %w", b.Bounds, err)
		}
	}
	return nil
}

func makeHeader(dt dtype.DType, shape []int, blocks []chunk.Block, metadata map[string]string) (header.Header, error) {
	bm := make(header.BlockMap, len(blocks))
	offset := 0
	for _, b := range blocks {
		if got := b.Data.DType(); got != dt {
			return header.Header{}, fmt.Errorf("block %v has dtype %s, expected %s", b.Bounds, got, dt)
		}
		if !slices.Equal(b.Data.Shape(), b.Shape) {
			return header.Header{}, fmt.Errorf("block %v has data of shape %v", b.Bounds, b.Data.Shape())
		}
		name := header.BlockName(b.Origin)
		if _, ok := bm[name]; ok {
			return header.Header{}, fmt.Errorf("duplicate block name %q", name)
		}
		end, err := endOffset(offset, b.Data.Len(), dt)
		if err != nil {
			return header.Header{}, err
		}
		bm[name] = header.Block{
			Name:        name,
			DType:       dt,
			Shape:       b.Data.Shape(),
			Origin:      append(header.Shape(nil), b.Origin...),
			DataOffsets: header.DataOffsets{Begin: offset, End: end},
		}
		offset = end
	}
	return header.Header{
		Array:    header.Array{DType: dt, Shape: append(header.Shape(nil), shape...)},
		Blocks:   bm,
		Metadata: metadata,
	}, nil
}

func endOffset(begin, n int, dt dtype.DType) (int, error) {
	hi, size := bits.Mul64(uint64(n), uint64(dt.Size()))
	end, carry := bits.Add64(uint64(begin), size, 0)
	if hi != 0 || carry != 0 || end > math.MaxInt {
		return 0, fmt.Errorf("int overflow computing data offsets")
	}
	return int(end), nil
}

func writeBlock(w io.Writer, b chunk.Block, hb header.Block) error {
	n, err := writeData(w, b.Data)
	if err != nil {
		return err
	}
	expected := int64(hb.DataOffsets.End - hb.DataOffsets.Begin)
	if n != expected {
		return fmt.Errorf("expected %d written bytes, actual %d", expected, n)
	}
	return nil
}
