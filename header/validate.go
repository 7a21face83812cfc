// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package header

import (
	"fmt"
	"math"
	"math/bits"
	"sort"
)

// Validate checks whether the content of a Header is valid, returning an
// error if a problem is encountered, otherwise nil.
//
// The Header is checked against the following rules:
//
//   - ByteBufferOffset must not be negative
//   - the Array DType must be valid, and its Shape must not contain
//     negative values
//   - each key in Blocks BlockMap must match the mapped Block.Name
//   - each Block has the Array DType, and Shape and Origin of the Array rank
//   - each Block lies within the Array, and no two Blocks overlap
//   - the union of DataOffsets of all Blocks must cover an entire contiguous
//     area of the byte-buffer, starting from offset 0
//   - for each Block, its byte size described by DataOffsets must coincide
//     with the one computed from Shape and DType
//   - no overflow must occur during calculations at any step
func (h Header) Validate() error {
	if h.ByteBufferOffset < 0 {
		return fmt.Errorf("invalid byte-buffer offset negative value %d", h.ByteBufferOffset)
	}
	if err := h.Array.DType.Validate(); err != nil {
		return fmt.Errorf("invalid array: %w", err)
	}
	if _, err := h.Array.Shape.Size(); err != nil {
		return fmt.Errorf("invalid array: %w", err)
	}
	return validateBlocks(h.Array, h.Blocks)
}

func validateBlocks(a Array, bm BlockMap) error {
	if err := validateBlockNames(bm); err != nil {
		return err
	}

	bs := bm.BlockSlice()
	sort.Sort(BlockSliceByDataOffsets{bs})

	expectedBegin := 0
	for _, b := range bs {
		if err := validateBlock(a, b, expectedBegin); err != nil {
			return fmt.Errorf("invalid block %q: %w", b.Name, err)
		}
		expectedBegin = b.DataOffsets.End
	}
	return validateDisjoint(bs)
}

func validateBlockNames(bm BlockMap) error {
	for k, b := range bm {
		if k != b.Name {
			return fmt.Errorf("block names mismatch: BlockMap key %q, Block.Name %q", k, b.Name)
		}
	}
	return nil
}

func validateBlock(a Array, b Block, expectedBegin int) error {
	if b.DType != a.DType {
		return fmt.Errorf("dtype %s differs from array dtype %s", b.DType, a.DType)
	}
	if len(b.Shape) != len(a.Shape) || len(b.Origin) != len(a.Shape) {
		return fmt.Errorf("shape %v and origin %v do not match array rank %d", b.Shape, b.Origin, len(a.Shape))
	}
	for d, v := range a.Shape {
		if b.Origin[d] < 0 || b.Shape[d] < 0 || b.Origin[d] > v-b.Shape[d] {
			return fmt.Errorf("origin %v and shape %v exceed array shape %v", b.Origin, b.Shape, a.Shape)
		}
	}

	if b.DataOffsets.Begin != expectedBegin {
		return fmt.Errorf("expected data-offsets begin %d, actual %d", expectedBegin, b.DataOffsets.Begin)
	}
	if b.DataOffsets.End < b.DataOffsets.Begin {
		return fmt.Errorf("expected data-offsets end >= %d (begin), actual %d", b.DataOffsets.Begin, b.DataOffsets.End)
	}

	byteSize, err := byteSizeFromShape(b)
	if err != nil {
		return err
	}
	if offSize := b.DataOffsets.Len(); offSize != byteSize {
		return fmt.Errorf("byte size computed from shape (%d) differs from data-offsets size (%d)", byteSize, offSize)
	}
	return nil
}

func validateDisjoint(bs BlockSlice) error {
	for i := range bs {
		for j := i + 1; j < len(bs); j++ {
			if overlap(bs[i], bs[j]) {
				return fmt.Errorf("blocks %q and %q overlap", bs[i].Name, bs[j].Name)
			}
		}
	}
	return nil
}

func overlap(a, b Block) bool {
	for d := range a.Shape {
		if a.Origin[d]+a.Shape[d] <= b.Origin[d] || b.Origin[d]+b.Shape[d] <= a.Origin[d] {
			return false
		}
	}
	return true
}

func byteSizeFromShape(b Block) (int, error) {
	size, err := b.Shape.Size()
	if err != nil {
		return 0, err
	}
	hi, byteSize := bits.Mul(uint(size), uint(b.DType.Size()))
	if hi != 0 {
		return 0, fmt.Errorf("int overflow computing block byte size from shape")
	}
	if byteSize > math.MaxInt {
		return 0, fmt.Errorf("block byte size computed from shape is too large for int type: %d", byteSize)
	}
	return int(byteSize), nil
}
