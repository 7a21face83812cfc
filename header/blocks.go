// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package header

import (
	"strconv"
	"strings"

	"github.com/nlpodyssey/stencil/dtype"
)

// Block provides properties of a block, as described within an archive
// header.
type Block struct {
	Name        string
	DType       dtype.DType
	Shape       Shape
	Origin      Shape
	DataOffsets DataOffsets
}

// BlockMap is a set of Block objects mapped by their name.
type BlockMap map[string]Block

// BlockSlice is a slice of Block objects.
type BlockSlice []Block

// BlockSliceByDataOffsets implements sort.Interface allowing to sort a
// BlockSlice by ascending DataOffsets values.
type BlockSliceByDataOffsets struct{ BlockSlice }

// BlockName returns the conventional name of the block at origin, such as
// "b0_5" for origin [0, 5].
func BlockName(origin []int) string {
	var sb strings.Builder
	sb.WriteByte('b')
	for i, v := range origin {
		if i > 0 {
			sb.WriteByte('_')
		}
		sb.WriteString(strconv.Itoa(v))
	}
	return sb.String()
}

// Less reports whether DataOffsets "a" is ordered before DataOffsets "b".
func (a DataOffsets) Less(b DataOffsets) bool {
	return a.Begin < b.Begin || (a.Begin == b.Begin && a.End < b.End)
}

// BlockSlice creates an unsorted slice of Block objects filled with
// all values of the BlockMap.
func (bm BlockMap) BlockSlice() BlockSlice {
	if len(bm) == 0 {
		return nil
	}
	bs := make(BlockSlice, 0, len(bm))
	for _, b := range bm {
		bs = append(bs, b)
	}
	return bs
}

func (bs BlockSlice) Len() int {
	return len(bs)
}

func (bs BlockSlice) Swap(i, j int) {
	bs[i], bs[j] = bs[j], bs[i]
}

func (b BlockSliceByDataOffsets) Less(i, j int) bool {
	return b.BlockSlice[i].DataOffsets.Less(b.BlockSlice[j].DataOffsets)
}
