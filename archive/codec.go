// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package archive

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/nlpodyssey/stencil"
	"github.com/nlpodyssey/stencil/dtype"
)

// writeData writes the elements of a to w, little-endian and row-major.
func writeData(w io.Writer, a stencil.Array) (int64, error) {
	size := binary.Size(a.Data())
	if size < 0 {
		return 0, fmt.Errorf("invalid or unsupported data type %T", a.Data())
	}
	if size == 0 {
		return 0, nil
	}
	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, a.Data()); err != nil {
		return 0, err
	}
	if err := bw.Flush(); err != nil {
		return 0, err
	}
	return int64(size), nil
}

// readData reads from r the elements of an array of the given type and
// shape.
func readData(r io.Reader, dt dtype.DType, shape []int) (stencil.Array, error) {
	a, err := stencil.Zeros(dt, shape)
	if err != nil {
		return stencil.Array{}, err
	}
	if a.Len() == 0 {
		return a, nil
	}
	if err := binary.Read(bufio.NewReader(r), binary.LittleEndian, a.Data()); err != nil {
		return stencil.Array{}, err
	}
	return a, nil
}
