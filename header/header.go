// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package header models the header of a block archive: a single stream
// holding the blocks of one logical array.
//
// The stream starts with the header size as a little-endian uint64,
// followed by the JSON header and by the byte-buffer with the data of all
// blocks, little-endian and row-major:
//
//	{
//	  "__metadata__": {"k": "v"},
//	  "__array__": {"dtype": "U8", "shape": [10, 10]},
//	  "b0_0": {"dtype": "U8", "shape": [5, 5], "origin": [0, 0], "data_offsets": [0, 25]},
//	  ...
//	}
package header

import "github.com/nlpodyssey/stencil/dtype"

// Header provides the logical array and blocks information and the
// metadata of a block archive.
type Header struct {
	Array    Array
	Blocks   BlockMap
	Metadata Metadata
	// ByteBufferOffset indicates the byte index position where the byte-buffer
	// is expected to start, relative to the beginning of the whole
	// archive data stream (or file).
	ByteBufferOffset int
}

// Array describes the logical array the blocks belong to.
type Array struct {
	DType dtype.DType `json:"dtype"`
	Shape Shape       `json:"shape"`
}

// Metadata is a set of free-form key/value string pairs.
type Metadata map[string]string
