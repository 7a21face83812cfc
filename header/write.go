// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package header

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/nlpodyssey/stencil/dtype"
)

type jsonBlock struct {
	DType       dtype.DType `json:"dtype"`
	Shape       Shape       `json:"shape"`
	Origin      Shape       `json:"origin"`
	DataOffsets DataOffsets `json:"data_offsets"`
}

// MarshalJSON encodes the header as a JSON object, with sorted keys.
// ByteBufferOffset is not part of it.
func (h Header) MarshalJSON() ([]byte, error) {
	obj := make(map[string]any, len(h.Blocks)+2)
	for name, b := range h.Blocks {
		if name == metadataKey || name == arrayKey {
			return nil, fmt.Errorf("reserved block name %q", name)
		}
		obj[name] = jsonBlock{
			DType:       b.DType,
			Shape:       b.Shape,
			Origin:      b.Origin,
			DataOffsets: b.DataOffsets,
		}
	}
	if len(h.Metadata) > 0 {
		obj[metadataKey] = h.Metadata
	}
	obj[arrayKey] = h.Array
	return json.Marshal(obj)
}

var headerPadding = [8]byte{' ', ' ', ' ', ' ', ' ', ' ', ' ', ' '}

// WriteTo writes the header size and the JSON header to w, padding the
// JSON with spaces so that the byte-buffer starts at a multiple of 8.
func (h Header) WriteTo(w io.Writer) (int64, error) {
	jsonHeader, err := h.MarshalJSON()
	if err != nil {
		return 0, err
	}

	jsonLen := len(jsonHeader)
	// forcing 8-byte alignment
	toAlign := (8 - jsonLen%8) % 8

	var size [8]byte
	binary.LittleEndian.PutUint64(size[:], uint64(jsonLen+toAlign))
	written := 0
	for _, part := range [][]byte{size[:], jsonHeader, headerPadding[:toAlign]} {
		n, err := w.Write(part)
		written += n
		if err != nil {
			return int64(written), fmt.Errorf("failed to write header: %w", err)
		}
	}
	return int64(written), nil
}
