// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package header

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/nlpodyssey/stencil/dtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeader_UnmarshalJSON(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		data := []byte(`{"b0_0": {"dtype": "I8", "shape": [2, 3], "origin": [0, 0], "data_offsets": [0, 6]},` +
			`"__array__": {"dtype": "I8", "shape": [2, 3]},` +
			`"__metadata__": {"foo": "bar", "baz": "qux"}}`)

		h := Header{ByteBufferOffset: 16}
		err := h.UnmarshalJSON(data)
		require.NoError(t, err)

		expected := Header{
			Array:    Array{DType: dtype.I8, Shape: Shape{2, 3}},
			Metadata: Metadata{"foo": "bar", "baz": "qux"},
			Blocks: BlockMap{
				"b0_0": Block{Name: "b0_0", DType: dtype.I8, Shape: Shape{2, 3}, Origin: Shape{0, 0}, DataOffsets: DataOffsets{Begin: 0, End: 6}},
			},
			ByteBufferOffset: 16,
		}
		assert.Equal(t, expected, h)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		var h Header
		err := h.UnmarshalJSON([]byte("{}oh!"))
		require.Error(t, err)
	})

	t.Run("invalid header content", func(t *testing.T) {
		var h Header
		err := h.UnmarshalJSON([]byte(`{"foo": {"bar": "baz"}}`))
		require.Error(t, err)
		assert.Equal(t, Header{}, h)
	})
}

func TestHeader_MarshalJSON(t *testing.T) {
	h := Header{
		Array:    Array{DType: dtype.F16, Shape: Shape{4}},
		Metadata: Metadata{"k": "v"},
		Blocks: BlockMap{
			"b2": Block{Name: "b2", DType: dtype.F16, Shape: Shape{2}, Origin: Shape{2}, DataOffsets: DataOffsets{4, 8}},
			"b0": Block{Name: "b0", DType: dtype.F16, Shape: Shape{2}, Origin: Shape{0}, DataOffsets: DataOffsets{0, 4}},
		},
		ByteBufferOffset: 99,
	}
	b, err := h.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"__array__":{"dtype":"F16","shape":[4]},"__metadata__":{"k":"v"},`+
		`"b0":{"dtype":"F16","shape":[2],"origin":[0],"data_offsets":[0,4]},`+
		`"b2":{"dtype":"F16","shape":[2],"origin":[2],"data_offsets":[4,8]}}`, string(b))

	var decoded Header
	require.NoError(t, decoded.UnmarshalJSON(b))
	h.ByteBufferOffset = 0
	assert.Equal(t, h, decoded)

	t.Run("reserved names", func(t *testing.T) {
		bad := Header{Blocks: BlockMap{arrayKey: Block{Name: arrayKey}}}
		_, err := bad.MarshalJSON()
		assert.Error(t, err)
	})
}

func TestHeader_WriteTo(t *testing.T) {
	h := Header{
		Array: Array{DType: dtype.U8, Shape: Shape{3}},
		Blocks: BlockMap{
			"b0": Block{Name: "b0", DType: dtype.U8, Shape: Shape{3}, Origin: Shape{0}, DataOffsets: DataOffsets{0, 3}},
		},
	}
	var buf bytes.Buffer
	n, err := h.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	assert.Zero(t, buf.Len()%8, "byte-buffer must be 8-byte aligned")

	size := binary.LittleEndian.Uint64(buf.Bytes()[:8])
	assert.Equal(t, uint64(buf.Len()-8), size)

	read, err := Read(&buf)
	require.NoError(t, err)
	h.ByteBufferOffset = int(n)
	assert.Equal(t, h, read)
	assert.NoError(t, read.Validate())
}
