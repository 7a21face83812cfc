// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package header

import (
	"encoding/json"
	"fmt"
	"math"
	"math/bits"
)

// Shape is a list of non-negative extents, or of coordinates when used as
// a block origin.
type Shape []int

// MarshalJSON encodes a nil Shape as "[]" rather than "null".
func (s Shape) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]int(s))
}

// Size returns the number of elements of an array of this shape, failing
// on negative extents or int overflow.
func (s Shape) Size() (int, error) {
	size := uint(1)
	for _, v := range s {
		if v < 0 {
			return 0, fmt.Errorf("shape contains negative value %d", v)
		}
		var hi uint
		if hi, size = bits.Mul(size, uint(v)); hi != 0 {
			return 0, fmt.Errorf("int overflow computing elements size from shape")
		}
	}
	if size > math.MaxInt {
		return 0, fmt.Errorf("elements size computed from shape is too large for int type: %d", size)
	}
	return int(size), nil
}
