// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package header

import (
	"encoding/json"
	"fmt"
)

// DataOffsets describes the "[Begin, End)" byte range of a block's data
// within the archive byte-buffer, relative to its beginning.
type DataOffsets struct {
	// Begin is the lower bound byte index (included).
	Begin int
	// End is the upper bound byte index (excluded).
	End int
}

// UnmarshalJSON decodes a DataOffsets from an array of two numbers.
func (a *DataOffsets) UnmarshalJSON(b []byte) error {
	var decoded []int
	if err := json.Unmarshal(b, &decoded); err != nil {
		return err
	}
	if len(decoded) != 2 {
		return fmt.Errorf("invalid data-offsets value: %q", string(b))
	}
	*a = DataOffsets{
		Begin: decoded[0],
		End:   decoded[1],
	}
	return nil
}

// MarshalJSON encodes a DataOffsets as an array of two numbers.
func (a DataOffsets) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{a.Begin, a.End})
}

// Len returns the number of bytes in the range.
func (a DataOffsets) Len() int {
	return a.End - a.Begin
}
