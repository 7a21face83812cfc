// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dtype defines the element types of stencil arrays.
package dtype

import (
	"fmt"
	"math"
)

// DType represents the element type of an array.
type DType uint8

const (
	// Bool represents an 8-bit boolean data type.
	Bool DType = iota + 1
	// U8 represents an 8-bit unsigned integer data type.
	U8
	// I8 represents an 8-bit signed integer data type.
	I8
	// U16 represents a 16-bit unsigned integer data type.
	U16
	// I16 represents a 16-bit signed integer data type.
	I16
	// F16 represents a 16-bit half-precision floating point data type.
	F16
	// BF16 represents a 16-bit brain floating point data type.
	BF16
	// U32 represents a 32-bit unsigned integer data type.
	U32
	// I32 represents a 32-bit signed integer data type.
	I32
	// F32 represents a 32-bit floating point data type.
	F32
	// U64 represents a 64-bit unsigned integer data type.
	U64
	// I64 represents a 64-bit signed integer data type.
	I64
	// F64 represents a 64-bit floating point data type.
	F64
)

// Kind groups data types by the arithmetic used to combine their values.
type Kind uint8

const (
	// KindInvalid is the Kind of an invalid DType.
	KindInvalid Kind = iota
	// KindBool is the Kind of Bool.
	KindBool
	// KindInteger is the Kind of signed and unsigned integer types.
	// Integer values are combined as int64.
	KindInteger
	// KindFloat is the Kind of floating point types.
	// Floating point values are combined as float64.
	KindFloat
)

type properties struct {
	name string
	size int
	kind Kind
	min  int64
	max  int64
}

var dTypeProperties = [...]properties{
	Bool: {"BOOL", 1, KindBool, 0, 1},
	U8:   {"U8", 1, KindInteger, 0, math.MaxUint8},
	I8:   {"I8", 1, KindInteger, math.MinInt8, math.MaxInt8},
	U16:  {"U16", 2, KindInteger, 0, math.MaxUint16},
	I16:  {"I16", 2, KindInteger, math.MinInt16, math.MaxInt16},
	F16:  {"F16", 2, KindFloat, 0, 0},
	BF16: {"BF16", 2, KindFloat, 0, 0},
	U32:  {"U32", 4, KindInteger, 0, math.MaxUint32},
	I32:  {"I32", 4, KindInteger, math.MinInt32, math.MaxInt32},
	F32:  {"F32", 4, KindFloat, 0, 0},
	U64:  {"U64", 8, KindInteger, 0, math.MaxInt64},
	I64:  {"I64", 8, KindInteger, math.MinInt64, math.MaxInt64},
	F64:  {"F64", 8, KindFloat, 0, 0},
}

var nameToDType = func() map[string]DType {
	m := make(map[string]DType, len(dTypeProperties))
	for dt, p := range dTypeProperties {
		if p.name != "" {
			m[p.name] = DType(dt)
		}
	}
	return m
}()

// Validate returns an error if the DType is not valid, otherwise nil.
func (dt DType) Validate() error {
	if dt == 0 || dt > F64 {
		return fmt.Errorf("invalid DType(%d)", dt)
	}
	return nil
}

// String returns a string representation of a DType.
func (dt DType) String() string {
	if err := dt.Validate(); err != nil {
		return err.Error()
	}
	return dTypeProperties[dt].name
}

// Size returns the size in bytes of one element of this data type,
// or -1 if the DType value is invalid.
func (dt DType) Size() int {
	if err := dt.Validate(); err != nil {
		return -1
	}
	return dTypeProperties[dt].size
}

// Kind returns the arithmetic kind of the data type.
func (dt DType) Kind() Kind {
	if err := dt.Validate(); err != nil {
		return KindInvalid
	}
	return dTypeProperties[dt].kind
}

// IntRange returns the smallest and largest values representable by an
// integer data type, as int64.
//
// The boolean result is false for non-integer types. The upper bound of U64
// is capped at math.MaxInt64, the range of values that can be combined as
// int64; U64 arrays can still be built with the whole uint64 range.
func (dt DType) IntRange() (lo, hi int64, ok bool) {
	if dt.Kind() != KindInteger {
		return 0, 0, false
	}
	p := dTypeProperties[dt]
	return p.min, p.max, true
}

// Parse returns the DType with the given name, e.g. "U8" or "F32".
func Parse(s string) (DType, error) {
	dt, ok := nameToDType[s]
	if !ok {
		return 0, fmt.Errorf("invalid DType name %q", s)
	}
	return dt, nil
}

// MarshalJSON satisfies json.Marshaler interface.
func (dt DType) MarshalJSON() ([]byte, error) {
	if err := dt.Validate(); err != nil {
		return nil, err
	}
	return []byte(`"` + dTypeProperties[dt].name + `"`), nil
}

// UnmarshalJSON satisfies json.Unmarshaler interface.
func (dt *DType) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("failed to JSON-unmarshal DType from value %q", s)
	}
	v, ok := nameToDType[s[1:len(s)-1]]
	if !ok {
		return fmt.Errorf("failed to JSON-unmarshal DType from value %q", s)
	}
	*dt = v
	return nil
}

// MarshalText satisfies encoding.TextMarshaler interface.
func (dt DType) MarshalText() ([]byte, error) {
	if err := dt.Validate(); err != nil {
		return nil, err
	}
	return []byte(dTypeProperties[dt].name), nil
}

// UnmarshalText satisfies encoding.TextUnmarshaler interface.
func (dt *DType) UnmarshalText(text []byte) error {
	v, ok := nameToDType[string(text)]
	if !ok {
		return fmt.Errorf("failed to text-unmarshal DType from value %q", string(text))
	}
	*dt = v
	return nil
}
