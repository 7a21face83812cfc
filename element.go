// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stencil

import (
	"math"

	"github.com/nlpodyssey/stencil/dtype"
	"github.com/nlpodyssey/stencil/float16"
	"github.com/pkg/errors"
)

// Element access is done through widened values: integer types are read
// and written as int64, floating point types as float64. A writer reports
// false when the value is not representable by the destination type.
type (
	intReader   func(i int) int64
	floatReader func(i int) float64
	intWriter   func(i int, v int64) bool
	floatWriter func(i int, v float64) bool
)

type integer interface {
	uint8 | int8 | uint16 | int16 | uint32 | int32 | uint64 | int64
}

func readInts[T integer](data []T) intReader {
	return func(i int) int64 { return int64(data[i]) }
}

func writeInts[T integer](data []T, lo, hi int64) intWriter {
	return func(i int, v int64) bool {
		if v < lo || v > hi {
			return false
		}
		data[i] = T(v)
		return true
	}
}

func readFloats[T float32 | float64](data []T) floatReader {
	return func(i int) float64 { return float64(data[i]) }
}

func newIntReader(a Array) (intReader, error) {
	switch data := a.data.(type) {
	case []uint8:
		return readInts(data), nil
	case []int8:
		return readInts(data), nil
	case []uint16:
		return readInts(data), nil
	case []int16:
		return readInts(data), nil
	case []uint32:
		return readInts(data), nil
	case []int32:
		return readInts(data), nil
	case []int64:
		return readInts(data), nil
	}
	return nil, errors.Wrapf(ErrType, "%s elements cannot be read as integers", a.dType)
}

func newFloatReader(a Array) (floatReader, error) {
	switch data := a.data.(type) {
	case []float32:
		return readFloats(data), nil
	case []float64:
		return readFloats(data), nil
	case []float16.F16:
		return func(i int) float64 { return float64(data[i].Float32()) }, nil
	case []float16.BF16:
		return func(i int) float64 { return float64(data[i].Float32()) }, nil
	}
	return nil, errors.Wrapf(ErrType, "%s elements cannot be read as floats", a.dType)
}

// newIntWriter returns a writer of int64 values into a, which can be of any
// integer or floating point type.
func newIntWriter(a Array) (intWriter, error) {
	if a.dType.Kind() == dtype.KindFloat {
		fw, err := newFloatWriter(a)
		if err != nil {
			return nil, err
		}
		return func(i int, v int64) bool { return fw(i, float64(v)) }, nil
	}
	lo, hi, _ := a.dType.IntRange()
	switch data := a.data.(type) {
	case []uint8:
		return writeInts(data, lo, hi), nil
	case []int8:
		return writeInts(data, lo, hi), nil
	case []uint16:
		return writeInts(data, lo, hi), nil
	case []int16:
		return writeInts(data, lo, hi), nil
	case []uint32:
		return writeInts(data, lo, hi), nil
	case []int32:
		return writeInts(data, lo, hi), nil
	case []uint64:
		return writeInts(data, lo, hi), nil
	case []int64:
		return writeInts(data, lo, hi), nil
	}
	return nil, errors.Wrapf(ErrType, "integers cannot be written as %s elements", a.dType)
}

// newFloatWriter returns a writer of float64 values into a, which can be of
// any integer or floating point type. Integer destinations only accept
// integral values within their range, which for U64 is the whole uint64
// range. Floating point destinations reject finite values that would
// overflow to infinity.
func newFloatWriter(a Array) (floatWriter, error) {
	switch data := a.data.(type) {
	case []float64:
		return func(i int, v float64) bool {
			data[i] = v
			return true
		}, nil
	case []float32:
		return func(i int, v float64) bool {
			f := float32(v)
			if overflows(v, f) {
				return false
			}
			data[i] = f
			return true
		}, nil
	case []float16.F16:
		return func(i int, v float64) bool {
			h := float16.F16FromFloat32(float32(v))
			if overflows(v, h.Float32()) {
				return false
			}
			data[i] = h
			return true
		}, nil
	case []float16.BF16:
		return func(i int, v float64) bool {
			b := float16.BF16FromFloat32(float32(v))
			if overflows(v, b.Float32()) {
				return false
			}
			data[i] = b
			return true
		}, nil
	}

	if data, ok := a.data.([]uint64); ok {
		return func(i int, v float64) bool {
			if v != math.Trunc(v) || v < 0 || v >= 1<<64 {
				return false
			}
			data[i] = uint64(v)
			return true
		}, nil
	}

	lo, hi, ok := a.dType.IntRange()
	if !ok {
		return nil, errors.Wrapf(ErrType, "floats cannot be written as %s elements", a.dType)
	}
	iw, err := newIntWriter(a)
	if err != nil {
		return nil, err
	}
	flo, fhi := float64(lo), float64(hi)+1
	return func(i int, v float64) bool {
		if v != math.Trunc(v) || v < flo || v >= fhi {
			return false
		}
		return iw(i, int64(v))
	}, nil
}

// overflows reports whether the finite value v became infinite once
// narrowed to n.
func overflows(v float64, n float32) bool {
	return math.IsInf(float64(n), 0) && !math.IsInf(v, 0)
}
