// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stencil

import (
	"fmt"
	"math"
	"math/bits"
	"reflect"

	"github.com/nlpodyssey/stencil/dtype"
	"github.com/nlpodyssey/stencil/float16"
	"github.com/pkg/errors"
)

// An Array is a dense, row-major ("C" ordered) multi-dimensional array,
// with data fully loaded in memory.
//
// For a correctly formed Array, the value of DType and the type of Data
// must match each other, according to the following pairs:
//
//	DType | Data type
//	------+---------------
//	Bool  | []bool
//	U8    | []uint8
//	I8    | []int8
//	U16   | []uint16
//	I16   | []int16
//	F16   | []float16.F16
//	BF16  | []float16.BF16
//	U32   | []uint32
//	I32   | []int32
//	F32   | []float32
//	U64   | []uint64
//	I64   | []int64
//	F64   | []float64
type Array struct {
	dType dtype.DType
	shape []int
	data  any
}

// NewArray performs validity checks over the given properties and returns
// an Array with those properties if validation succeeds, otherwise an error.
//
// The rules applied for validation are:
//   - the dType must be valid (see dtype.DType.Validate)
//   - the shape must not contain negative values
//   - the type of data must match the dType, according to the pairs listed
//     on Array documentation
//   - the number of data elements must match the shape (an empty shape
//     implies a scalar value)
//
// The given shape is copied. Data is NOT copied: transforms never modify
// their inputs, but callers must not modify data while an Array built on
// it is in use.
func NewArray(dType dtype.DType, shape []int, data any) (Array, error) {
	dataLen, err := checkTypesAndGetDataLen(dType, data)
	if err != nil {
		return Array{}, err
	}
	shapeSize, err := checkedShapeSize(shape)
	if err != nil {
		return Array{}, err
	}
	if shapeSize != dataLen {
		return Array{}, errors.Wrapf(ErrShapeMismatch, "the size computed from shape (%d) does not match data length (%d)", shapeSize, dataLen)
	}
	return Array{
		dType: dType,
		shape: copyShape(shape),
		data:  data,
	}, nil
}

// Zeros returns a new Array of the given type and shape, with all elements
// set to zero.
func Zeros(dType dtype.DType, shape []int) (Array, error) {
	size, err := checkedShapeSize(shape)
	if err != nil {
		return Array{}, err
	}
	data, err := makeData(dType, size)
	if err != nil {
		return Array{}, err
	}
	return Array{
		dType: dType,
		shape: copyShape(shape),
		data:  data,
	}, nil
}

// Full returns a new Array of the given type and shape, with all elements
// set to value. It fails if value is not representable by dType.
func Full(dType dtype.DType, shape []int, value float64) (Array, error) {
	a, err := Zeros(dType, shape)
	if err != nil || value == 0 {
		return a, err
	}
	if dType == dtype.Bool {
		fill(a.data.([]bool), true)
		return a, nil
	}
	w, err := newFloatWriter(a)
	if err != nil {
		return Array{}, err
	}
	for i, n := 0, a.Len(); i < n; i++ {
		if !w(i, value) {
			return Array{}, errors.Wrapf(ErrType, "value %v is not representable as %s", value, dType)
		}
	}
	return a, nil
}

// FromFloats returns an array of the given type and shape holding values,
// in row-major order, converted to dType. Bool elements are true for
// non-zero values. Values not representable as dType yield ErrType.
func FromFloats(dType dtype.DType, shape []int, values []float64) (Array, error) {
	a, err := Zeros(dType, shape)
	if err != nil {
		return Array{}, err
	}
	if len(values) != a.Len() {
		return Array{}, errors.Wrapf(ErrShapeMismatch, "%d values for shape %v", len(values), shape)
	}
	if dType == dtype.Bool {
		data := a.data.([]bool)
		for i, v := range values {
			data[i] = v != 0
		}
		return a, nil
	}
	w, err := newFloatWriter(a)
	if err != nil {
		return Array{}, err
	}
	for i, v := range values {
		if !w(i, v) {
			return Array{}, errors.Wrapf(ErrType, "value %v at %d is not representable as %s", v, i, dType)
		}
	}
	return a, nil
}

func fill[T any](s []T, v T) {
	for i := range s {
		s[i] = v
	}
}

func checkedShapeSize(shape []int) (int, error) {
	size := uint(1)
	for _, v := range shape {
		if v < 0 {
			return 0, errors.Wrapf(ErrShapeMismatch, "shape contains negative value %d", v)
		}
		var hi uint
		if hi, size = bits.Mul(size, uint(v)); hi != 0 || size > math.MaxInt {
			return 0, errors.Wrap(ErrShapeMismatch, "int overflow computing size from shape")
		}
	}
	return int(size), nil
}

func checkTypesAndGetDataLen(dt dtype.DType, data any) (int, error) {
	switch dt {
	case dtype.Bool:
		return resolveDataLen[bool](dt, data)
	case dtype.U8:
		return resolveDataLen[uint8](dt, data)
	case dtype.I8:
		return resolveDataLen[int8](dt, data)
	case dtype.U16:
		return resolveDataLen[uint16](dt, data)
	case dtype.I16:
		return resolveDataLen[int16](dt, data)
	case dtype.F16:
		return resolveDataLen[float16.F16](dt, data)
	case dtype.BF16:
		return resolveDataLen[float16.BF16](dt, data)
	case dtype.U32:
		return resolveDataLen[uint32](dt, data)
	case dtype.I32:
		return resolveDataLen[int32](dt, data)
	case dtype.F32:
		return resolveDataLen[float32](dt, data)
	case dtype.U64:
		return resolveDataLen[uint64](dt, data)
	case dtype.I64:
		return resolveDataLen[int64](dt, data)
	case dtype.F64:
		return resolveDataLen[float64](dt, data)
	}
	return 0, errors.Wrapf(ErrType, "invalid or unsupported DType: %s", dt)
}

func resolveDataLen[T any](dt dtype.DType, data any) (int, error) {
	if data == nil {
		return 0, nil
	}
	y, ok := data.([]T)
	if !ok {
		return 0, errors.Wrapf(ErrType, "expected DType %s to match data type %T, actual data type %T", dt, y, data)
	}
	return len(y), nil
}

func makeData(dt dtype.DType, n int) (any, error) {
	switch dt {
	case dtype.Bool:
		return make([]bool, n), nil
	case dtype.U8:
		return make([]uint8, n), nil
	case dtype.I8:
		return make([]int8, n), nil
	case dtype.U16:
		return make([]uint16, n), nil
	case dtype.I16:
		return make([]int16, n), nil
	case dtype.F16:
		return make([]float16.F16, n), nil
	case dtype.BF16:
		return make([]float16.BF16, n), nil
	case dtype.U32:
		return make([]uint32, n), nil
	case dtype.I32:
		return make([]int32, n), nil
	case dtype.F32:
		return make([]float32, n), nil
	case dtype.U64:
		return make([]uint64, n), nil
	case dtype.I64:
		return make([]int64, n), nil
	case dtype.F64:
		return make([]float64, n), nil
	}
	return nil, errors.Wrapf(ErrType, "invalid or unsupported DType: %s", dt)
}

// DType returns the element type of the array.
func (a Array) DType() dtype.DType {
	return a.dType
}

// The Shape of the array.
//
// If the shape is zero-length, it returns nil, otherwise a new slice
// is allocated and returned (the shape is copied to prevent tampering).
func (a Array) Shape() []int {
	return copyShape(a.shape)
}

// Rank returns the number of dimensions.
func (a Array) Rank() int {
	return len(a.shape)
}

// Len returns the number of elements.
func (a Array) Len() int {
	n := 1
	for _, v := range a.shape {
		n *= v
	}
	return n
}

// Strides returns, for each dimension, the distance in elements between
// two consecutive positions along that dimension.
func (a Array) Strides() []int {
	return strides(a.shape)
}

// The Data of the array.
// Possible values are documented on the main Array type.
//
// The value returned is NOT a copy.
func (a Array) Data() any {
	return a.data
}

// Index returns the position within Data of the element at the given
// coordinates, or -1 if they are out of bounds.
func (a Array) Index(coords ...int) int {
	if len(coords) != len(a.shape) {
		return -1
	}
	idx := 0
	for d, c := range coords {
		if c < 0 || c >= a.shape[d] {
			return -1
		}
		idx = idx*a.shape[d] + c
	}
	return idx
}

// Equal reports whether a and b have the same type, shape and data.
// Floating point elements compare by value, with NaN equal to NaN.
func (a Array) Equal(b Array) bool {
	if a.dType != b.dType || !equalShapes(a.shape, b.shape) {
		return false
	}
	if a.Len() == 0 {
		return true
	}
	if a.dType.Kind() != dtype.KindFloat {
		return reflect.DeepEqual(a.data, b.data)
	}
	ra, _ := newFloatReader(a)
	rb, _ := newFloatReader(b)
	for i, n := 0, a.Len(); i < n; i++ {
		x, y := ra(i), rb(i)
		if x != y && !(math.IsNaN(x) && math.IsNaN(y)) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the array.
func (a Array) Clone() Array {
	c, err := Zeros(a.dType, a.shape)
	if err != nil {
		return Array{}
	}
	if a.data != nil {
		reflect.Copy(reflect.ValueOf(c.data), reflect.ValueOf(a.data))
	}
	return c
}

// Slice returns a copy of the rectangular region of a starting at origin,
// with the given shape.
func (a Array) Slice(origin, shape []int) (Array, error) {
	if err := checkWindow(a.shape, origin, shape); err != nil {
		return Array{}, err
	}
	out, err := Zeros(a.dType, shape)
	if err != nil {
		return Array{}, err
	}
	copyRegion(out, make([]int, len(shape)), a, origin, shape)
	return out, nil
}

// Paste copies all of src into dst, placing the first element of src at
// the given origin of dst. The two arrays must share the same DType.
func Paste(dst Array, origin []int, src Array) error {
	if dst.dType != src.dType {
		return errors.Wrapf(ErrType, "cannot paste %s data into %s array", src.dType, dst.dType)
	}
	if err := checkWindow(dst.shape, origin, src.shape); err != nil {
		return err
	}
	copyRegion(dst, origin, src, make([]int, len(src.shape)), src.shape)
	return nil
}

func checkWindow(arrayShape, origin, shape []int) error {
	if len(origin) != len(arrayShape) || len(shape) != len(arrayShape) {
		return errors.Wrapf(ErrShapeMismatch, "window of rank %d/%d on array of rank %d", len(origin), len(shape), len(arrayShape))
	}
	for d := range arrayShape {
		if origin[d] < 0 || shape[d] < 0 || origin[d]+shape[d] > arrayShape[d] {
			return errors.Wrapf(ErrShapeMismatch, "window origin %v shape %v exceeds array shape %v", origin, shape, arrayShape)
		}
	}
	return nil
}

// copyRegion copies the box of the given shape from src (at srcOrigin) to
// dst (at dstOrigin), one contiguous row at a time.
func copyRegion(dst Array, dstOrigin []int, src Array, srcOrigin []int, shape []int) {
	rank := len(shape)
	if rank == 0 {
		reflect.Copy(reflect.ValueOf(dst.data), reflect.ValueOf(src.data))
		return
	}
	for _, v := range shape {
		if v == 0 {
			return
		}
	}
	dv, sv := reflect.ValueOf(dst.data), reflect.ValueOf(src.data)
	dStrides, sStrides := strides(dst.shape), strides(src.shape)
	rowLen := shape[rank-1]
	pos := make([]int, rank)
	for {
		di, si := 0, 0
		for d := 0; d < rank; d++ {
			di += (dstOrigin[d] + pos[d]) * dStrides[d]
			si += (srcOrigin[d] + pos[d]) * sStrides[d]
		}
		reflect.Copy(dv.Slice(di, di+rowLen), sv.Slice(si, si+rowLen))
		if !nextPosition(pos[:rank-1], shape[:rank-1]) {
			return
		}
	}
}

// nextPosition advances pos as an odometer within shape, reporting false
// once all positions have been visited.
func nextPosition(pos, shape []int) bool {
	for d := len(pos) - 1; d >= 0; d-- {
		pos[d]++
		if pos[d] < shape[d] {
			return true
		}
		pos[d] = 0
	}
	return false
}

func strides(shape []int) []int {
	if len(shape) == 0 {
		return nil
	}
	s := make([]int, len(shape))
	acc := 1
	for d := len(shape) - 1; d >= 0; d-- {
		s[d] = acc
		acc *= shape[d]
	}
	return s
}

func copyShape(shape []int) []int {
	if len(shape) == 0 {
		return nil
	}
	s := make([]int, len(shape))
	copy(s, shape)
	return s
}

func equalShapes(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (a Array) String() string {
	return fmt.Sprintf("Array(%s%v)", a.dType, a.shape)
}
