// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stencil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFloorDivAndTruncDiv(t *testing.T) {
	testCases := []struct {
		a, b, floor, trunc int64
	}{
		{4, 9, 0, 0},
		{9, 9, 1, 1},
		{7, 2, 3, 3},
		{-7, 2, -4, -3},
		{7, -2, -4, -3},
		{-7, -2, 3, 3},
		{-8, 2, -4, -4},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.floor, FloorDiv(tc.a, tc.b), "FloorDiv(%d, %d)", tc.a, tc.b)
		assert.Equal(t, tc.trunc, TruncDiv(tc.a, tc.b), "TruncDiv(%d, %d)", tc.a, tc.b)
	}
}

func TestMean(t *testing.T) {
	assert.Equal(t, int64(0), Mean(RoundFloor).Int([]int64{1, 1, 1, 1, 0, 0, 0, 0, 0}))
	assert.Equal(t, int64(1), Mean(RoundFloor).Int([]int64{1, 1, 1, 1, 1, 1, 1, 1, 1}))
	assert.Equal(t, int64(-1), Mean(RoundFloor).Int([]int64{-1, 0, 0}))
	assert.Equal(t, int64(0), Mean(RoundTrunc).Int([]int64{-1, 0, 0}))
	assert.Equal(t, 0.5, Mean(RoundFloor).Float([]float64{0, 1}))
}

func TestBuiltinCombiners(t *testing.T) {
	ints := []int64{3, -2, 7}
	floats := []float64{3, -2, 7}

	assert.Equal(t, int64(8), Sum().Int(ints))
	assert.Equal(t, 8.0, Sum().Float(floats))
	assert.Equal(t, int64(-2), Min().Int(ints))
	assert.Equal(t, -2.0, Min().Float(floats))
	assert.Equal(t, int64(7), Max().Int(ints))
	assert.Equal(t, 7.0, Max().Float(floats))

	w := Weighted([]float64{0.5, 1, 0})
	assert.Nil(t, w.Int)
	assert.Equal(t, 3, w.Arity)
	assert.Equal(t, -0.5, w.Float(floats))

	wi := WeightedInt([]int64{1, 2, 1}, 4, RoundFloor)
	assert.Equal(t, int64(1), wi.Int(ints)) // floor(6 / 4)
	assert.Equal(t, 1.5, wi.Float(floats))
	assert.Panics(t, func() { WeightedInt([]int64{1}, 0, RoundFloor) })
}

func TestCheckedArithmetic(t *testing.T) {
	testCases := []struct {
		a, b  int64
		addOK bool
		mulOK bool
	}{
		{1, 2, true, true},
		{math.MaxInt64, 1, false, true},
		{math.MaxInt64, -1, true, true},
		{math.MinInt64, -1, false, false},
		{math.MinInt64, 1, true, true},
		{-1, math.MinInt64, false, false},
		{1 << 32, 1 << 30, true, true},
		{1 << 32, 1 << 31, true, false},
		{0, math.MinInt64, true, true},
	}
	for _, tc := range testCases {
		_, ok := checkedAdd(tc.a, tc.b)
		assert.Equal(t, tc.addOK, ok, "checkedAdd(%d, %d)", tc.a, tc.b)
		_, ok = checkedMul(tc.a, tc.b)
		assert.Equal(t, tc.mulOK, ok, "checkedMul(%d, %d)", tc.a, tc.b)
	}

	sum, ok := checkedSum([]int64{math.MaxInt64, -5, 5})
	assert.True(t, ok)
	assert.Equal(t, int64(math.MaxInt64), sum)
	_, ok = checkedSum([]int64{math.MaxInt64 - 1, 5, -5})
	assert.False(t, ok)
}
