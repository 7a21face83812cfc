// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stencil

import (
	"fmt"
	"math"
)

// A Combiner reduces the values of a neighborhood, in offset order, to a
// single output value.
//
// Values of integer arrays are passed to Int, widened to int64; values of
// floating point arrays are passed to Float, widened to float64. Either
// function may be nil if the combiner does not support that kind of data.
//
// Combiners must be pure: the result can only depend on the values, and the
// values slice must not be retained. A Transform may call them concurrently.
//
// The built-in integer combiners detect int64 overflow of their running
// sums, which a Transform reports as ErrContractViolation. User-defined Int
// functions are trusted.
type Combiner struct {
	Name  string
	Int   func(values []int64) int64
	Float func(values []float64) float64
	// Arity, if not zero, is the number of values the combiner expects.
	Arity int

	// checkedInt is Int reporting false on int64 overflow. Only built-in
	// combiners set it; a Transform prefers it to Int.
	checkedInt func(values []int64) (int64, bool)
}

// checkedAdd returns a+b, or false if the sum overflows int64.
func checkedAdd(a, b int64) (int64, bool) {
	s := a + b
	return s, (a >= 0) != (b >= 0) || (s >= 0) == (a >= 0)
}

// checkedMul returns a*b, or false if the product overflows int64.
func checkedMul(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	p := a * b
	if p/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return p, false
	}
	return p, true
}

func checkedSum(values []int64) (int64, bool) {
	var sum int64
	for _, v := range values {
		var ok bool
		if sum, ok = checkedAdd(sum, v); !ok {
			return 0, false
		}
	}
	return sum, true
}

// unchecked adapts a checked integer combiner to the Int signature. The
// result of an overflowing combination is unspecified.
func unchecked(f func([]int64) (int64, bool)) func([]int64) int64 {
	return func(values []int64) int64 {
		v, _ := f(values)
		return v
	}
}

// Rounding selects the integer division used by integer combiners.
type Rounding uint8

const (
	// RoundFloor rounds quotients towards negative infinity.
	RoundFloor Rounding = iota
	// RoundTrunc rounds quotients towards zero, like Go's "/" operator.
	RoundTrunc
)

func (r Rounding) String() string {
	switch r {
	case RoundFloor:
		return "floor"
	case RoundTrunc:
		return "trunc"
	}
	return fmt.Sprintf("Rounding(%d)", r)
}

func (r Rounding) div(a, b int64) int64 {
	if r == RoundTrunc {
		return TruncDiv(a, b)
	}
	return FloorDiv(a, b)
}

// FloorDiv returns a/b rounded towards negative infinity.
func FloorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// TruncDiv returns a/b rounded towards zero.
func TruncDiv(a, b int64) int64 {
	return a / b
}

// Mean averages the values. Integer means divide the sum by the number of
// values using the given rounding: the 3x3 floor mean of four ones and five
// zeros is floor(4/9) = 0.
func Mean(r Rounding) Combiner {
	mean := func(values []int64) (int64, bool) {
		sum, ok := checkedSum(values)
		return r.div(sum, int64(len(values))), ok
	}
	return Combiner{
		Name:       "mean",
		Int:        unchecked(mean),
		checkedInt: mean,
		Float: func(values []float64) float64 {
			var sum float64
			for _, v := range values {
				sum += v
			}
			return sum / float64(len(values))
		},
	}
}

// Sum adds the values.
func Sum() Combiner {
	return Combiner{
		Name:       "sum",
		Int:        unchecked(checkedSum),
		checkedInt: checkedSum,
		Float: func(values []float64) float64 {
			var sum float64
			for _, v := range values {
				sum += v
			}
			return sum
		},
	}
}

// Min returns the smallest value.
func Min() Combiner {
	return Combiner{
		Name: "min",
		Int: func(values []int64) int64 {
			m := values[0]
			for _, v := range values[1:] {
				m = min(m, v)
			}
			return m
		},
		Float: func(values []float64) float64 {
			m := values[0]
			for _, v := range values[1:] {
				m = math.Min(m, v)
			}
			return m
		},
	}
}

// Max returns the largest value.
func Max() Combiner {
	return Combiner{
		Name: "max",
		Int: func(values []int64) int64 {
			m := values[0]
			for _, v := range values[1:] {
				m = max(m, v)
			}
			return m
		},
		Float: func(values []float64) float64 {
			m := values[0]
			for _, v := range values[1:] {
				m = math.Max(m, v)
			}
			return m
		},
	}
}

// Weighted returns the dot product of the values with weights, which are
// in offset order. It only supports floating point data.
func Weighted(weights []float64) Combiner {
	w := append([]float64(nil), weights...)
	return Combiner{
		Name: "weighted",
		Float: func(values []float64) float64 {
			var sum float64
			for i, v := range values {
				sum += w[i] * v
			}
			return sum
		},
		Arity: len(w),
	}
}

// WeightedInt returns the dot product of the values with integer weights,
// divided by divisor. Integer data is divided with the given rounding,
// floating point data exactly. It panics if divisor is zero.
func WeightedInt(weights []int64, divisor int64, r Rounding) Combiner {
	if divisor == 0 {
		panic("stencil: WeightedInt divisor must not be zero")
	}
	w := append([]int64(nil), weights...)
	weighted := func(values []int64) (int64, bool) {
		var sum int64
		for i, v := range values {
			p, ok := checkedMul(w[i], v)
			if !ok {
				return 0, false
			}
			if sum, ok = checkedAdd(sum, p); !ok {
				return 0, false
			}
		}
		return r.div(sum, divisor), true
	}
	return Combiner{
		Name:       "weighted",
		Int:        unchecked(weighted),
		checkedInt: weighted,
		Float: func(values []float64) float64 {
			var sum float64
			for i, v := range values {
				sum += float64(w[i]) * v
			}
			return sum / float64(divisor)
		},
		Arity: len(w),
	}
}
