// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stencil_test

import (
	"fmt"
	"log"

	"github.com/nlpodyssey/stencil"
	"github.com/nlpodyssey/stencil/dtype"
)

func ExampleCompile() {
	img, err := stencil.Full(dtype.U8, []int{3, 3}, 1)
	if err != nil {
		log.Fatal(err)
	}
	t, err := stencil.Compile(stencil.Box(2, 1), stencil.Mean(stencil.RoundFloor))
	if err != nil {
		log.Fatal(err)
	}
	out, err := t.Apply(img)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(out)
	fmt.Println(out.Data())

	// Output:
	// Array(U8[3 3])
	// [0 0 0 0 1 0 0 0 0]
}

func ExampleTransform_Plan() {
	t, err := stencil.Compile(
		stencil.Box(2, 2),
		stencil.Sum(),
		stencil.WithContract(stencil.Contract{In: dtype.U8, Out: dtype.I32, Shape: stencil.ValidShape}),
	)
	if err != nil {
		log.Fatal(err)
	}
	out, shape, err := t.Plan(dtype.U8, []int{100, 80})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(out, shape)

	_, _, err = t.Plan(dtype.F32, []int{100, 80})
	fmt.Println(err)

	// Output:
	// I32 [96 76]
	// input type F32 conflicts with contract input type U8: stencil: type error
}

func ExampleWithBoundary() {
	row, err := stencil.NewArray(dtype.I32, []int{5}, []int32{1, 2, 3, 4, 5})
	if err != nil {
		log.Fatal(err)
	}
	for _, mode := range []stencil.BoundaryMode{stencil.BoundaryFill, stencil.BoundaryClamp, stencil.BoundaryMirror, stencil.BoundaryWrap} {
		t, err := stencil.Compile(stencil.Box(1, 2), stencil.Sum(), stencil.WithBoundary(stencil.BoundaryPolicy{Mode: mode}))
		if err != nil {
			log.Fatal(err)
		}
		out, err := t.Apply(row)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(mode, out.Data())
	}

	// Output:
	// fill [6 10 15 14 12]
	// clamp [8 11 15 19 22]
	// mirror [9 11 15 19 21]
	// wrap [15 15 15 15 15]
}
