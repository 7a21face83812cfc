// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package stencil compiles local-neighborhood functions into whole-array
// transforms.
//
// A Neighborhood is a fixed set of relative offsets. Compiling it together
// with a Combiner yields a Transform, which computes every output element
// from the input elements found at those offsets around it:
//
//	nb := stencil.Box(2, 1) // 3x3
//	t, err := stencil.Compile(nb, stencil.Mean(stencil.RoundFloor))
//	if err != nil {
//		return err
//	}
//	out, err := t.Apply(img)
//
// # Boundaries
//
// Positions whose neighborhood reaches outside the array are handled by the
// Transform's BoundaryPolicy. The default policy reads zeros outside the
// array, so on an all-ones array the 3x3 floor mean yields floor(4/9) = 0
// at the corners and floor(6/9) = 0 along the edges.
//
// # Contracts
//
// A Contract declares the input and output element types and the output
// shape relation of a Transform. Plan uses it to compute the output of an
// application without running the combiner, which is what block schedulers
// need (see package chunk).
package stencil
