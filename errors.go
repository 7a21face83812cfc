// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stencil

import "github.com/pkg/errors"

// Errors reported by the package. They are always wrapped with details;
// use errors.Is to test for them.
var (
	// ErrConfiguration reports an invalid Neighborhood, Combiner or
	// BoundaryPolicy, or one that cannot be used with the given array.
	ErrConfiguration = errors.New("stencil: configuration error")
	// ErrContractViolation reports a combiner result that does not fit the
	// declared output type.
	ErrContractViolation = errors.New("stencil: contract violation")
	// ErrShapeMismatch reports inconsistent array or block shapes.
	ErrShapeMismatch = errors.New("stencil: shape mismatch")
	// ErrBoundaryPolicy reports an out-of-bounds neighborhood access
	// under BoundaryStrict.
	ErrBoundaryPolicy = errors.New("stencil: out-of-bounds access")
	// ErrType reports an element type that conflicts with a Contract, or
	// that the combiner cannot process.
	ErrType = errors.New("stencil: type error")
)
