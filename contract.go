// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stencil

import (
	"fmt"

	"github.com/nlpodyssey/stencil/dtype"
	"github.com/pkg/errors"
)

// ShapeRelation describes the shape of a Transform's output relative to
// its input.
type ShapeRelation uint8

const (
	// SameShape outputs an array of the same shape as the input. Positions
	// whose neighborhood leaves the array follow the BoundaryPolicy.
	SameShape ShapeRelation = iota
	// ValidShape only outputs positions whose whole neighborhood lies in
	// the array: each extent shrinks by the neighborhood span minus one.
	ValidShape
)

func (r ShapeRelation) String() string {
	switch r {
	case SameShape:
		return "same"
	case ValidShape:
		return "valid"
	}
	return fmt.Sprintf("ShapeRelation(%d)", r)
}

// ParseShapeRelation returns the ShapeRelation with the given name.
func ParseShapeRelation(s string) (ShapeRelation, error) {
	switch s {
	case "same":
		return SameShape, nil
	case "valid":
		return ValidShape, nil
	}
	return 0, errors.Wrapf(ErrConfiguration, "unknown shape relation %q", s)
}

// A Contract declares the type and shape behavior of a Transform, so that
// its output can be planned without running it. The zero value accepts any
// supported input type and outputs the same type and shape.
type Contract struct {
	// In is the required input type; zero accepts any supported type.
	In dtype.DType
	// Out is the output type; zero means the same as the input.
	Out dtype.DType
	// Rank is the required input rank; zero means the neighborhood rank.
	Rank int
	// Shape relates the output shape to the input shape.
	Shape ShapeRelation
}

// Validate checks the contract on its own.
func (c Contract) Validate() error {
	if c.In != 0 {
		if err := checkSupported(c.In); err != nil {
			return errors.Wrap(err, "contract input type")
		}
	}
	if c.Out != 0 {
		if err := checkSupported(c.Out); err != nil {
			return errors.Wrap(err, "contract output type")
		}
	}
	if c.Rank < 0 {
		return errors.Wrapf(ErrConfiguration, "contract rank %d is negative", c.Rank)
	}
	if c.Shape > ValidShape {
		return errors.Wrapf(ErrConfiguration, "unknown shape relation %d", c.Shape)
	}
	return nil
}

// OutputDType returns the output type for input type in.
func (c Contract) OutputDType(in dtype.DType) (dtype.DType, error) {
	if err := checkSupported(in); err != nil {
		return 0, err
	}
	if c.In != 0 && in != c.In {
		return 0, errors.Wrapf(ErrType, "input type %s conflicts with contract input type %s", in, c.In)
	}
	if c.Out != 0 {
		return c.Out, nil
	}
	return in, nil
}

// Check verifies that a satisfies the input side of the contract.
func (c Contract) Check(a Array) error {
	if _, err := c.OutputDType(a.dType); err != nil {
		return err
	}
	if c.Rank != 0 && a.Rank() != c.Rank {
		return errors.Wrapf(ErrType, "input rank %d conflicts with contract rank %d", a.Rank(), c.Rank)
	}
	return nil
}

// OutputShape returns the output shape for an input of the given shape,
// applying nb.
func (c Contract) OutputShape(nb Neighborhood, shape []int) ([]int, error) {
	if c.Rank != 0 && len(shape) != c.Rank {
		return nil, errors.Wrapf(ErrType, "input rank %d conflicts with contract rank %d", len(shape), c.Rank)
	}
	if len(shape) != nb.Rank() {
		return nil, errors.Wrapf(ErrConfiguration, "input rank %d differs from neighborhood rank %d", len(shape), nb.Rank())
	}
	out := make([]int, len(shape))
	for d, v := range shape {
		if span := nb.Span(d); span > v {
			return nil, errors.Wrapf(ErrConfiguration, "neighborhood span %d exceeds array extent %d in dimension %d", span, v, d)
		}
		out[d] = v
		if c.Shape == ValidShape {
			out[d] = v - nb.Span(d) + 1
		}
	}
	return out, nil
}

// checkSupported reports ErrType for types that transforms cannot process.
// U64 values are excluded because they cannot all be widened to int64.
func checkSupported(dt dtype.DType) error {
	switch dt.Kind() {
	case dtype.KindInteger:
		if dt != dtype.U64 {
			return nil
		}
	case dtype.KindFloat:
		return nil
	}
	return errors.Wrapf(ErrType, "unsupported element type %s", dt)
}
