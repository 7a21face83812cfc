// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stencil

import (
	"fmt"

	"github.com/pkg/errors"
)

// BoundaryMode selects how reads outside the array are resolved.
type BoundaryMode uint8

const (
	// BoundaryFill reads BoundaryPolicy.Fill outside the array.
	BoundaryFill BoundaryMode = iota
	// BoundaryClamp repeats the edge elements.
	BoundaryClamp
	// BoundaryMirror reflects at the edges, repeating the edge element:
	// index -1 reads 0, -2 reads 1.
	BoundaryMirror
	// BoundaryWrap tiles the array.
	BoundaryWrap
	// BoundaryStrict fails with ErrBoundaryPolicy on any read outside
	// the array.
	BoundaryStrict
)

var boundaryModeNames = [...]string{
	BoundaryFill:   "fill",
	BoundaryClamp:  "clamp",
	BoundaryMirror: "mirror",
	BoundaryWrap:   "wrap",
	BoundaryStrict: "strict",
}

func (m BoundaryMode) String() string {
	if int(m) < len(boundaryModeNames) {
		return boundaryModeNames[m]
	}
	return fmt.Sprintf("BoundaryMode(%d)", m)
}

// ParseBoundaryMode returns the BoundaryMode with the given name.
func ParseBoundaryMode(s string) (BoundaryMode, error) {
	for m, name := range boundaryModeNames {
		if name == s {
			return BoundaryMode(m), nil
		}
	}
	return 0, errors.Wrapf(ErrConfiguration, "unknown boundary mode %q", s)
}

// A BoundaryPolicy decides the value of neighborhood reads falling outside
// the array. The zero value is ZeroFill.
type BoundaryPolicy struct {
	Mode BoundaryMode
	// Fill is the value read outside the array with BoundaryFill. It must
	// be representable by the input type.
	Fill float64
}

// ZeroFill reads zeros outside the array.
var ZeroFill = BoundaryPolicy{}

// Validate returns an error if the policy mode is unknown.
func (p BoundaryPolicy) Validate() error {
	if int(p.Mode) >= len(boundaryModeNames) {
		return errors.Wrapf(ErrConfiguration, "unknown boundary mode %d", p.Mode)
	}
	return nil
}

// Remap resolves the coordinate index along a dimension of the given size.
// It returns the in-bounds coordinate to read from, or ok false when no
// element of the array must be read (BoundaryFill and BoundaryStrict).
func (p BoundaryPolicy) Remap(index, size int) (_ int, ok bool) {
	if index >= 0 && index < size {
		return index, true
	}
	switch p.Mode {
	case BoundaryClamp:
		return clamp(index, size), true
	case BoundaryMirror:
		return mirror(index, size), true
	case BoundaryWrap:
		return wrap(index, size), true
	}
	return 0, false
}

func outOfBoundsError(d, index, size int) error {
	return errors.Wrapf(ErrBoundaryPolicy, "coordinate %d of dimension %d is outside [0, %d)", index, d, size)
}

func mirror(index, size int) int {
	if index < 0 {
		index = -index - 1
	}
	if index >= size {
		period := 2 * size
		index = index % period
		if index >= size {
			index = period - index - 1
		}
	}
	return index
}

func clamp(index, size int) int {
	if index < 0 {
		return 0
	}
	if index >= size {
		return size - 1
	}
	return index
}

func wrap(index, size int) int {
	index = index % size
	if index < 0 {
		index += size
	}
	return index
}
