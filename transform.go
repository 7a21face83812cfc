// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stencil

import (
	"math"
	"sort"
	"sync"

	"github.com/nlpodyssey/stencil/dtype"
	"github.com/pkg/errors"
)

// A Transform applies a Combiner over a Neighborhood at every position of
// an array. It is created by Compile and can be applied any number of
// times, also concurrently, to arrays of any supported type and shape.
//
// The first application to an input type and rank compiles a variant
// specialized for them; variants are cached on the Transform.
type Transform struct {
	nb       Neighborhood
	combiner Combiner
	boundary BoundaryPolicy
	contract Contract

	mu       sync.Mutex
	variants map[VariantKey]variant
}

// VariantKey identifies a compiled variant of a Transform.
type VariantKey struct {
	DType dtype.DType
	Rank  int
}

// An Option configures a Transform at compile time.
type Option func(*Transform)

// WithBoundary sets the boundary policy. The default is ZeroFill.
func WithBoundary(p BoundaryPolicy) Option {
	return func(t *Transform) { t.boundary = p }
}

// WithContract sets the type and shape contract. The default is the zero
// Contract.
func WithContract(c Contract) Option {
	return func(t *Transform) { t.contract = c }
}

// Compile builds a Transform computing, at each position, c over the values
// found at the offsets of nb.
func Compile(nb Neighborhood, c Combiner, opts ...Option) (*Transform, error) {
	if nb.Len() == 0 {
		return nil, errors.Wrap(ErrConfiguration, "empty neighborhood")
	}
	if c.Int == nil && c.Float == nil {
		return nil, errors.Wrapf(ErrConfiguration, "combiner %q has neither an integer nor a float form", c.Name)
	}
	if c.Arity != 0 && c.Arity != nb.Len() {
		return nil, errors.Wrapf(ErrConfiguration, "combiner %q expects %d values, neighborhood has %d offsets", c.Name, c.Arity, nb.Len())
	}

	t := &Transform{
		nb:       nb,
		combiner: c,
		variants: make(map[VariantKey]variant),
	}
	for _, opt := range opts {
		opt(t)
	}

	if err := t.boundary.Validate(); err != nil {
		return nil, err
	}
	if err := t.contract.Validate(); err != nil {
		return nil, err
	}
	if r := t.contract.Rank; r != 0 && r != nb.Rank() {
		return nil, errors.Wrapf(ErrConfiguration, "contract rank %d differs from neighborhood rank %d", r, nb.Rank())
	}
	return t, nil
}

// Neighborhood returns the neighborhood the Transform was compiled with.
func (t *Transform) Neighborhood() Neighborhood {
	return t.nb
}

// Combiner returns the combiner the Transform was compiled with.
func (t *Transform) Combiner() Combiner {
	return t.combiner
}

// Boundary returns the boundary policy.
func (t *Transform) Boundary() BoundaryPolicy {
	return t.boundary
}

// Contract returns the type and shape contract.
func (t *Transform) Contract() Contract {
	return t.contract
}

// Plan returns the type and shape of the array Apply would produce for an
// input of the given type and shape, without computing anything.
func (t *Transform) Plan(in dtype.DType, shape []int) (dtype.DType, []int, error) {
	out, err := t.contract.OutputDType(in)
	if err != nil {
		return 0, nil, err
	}
	outShape, err := t.contract.OutputShape(t.nb, shape)
	if err != nil {
		return 0, nil, err
	}
	return out, outShape, nil
}

// Apply returns a new array holding the transform of a.
func (t *Transform) Apply(a Array) (Array, error) {
	_, outShape, err := t.Plan(a.dType, a.shape)
	if err != nil {
		return Array{}, err
	}
	origin := make([]int, len(outShape))
	if t.contract.Shape == ValidShape {
		copy(origin, t.nb.lo)
	}
	v, err := t.variant(a.dType, a.Rank())
	if err != nil {
		return Array{}, err
	}
	return v.apply(a, origin, outShape)
}

// ApplyWindow computes only the output positions of a inside the window
// starting at origin with the given shape, returning them as a new array of
// that shape. Reads outside a follow the boundary policy, as in Apply with
// SameShape.
//
// Unlike Apply, a can be smaller than the neighborhood span: chunk blocks
// at the array edges are.
func (t *Transform) ApplyWindow(a Array, origin, shape []int) (Array, error) {
	if err := t.contract.Check(a); err != nil {
		return Array{}, err
	}
	if a.Rank() != t.nb.Rank() {
		return Array{}, errors.Wrapf(ErrConfiguration, "input rank %d differs from neighborhood rank %d", a.Rank(), t.nb.Rank())
	}
	if err := checkWindow(a.shape, origin, shape); err != nil {
		return Array{}, err
	}
	v, err := t.variant(a.dType, a.Rank())
	if err != nil {
		return Array{}, err
	}
	return v.apply(a, origin, shape)
}

// Variants returns the keys of the variants compiled so far, sorted by
// type and rank.
func (t *Transform) Variants() []VariantKey {
	t.mu.Lock()
	keys := make([]VariantKey, 0, len(t.variants))
	for k := range t.variants {
		keys = append(keys, k)
	}
	t.mu.Unlock()

	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		return a.DType < b.DType || (a.DType == b.DType && a.Rank < b.Rank)
	})
	return keys
}

type variant interface {
	apply(src Array, origin, shape []int) (Array, error)
}

func (t *Transform) variant(in dtype.DType, rank int) (variant, error) {
	key := VariantKey{DType: in, Rank: rank}

	t.mu.Lock()
	defer t.mu.Unlock()
	if v, ok := t.variants[key]; ok {
		return v, nil
	}
	v, err := t.compileVariant(key)
	if err != nil {
		return nil, err
	}
	t.variants[key] = v
	return v, nil
}

func (t *Transform) compileVariant(key VariantKey) (variant, error) {
	out, err := t.contract.OutputDType(key.DType)
	if err != nil {
		return nil, err
	}

	switch key.DType.Kind() {
	case dtype.KindInteger:
		if t.combiner.Int == nil {
			return nil, errors.Wrapf(ErrType, "combiner %q cannot process integer type %s", t.combiner.Name, key.DType)
		}
		fill, err := t.integerFill(key.DType)
		if err != nil {
			return nil, err
		}
		combine := t.combiner.checkedInt
		if combine == nil {
			combine = func(values []int64) (int64, bool) { return t.combiner.Int(values), true }
		}
		return &kernel[int64]{
			t:       t,
			out:     out,
			combine: combine,
			fill:    fill,
			reader: func(a Array) (func(int) int64, error) {
				return newIntReader(a)
			},
			writer: func(a Array) (func(int, int64) bool, error) {
				return newIntWriter(a)
			},
		}, nil

	case dtype.KindFloat:
		if t.combiner.Float == nil {
			return nil, errors.Wrapf(ErrType, "combiner %q cannot process floating point type %s", t.combiner.Name, key.DType)
		}
		return &kernel[float64]{
			t:       t,
			out:     out,
			combine: func(values []float64) (float64, bool) { return t.combiner.Float(values), true },
			fill:    t.boundary.Fill,
			reader: func(a Array) (func(int) float64, error) {
				return newFloatReader(a)
			},
			writer: func(a Array) (func(int, float64) bool, error) {
				return newFloatWriter(a)
			},
		}, nil
	}
	return nil, errors.Wrapf(ErrType, "unsupported element type %s", key.DType)
}

// integerFill converts the boundary fill value for an integer input type.
func (t *Transform) integerFill(dt dtype.DType) (int64, error) {
	f := t.boundary.Fill
	lo, hi, _ := dt.IntRange()
	if f != math.Trunc(f) || f < float64(lo) || f >= float64(hi)+1 {
		return 0, errors.Wrapf(ErrConfiguration, "fill value %v is not representable as %s", f, dt)
	}
	return int64(f), nil
}

// kernel is a compiled variant working on values widened to V.
type kernel[V int64 | float64] struct {
	t       *Transform
	out     dtype.DType
	combine func([]V) (V, bool)
	fill    V
	reader  func(Array) (func(int) V, error)
	writer  func(Array) (func(int, V) bool, error)
}

func (k *kernel[V]) apply(src Array, origin, shape []int) (Array, error) {
	dst, err := Zeros(k.out, shape)
	if err != nil {
		return Array{}, err
	}
	if dst.Len() == 0 {
		return dst, nil
	}
	read, err := k.reader(src)
	if err != nil {
		return Array{}, err
	}
	write, err := k.writer(dst)
	if err != nil {
		return Array{}, err
	}

	nb := k.t.nb
	rank := nb.Rank()
	srcShape := src.shape
	srcStrides := strides(srcShape)

	// Linear distance of each offset, valid for interior positions.
	lin := make([]int, nb.Len())
	for i, off := range nb.offsets {
		for d, o := range off {
			lin[i] += o * srcStrides[d]
		}
	}

	values := make([]V, nb.Len())
	pos := make([]int, rank)
	p := make([]int, rank)
	for j := 0; ; j++ {
		base := 0
		interior := true
		for d := 0; d < rank; d++ {
			p[d] = origin[d] + pos[d]
			base += p[d] * srcStrides[d]
			if p[d] < nb.lo[d] || p[d]+nb.hi[d] >= srcShape[d] {
				interior = false
			}
		}

		if interior {
			for i, o := range lin {
				values[i] = read(base + o)
			}
		} else if err := k.gather(values, read, p, srcShape, srcStrides); err != nil {
			return Array{}, err
		}

		v, ok := k.combine(values)
		if !ok {
			return Array{}, errors.Wrapf(ErrContractViolation, "combiner %q overflows int64 at %v", k.t.combiner.Name, p)
		}
		if !write(j, v) {
			return Array{}, errors.Wrapf(ErrContractViolation, "combiner %q produced %v at %v, which is not representable as %s", k.t.combiner.Name, v, p, k.out)
		}

		if !nextPosition(pos, shape) {
			break
		}
	}
	return dst, nil
}

// gather reads the neighborhood of a position near the array boundary,
// resolving each coordinate with the boundary policy.
func (k *kernel[V]) gather(values []V, read func(int) V, p, shape, strides []int) error {
	policy := k.t.boundary
	for i, off := range k.t.nb.offsets {
		idx := 0
		inside := true
		for d, o := range off {
			q := p[d] + o
			r, ok := policy.Remap(q, shape[d])
			if !ok {
				if policy.Mode == BoundaryStrict {
					return errors.Wrapf(outOfBoundsError(d, q, shape[d]), "offset %v at %v", off, p)
				}
				inside = false
				break
			}
			idx += r * strides[d]
		}
		if inside {
			values[i] = read(idx)
		} else {
			values[i] = k.fill
		}
	}
	return nil
}
