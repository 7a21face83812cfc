// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chunk

import (
	"context"
	"fmt"
	"io"
	"log"
	"runtime"
	"slices"
	"strings"

	"github.com/nlpodyssey/stencil"
	"github.com/nlpodyssey/stencil/dtype"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// Options configures Map.
type Options struct {
	// HaloWidth is how many elements each block is grown by on every side
	// before applying the transform. It must be at least the neighborhood
	// radius, unless the only block is the whole array.
	HaloWidth int
	// Workers bounds the number of blocks processed at the same time. Zero
	// means runtime.GOMAXPROCS(0).
	Workers int
	// Logger receives block failures and a summary. Nil discards them.
	Logger *log.Logger
}

// A Result is the outcome of Map for one block. Block has the bounds of
// the input block; its Data is only set when Err is nil.
type Result struct {
	Block Block
	Err   error
}

// BlockError is the failure of a single block.
type BlockError struct {
	Index  int
	Bounds Bounds
	Err    error
}

func (e *BlockError) Error() string {
	return fmt.Sprintf("block %d %v: %v", e.Index, e.Bounds, e.Err)
}

func (e *BlockError) Unwrap() error {
	return e.Err
}

// MapError reports the blocks that failed in a call to Map.
type MapError struct {
	Blocks int
	Errors []*BlockError
}

func (e *MapError) Error() string {
	msgs := lo.Map(e.Errors, func(be *BlockError, _ int) string { return be.Error() })
	return fmt.Sprintf("%d of %d blocks failed: %s", len(e.Errors), e.Blocks, strings.Join(msgs, "; "))
}

// Unwrap returns the errors of the failed blocks.
func (e *MapError) Unwrap() []error {
	return lo.Map(e.Errors, func(be *BlockError, _ int) error { return be })
}

// Indices returns the indices of the failed blocks.
func (e *MapError) Indices() []int {
	return lo.Map(e.Errors, func(be *BlockError, _ int) int { return be.Index })
}

// Map applies t to every block of src, returning one Result per block, in
// the order of blocks.
//
// Each block is read together with a halo of neighboring elements, so the
// result equals the corresponding part of t.Apply on the whole array as
// long as the halo is at least the neighborhood radius. Blocks are
// processed concurrently and independently: a failing block does not stop
// the others. If any block fails, the error is a *MapError.
//
// Errors about the arguments themselves are returned with nil results.
func Map(ctx context.Context, t *stencil.Transform, src Source, blocks []Bounds, opts Options) ([]Result, error) {
	if err := checkMap(t, src, blocks, opts); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]Result, len(blocks))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, b := range blocks {
		results[i].Block.Bounds = b
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			ext, origin, err := extend(ctx, t, src, b, opts.HaloWidth)
			if err != nil {
				results[i].Err = err
				return nil
			}
			results[i].Block.Data, results[i].Err = t.ApplyWindow(ext, origin, b.Shape)
			return nil
		})
	}
	_ = g.Wait()

	var failed []*BlockError
	for i, r := range results {
		if r.Err != nil {
			be := &BlockError{Index: i, Bounds: r.Block.Bounds, Err: r.Err}
			logger.Printf("block %d %v failed: %v", i, be.Bounds, be.Err)
			failed = append(failed, be)
		}
	}
	logger.Printf("mapped %d blocks with halo %d, %d failed", len(blocks), opts.HaloWidth, len(failed))
	if len(failed) > 0 {
		return results, &MapError{Blocks: len(blocks), Errors: failed}
	}
	return results, nil
}

func checkMap(t *stencil.Transform, src Source, blocks []Bounds, opts Options) error {
	shape := src.Shape()
	if _, _, err := t.Plan(src.DType(), shape); err != nil {
		return err
	}
	if t.Contract().Shape != stencil.SameShape {
		return errors.Wrapf(stencil.ErrShapeMismatch, "blocks cannot be mapped with shape relation %s", t.Contract().Shape)
	}
	if opts.HaloWidth < 0 {
		return errors.Wrapf(stencil.ErrConfiguration, "negative halo width %d", opts.HaloWidth)
	}
	for i, b := range blocks {
		if !b.Within(shape) || lo.Min(b.Shape) <= 0 {
			return errors.Wrapf(stencil.ErrShapeMismatch, "block %d %v is empty or exceeds array shape %v", i, b, shape)
		}
	}
	if r := t.Neighborhood().Radius(); opts.HaloWidth < r && !wholeArray(blocks, shape) {
		return errors.Wrapf(stencil.ErrConfiguration, "halo width %d is smaller than neighborhood radius %d", opts.HaloWidth, r)
	}
	return checkDisjoint(blocks)
}

// wholeArray reports whether blocks is a single block covering shape.
func wholeArray(blocks []Bounds, shape []int) bool {
	return len(blocks) == 1 &&
		lo.EveryBy(blocks[0].Origin, func(o int) bool { return o == 0 }) &&
		slices.Equal(blocks[0].Shape, shape)
}

// Assemble rebuilds a logical array of the given shape from the blocks of
// results, which must cover it exactly once.
func Assemble(shape []int, results []Result) (stencil.Array, error) {
	if len(results) == 0 {
		return stencil.Array{}, errors.Wrap(stencil.ErrShapeMismatch, "no blocks to assemble")
	}
	bounds := make([]Bounds, len(results))
	var dt dtype.DType
	for i, r := range results {
		if r.Err != nil {
			return stencil.Array{}, &BlockError{Index: i, Bounds: r.Block.Bounds, Err: r.Err}
		}
		if i == 0 {
			dt = r.Block.Data.DType()
		}
		if err := checkBlock(r.Block, dt); err != nil {
			return stencil.Array{}, errors.WithMessagef(err, "block %d", i)
		}
		if !r.Block.Within(shape) {
			return stencil.Array{}, errors.Wrapf(stencil.ErrShapeMismatch, "block %d %v exceeds array shape %v", i, r.Block.Bounds, shape)
		}
		bounds[i] = r.Block.Bounds
	}
	if err := checkDisjoint(bounds); err != nil {
		return stencil.Array{}, err
	}
	blocks := lo.Map(results, func(r Result, _ int) Block { return r.Block })
	origin := make([]int, len(shape))
	return gather(Bounds{Origin: origin, Shape: shape}, dt, blocks)
}
