// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chunk

import (
	"context"

	"github.com/nlpodyssey/stencil"
	"github.com/samber/lo"
)

// A run maps n consecutive indices of an extended block, starting at ext,
// to n consecutive indices of the source array, starting at src.
type run struct {
	ext, src, n int
}

// extend reads block b from src grown by its halo, returning the extended
// block and the position of b inside it.
//
// The halo along each dimension is at most halo wide and never wider than
// the neighborhood reaches. With the clamp, mirror and wrap policies the
// halo also covers coordinates outside the source, remapped as the policy
// prescribes. With fill and strict it is cut at the source edges, where
// Transform.ApplyWindow applies the policy itself.
func extend(ctx context.Context, t *stencil.Transform, src Source, b Bounds, halo int) (stencil.Array, []int, error) {
	global := src.Shape()
	nb := t.Neighborhood()
	policy := t.Boundary()
	lower, upper := nb.Lo(), nb.Hi()
	remaps := policy.Mode == stencil.BoundaryClamp ||
		policy.Mode == stencil.BoundaryMirror ||
		policy.Mode == stencil.BoundaryWrap

	below := make([]int, len(global))
	extShape := make([]int, len(global))
	runs := make([][]run, len(global))
	for d := range global {
		below[d] = min(halo, lower[d])
		above := min(halo, upper[d])
		if !remaps {
			below[d] = min(below[d], b.Origin[d])
			above = min(above, global[d]-b.Origin[d]-b.Shape[d])
		}
		extShape[d] = below[d] + b.Shape[d] + above
		runs[d] = dimensionRuns(policy, b.Origin[d]-below[d], extShape[d], global[d])
	}

	ext, err := stencil.Zeros(src.DType(), extShape)
	if err != nil {
		return stencil.Array{}, nil, err
	}
	counts := lo.Map(runs, func(r []run, _ int) int { return len(r) })
	pos := make([]int, len(global))
	for {
		region := Bounds{Origin: make([]int, len(global)), Shape: make([]int, len(global))}
		at := make([]int, len(global))
		for d, i := range pos {
			r := runs[d][i]
			region.Origin[d], region.Shape[d], at[d] = r.src, r.n, r.ext
		}
		part, err := src.Region(ctx, region)
		if err != nil {
			return stencil.Array{}, nil, err
		}
		if err := stencil.Paste(ext, at, part); err != nil {
			return stencil.Array{}, nil, err
		}
		if !next(pos, counts) {
			break
		}
	}
	return ext, below, nil
}

// dimensionRuns splits the n extended indices starting at global index start
// into runs that are contiguous in the source dimension of the given size.
func dimensionRuns(policy stencil.BoundaryPolicy, start, n, size int) []run {
	var runs []run
	for e := 0; e < n; e++ {
		r, _ := policy.Remap(start+e, size)
		if k := len(runs) - 1; k >= 0 && runs[k].src+runs[k].n == r {
			runs[k].n++
			continue
		}
		runs = append(runs, run{ext: e, src: r, n: 1})
	}
	return runs
}
