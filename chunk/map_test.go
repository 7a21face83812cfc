// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chunk

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"testing"

	"github.com/nlpodyssey/stencil"
	"github.com/nlpodyssey/stencil/dtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomArray(t *testing.T, seed int64, shape ...int) stencil.Array {
	t.Helper()
	n := 1
	for _, v := range shape {
		n *= v
	}
	rnd := rand.New(rand.NewSource(seed))
	data := make([]int32, n)
	for i := range data {
		data[i] = int32(rnd.Intn(1000) - 500)
	}
	a, err := stencil.NewArray(dtype.I32, shape, data)
	require.NoError(t, err)
	return a
}

func compile(t *testing.T, nb stencil.Neighborhood, c stencil.Combiner, opts ...stencil.Option) *stencil.Transform {
	t.Helper()
	tr, err := stencil.Compile(nb, c, opts...)
	require.NoError(t, err)
	return tr
}

// mapBlocks applies tr to a split in chunks and assembles the result.
func mapBlocks(t *testing.T, tr *stencil.Transform, a stencil.Array, chunkShape []int, opts Options) stencil.Array {
	t.Helper()
	grid, err := Grid(a.Shape(), chunkShape)
	require.NoError(t, err)
	results, err := Map(context.Background(), tr, ArraySource{a}, grid, opts)
	require.NoError(t, err)
	out, err := Assemble(a.Shape(), results)
	require.NoError(t, err)
	return out
}

func TestMap_TenByTenOnes(t *testing.T) {
	ones, err := stencil.Full(dtype.U8, []int{10, 10}, 1)
	require.NoError(t, err)
	tr := compile(t, stencil.Box(2, 1), stencil.Mean(stencil.RoundFloor))

	want, err := tr.Apply(ones)
	require.NoError(t, err)
	got := mapBlocks(t, tr, ones, []int{5, 5}, Options{HaloWidth: 1})
	assert.True(t, want.Equal(got))

	data := got.Data().([]uint8)
	for y := 1; y < 9; y++ {
		for x := 1; x < 9; x++ {
			assert.Equal(t, uint8(1), data[got.Index(y, x)], "(%d, %d)", y, x)
		}
	}
	assert.Equal(t, uint8(0), data[got.Index(0, 0)])
	assert.Equal(t, uint8(0), data[got.Index(0, 5)])
}

func TestMap_MatchesApply(t *testing.T) {
	asymmetric, err := stencil.NewNeighborhood([]int{0, 0}, []int{-2, 1}, []int{0, 3}, []int{1, -1})
	require.NoError(t, err)

	testCases := []struct {
		name  string
		nb    stencil.Neighborhood
		c     stencil.Combiner
		bp    stencil.BoundaryPolicy
		chunk []int
		halo  int
	}{
		{"zero fill", stencil.Box(2, 1), stencil.Sum(), stencil.ZeroFill, []int{4, 3}, 1},
		{"constant fill", stencil.Box(2, 1), stencil.Max(), stencil.BoundaryPolicy{Fill: 7}, []int{4, 3}, 1},
		{"clamp", stencil.Box(2, 1), stencil.Sum(), stencil.BoundaryPolicy{Mode: stencil.BoundaryClamp}, []int{4, 3}, 1},
		{"mirror", stencil.Box(2, 2), stencil.Sum(), stencil.BoundaryPolicy{Mode: stencil.BoundaryMirror}, []int{4, 3}, 2},
		{"wrap", stencil.Box(2, 2), stencil.Mean(stencil.RoundTrunc), stencil.BoundaryPolicy{Mode: stencil.BoundaryWrap}, []int{4, 3}, 2},
		{"halo wider than radius", stencil.Box(2, 1), stencil.Min(), stencil.BoundaryPolicy{Mode: stencil.BoundaryMirror}, []int{2, 5}, 4},
		{"single element blocks", stencil.Box(2, 1), stencil.Sum(), stencil.BoundaryPolicy{Mode: stencil.BoundaryWrap}, []int{1, 1}, 1},
		{"asymmetric", asymmetric, stencil.Sum(), stencil.ZeroFill, []int{3, 4}, 3},
		{"asymmetric wrap", asymmetric, stencil.Sum(), stencil.BoundaryPolicy{Mode: stencil.BoundaryWrap}, []int{3, 4}, 3},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a := randomArray(t, 42, 9, 11)
			tr := compile(t, tc.nb, tc.c, stencil.WithBoundary(tc.bp))
			want, err := tr.Apply(a)
			require.NoError(t, err)
			got := mapBlocks(t, tr, a, tc.chunk, Options{HaloWidth: tc.halo, Workers: 3})
			assert.True(t, want.Equal(got), "want %v\ngot %v", want.Data(), got.Data())
		})
	}
}

func TestMap_SingleBlockWithoutHalo(t *testing.T) {
	a := randomArray(t, 7, 6, 5)
	for _, bp := range []stencil.BoundaryPolicy{
		stencil.ZeroFill,
		{Mode: stencil.BoundaryClamp},
		{Mode: stencil.BoundaryMirror},
		{Mode: stencil.BoundaryWrap},
	} {
		t.Run(bp.Mode.String(), func(t *testing.T) {
			tr := compile(t, stencil.Box(2, 1), stencil.Sum(), stencil.WithBoundary(bp))
			want, err := tr.Apply(a)
			require.NoError(t, err)
			got := mapBlocks(t, tr, a, []int{6, 5}, Options{})
			assert.True(t, want.Equal(got))
		})
	}
}

func TestMap_SinglePartialBlock(t *testing.T) {
	a := randomArray(t, 13, 10, 10)
	blocks := []Bounds{
		{Origin: []int{0, 0}, Shape: []int{5, 5}},
		{Origin: []int{3, 4}, Shape: []int{4, 5}},
		{Origin: []int{7, 9}, Shape: []int{3, 1}},
	}
	for _, bp := range []stencil.BoundaryPolicy{
		stencil.ZeroFill,
		{Fill: -3},
		{Mode: stencil.BoundaryClamp},
		{Mode: stencil.BoundaryMirror},
		{Mode: stencil.BoundaryWrap},
	} {
		tr := compile(t, stencil.Box(2, 1), stencil.Sum(), stencil.WithBoundary(bp))
		want, err := tr.Apply(a)
		require.NoError(t, err)
		for _, b := range blocks {
			t.Run(fmt.Sprintf("%s %v", bp.Mode, b), func(t *testing.T) {
				results, err := Map(context.Background(), tr, ArraySource{a}, []Bounds{b}, Options{HaloWidth: 1})
				require.NoError(t, err)
				require.Len(t, results, 1)
				wantBlock, err := want.Slice(b.Origin, b.Shape)
				require.NoError(t, err)
				assert.True(t, wantBlock.Equal(results[0].Block.Data), "want %v\ngot %v", wantBlock.Data(), results[0].Block.Data.Data())

				_, err = Map(context.Background(), tr, ArraySource{a}, []Bounds{b}, Options{})
				assert.ErrorIs(t, err, stencil.ErrConfiguration)
			})
		}
	}
}

func TestMap_FloatArray(t *testing.T) {
	data := make([]float32, 8*8)
	for i := range data {
		data[i] = float32(i%7) * 0.5
	}
	a, err := stencil.NewArray(dtype.F32, []int{8, 8}, data)
	require.NoError(t, err)
	tr := compile(t, stencil.Box(2, 1), stencil.Weighted([]float64{
		1, 2, 1,
		2, 4, 2,
		1, 2, 1,
	}), stencil.WithContract(stencil.Contract{Out: dtype.F64}))

	want, err := tr.Apply(a)
	require.NoError(t, err)
	got := mapBlocks(t, tr, a, []int{3, 3}, Options{HaloWidth: 1})
	assert.Equal(t, dtype.F64, got.DType())
	assert.True(t, want.Equal(got))
}

func TestMap_StrictPolicy(t *testing.T) {
	a := randomArray(t, 3, 15, 15)
	tr := compile(t, stencil.Box(2, 1), stencil.Sum(), stencil.WithBoundary(stencil.BoundaryPolicy{Mode: stencil.BoundaryStrict}))
	grid, err := Grid(a.Shape(), []int{5, 5})
	require.NoError(t, err)

	results, err := Map(context.Background(), tr, ArraySource{a}, grid, Options{HaloWidth: 1})
	var mapErr *MapError
	require.ErrorAs(t, err, &mapErr)
	assert.ErrorIs(t, err, stencil.ErrBoundaryPolicy)
	assert.Equal(t, []int{0, 1, 2, 3, 5, 6, 7, 8}, mapErr.Indices())

	// The central block never reads outside the array.
	require.NoError(t, results[4].Err)
	fill := compile(t, stencil.Box(2, 1), stencil.Sum())
	full, err := fill.Apply(a)
	require.NoError(t, err)
	want, err := full.Slice([]int{5, 5}, []int{5, 5})
	require.NoError(t, err)
	assert.True(t, want.Equal(results[4].Block.Data))
}

var errUnavailable = errors.New("region unavailable")

// failingSource fails every region containing the coordinate bad.
type failingSource struct {
	ArraySource
	bad []int
}

func (s failingSource) Region(ctx context.Context, b Bounds) (stencil.Array, error) {
	if _, ok := b.Intersect(Bounds{Origin: s.bad, Shape: []int{1, 1}}); ok {
		return stencil.Array{}, errUnavailable
	}
	return s.ArraySource.Region(ctx, b)
}

func TestMap_FailureIsolation(t *testing.T) {
	t.Run("source error", func(t *testing.T) {
		a := randomArray(t, 5, 10, 10)
		tr := compile(t, stencil.Box(2, 1), stencil.Sum())
		grid, err := Grid(a.Shape(), []int{5, 5})
		require.NoError(t, err)

		src := failingSource{ArraySource: ArraySource{a}, bad: []int{0, 0}}
		results, err := Map(context.Background(), tr, src, grid, Options{HaloWidth: 1})
		var mapErr *MapError
		require.ErrorAs(t, err, &mapErr)
		assert.ErrorIs(t, err, errUnavailable)
		assert.Equal(t, []int{0}, mapErr.Indices())
		assert.Equal(t, 4, mapErr.Blocks)

		want, err := tr.Apply(a)
		require.NoError(t, err)
		require.Len(t, results, 4)
		assert.ErrorIs(t, results[0].Err, errUnavailable)
		assert.Equal(t, grid[0], results[0].Block.Bounds)
		for i := 1; i < 4; i++ {
			require.NoError(t, results[i].Err)
			b := results[i].Block
			part, err := want.Slice(b.Origin, b.Shape)
			require.NoError(t, err)
			assert.True(t, part.Equal(b.Data), "block %d", i)
		}

		_, err = Assemble(a.Shape(), results)
		var blockErr *BlockError
		require.ErrorAs(t, err, &blockErr)
		assert.Equal(t, 0, blockErr.Index)
	})

	t.Run("contract violation", func(t *testing.T) {
		ones, err := stencil.Full(dtype.U8, []int{10, 10}, 1)
		require.NoError(t, err)
		ones.Data().([]uint8)[ones.Index(7, 7)] = 250
		tr := compile(t, stencil.Box(2, 1), stencil.Sum())
		grid, err := Grid(ones.Shape(), []int{5, 5})
		require.NoError(t, err)

		results, err := Map(context.Background(), tr, ArraySource{ones}, grid, Options{HaloWidth: 1})
		var mapErr *MapError
		require.ErrorAs(t, err, &mapErr)
		assert.ErrorIs(t, err, stencil.ErrContractViolation)
		assert.Equal(t, []int{3}, mapErr.Indices())
		for i := 0; i < 3; i++ {
			assert.NoError(t, results[i].Err)
		}
	})
}

func TestMap_Canceled(t *testing.T) {
	a := randomArray(t, 9, 8, 8)
	tr := compile(t, stencil.Box(2, 1), stencil.Sum())
	grid, err := Grid(a.Shape(), []int{4, 4})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, err := Map(ctx, tr, ArraySource{a}, grid, Options{HaloWidth: 1})
	var mapErr *MapError
	require.ErrorAs(t, err, &mapErr)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, mapErr.Errors, 4)
	for i, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
		assert.Equal(t, grid[i], r.Block.Bounds)
	}
}

func TestMap_InvalidArguments(t *testing.T) {
	a := randomArray(t, 11, 10, 10)
	grid, err := Grid(a.Shape(), []int{5, 5})
	require.NoError(t, err)
	sum := compile(t, stencil.Box(2, 1), stencil.Sum())

	testCases := []struct {
		name   string
		tr     *stencil.Transform
		src    Source
		blocks []Bounds
		opts   Options
		err    error
	}{
		{
			name:   "valid shape",
			tr:     compile(t, stencil.Box(2, 1), stencil.Sum(), stencil.WithContract(stencil.Contract{Shape: stencil.ValidShape})),
			blocks: grid,
			opts:   Options{HaloWidth: 1},
			err:    stencil.ErrShapeMismatch,
		},
		{
			name:   "halo smaller than radius",
			blocks: grid,
			err:    stencil.ErrConfiguration,
		},
		{
			name:   "single partial block without halo",
			blocks: grid[:1],
			err:    stencil.ErrConfiguration,
		},
		{
			name:   "negative halo",
			blocks: grid[:1],
			opts:   Options{HaloWidth: -1},
			err:    stencil.ErrConfiguration,
		},
		{
			name:   "neighborhood larger than the array",
			tr:     compile(t, stencil.Box(2, 6), stencil.Sum()),
			blocks: grid,
			opts:   Options{HaloWidth: 6},
			err:    stencil.ErrConfiguration,
		},
		{
			name:   "block out of bounds",
			blocks: []Bounds{{Origin: []int{8, 8}, Shape: []int{3, 3}}},
			err:    stencil.ErrShapeMismatch,
		},
		{
			name:   "empty block",
			blocks: []Bounds{{Origin: []int{0, 0}, Shape: []int{0, 3}}},
			err:    stencil.ErrShapeMismatch,
		},
		{
			name:   "block rank",
			blocks: []Bounds{{Origin: []int{0}, Shape: []int{3}}},
			err:    stencil.ErrShapeMismatch,
		},
		{
			name: "overlapping blocks",
			blocks: []Bounds{
				{Origin: []int{0, 0}, Shape: []int{5, 5}},
				{Origin: []int{4, 4}, Shape: []int{5, 5}},
			},
			opts: Options{HaloWidth: 1},
			err:  stencil.ErrShapeMismatch,
		},
		{
			name:   "unsupported type",
			src:    ArraySource{mustZeros(t, dtype.Bool, 10, 10)},
			blocks: grid,
			opts:   Options{HaloWidth: 1},
			err:    stencil.ErrType,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tr := tc.tr
			if tr == nil {
				tr = sum
			}
			src := tc.src
			if src == nil {
				src = ArraySource{a}
			}
			results, err := Map(context.Background(), tr, src, tc.blocks, tc.opts)
			assert.ErrorIs(t, err, tc.err)
			assert.Nil(t, results)
		})
	}
}

func TestMap_Logger(t *testing.T) {
	var buf bytes.Buffer
	a := randomArray(t, 13, 6, 6)
	tr := compile(t, stencil.Box(2, 1), stencil.Sum())
	grid, err := Grid(a.Shape(), []int{3, 3})
	require.NoError(t, err)

	src := failingSource{ArraySource: ArraySource{a}, bad: []int{5, 5}}
	_, err = Map(context.Background(), tr, src, grid, Options{HaloWidth: 1, Workers: 1, Logger: log.New(&buf, "", 0)})
	require.Error(t, err)
	assert.Contains(t, buf.String(), "block 3 [[3 3]+[3 3]] failed: region unavailable")
	assert.Contains(t, buf.String(), "mapped 4 blocks with halo 1, 1 failed")
}

func TestAssemble(t *testing.T) {
	a := randomArray(t, 17, 4, 6)
	blocks, err := Split(a, []int{2, 4})
	require.NoError(t, err)
	results := make([]Result, len(blocks))
	for i, b := range blocks {
		results[i] = Result{Block: b}
	}

	got, err := Assemble(a.Shape(), results)
	require.NoError(t, err)
	assert.True(t, a.Equal(got))

	_, err = Assemble(a.Shape(), results[1:])
	assert.ErrorIs(t, err, stencil.ErrShapeMismatch, "uncovered")

	_, err = Assemble(a.Shape(), append(results, results[0]))
	assert.ErrorIs(t, err, stencil.ErrShapeMismatch, "overlapping")

	_, err = Assemble([]int{3, 6}, results)
	assert.ErrorIs(t, err, stencil.ErrShapeMismatch, "out of bounds")

	_, err = Assemble(a.Shape(), nil)
	assert.ErrorIs(t, err, stencil.ErrShapeMismatch)

	other := results[1]
	other.Block.Data = mustZeros(t, dtype.U8, 2, 2)
	_, err = Assemble(a.Shape(), []Result{results[0], other, results[2], results[3]})
	assert.ErrorIs(t, err, stencil.ErrType)
}

func mustZeros(t *testing.T, dt dtype.DType, shape ...int) stencil.Array {
	t.Helper()
	a, err := stencil.Zeros(dt, shape)
	require.NoError(t, err)
	return a
}
