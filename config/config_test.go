// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/nlpodyssey/stencil"
	"github.com/nlpodyssey/stencil/dtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshal_Defaults(t *testing.T) {
	job, err := Unmarshal(nil)
	require.NoError(t, err)

	assert.Equal(t, stencil.Box(2, 1).Offsets(), job.Neighborhood().Offsets())
	assert.Equal(t, "mean", job.Combiner().Name)
	assert.Equal(t, stencil.ZeroFill, job.Boundary())
	assert.Equal(t, stencil.Contract{}, job.Contract())
	assert.Equal(t, []int{256, 256}, job.ChunkShape())
	assert.Equal(t, 1, job.Halo())
	assert.Equal(t, runtime.GOMAXPROCS(0), job.Workers())

	tr, err := job.Compile()
	require.NoError(t, err)
	a, err := stencil.Full(dtype.U8, []int{3, 3}, 9)
	require.NoError(t, err)
	out, err := tr.Apply(a)
	require.NoError(t, err)
	assert.Equal(t, []uint8{4, 6, 4, 6, 9, 6, 4, 6, 4}, out.Data())
}

func TestUnmarshal(t *testing.T) {
	job, err := Unmarshal([]byte(`
neighborhood:
  rank: 1
  radius: 2
combiner:
  name: weighted_int
  rounding: trunc
  weights: [1, 2, 3, 2, 1]
  divisor: 9
boundary:
  mode: clamp
contract:
  in: I16
  out: I32
  shape: valid
chunk:
  shape: [100]
  halo: 3
workers: 2
`))
	require.NoError(t, err)

	assert.Equal(t, 1, job.Neighborhood().Rank())
	assert.Equal(t, 5, job.Neighborhood().Len())
	assert.Equal(t, "weighted", job.Combiner().Name)
	assert.Equal(t, stencil.BoundaryPolicy{Mode: stencil.BoundaryClamp}, job.Boundary())
	assert.Equal(t, stencil.Contract{In: dtype.I16, Out: dtype.I32, Shape: stencil.ValidShape}, job.Contract())
	assert.Equal(t, []int{100}, job.ChunkShape())
	assert.Equal(t, 3, job.Halo())
	assert.Equal(t, 2, job.Workers())

	tr, err := job.Compile()
	require.NoError(t, err)
	a, err := stencil.NewArray(dtype.I16, []int{6}, []int16{9, 0, 0, 9, 0, 0})
	require.NoError(t, err)
	out, err := tr.Apply(a)
	require.NoError(t, err)
	assert.Equal(t, []int32{3, 3}, out.Data())
}

func TestUnmarshal_Offsets(t *testing.T) {
	job, err := Unmarshal([]byte(`
neighborhood:
  offsets: [[0, -1], [0, 0], [0, 1]]
combiner:
  name: sum
boundary:
  mode: fill
  fill: 1
`))
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, -1}, {0, 0}, {0, 1}}, job.Neighborhood().Offsets())
	assert.Equal(t, 1.0, job.Boundary().Fill)
	assert.Equal(t, 1, job.Halo())

	tr, err := job.Compile()
	require.NoError(t, err)
	a, err := stencil.NewArray(dtype.I32, []int{1, 3}, []int32{1, 2, 3})
	require.NoError(t, err)
	out, err := tr.Apply(a)
	require.NoError(t, err)
	assert.Equal(t, []int32{4, 6, 6}, out.Data())
}

func TestUnmarshal_Errors(t *testing.T) {
	testCases := []struct {
		name   string
		yaml   string
		errMsg string
	}{
		{"unknown key", "neighbourhood: {}", ""},
		{"bad yaml", "workers: [", ""},
		{"negative workers", "workers: -1", "(root).workers must not be negative, got -1"},
		{"negative radius", "neighborhood: {radius: -1}", "(root).neighborhood rank 2 and radius -1 must not be negative"},
		{"radius with offsets", "neighborhood: {radius: 1, offsets: [[0]]}", "(root).neighborhood radius and offsets are mutually exclusive"},
		{"rank differs from offsets", "neighborhood: {rank: 2, offsets: [[0]]}", "(root).neighborhood.rank is 2, but offsets have rank 1"},
		{"unknown combiner", "combiner: {name: median}", `(root).combiner.name unknown combiner "median"`},
		{"unknown rounding", "combiner: {rounding: up}", `(root).combiner.rounding unknown rounding "up"`},
		{"missing weights", "combiner: {name: weighted}", "(root).combiner.weights is required"},
		{"fractional int weight", "combiner: {name: weighted_int, weights: [1, 0.5], divisor: 1}", "(root).combiner.weights[1] must be an integer, got 0.5"},
		{"missing divisor", "combiner: {name: weighted_int, weights: [1]}", "(root).combiner.divisor is required and must not be zero"},
		{"fill with clamp", "boundary: {mode: clamp, fill: 2}", "(root).boundary.fill only applies to the fill mode, not clamp"},
		{"unknown mode", "boundary: {mode: reflect}", ""},
		{"unknown shape relation", "contract: {shape: full}", ""},
		{"chunk rank", "chunk: {shape: [4]}", "(root).chunk.shape has rank 1, neighborhood has rank 2"},
		{"chunk extent", "chunk: {shape: [4, 0]}", "(root).chunk.shape[1] must be positive, got 0"},
		{"negative halo", "chunk: {halo: -2}", "(root).chunk.halo must not be negative, got -2"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			job, err := Unmarshal([]byte(tc.yaml))
			require.Error(t, err)
			assert.Nil(t, job)
			if tc.errMsg != "" {
				assert.ErrorIs(t, err, stencil.ErrConfiguration)
				assert.Contains(t, err.Error(), tc.errMsg)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte("combiner: {name: max}\n"), 0o600))

	job, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "max", job.Combiner().Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
