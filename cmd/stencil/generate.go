// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"math/rand/v2"
	"strconv"

	"github.com/nlpodyssey/stencil"
	"github.com/nlpodyssey/stencil/archive"
	"github.com/nlpodyssey/stencil/chunk"
	"github.com/nlpodyssey/stencil/dtype"
	"github.com/spf13/cobra"
)

type generateOptions struct {
	shape  []int
	dt     dtypeFlag
	chunk  []int
	fill   float64
	random bool
	seed   uint64
	output string
}

func newGenerateCommand(g *globals) *cobra.Command {
	opts := &generateOptions{dt: dtypeFlag{dtype.U8}}
	cmd := &cobra.Command{
		Use:   "generate -o FILE",
		Short: "Write an archive holding a constant or random array",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, g, opts)
		},
	}
	f := cmd.Flags()
	f.IntSliceVar(&opts.shape, "shape", []int{256, 256}, "array shape")
	f.Var(&opts.dt, "dtype", "element type")
	f.IntSliceVar(&opts.chunk, "chunk", nil, "block shape; the whole array if empty")
	f.Float64Var(&opts.fill, "fill", 0, "value of every element, unless --random is set")
	f.BoolVar(&opts.random, "random", false, "fill with pseudo-random values in [0, 256)")
	f.Uint64Var(&opts.seed, "seed", 1, "seed of --random")
	f.StringVarP(&opts.output, "output", "o", "", "output archive")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func runGenerate(cmd *cobra.Command, g *globals, opts *generateOptions) error {
	logger := g.logger(cmd)
	a, err := generateArray(opts)
	if err != nil {
		return err
	}

	chunkShape := opts.chunk
	if len(chunkShape) == 0 {
		chunkShape = a.Shape()
	}
	blocks, err := chunk.Split(a, chunkShape)
	if err != nil {
		return err
	}

	meta := map[string]string{"fill": strconv.FormatFloat(opts.fill, 'g', -1, 64)}
	if opts.random {
		meta = map[string]string{"seed": strconv.FormatUint(opts.seed, 10)}
	}
	err = createFile(opts.output, func(w io.Writer) error {
		return archive.Write(w, a.DType(), a.Shape(), blocks, meta)
	})
	if err != nil {
		return err
	}
	logger.Printf("wrote %s %v in %d blocks to %s", a.DType(), a.Shape(), len(blocks), opts.output)
	return nil
}

func generateArray(opts *generateOptions) (stencil.Array, error) {
	if !opts.random {
		return stencil.Full(opts.dt.dt, opts.shape, opts.fill)
	}
	a, err := stencil.Zeros(opts.dt.dt, opts.shape)
	if err != nil {
		return stencil.Array{}, err
	}
	rng := rand.New(rand.NewPCG(opts.seed, opts.seed))
	values := make([]float64, a.Len())
	for i := range values {
		switch opts.dt.dt.Kind() {
		case dtype.KindFloat:
			values[i] = rng.Float64() * 256
		case dtype.KindBool:
			values[i] = float64(rng.IntN(2))
		default:
			values[i] = float64(rng.IntN(randomLimit(opts.dt.dt)))
		}
	}
	a, err = stencil.FromFloats(opts.dt.dt, opts.shape, values)
	if err != nil {
		return stencil.Array{}, fmt.Errorf("failed to generate random array: %w", err)
	}
	return a, nil
}

func randomLimit(dt dtype.DType) int {
	if _, hi, _ := dt.IntRange(); hi < 255 {
		return int(hi) + 1
	}
	return 256
}
