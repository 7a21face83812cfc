// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/nlpodyssey/stencil/chunk"
	"github.com/nlpodyssey/stencil/dtype"
	"github.com/spf13/cobra"
)

func newPlanCommand(g *globals) *cobra.Command {
	var shape []int
	dt := dtypeFlag{dtype.U8}
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the output type, shape and blocks of the configured job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			job, err := g.job()
			if err != nil {
				return err
			}
			t, err := job.Compile()
			if err != nil {
				return err
			}
			outType, outShape, err := t.Plan(dt.dt, shape)
			if err != nil {
				return err
			}
			grid, err := chunk.Grid(shape, job.ChunkShape())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "neighborhood: %v\n", t.Neighborhood())
			fmt.Fprintf(w, "combiner:     %s\n", t.Combiner().Name)
			fmt.Fprintf(w, "boundary:     %s\n", t.Boundary().Mode)
			fmt.Fprintf(w, "input:        %s %v\n", dt.dt, shape)
			fmt.Fprintf(w, "output:       %s %v\n", outType, outShape)
			fmt.Fprintf(w, "blocks:       %d of %v, halo %d, %d workers\n", len(grid), job.ChunkShape(), job.Halo(), job.Workers())
			return nil
		},
	}
	cmd.Flags().IntSliceVar(&shape, "shape", []int{256, 256}, "input array shape")
	cmd.Flags().Var(&dt, "dtype", "input element type")
	return cmd
}
