// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"

	"github.com/nlpodyssey/stencil/chunk"
	"github.com/spf13/cobra"
)

func newVerifyCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "verify INPUT",
		Short: "Check that blocked application matches whole-array application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			job, err := g.job()
			if err != nil {
				return err
			}
			t, err := job.Compile()
			if err != nil {
				return err
			}
			src, closeSrc, err := g.openLazy(args[0])
			if err != nil {
				return err
			}
			defer func() {
				if cerr := closeSrc(); err == nil {
					err = cerr
				}
			}()

			whole, err := src.Region(cmd.Context(), chunk.Bounds{Origin: make([]int, len(src.Shape())), Shape: src.Shape()})
			if err != nil {
				return err
			}
			direct, err := t.Apply(whole)
			if err != nil {
				return err
			}

			grid, err := chunk.Grid(src.Shape(), job.ChunkShape())
			if err != nil {
				return err
			}
			results, err := chunk.Map(cmd.Context(), t, src, grid, chunk.Options{
				HaloWidth: job.Halo(),
				Workers:   job.Workers(),
				Logger:    g.logger(cmd),
			})
			if err != nil {
				return err
			}
			blocked, err := chunk.Assemble(direct.Shape(), results)
			if err != nil {
				return err
			}

			if !blocked.Equal(direct) {
				return errors.New("blocked result differs from whole-array result")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d blocks of %v match %s %v\n", len(grid), job.ChunkShape(), direct.DType(), direct.Shape())
			return nil
		},
	}
}
