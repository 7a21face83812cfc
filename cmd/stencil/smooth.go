// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/nlpodyssey/stencil/archive"
	"github.com/nlpodyssey/stencil/chunk"
	"github.com/spf13/cobra"
)

type smoothOptions struct {
	output        string
	archiveBlocks bool
	keepGoing     bool
}

func newSmoothCommand(g *globals) *cobra.Command {
	opts := new(smoothOptions)
	cmd := &cobra.Command{
		Use:   "smooth INPUT -o OUTPUT",
		Short: "Apply the configured transform to an archive, block by block",
		Long: `Apply the configured transform to every block of the INPUT archive,
reading each block with its halo, and write the results to OUTPUT.

Blocks are taken from the chunk shape of the configuration, or from the
input archive itself with --archive-blocks.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSmooth(cmd, g, args[0], opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", "", "output archive")
	f.BoolVar(&opts.archiveBlocks, "archive-blocks", false, "map over the blocks of the input archive")
	f.BoolVar(&opts.keepGoing, "keep-going", false, "write the blocks that succeeded even if others failed")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func runSmooth(cmd *cobra.Command, g *globals, input string, opts *smoothOptions) (err error) {
	logger := g.logger(cmd)
	job, err := g.job()
	if err != nil {
		return err
	}
	t, err := job.Compile()
	if err != nil {
		return err
	}

	src, closeSrc, err := g.openLazy(input)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeSrc(); err == nil {
			err = cerr
		}
	}()

	outType, outShape, err := t.Plan(src.DType(), src.Shape())
	if err != nil {
		return err
	}
	grid := src.Bounds()
	if !opts.archiveBlocks {
		if grid, err = chunk.Grid(src.Shape(), job.ChunkShape()); err != nil {
			return err
		}
	}

	results, mapErr := chunk.Map(cmd.Context(), t, src, grid, chunk.Options{
		HaloWidth: job.Halo(),
		Workers:   job.Workers(),
		Logger:    logger,
	})
	var me *chunk.MapError
	if mapErr != nil && (!errors.As(mapErr, &me) || !opts.keepGoing) {
		return mapErr
	}

	blocks := make([]chunk.Block, 0, len(results))
	for _, r := range results {
		if r.Err == nil {
			blocks = append(blocks, r.Block)
		}
	}
	meta := map[string]string{
		"combiner": t.Combiner().Name,
		"boundary": t.Boundary().Mode.String(),
		"source":   input,
	}
	err = createFile(opts.output, func(w io.Writer) error {
		return archive.Write(w, outType, outShape, blocks, meta)
	})
	if err != nil {
		return err
	}
	logger.Printf("wrote %d of %d blocks to %s", len(blocks), len(results), opts.output)
	if mapErr != nil {
		return fmt.Errorf("blocks %v are missing from %s: %w", me.Indices(), opts.output, mapErr)
	}
	return nil
}
