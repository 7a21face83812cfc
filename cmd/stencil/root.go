// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/nlpodyssey/stencil/archive"
	"github.com/nlpodyssey/stencil/config"
	"github.com/nlpodyssey/stencil/dtype"
	"github.com/spf13/cobra"
)

// globals are the flags shared by all subcommands.
type globals struct {
	configPath  string
	headerLimit int
	verbose     bool
}

func newRootCommand() *cobra.Command {
	g := new(globals)
	root := &cobra.Command{
		Use:          "stencil",
		Short:        "Apply neighborhood transforms to chunked arrays",
		SilenceUsage: true,
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", os.Getenv("STENCIL_CONFIG"), "path to the job configuration (YAML); defaults apply if empty")
	pf.IntVar(&g.headerLimit, "header-limit", 100<<20, "maximum archive header size in bytes; 0 for no limit")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "log block failures and progress to stderr")

	root.AddCommand(
		newGenerateCommand(g),
		newPlanCommand(g),
		newSmoothCommand(g),
		newVerifyCommand(g),
	)
	return root
}

func (g *globals) logger(cmd *cobra.Command) *log.Logger {
	if !g.verbose {
		return log.New(io.Discard, "", 0)
	}
	return log.New(cmd.ErrOrStderr(), cmd.CommandPath()+": ", log.LstdFlags)
}

func (g *globals) job() (*config.Job, error) {
	if g.configPath == "" {
		return config.Unmarshal(nil)
	}
	return config.Load(g.configPath)
}

// openLazy opens the archive at path. The returned close function must be
// called once the archive is no longer used.
func (g *globals) openLazy(path string) (*archive.Lazy, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	l, err := archive.NewLazy(f, g.headerLimit)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return l, f.Close, nil
}

// createFile creates path and calls write on it, removing the file if
// anything fails.
func createFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(path)
		}
	}()
	return write(f)
}

type dtypeFlag struct{ dt dtype.DType }

func (f *dtypeFlag) String() string {
	return f.dt.String()
}

func (f *dtypeFlag) Set(s string) error {
	dt, err := dtype.Parse(s)
	if err != nil {
		return err
	}
	f.dt = dt
	return nil
}

func (f *dtypeFlag) Type() string {
	return "dtype"
}
