// Copyright 2023 The NLP Odyssey Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command stencil generates, smooths and verifies block archives.
//
//	stencil generate --shape 512,512 --dtype U8 --chunk 128,128 --random -o in.sta
//	stencil plan -c job.yaml --shape 512,512 --dtype U8
//	stencil smooth -c job.yaml in.sta -o out.sta
//	stencil verify -c job.yaml in.sta
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
