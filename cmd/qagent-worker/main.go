// Copyright 2025 Alan Matykiewicz
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to use,
// copy, modify, merge, publish, distribute, sublicense, and/or sell copies of the
// Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES
// OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
// NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT
// HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY,
// WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
// OTHER DEALINGS IN THE SOFTWARE.

package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/alan-mat/qagent/internal/app"
	"github.com/alan-mat/qagent/internal/config"
	"github.com/alan-mat/qagent/internal/tasks"
	"github.com/alan-mat/qagent/worker"
	"github.com/alexflint/go-arg"
)

type args struct {
	Config  string `arg:"--config,-c" default:"config.yaml" help:"path to the configuration file"`
	Verbose bool   `arg:"--verbose,-v" help:"enable debug logging"`
}

func main() {
	var args args
	arg.MustParse(&args)

	level := slog.LevelInfo
	if args.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	conf, err := config.Read(args.Config)
	if err != nil {
		log.Fatalf("failed to read config: %v", err)
	}
	creds := config.LoadEnv()

	ctx := context.Background()
	rdb, err := app.NewRedisClient(ctx, conf.Redis)
	if err != nil {
		log.Fatal(err)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	a, err := app.New(ctx, conf, creds, app.WithRedis(rdb))
	if err != nil {
		log.Fatal(err)
	}

	handler := tasks.NewAnswerTaskHandler(a.Pipeline(false), a.Pipeline(true))
	w, err := worker.New(rdb, conf.Worker.Concurrency, handler)
	if err != nil {
		log.Fatal(err)
	}

	slog.Info("starting worker", "concurrency", conf.Worker.Concurrency)
	if err := w.Start(); err != nil {
		log.Fatal(err)
	}
}
