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
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/alan-mat/qagent/internal/app"
	"github.com/alan-mat/qagent/internal/config"
	"github.com/alan-mat/qagent/internal/tasks"
	"github.com/alexflint/go-arg"
	"github.com/hibiken/asynq"
)

const (
	ProgramName   = "QAgent"
	Version       = "v0.1.0"
	RepositoryUrl = "github.com/alan-mat/qagent"

	pollInterval = 500 * time.Millisecond
)

type args struct {
	Question  string        `arg:"positional" default:"What is the capital of France?" help:"question to answer"`
	Config    string        `arg:"--config,-c" default:"config.yaml" help:"path to the configuration file"`
	Normalize bool          `arg:"--normalize,-n" help:"rewrite the answer into the canonical short format"`
	Enqueue   bool          `arg:"--enqueue,-q" help:"answer on a worker instead of in process"`
	Timeout   time.Duration `arg:"--timeout,-t" default:"10m" help:"give up after this long"`
	Verbose   bool          `arg:"--verbose,-v" help:"enable debug logging"`
}

func (args) Version() string {
	return fmt.Sprintf("%s %s", ProgramName, Version)
}

func (args) Epilogue() string {
	return fmt.Sprintf("For more information visit %s", RepositoryUrl)
}

func main() {
	var args args

	p, err := arg.NewParser(arg.Config{Program: strings.ToLower(ProgramName)}, &args)
	if err != nil {
		log.Fatalf("there was an error in the definition of the Go struct: %v", err)
	}
	p.MustParse(os.Args[1:])

	level := slog.LevelInfo
	if args.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if strings.TrimSpace(args.Question) == "" {
		p.Fail("question must not be empty")
	}

	conf, err := config.Read(args.Config)
	if err != nil {
		slog.Error("failed to read config", "path", args.Config, "err", err)
		os.Exit(1)
	}
	normalize := args.Normalize || conf.Agent.Normalize

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, args.Timeout)
	defer cancel()

	var answer string
	if args.Enqueue {
		answer, err = enqueue(ctx, conf, args.Question, normalize)
	} else {
		answer, err = run(ctx, conf, args.Question, normalize)
	}
	if err != nil {
		slog.Error("failed to answer question", "err", err)
		os.Exit(1)
	}

	fmt.Println(answer)
}

func run(ctx context.Context, conf *config.Config, question string, normalize bool) (string, error) {
	creds := config.LoadEnv()

	rdb, err := app.NewRedisClient(ctx, conf.Redis)
	if err != nil {
		slog.Warn("continuing without redis", "err", err)
	}

	opts := []app.Option{}
	if rdb != nil {
		defer rdb.Close()
		opts = append(opts, app.WithRedis(rdb))
	}

	a, err := app.New(ctx, conf, creds, opts...)
	if err != nil {
		return "", err
	}

	res, err := a.Pipeline(normalize).Run(ctx, question)
	if err != nil {
		return "", err
	}
	slog.Debug("pipeline finished", "trace", res.TraceID, "draft", res.Draft)
	return res.Answer, nil
}

func enqueue(ctx context.Context, conf *config.Config, question string, normalize bool) (string, error) {
	rdb, err := app.NewRedisClient(ctx, conf.Redis)
	if err != nil {
		return "", err
	}
	if rdb == nil {
		return "", fmt.Errorf("enqueueing requires redis.addr to be configured")
	}
	defer rdb.Close()

	task, err := tasks.NewAnswerTask(question, normalize)
	if err != nil {
		return "", err
	}

	client := asynq.NewClientFromRedisClient(rdb)
	info, err := client.EnqueueContext(ctx, task)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue task: %w", err)
	}
	slog.Info("enqueued answer task", "id", info.ID, "queue", info.Queue)

	insp := asynq.NewInspector(asynq.RedisClientOpt{
		Addr:     conf.Redis.Addr,
		Username: conf.Redis.Username,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	defer insp.Close()
	res, err := tasks.Await(ctx, insp, info, pollInterval)
	if err != nil {
		return "", err
	}
	slog.Debug("task finished", "trace", res.TraceID, "draft", res.Draft)
	return res.Answer, nil
}
