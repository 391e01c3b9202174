package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Gunvolt24/spot_drain/config"
	"github.com/Gunvolt24/spot_drain/internal/app"
	"github.com/Gunvolt24/spot_drain/internal/queue"
	"github.com/Gunvolt24/spot_drain/pkg/msgfile"
	"github.com/joho/godotenv"
)

// CLI для наполнения очереди: JSON (массив или одно значение) или JSONL из файла либо stdin.
// Backend и параметры подключения берутся из тех же SPOT_* переменных, что и у воркера.
func main() {
	inputPath := flag.String("in", "", "path to input (.json or .jsonl). If empty, reads JSONL from stdin.")
	formatStr := flag.String("format", "auto", "input format: auto|json|jsonl")
	flag.Parse()

	_ = godotenv.Load(".env.local")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Queue.Backend == queue.BackendMemory {
		fmt.Fprintln(os.Stderr, "enqueue: memory backend lives inside the worker process, use SPOT_QUEUE_SEED_FILE instead")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	q, err := app.OpenQueue(ctx, &cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open queue: %v\n", err)
		os.Exit(1)
	}

	format := msgfile.InputFormat(*formatStr)
	var res msgfile.Result
	if *inputPath == "" {
		res, err = msgfile.ReadFrom(ctx, os.Stdin, format, func(ctx context.Context, body []byte) error {
			_, sErr := q.Send(ctx, body)
			return sErr
		})
	} else {
		res, err = app.Seed(ctx, q, *inputPath, format)
	}
	cErr := q.Close()

	if err != nil {
		fmt.Fprintf(os.Stderr, "enqueue: %v (%s)\n", err, res)
		os.Exit(1)
	}
	if cErr != nil {
		fmt.Fprintf(os.Stderr, "close queue: %v\n", cErr)
	}
	fmt.Fprintf(os.Stderr, "enqueue ok backend=%s (%s)\n", cfg.Queue.Backend, res)
}
