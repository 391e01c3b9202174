package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Gunvolt24/spot_drain/config"
	"github.com/Gunvolt24/spot_drain/internal/app"
	"github.com/joho/godotenv"
)

// Воркер очереди на прерываемой (spot) машине.
// Код выхода 0 на любом пути остановки (эвикция, сигнал ОС, выход консьюмера),
// 1 — если не удалось собраться или запуститься.
func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load(".env.local")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, cleanup, err := app.Bootstrap(ctx, &cfg)
	if err != nil {
		// сигнал пришёл, пока поднимали зависимости
		if ctx.Err() != nil {
			return 0
		}
		fmt.Fprintf(os.Stderr, "bootstrap: %v\n", err)
		return 1
	}
	defer cleanup()

	if err := a.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "start: %v\n", err)
		return 1
	}
	return 0
}
