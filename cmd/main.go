package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yungbote/eduvideo-backend/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init: %v\n", err)
		os.Exit(1)
	}
	if err := a.Start(); err != nil {
		a.Log.Error("start background workers", "error", err)
		a.Close(context.Background())
		os.Exit(1)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- a.Run() }()

	select {
	case <-ctx.Done():
		a.Log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			a.Log.Error("http server stopped", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	a.Close(shutdownCtx)
}
