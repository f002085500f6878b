package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/DanielSh-bit/tank-family-server/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("%v", err)
	}
}
