package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/linkdrop/linkdrop/cmd/linkdrop/cmd"
	"github.com/linkdrop/linkdrop/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx, config.GetConfig()); err != nil {
		stop()
		os.Exit(1)
	}
}
