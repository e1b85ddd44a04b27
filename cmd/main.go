package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"hokz.academy/cli/internal/interfaces/cli"
	"hokz.academy/cli/internal/interfaces/di"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cli.Execute(ctx, di.NewCLIContainer(os.Stdin, os.Stdout, os.Stderr))
}
