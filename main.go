package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"sshhub/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "sshhub: %v\n", err)
		os.Exit(1)
	}
}
