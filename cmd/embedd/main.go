package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := buildRootCmd(&options{}).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "embedd:", err)
		stop()
		os.Exit(1)
	}
}
