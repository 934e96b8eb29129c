package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	aisearchcmder "github.com/papercomputeco/aisearch/cmd/aisearch"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := aisearchcmder.NewAisearchCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
