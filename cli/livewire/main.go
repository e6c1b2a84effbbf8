package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	livewirecmder "github.com/papercomputeco/livewire/cmd/livewire"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := livewirecmder.NewLivewireCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
