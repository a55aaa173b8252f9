package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/examprep/client-go/internal/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := commands.Execute(ctx)
	stop()
	os.Exit(code)
}
