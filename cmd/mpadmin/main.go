package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"marketparticipant/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "mpadmin: %v\n", err)
		os.Exit(1)
	}
}
