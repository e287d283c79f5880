// Command morpheus is a reference host for the Morpheus plugin. It loads the
// plugin the way an agent runtime would, then runs single capability calls
// from the command line:
//
//	morpheus check
//	morpheus text --large "Write a haiku about rivers"
//	morpheus object "List three colors as {\"colors\": [...]}"
//	morpheus embed "hello world"
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

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "morpheus:", err)
		os.Exit(1)
	}
}
