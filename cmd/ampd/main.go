// Command ampd runs the amplifier power controller on a host: the power
// loop on a simulated or real board, the console, the web UI and the
// heartbeat.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// exitRestart asks the process supervisor to start ampd again.
const exitRestart = 3

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		if errors.Is(err, errRestart) {
			os.Exit(exitRestart)
		}
		fmt.Fprintln(os.Stderr, "ampd:", err)
		os.Exit(1)
	}
}
