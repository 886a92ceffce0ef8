package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// exitUnhealthy distinguishes failed health checks from command errors.
const exitUnhealthy = 2

func main() {
	cmd := newRootCommand()
	err := cmd.ExecuteContext(context.Background())
	switch {
	case err == nil:
		return
	case errors.Is(err, errUnhealthy):
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitUnhealthy)
	case errors.Is(err, context.Canceled):
		os.Exit(1)
	default:
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
