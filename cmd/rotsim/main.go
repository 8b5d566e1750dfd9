package main

import (
	"context"
	"log/slog"
	"os"
)

func main() {
	if err := Execute(context.Background(), os.Args[1:]); err != nil {
		slog.Error("rotsim failed", "error", err)
		os.Exit(1)
	}
}
