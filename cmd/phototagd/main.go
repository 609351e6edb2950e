// Command phototagd serves the photo library and tags uploads with the
// intelligence pipeline.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (JSON); defaults apply when empty")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := NewApp(*configPath)
	if err := app.Run(ctx); err != nil {
		slog.Error("phototagd: exiting", "error", err.Error())
		os.Exit(1)
	}
}
