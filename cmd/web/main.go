// Command web runs the ICAHT grading HTTP server.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"icahtcli/internal/app"
	"icahtcli/internal/config"
)

func main() {
	configFile := flag.String("config", "config.yaml", "path to YAML config file (optional)")
	port := flag.Int("port", 0, "override server port")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	application, err := app.NewApplication(cfg)
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Start(ctx); err != nil {
		application.Logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
