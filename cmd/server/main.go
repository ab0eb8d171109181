// Command server runs the roomchat websocket and REST server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Tyrowin/roomchat/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run builds the application, serves until SIGINT or SIGTERM, then shuts the
// HTTP server and the hub down in that order.
func run() error {
	cfg, err := server.LoadConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	app, err := InitializeApp(cfg)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	log := app.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server.StartHub(log, app.Hub)

	errChan := make(chan error, 1)
	go func() {
		if err := server.StartServer(log, app.Server); err != nil {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		_ = app.Hub.Shutdown(cfg.ShutdownTimeout)
		return err
	}

	httpErr := server.ShutdownServer(log, app.Server, cfg.ShutdownTimeout)
	hubErr := app.Hub.Shutdown(cfg.ShutdownTimeout)
	if err := errors.Join(httpErr, hubErr); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info("Server stopped cleanly")
	return nil
}
