// Command mockserver runs the simulated proxy GraphQL service on its own,
// for use with the peerboard CLI.
//
//	go run ./example/cmd/mockserver -addr :9999
//	peerboard fetch connections --endpoint http://localhost:9999/graphql
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/peerboard/example/mockproxy"
)

func main() {
	addr := flag.String("addr", ":9999", "listen address")
	tick := flag.Duration("tick", time.Second, "simulation step interval")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	proxy := mockproxy.New(*seed, logger)
	go proxy.Run(*tick, ctx.Done())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           proxy.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("mock proxy listening", "addr", *addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
