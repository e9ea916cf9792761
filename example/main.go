package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/peerboard"
	"github.com/jpalmerr/peerboard/example/mockproxy"
)

const mockAddr = "localhost:9999"

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// start mock proxy (see mockproxy/)
	proxy := mockproxy.New(time.Now().UnixNano(), logger)
	ln, err := net.Listen("tcp", mockAddr)
	if err != nil {
		logger.Error("failed to listen", "addr", mockAddr, "error", err)
		os.Exit(1)
	}
	go func() { _ = http.Serve(ln, proxy.Handler()) }()
	go proxy.Run(time.Second, ctx.Done())

	client, err := peerboard.New(
		peerboard.WithEndpoint("http://"+mockAddr+"/graphql"),
		peerboard.WithLogger(logger),
	)
	if err != nil {
		logger.Error("failed to create client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	view := client.NewView()

	// live connections plus stats, refreshed every 5s
	conns, err := client.PeerConnections()
	if err != nil {
		logger.Error("failed to create resource", "error", err)
		os.Exit(1)
	}
	// last 50 messages, polled on a slower cadence
	recent, err := client.RecentMessages(50, peerboard.WithRefreshInterval(10*time.Second))
	if err != nil {
		logger.Error("failed to create resource", "error", err)
		os.Exit(1)
	}
	// connection history, fetched once; refetch via POST /api/resources/allConnections/refetch
	history, err := client.AllConnections()
	if err != nil {
		logger.Error("failed to create resource", "error", err)
		os.Exit(1)
	}
	for _, res := range []peerboard.Resource{conns, recent, history} {
		if err := view.Add(res); err != nil {
			logger.Error("failed to add resource", "error", err)
			os.Exit(1)
		}
	}

	mirror, err := peerboard.NewMirror(view,
		peerboard.WithPort(8080),
		peerboard.WithTitle("PeerBoard Demo"),
		peerboard.WithChangeCallback(func(r peerboard.Record) {
			if r.Error != nil {
				logger.Warn("resource failed", "resource", r.Name, "error", *r.Error)
			}
		}),
	)
	if err != nil {
		logger.Error("failed to create mirror", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════════════════╗")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   PeerBoard Demo                                      ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   State: http://localhost:8080/api/resources          ║")
	fmt.Println("  ║   Mock proxy: http://localhost:9999/graphql           ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Resources:                                          ║")
	fmt.Println("  ║   • connections (5s)                                  ║")
	fmt.Println("  ║   • recentMessages (50, 10s)                          ║")
	fmt.Println("  ║   • allConnections (one-shot)                         ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Press Ctrl+C to stop                                ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ╚═══════════════════════════════════════════════════════╝")
	fmt.Println()

	if err := mirror.Start(ctx); err != nil {
		logger.Error("peerboard error", "error", err)
		os.Exit(1)
	}
}
