// ABOUTME: Entry point for the in-memory WeCare development backend
// ABOUTME: Serves the chat REST contract under /api so the client can run without the real service
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dheeraj009joshi/WeCare-sub002/internal/config"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/logger"
	"github.com/dheeraj009joshi/WeCare-sub002/internal/mockbackend"
)

func main() {
	if err := config.LoadEnvFiles(".env"); err != nil {
		log.Fatalf("failed to load .env: %v", err)
	}

	defaultAddr := os.Getenv("WECARE_MOCKD_ADDR")
	if defaultAddr == "" {
		defaultAddr = ":5000"
	}

	addr := flag.String("addr", defaultAddr, "listen address")
	latency := flag.Duration("latency", 0, "artificial delay added to every request")
	quiet := flag.Bool("quiet", false, "disable request logging")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	logger.SetVerbose(*verbose)

	opts := []mockbackend.Option{mockbackend.WithLatency(*latency)}
	if !*quiet {
		opts = append(opts, mockbackend.WithRequestLog())
	}
	server := mockbackend.New(opts...)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("mock backend listening on %s (api base http://localhost%s/api)", *addr, *addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown: %v", err)
	}
}
