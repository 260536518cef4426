// Package main provides the HTTP and MCP server entry point for docchat.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bull/docchat-server/internal/api"
	"github.com/bull/docchat-server/internal/config"
	mcpserver "github.com/bull/docchat-server/internal/mcp"
	"github.com/bull/docchat-server/internal/rag"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logger := cfg.NewLogger()

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	svc, cleanup, err := rag.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to initialize services: %v", err)
	}
	defer cleanup()

	server := mcpserver.NewServer(&mcpserver.Config{
		Service: svc,
		Logger:  logger,
	})

	router := api.NewRouter(api.NewHandler(svc, cfg.Server.MaxUploadBytes, logger))
	router.Handle("/mcp", mcpserver.NewHTTPHandler(server, nil))
	router.Get("/", mcpserver.NewLandingHandler())

	httpServer := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := serve(ctx, httpServer, cfg.Server.ServerMode, server.Run); err != nil {
		log.Printf("server error: %v", err)
		cleanup()
		os.Exit(1)
	}
}

// serve runs httpServer until ctx ends. Outside server mode the MCP server
// runs on stdin/stdout and the HTTP server stops once it returns.
func serve(ctx context.Context, httpServer *http.Server, serverMode bool, runStdio func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP shutdown error: %v", err)
		}
	}()

	if serverMode {
		// HTTP mode: REST API and MCP over HTTP for remote clients
		log.Printf("Starting HTTP server on %s (API at /api, MCP at /mcp, health at /health)", httpServer.Addr)
		err := httpServer.ListenAndServe()
		cancel()
		<-stopped
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	}

	// Stdio mode: MCP over stdin/stdout for local clients, REST API in background
	go func() {
		log.Printf("Starting HTTP server on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	log.Println("Starting docchat MCP server (stdio mode)...")
	err := runStdio(ctx)
	cancel()
	<-stopped
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
