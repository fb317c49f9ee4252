package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fentz26/focal/internal/audit"
	"github.com/fentz26/focal/internal/scheduler"
	"github.com/fentz26/focal/internal/server"
	"github.com/fentz26/focal/internal/store"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Focal HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "127.0.0.1:7620", "Listen address for the API server")
}

func runServe(cmd *cobra.Command, args []string) error {
	st, err := store.New(dbPath)
	if err != nil {
		return err
	}

	service := server.NewService(st, audit.NewJournal(st))
	srv := server.NewServer(service, listenAddr)

	refresher := scheduler.New(st, scheduler.DefaultInterval)
	refresher.Start()
	defer refresher.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		err := srv.Start()
		if err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case sig := <-sigCh:
		log.Printf("Received signal %v, shutting down...", sig)
	case err := <-serverErr:
		if err != nil {
			st.Close()
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	if err := st.Close(); err != nil {
		log.Printf("Database close error: %v", err)
	}
	return nil
}
