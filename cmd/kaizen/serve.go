package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"kaizen/internal/api"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the kaizen HTTP API. It serves retrieval under /resolve and /lookup,
curation under /namespaces, /scopes, /knowledge and /conflicts, plus /health,
/version and /metrics.

Host and port default to the api section of the configuration.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (overrides api.host)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides api.port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(apiLogs)
	if err != nil {
		return err
	}
	defer a.Close()

	host, port := a.config.API.Host, a.config.API.Port
	if cmd.Flags().Changed("host") {
		host = serveHost
	}
	if cmd.Flags().Changed("port") {
		port = servePort
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	authManager := a.authManager()
	authManager.StartBackgroundTasks(ctx)

	server := api.NewServer(api.ServerConfig{
		Addr:        addr,
		CORSOrigins: a.config.API.CORSOrigins,
	}, api.Deps{
		DB:     a.db,
		Repos:  a.repos,
		Engine: a.engine,
		Auth:   authManager,
		Guard:  a.guard,
	}, a.logger)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("Starting kaizen HTTP API server", "addr", addr)
		fmt.Printf("kaizen HTTP API listening on http://%s\n", addr)
		fmt.Println("Press Ctrl+C to stop")
		serverErr <- server.Start()
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			a.logger.Error("Server error", "error", err.Error())
			return err
		}
	case sig := <-shutdown:
		a.logger.Info("Received shutdown signal", "signal", sig.String())

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("Error during shutdown", "error", err.Error())
			return err
		}
		a.logger.Info("Server stopped gracefully")
	}
	return nil
}
