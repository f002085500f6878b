// Package app wires the process together: logging router, credential
// store, hub, simulation loop, and the HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	server "github.com/DanielSh-bit/tank-family-server"
	servernet "github.com/DanielSh-bit/tank-family-server/internal/net"
	"github.com/DanielSh-bit/tank-family-server/internal/store"
	"github.com/DanielSh-bit/tank-family-server/logging"
	loggingSinks "github.com/DanielSh-bit/tank-family-server/logging/sinks"
)

const shutdownGrace = 5 * time.Second

// Run blocks until ctx is cancelled or the server fails. Configuration
// comes from the environment: PORT, CREDENTIALS_DIR, CLIENT_DIR,
// LOG_JSON_PATH.
func Run(ctx context.Context) error {
	logConfig := logging.DefaultConfig()
	namedSinks := []logging.NamedSink{
		{Name: "console", Sink: loggingSinks.NewConsoleSink(os.Stdout, logConfig.Console)},
	}
	if path := os.Getenv("LOG_JSON_PATH"); path != "" {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer file.Close()
		namedSinks = append(namedSinks, logging.NamedSink{
			Name: "json",
			Sink: loggingSinks.NewJSONSink(file, logConfig.JSON.FlushInterval),
		})
	}

	router, err := logging.NewRouter(nil, logConfig, namedSinks)
	if err != nil {
		return fmt.Errorf("construct logging router: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if cerr := router.Close(closeCtx); cerr != nil {
			log.Printf("failed to close logging router: %v", cerr)
		}
	}()

	hubCfg := server.DefaultHubConfig()

	credentialsDir := os.Getenv("CREDENTIALS_DIR")
	if credentialsDir == "" {
		credentialsDir = "credentials"
	}
	fileStore, err := store.NewFileStore(credentialsDir)
	if err != nil {
		return fmt.Errorf("open credential store: %w", err)
	}
	hubCfg.Store = fileStore

	hub := server.NewHub(hubCfg, router)

	stop := make(chan struct{})
	go hub.RunSimulation(stop)
	defer close(stop)

	clientDir := os.Getenv("CLIENT_DIR")
	if clientDir == "" {
		if cwd, err := os.Getwd(); err == nil {
			clientDir, _ = servernet.ResolveClientDir(cwd)
		}
	}

	handler := servernet.NewHTTPHandler(hub, servernet.HTTPHandlerConfig{
		ClientDir: clientDir,
		Publisher: router,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}
	srv := &http.Server{Addr: ":" + port, Handler: handler}
	log.Printf("tank battle server listening on %s", srv.Addr)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return group.Wait()
}
