package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/Adda-Baaj/khobor-rss/internal/api"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve feeds over HTTP (GET /feed?url=...)",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().String("http-addr", "", "listen address (default :8080)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, svc, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()
	defer func() {
		if err := svc.Close(); err != nil {
			log.ErrorObj("publisher close failed", "error", err)
		}
	}()

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(svc, log, api.Options{
		CacheMaxAge: time.Duration(cfg.CacheMaxAgeSeconds) * time.Second,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.InfoObj("http server listening", "http_addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	ctx := cmd.Context()
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.InfoObj("http server shutting down", "reason", ctx.Err().Error())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}
