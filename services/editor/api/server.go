// Copyright (C) 2026 Driftlock Authors (dev@driftlock.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/driftlock/driftlock/services/editor/telemetry"
)

// NewRouter builds the Gin engine with middleware and all routes.
//
// Description:
//
//	Uses gin.New with recovery only, so request logging stays on the
//	structured logger instead of gin's default writer. The /metrics
//	endpoint is registered when the Prometheus exporter is active.
//
// Inputs:
//
//	handlers - The API handlers. Must not be nil.
//
// Outputs:
//
//	*gin.Engine - The configured router.
func NewRouter(handlers *Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("driftlock"))

	v1 := router.Group("/v1")
	RegisterRoutes(v1, handlers)

	if mh := telemetry.MetricsHandler(); mh != nil {
		router.GET("/metrics", gin.WrapH(mh))
	}

	return router
}

// Server wraps the HTTP server with graceful shutdown.
type Server struct {
	srv             *http.Server
	logger          *slog.Logger
	shutdownTimeout time.Duration
}

// NewServer creates an HTTP server for the given router.
func NewServer(addr string, router *gin.Engine, shutdownTimeout time.Duration, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		srv: &http.Server{
			Addr:    addr,
			Handler: router,
		},
		logger:          logger.With("component", "server"),
		shutdownTimeout: shutdownTimeout,
	}
}

// Run serves until the context is canceled, then shuts down gracefully.
//
// Outputs:
//
//	error - Non-nil on listen failure or shutdown timeout. A clean
//	        shutdown returns nil.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down", "timeout", s.shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
