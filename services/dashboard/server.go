// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package dashboard serves a read-only view of a training run: health,
// latest iteration summaries, and prometheus metrics. The trainer core
// never reads anything back from it.
package dashboard

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-ing/Agent0/pkg/logging"
)

// IterationSummary is one completed iteration as shown on /status.
type IterationSummary struct {
	Iteration      int       `json:"iteration"`
	FrontierSize   int       `json:"frontier_size"`
	ExecutorTraces int       `json:"executor_traces"`
	CompletedAt    time.Time `json:"completed_at"`
}

// StatusStore holds recent iteration summaries for the dashboard. Safe for
// concurrent use; the run loop writes, HTTP handlers read.
type StatusStore struct {
	mu        sync.RWMutex
	keep      int
	summaries []IterationSummary
}

// NewStatusStore creates a store retaining the last keep summaries
// (default 50).
func NewStatusStore(keep int) *StatusStore {
	if keep <= 0 {
		keep = 50
	}
	return &StatusStore{keep: keep}
}

// Record appends a summary, evicting oldest entries beyond the cap.
func (s *StatusStore) Record(summary IterationSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries = append(s.summaries, summary)
	if len(s.summaries) > s.keep {
		s.summaries = s.summaries[len(s.summaries)-s.keep:]
	}
}

// Summaries returns a copy of the retained summaries, oldest first.
func (s *StatusStore) Summaries() []IterationSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]IterationSummary, len(s.summaries))
	copy(out, s.summaries)
	return out
}

// Server is the dashboard HTTP surface.
type Server struct {
	store  *StatusStore
	logger *logging.Logger
}

// NewServer creates a dashboard over the given store.
func NewServer(store *StatusStore, logger *logging.Logger) *Server {
	if store == nil {
		store = NewStatusStore(0)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Server{store: store, logger: logger.With("component", "dashboard")}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", s.handleHealth)
	router.GET("/status", s.handleStatus)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return router
}

// Run serves until the listener fails.
func (s *Server) Run(addr string) error {
	s.logger.Info("dashboard listening", "addr", addr)
	return s.Router().Run(addr)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleStatus(c *gin.Context) {
	summaries := s.store.Summaries()
	c.JSON(http.StatusOK, gin.H{
		"iterations": len(summaries),
		"history":    summaries,
	})
}
