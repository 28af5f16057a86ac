// Package web exposes the migration pipeline over HTTP so operators can
// trigger loaders without shell access. Interactive review stays on the
// CLI; jobs run here use cached decisions only.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/nms-crm/internal/loaders"
)

// Server dispatches loader jobs over HTTP.
type Server struct {
	ctx        *loaders.Context
	httpServer *http.Server
	router     *mux.Router

	// One loader at a time; they share the cache and output directories.
	runMu sync.Mutex
}

// NewServer creates a server bound to addr.
func NewServer(ctx *loaders.Context, addr string) *Server {
	s := &Server{ctx: ctx}
	s.setupRoutes()
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()
	s.router.HandleFunc("/", s.handleIndex).Methods("GET")
	s.router.HandleFunc("/jobs", s.handleListJobs).Methods("GET")
	s.router.HandleFunc("/run/{key}", s.handleRunJob).Methods("POST")
	s.router.HandleFunc("/run-all", s.handleRunAll).Methods("POST")
}

// Start runs the server until SIGINT or SIGTERM, then shuts down
// gracefully.
func (s *Server) Start() error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		log.Printf("received %s, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

type jobInfo struct {
	Key         string   `json:"key"`
	Description string   `json:"description"`
	Consumes    []string `json:"consumes,omitempty"`
	Produces    []string `json:"produces,omitempty"`
}

type runResult struct {
	Status   string `json:"status"`
	Job      string `json:"job"`
	Duration string `json:"duration,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": "nms-crm migration",
		"jobs":    "/jobs",
	})
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	var jobs []jobInfo
	for _, l := range loaders.Registry() {
		jobs = append(jobs, jobInfo{
			Key:         l.Key,
			Description: l.Description,
			Consumes:    l.Consumes,
			Produces:    l.Produces,
		})
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleRunJob(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	if _, ok := loaders.Get(key); !ok {
		writeJSON(w, http.StatusNotFound, runResult{Status: "error", Job: key, Error: "unknown job"})
		return
	}

	s.runMu.Lock()
	defer s.runMu.Unlock()

	start := time.Now()
	if err := loaders.RunOne(s.ctx, key); err != nil {
		log.Printf("job %s failed: %v", key, err)
		writeJSON(w, http.StatusInternalServerError, runResult{
			Status: "error", Job: key, Duration: time.Since(start).String(), Error: err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, runResult{
		Status: "ok", Job: key, Duration: time.Since(start).String(),
	})
}

func (s *Server) handleRunAll(w http.ResponseWriter, r *http.Request) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	start := time.Now()
	if err := loaders.Pipeline(s.ctx).Run(); err != nil {
		log.Printf("pipeline failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, runResult{
			Status: "error", Job: "all", Duration: time.Since(start).String(), Error: err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, runResult{
		Status: "ok", Job: "all", Duration: time.Since(start).String(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}
