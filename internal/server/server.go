// Package server exposes the questionnaire engine to the public inspection
// page: one session per token, held in memory for the life of the process.
package server

import (
	"context"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fieldservice-inspection/internal/common/config"
	"fieldservice-inspection/internal/common/logger"
	"fieldservice-inspection/internal/inspection/session"
	"fieldservice-inspection/internal/inspection/submit"
)

// Pinger is anything with a connection health check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server routes public session traffic onto the engine.
type Server struct {
	opener   *session.Opener
	pipeline *submit.Pipeline
	engCfg   config.EngineConfig
	logger   logger.Logger
	pingers  map[string]Pinger

	mu       sync.Mutex
	sessions map[string]*session.Session
}

func New(opener *session.Opener, pipeline *submit.Pipeline, engCfg config.EngineConfig, log logger.Logger, pingers map[string]Pinger) *Server {
	return &Server{
		opener:   opener,
		pipeline: pipeline,
		engCfg:   engCfg,
		logger:   log,
		pingers:  pingers,
		sessions: make(map[string]*session.Session),
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /session/{token}", s.handleOpen)
	mux.HandleFunc("POST /session/{token}/answers", s.handleAnswer)
	mux.HandleFunc("POST /session/{token}/signature", s.handleSignature)
	mux.HandleFunc("POST /session/{token}/photos", s.handleAddPhotos)
	mux.HandleFunc("DELETE /session/{token}/photos", s.handleRemovePhoto)
	mux.HandleFunc("POST /session/{token}/next", s.handleNext)
	mux.HandleFunc("POST /session/{token}/previous", s.handlePrevious)
	mux.HandleFunc("POST /session/{token}/finalize", s.handleFinalize)
	mux.HandleFunc("POST /session/{token}/return", s.handleReturn)
	mux.HandleFunc("POST /session/{token}/disposition", s.handleDisposition)
	mux.HandleFunc("POST /session/{token}/submit", s.handleSubmit)

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", s.handleHealth)

	return mux
}

// lookup returns the live session for a token, opening one on first use.
func (s *Server) lookup(ctx context.Context, tokenValue string) (*session.Session, error) {
	s.mu.Lock()
	if sess, ok := s.sessions[tokenValue]; ok {
		s.mu.Unlock()
		return sess, nil
	}
	s.mu.Unlock()

	sess, err := s.opener.Open(ctx, tokenValue)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[tokenValue]; ok {
		return existing, nil
	}
	s.sessions[tokenValue] = sess
	return sess, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	for name, p := range s.pingers {
		if err := p.Ping(r.Context()); err != nil {
			s.logger.Warn("Health check failed", map[string]interface{}{
				"dependency": name,
				"error":      err.Error(),
			})
			http.Error(w, name+" unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
