// Package httpapi exposes the scenario engine over HTTP: scenario
// execution control endpoints plus a websocket feed of execution events,
// grounded on the host's internal/app/httpapi.Service lifecycle wrapper.
package httpapi

import (
	"context"
	"net/http"
	"time"

	svc "github.com/meridianhq/scenario-engine/internal/app/services/scenario"
	"github.com/meridianhq/scenario-engine/pkg/logger"
)

// Service exposes the scenario engine's REST and websocket API and fits
// into the host's Name/Start/Stop lifecycle interface.
type Service struct {
	addr    string
	server  *http.Server
	handler http.Handler
	log     *logger.Logger
}

// NewService builds the Service. engine must already be constructed;
// Service only wires the transport around it.
func NewService(engine *svc.Engine, broadcaster *Broadcaster, addr string, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("http")
	}
	handler := NewHandler(engine, broadcaster)
	handler = wrapWithCORS(handler)
	return &Service{addr: addr, handler: handler, log: log}
}

var _ interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
} = (*Service)(nil)

// Name implements the Service lifecycle interface.
func (s *Service) Name() string { return "scenario-http" }

// Start implements the Service lifecycle interface.
func (s *Service) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Errorf("http server error: %v", err)
		}
	}()
	return nil
}

// Stop implements the Service lifecycle interface.
func (s *Service) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// wrapWithCORS allows cross-origin requests from a local dashboard and
// short-circuits preflight requests.
func wrapWithCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
