package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/stillmind/meditation-service/internal/handler"
)

// APIServer manages the HTTP API server lifecycle.
type APIServer struct {
	server  *http.Server
	port    int
	handler *handler.Handler
}

// NewAPIServer creates a new API server instance.
func NewAPIServer(port int, h *handler.Handler) *APIServer {
	return &APIServer{
		port:    port,
		handler: h,
	}
}

// Setup builds the route tree and wraps it with OpenTelemetry HTTP
// instrumentation. WriteTimeout stays unset: the event stream endpoint holds
// its response open for the life of a playback session.
func (s *APIServer) Setup() error {
	router := s.handler.Router()

	s.server = &http.Server{
		Addr:        fmt.Sprintf(":%d", s.port),
		Handler:     otelhttp.NewHandler(router, "stillmind-api"),
		ReadTimeout: 30 * time.Second,
	}

	logrus.Infof("registered API routes")
	return nil
}

// Start begins listening and serving API requests.
func (s *APIServer) Start(ctx context.Context) error {
	go func() {
		logrus.Infof("API server listening on port %d", s.port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("API server failed: %v", err)
		}
	}()

	return nil
}

// Shutdown gracefully stops the API server.
func (s *APIServer) Shutdown(ctx context.Context) error {
	logrus.Info("shutting down API server...")
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	logrus.Info("API server stopped")
	return nil
}
