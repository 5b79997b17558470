// Package server exposes a [relay.Service] over HTTP for a browser frontend.
package server

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-multierror"
	"github.com/picatz/openai-relay/internal/relay"
)

// DefaultMaxUploadBytes caps multipart request bodies when Options leaves it unset.
const DefaultMaxUploadBytes = 32 << 20

const shutdownTimeout = 10 * time.Second

type Options struct {
	// AllowedOrigins lists the origins allowed to make cross-origin
	// requests. "*" allows any origin.
	AllowedOrigins []string

	MaxUploadBytes int64

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Server routes HTTP requests to a relay service.
type Server struct {
	svc    *relay.Service
	engine *gin.Engine
	logger *slog.Logger

	allowedOrigins map[string]bool
	maxUploadBytes int64
}

// New returns a Server for svc with all routes registered.
func New(svc *relay.Service, opts Options) *Server {
	s := &Server{
		svc:            svc,
		engine:         gin.New(),
		logger:         cmp.Or(opts.Logger, slog.Default()),
		allowedOrigins: make(map[string]bool, len(opts.AllowedOrigins)),
		maxUploadBytes: cmp.Or(opts.MaxUploadBytes, DefaultMaxUploadBytes),
	}
	for _, origin := range opts.AllowedOrigins {
		s.allowedOrigins[origin] = true
	}

	s.routes()

	return s
}

func (s *Server) routes() {
	s.engine.Use(
		s.requestID(),
		s.accessLog(),
		gin.CustomRecovery(s.recovered),
		s.cors(),
	)

	s.engine.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "OpenAI Responses API Relay"})
	})

	api := s.engine.Group("/api")
	api.POST("/simple-prompt", handleJSON(s, s.svc.SimplePrompt))
	api.POST("/continue-conversation", handleJSON(s, s.svc.ContinueConversation))
	api.POST("/web-search", handleJSON(s, s.svc.WebSearch))
	api.POST("/multimodal", handleJSON(s, s.svc.Multimodal))
	api.POST("/upload-image", s.uploadImage)
	api.POST("/create-vector-store", handleJSON(s, s.svc.CreateVectorStore))
	api.POST("/upload-file", s.uploadFile)
	api.POST("/file-search", handleJSON(s, s.svc.FileSearch))
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully,
// waiting for in-flight requests to finish.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.InfoContext(ctx, "listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to serve: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	var result error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		result = multierror.Append(result, fmt.Errorf("failed to shut down: %w", err))
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		result = multierror.Append(result, fmt.Errorf("failed to serve: %w", err))
	}
	return result
}
