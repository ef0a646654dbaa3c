// Package server provides the HTTP API for darkroom.
//
// The surface is JSON over REST: a public read projection, an authenticated
// admin surface for curation, and a login endpoint exchanging the shared
// admin secret for a session token.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/time/rate"

	"darkroom/internal/auth"
	"darkroom/internal/blob"
	"darkroom/internal/gallery"
	"darkroom/internal/logging"
)

// Config holds server configuration.
type Config struct {
	// Logger for structured logging.
	Logger *slog.Logger

	// Tokens issues and verifies session tokens.
	Tokens *auth.TokenService

	// SecretHash is the argon2id PHC hash of the shared admin secret.
	SecretHash string

	// Gallery is the collection store.
	Gallery *gallery.Store

	// Blobs is the external binary store.
	Blobs blob.Store

	// UploadPrefix scopes the folder signed uploads land under.
	// Defaults to "photos".
	UploadPrefix string
}

// Server is the darkroom HTTP server.
type Server struct {
	engine       *gin.Engine
	tokens       *auth.TokenService
	secretHash   string
	gallery      *gallery.Store
	blobs        blob.Store
	uploadPrefix string
	loginLimiter *rateLimiter
	logger       *slog.Logger
	startTime    time.Time
}

// New creates a Server and registers its routes.
func New(cfg Config) *Server {
	uploadPrefix := cfg.UploadPrefix
	if uploadPrefix == "" {
		uploadPrefix = "photos"
	}

	s := &Server{
		tokens:       cfg.Tokens,
		secretHash:   cfg.SecretHash,
		gallery:      cfg.Gallery,
		blobs:        cfg.Blobs,
		uploadPrefix: uploadPrefix,
		loginLimiter: newRateLimiter(rate.Every(time.Second), 5),
		logger:       logging.Default(cfg.Logger).With("component", "server"),
		startTime:    time.Now(),
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	s.registerRoutes(engine)
	s.engine = engine

	return s
}

func (s *Server) registerRoutes(engine *gin.Engine) {
	api := engine.Group("/api")

	api.POST("/auth/login", s.handleLogin)
	api.GET("/photos", s.handleListPublic)
	api.GET("/health", s.handleHealth)

	admin := api.Group("/admin")
	admin.Use(s.requireAuth())
	{
		admin.GET("/sign", s.handleSignUpload)
		admin.POST("/photos/register", s.handleRegister)
		admin.GET("/photos", s.handleListAdmin)
		admin.PUT("/photos/:id", s.handleUpdate)
		admin.POST("/photos/:id/repair", s.handleRepair)
		admin.DELETE("/photos/:id", s.handleDelete)
		admin.POST("/publish", s.handlePublish)
		admin.POST("/reorder", s.handleReorder)
		admin.DELETE("/photos", s.handleClear)
	}
}

// Handler returns the root HTTP handler, h2c-wrapped so HTTP/2 works over
// cleartext behind a terminating proxy.
func (s *Server) Handler() http.Handler {
	return h2c.NewHandler(s.engine, &http2.Server{})
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
