package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

func (s *Server) registerRoutes() {
	r := s.Router

	r.Use(s.requestID())
	r.Use(s.requestLogger())
	r.Use(gin.Recovery())

	r.GET("/", s.handleIndex)
	r.POST("/run", s.rateLimit(), s.handleRunForm)
	r.POST("/sync", s.rateLimit(), s.handleSyncForm)

	api := r.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/playbooks", s.handlePlaybooks)
	api.POST("/run", s.rateLimit(), s.handleAPIRun)
	api.POST("/sync", s.rateLimit(), s.handleAPISync)

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{})))
}

// requestID tags every request with a fresh id, echoed in the response.
func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// requestLogger middleware logs all HTTP requests with structured data
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		event := s.Logger.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			event = s.Logger.Error()
		}
		event.
			Str("request_id", c.GetString(requestIDKey)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("remote_addr", c.ClientIP()).
			Str("user_agent", c.Request.UserAgent()).
			Int("status", c.Writer.Status()).
			Int("body_size", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Str("error", c.Errors.ByType(gin.ErrorTypePrivate).String()).
			Msg("HTTP request")
	}
}

func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.RateLimiter.Allow() {
			logger := s.requestLog(c)
			logger.Warn().Msg("Rate limit exceeded")
			s.Metrics.RateLimited.Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{Error: "Too many requests"})
			return
		}
		c.Next()
	}
}

// requestLog returns a logger carrying the request context.
func (s *Server) requestLog(c *gin.Context) zerolog.Logger {
	return s.Logger.With().
		Str("request_id", c.GetString(requestIDKey)).
		Str("endpoint", c.FullPath()).
		Str("method", c.Request.Method).
		Str("remote_addr", c.ClientIP()).
		Logger()
}

// Start serves HTTP until Stop is called. It returns nil after a graceful
// shutdown.
func (s *Server) Start() error {
	s.Logger.Info().Str("addr", s.httpServer.Addr).Msg("Starting server")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop waits for in-flight requests until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	s.Logger.Info().Msg("Shutting down server")
	return s.httpServer.Shutdown(ctx)
}
