package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"pixelsync/internal/config"
	"pixelsync/internal/core"
	"pixelsync/internal/store"
)

// NewServer builds the HTTP server: the WebSocket endpoint plus the
// read-only discovery API.
func NewServer(router *Router, registry *core.Registry, journal store.Store, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(LoggerMiddleware(logger))

	engine.GET("/health", healthHandler)
	engine.GET("/ws", gin.WrapH(router))

	sessions := NewSessionHandlers(registry, journal, logger)
	api := engine.Group("/api")
	{
		api.GET("/sessions", sessions.ListSessions)
		api.GET("/sessions/:id", sessions.GetSession)
		api.GET("/history", sessions.ListHistory)
	}

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           engine,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}

// LoggerMiddleware logs each HTTP request after it completes.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("http request")
	}
}
