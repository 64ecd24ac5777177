package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirecall-server/internal/config"
	"github.com/vovakirdan/wirecall-server/internal/presence"
	"github.com/vovakirdan/wirecall-server/internal/rpc"
)

// NewServer builds the HTTP server. /ws is served straight from the mux; the
// REST routes go through the gin engine.
func NewServer(registry *presence.Registry, dispatcher *rpc.Dispatcher, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", healthHandler)

	presenceHandlers := NewPresenceHandlers(registry, logger)
	api := router.Group("/api")
	{
		api.GET("/presence", presenceHandlers.List)
		api.GET("/presence/:userId", presenceHandlers.Get)
	}

	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(registry, dispatcher, cfg.WS, logger))
	mux.Handle("/", router)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
