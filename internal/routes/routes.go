package routes

import (
	"io"

	"github.com/gin-gonic/gin"

	"taxi_zones/internal/controllers"
	"taxi_zones/internal/metrics"
	"taxi_zones/internal/middleware"
)

// Options configures the engine built by SetupRouter.
type Options struct {
	MaxUploadBytes int64
	// AllowedOrigins restricts CORS; empty allows any origin.
	AllowedOrigins []string
	// AccessLog receives one line per request; nil disables it.
	AccessLog io.Writer
}

// SetupRouter wires every endpoint onto a new engine.
func SetupRouter(ctl *controllers.Controller, opts Options) *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = opts.MaxUploadBytes

	// Recovery middleware
	r.Use(gin.Recovery())
	if opts.AccessLog != nil {
		r.Use(middleware.AccessLog(opts.AccessLog))
	}
	r.Use(middleware.CORS(opts.AllowedOrigins...))

	r.GET("/health", ctl.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	ZoneRoutes(r, ctl)
	RouteRoutes(r, ctl)
	UploadRoutes(r, ctl)

	return r
}
