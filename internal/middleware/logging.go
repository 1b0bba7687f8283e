package middleware

import (
	"io"

	ginlog "github.com/gin-contrib/logger"
	"github.com/gin-gonic/gin"
)

// AccessLog writes one line per request to w. Health and metrics probes
// are skipped.
func AccessLog(w io.Writer) gin.HandlerFunc {
	return ginlog.SetLogger(
		ginlog.WithWriter(w),
		ginlog.WithUTC(true),
		ginlog.WithSkipPath([]string{"/health", "/metrics"}),
	)
}
