package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"taxi_zones/internal/config"
	"taxi_zones/internal/controllers"
	"taxi_zones/internal/ingest"
	"taxi_zones/internal/logger"
	"taxi_zones/internal/routes"
	"taxi_zones/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("loading config")
	}

	// Initialize structured logging to file
	out, err := logger.Setup(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		logrus.WithError(err).Fatal("setting up logger")
	}
	gin.SetMode(cfg.GinMode)

	s := store.New()
	ctl := controllers.New(s, ingest.New(s, logrus.StandardLogger()), cfg.Upload)
	r := routes.SetupRouter(ctl, routes.Options{
		MaxUploadBytes: cfg.Upload.MaxBytes,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AccessLog:      out,
	})

	logrus.WithField("addr", cfg.Addr).Info("server running")
	if err := http.ListenAndServe(cfg.Addr, r); err != nil {
		logrus.WithError(err).Fatal("server stopped")
	}
}
