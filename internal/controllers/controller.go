package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"taxi_zones/internal/config"
	"taxi_zones/internal/ingest"
	"taxi_zones/internal/store"
)

// Controller serves the zone, route and upload endpoints over one store.
type Controller struct {
	store    *store.Store
	pipeline *ingest.Pipeline
	upload   config.UploadConfig
}

// New returns a Controller. The pipeline must write to the same store.
func New(s *store.Store, p *ingest.Pipeline, upload config.UploadConfig) *Controller {
	return &Controller{store: s, pipeline: p, upload: upload}
}

// Health reports that the process is serving.
func (ctl *Controller) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// storeError maps record store errors onto HTTP statuses.
func storeError(c *gin.Context, err error) {
	var missing *store.MissingZoneError
	switch {
	case errors.Is(err, store.ErrZoneNotFound), errors.Is(err, store.ErrRouteNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrZoneExists),
		errors.Is(err, store.ErrSameZones),
		errors.Is(err, store.ErrInvalid),
		errors.As(err, &missing):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logrus.WithError(err).Error("unexpected store error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// idParam parses the :id path parameter, writing a 400 when it is not an
// integer.
func idParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return 0, false
	}
	return id, true
}

func queryBool(c *gin.Context, key string) (*bool, error) {
	v, ok := c.GetQuery(key)
	if !ok || v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, errors.Errorf("%s must be a boolean", key)
	}
	return &b, nil
}

func queryInt(c *gin.Context, key string) (*int, error) {
	v, ok := c.GetQuery(key)
	if !ok || v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, errors.Errorf("%s must be an integer", key)
	}
	return &n, nil
}
