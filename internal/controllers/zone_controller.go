package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"taxi_zones/internal/models"
	"taxi_zones/internal/store"
)

type createZoneInput struct {
	ID          int    `json:"id" binding:"required,gt=0"`
	Borough     string `json:"borough" binding:"required"`
	ZoneName    string `json:"zone_name" binding:"required"`
	ServiceZone string `json:"service_zone"`
	Active      *bool  `json:"active"`
}

// CreateZone registers a zone under a caller-supplied id.
func (ctl *Controller) CreateZone(c *gin.Context) {
	var input createZoneInput
	if err := c.ShouldBindJSON(&input); err != nil {
		logrus.WithError(err).Warn("CreateZone: invalid input payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	active := true
	if input.Active != nil {
		active = *input.Active
	}
	zone, err := ctl.store.CreateZone(models.Zone{
		ID:          input.ID,
		Borough:     input.Borough,
		ZoneName:    input.ZoneName,
		ServiceZone: input.ServiceZone,
		Active:      active,
	})
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, zone)
}

// ListZones lists zones, optionally filtered by ?active= and ?borough=.
func (ctl *Controller) ListZones(c *gin.Context) {
	active, err := queryBool(c, "active")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, ctl.store.ListZones(store.ZoneFilter{
		Active:  active,
		Borough: c.Query("borough"),
	}))
}

// GetZone returns one zone.
func (ctl *Controller) GetZone(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	zone, err := ctl.store.GetZone(id)
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, zone)
}

// UpdateZone applies a partial update; omitted fields are kept.
func (ctl *Controller) UpdateZone(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var input models.ZoneUpdate
	if err := c.ShouldBindJSON(&input); err != nil {
		logrus.WithError(err).Warn("UpdateZone: invalid input payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	zone, err := ctl.store.UpdateZone(id, input)
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, zone)
}

// DeleteZone removes a zone. Routes referencing it are kept.
func (ctl *Controller) DeleteZone(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := ctl.store.DeleteZone(id); err != nil {
		storeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
