package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"taxi_zones/internal/models"
	"taxi_zones/internal/store"
)

type createRouteInput struct {
	PickupZoneID  int    `json:"pickup_zone_id" binding:"required,gt=0"`
	DropoffZoneID int    `json:"dropoff_zone_id" binding:"required,gt=0"`
	Name          string `json:"name" binding:"required,min=3"`
	Active        *bool  `json:"active"`
}

// CreateRoute adds a route between two existing, distinct zones.
func (ctl *Controller) CreateRoute(c *gin.Context) {
	var input createRouteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		logrus.WithError(err).Warn("CreateRoute: invalid input payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	active := true
	if input.Active != nil {
		active = *input.Active
	}
	route, err := ctl.store.CreateRoute(models.Route{
		PickupZoneID:  input.PickupZoneID,
		DropoffZoneID: input.DropoffZoneID,
		Name:          input.Name,
		Active:        active,
	})
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, route)
}

// ListRoutes lists routes, optionally filtered by ?active=,
// ?pickup_zone_id= and ?dropoff_zone_id=.
func (ctl *Controller) ListRoutes(c *gin.Context) {
	var (
		f   store.RouteFilter
		err error
	)
	if f.Active, err = queryBool(c, "active"); err == nil {
		if f.PickupZoneID, err = queryInt(c, "pickup_zone_id"); err == nil {
			f.DropoffZoneID, err = queryInt(c, "dropoff_zone_id")
		}
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, ctl.store.ListRoutes(f))
}

// GetRoute returns one route.
func (ctl *Controller) GetRoute(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	route, err := ctl.store.GetRoute(id)
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, route)
}

// UpdateRoute applies a partial update. Changed zone ids must exist and the
// resulting pickup and dropoff must differ.
func (ctl *Controller) UpdateRoute(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var input models.RouteUpdate
	if err := c.ShouldBindJSON(&input); err != nil {
		logrus.WithError(err).Warn("UpdateRoute: Invalid input payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	route, err := ctl.store.UpdateRoute(id, input)
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, route)
}

// DeleteRoute removes a route. Its id is not reused.
func (ctl *Controller) DeleteRoute(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := ctl.store.DeleteRoute(id); err != nil {
		storeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
