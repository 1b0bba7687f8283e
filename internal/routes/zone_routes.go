package routes

import (
	"taxi_zones/internal/controllers"

	"github.com/gin-gonic/gin"
)

func ZoneRoutes(r *gin.Engine, ctl *controllers.Controller) {
	zones := r.Group("/zones")
	{
		zones.POST("", ctl.CreateZone)
		zones.GET("", ctl.ListZones)
		zones.GET("/:id", ctl.GetZone)
		zones.PUT("/:id", ctl.UpdateZone)
		zones.DELETE("/:id", ctl.DeleteZone)
	}
}
