package routes

import (
	"taxi_zones/internal/controllers"

	"github.com/gin-gonic/gin"
)

func RouteRoutes(r *gin.Engine, ctl *controllers.Controller) {
	routes := r.Group("/routes")
	{
		routes.POST("", ctl.CreateRoute)
		routes.GET("", ctl.ListRoutes)
		routes.GET("/:id", ctl.GetRoute)
		routes.PUT("/:id", ctl.UpdateRoute)
		routes.DELETE("/:id", ctl.DeleteRoute)
	}
}
