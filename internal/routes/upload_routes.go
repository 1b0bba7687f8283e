package routes

import (
	"taxi_zones/internal/controllers"

	"github.com/gin-gonic/gin"
)

func UploadRoutes(r *gin.Engine, ctl *controllers.Controller) {
	uploads := r.Group("/uploads")
	{
		uploads.POST("/trips-parquet", ctl.UploadTripsParquet)
	}
}
