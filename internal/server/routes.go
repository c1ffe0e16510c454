package server

import (
	"log/slog"
	"net/http"

	"github.com/USA-RedDragon/camper-server/internal/config"
	"github.com/USA-RedDragon/camper-server/internal/server/controllers"
	"github.com/gin-gonic/gin"
)

func applyRoutes(r *gin.Engine, config *config.Config) {
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	api := r.Group("/api", supabaseAuth(config))
	api.POST("/itinerary", controllers.POSTItinerary)
	api.POST("/itinerary/segment", controllers.POSTSegmentPolyline)
	api.GET("/geocode/reverse", controllers.GETReverseGeocode)
	api.GET("/places-supercat", controllers.GETSupercats)
	api.POST("/places-supercat", controllers.POSTPlacesSupercat)
	api.GET("/logs", controllers.GETLogs)
	api.GET("/logs/:trip", controllers.GETLog)
	api.GET("/search", controllers.GETSearch)

	trips := api.Group("/trips", requireUser(config))
	trips.GET("", controllers.GETTrips)
	trips.POST("", controllers.POSTTrip)
	trips.GET("/:id", controllers.GETTrip)
	trips.DELETE("/:id", controllers.DELETETrip)

	if config.DevServer.Enabled {
		api.GET("/dev-server", controllers.GETDevServer)
		api.POST("/dev-server", controllers.POSTDevServer)
	}

	r.NoRoute(func(c *gin.Context) {
		slog.Warn("Not Found", "path", c.Request.URL.Path)
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
	})
}
