package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/USA-RedDragon/camper-server/internal/geocache"
	"github.com/USA-RedDragon/camper-server/internal/google"
	"github.com/USA-RedDragon/camper-server/internal/utils"
	"github.com/gin-gonic/gin"
)

func GETReverseGeocode(c *gin.Context) {
	geocoder, ok := fromContext[*geocache.CachedGeocoder](c, "geocoder")
	if !ok {
		return
	}

	lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
	lng, lngErr := strconv.ParseFloat(c.Query("lng"), 64)
	if latErr != nil || lngErr != nil || !(utils.LatLng{Lat: lat, Lng: lng}).Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lng must be valid coordinates"})
		return
	}

	city, hit, err := geocoder.Lookup(c.Request.Context(), lat, lng)
	if err != nil {
		var noResults *google.ErrNoResults
		if errors.As(err, &noResults) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No city found at these coordinates"})
			return
		}
		slog.Error("Failed to reverse geocode", "lat", lat, "lng", lng, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Geocoding failed"})
		return
	}

	source := "google"
	if hit {
		source = "cache"
	}
	c.JSON(http.StatusOK, gin.H{
		"city": city,
		"key":  geocache.Key(lat, lng),
		"cache": gin.H{
			"hit":    hit,
			"source": source,
		},
	})
}
