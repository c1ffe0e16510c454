package controllers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/USA-RedDragon/camper-server/internal/places"
	"github.com/gin-gonic/gin"
)

func GETSupercats(c *gin.Context) {
	supercats := gin.H{}
	for _, name := range places.Supercats() {
		types, _ := places.Types(name)
		supercats[name] = types
	}
	c.JSON(http.StatusOK, gin.H{"supercats": supercats})
}

func POSTPlacesSupercat(c *gin.Context) {
	svc, ok := fromContext[*places.Service](c, "places")
	if !ok {
		return
	}

	var req places.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	resp, err := svc.Search(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, places.ErrUnknownSupercat),
			errors.Is(err, places.ErrInvalidCenter),
			errors.Is(err, places.ErrInvalidRadius):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			slog.Error("Failed to search places", "supercat", req.Supercat, "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "Places search failed"})
		}
		return
	}
	c.JSON(http.StatusOK, resp)
}
