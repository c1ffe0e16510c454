package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/USA-RedDragon/camper-server/internal/searchindex"
	"github.com/gin-gonic/gin"
)

func GETSearch(c *gin.Context) {
	loader, ok := fromContext[*searchindex.Loader](c, "search")
	if !ok {
		return
	}
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}
	index, err := loader.Get()
	if err != nil {
		slog.Warn("Search index unavailable", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Search index unavailable"})
		return
	}
	results := index.Search(query)
	if results == nil {
		results = []searchindex.Document{}
	}
	c.JSON(http.StatusOK, gin.H{"query": query, "results": results})
}
