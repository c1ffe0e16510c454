package controllers

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/USA-RedDragon/camper-server/internal/triplog"
	"github.com/gin-gonic/gin"
)

func GETLogs(c *gin.Context) {
	logs, ok := fromContext[*triplog.Queue](c, "triplog")
	if !ok {
		return
	}
	entries, summary, err := logs.List(c.Request.Context())
	if err != nil {
		slog.Error("Failed to list trip logs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": entries, "summary": summary})
}

func GETLog(c *gin.Context) {
	logs, ok := fromContext[*triplog.Queue](c, "triplog")
	if !ok {
		return
	}
	entry, err := logs.Get(c.Request.Context(), c.Param("trip"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Log not found"})
			return
		}
		slog.Error("Failed to read trip log", "trip", c.Param("trip"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}
	c.JSON(http.StatusOK, entry)
}
