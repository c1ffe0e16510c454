package controllers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/USA-RedDragon/camper-server/internal/devserver"
	"github.com/gin-gonic/gin"
)

type devServerAction struct {
	Action string `json:"action" binding:"required"`
}

func GETDevServer(c *gin.Context) {
	supervisor, ok := fromContext[*devserver.Supervisor](c, "devserver")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, supervisor.Status(c.Request.Context()))
}

func POSTDevServer(c *gin.Context) {
	supervisor, ok := fromContext[*devserver.Supervisor](c, "devserver")
	if !ok {
		return
	}

	var req devServerAction
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	switch req.Action {
	case "start":
		status, err := supervisor.Start()
		switch {
		case errors.Is(err, devserver.ErrAlreadyRunning):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "status": status})
		case errors.Is(err, devserver.ErrNoCommand):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		case err != nil:
			slog.Error("Failed to start development server", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		default:
			c.JSON(http.StatusOK, status)
		}
	case "stop":
		err := supervisor.Stop(c.Request.Context())
		switch {
		case errors.Is(err, devserver.ErrNotRunning):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case err != nil:
			slog.Error("Failed to stop development server", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		default:
			c.JSON(http.StatusOK, supervisor.Status(c.Request.Context()))
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "action must be start or stop"})
	}
}
