package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"ragdesk/internal/bootstrap"
	"ragdesk/internal/transport/http/response"
)

type HealthHandler struct {
	app *bootstrap.App
}

func NewHealthHandler(app *bootstrap.App) *HealthHandler {
	return &HealthHandler{app: app}
}

func (h *HealthHandler) Check(c *gin.Context) {
	response.OK(c, gin.H{
		"status":    "ok",
		"app":       h.app.Config.App.Name,
		"env":       h.app.Config.App.Env,
		"uptime_s":  int(time.Since(h.app.StartedAt).Seconds()),
		"timestamp": time.Now().Unix(),
	})
}
