package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/facturante/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// SystemHandler handles system-related API endpoints
type SystemHandler struct {
	BaseHandler
	appName   string
	version   string
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(appName, version string) *SystemHandler {
	return &SystemHandler{
		appName:   appName,
		version:   version,
		startTime: time.Now(),
	}
}

// RegisterRoutes registers system routes
func (h *SystemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	system := rg.Group("/system")
	{
		system.GET("/info", h.GetSystemInfo)
		system.GET("/ping", h.Ping)
	}
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string `json:"name" example:"Facturante Backend"`
	Version   string `json:"version" example:"1.0.0"`
	GoVersion string `json:"go_version" example:"go1.25.5"`
	Uptime    string `json:"uptime" example:"1h30m45s"`
}

// GetSystemInfo returns basic system information including version and uptime
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	info := SystemInfoResponse{
		Name:      h.appName,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(info))
}

// PingResponse represents the ping response
type PingResponse struct {
	Message   string `json:"message" example:"pong"`
	Timestamp string `json:"timestamp" example:"2026-01-23T12:00:00Z"`
}

// Ping is a simple liveness check
func (h *SystemHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(PingResponse{
		Message:   "pong",
		Timestamp: time.Now().Format(time.RFC3339),
	}))
}
