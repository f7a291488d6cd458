package handler

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/induservicios/backend/internal/infrastructure/scheduler"
	"github.com/induservicios/backend/internal/interfaces/http/dto"
)

const healthCheckTimeout = 3 * time.Second

// HealthCheck probes one dependency
type HealthCheck struct {
	Name string
	// Optional checks report their state without failing the probe
	Optional bool
	Check    func(ctx context.Context) error
}

// TaskRunner exposes the background scheduler
type TaskRunner interface {
	Status() []scheduler.TaskStatus
	RunNow(ctx context.Context, name string) error
}

// SystemHandler handles health, info and scheduler endpoints
type SystemHandler struct {
	BaseHandler
	name      string
	version   string
	checks    []HealthCheck
	tasks     TaskRunner
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler. tasks may be nil.
func NewSystemHandler(name, version string, tasks TaskRunner, checks ...HealthCheck) *SystemHandler {
	return &SystemHandler{
		name:      name,
		version:   version,
		checks:    checks,
		tasks:     tasks,
		startTime: time.Now(),
	}
}

// RegisterRoutes mounts the system routes
func (h *SystemHandler) RegisterRoutes(public, admin gin.IRoutes) {
	public.GET("/health", h.Health)
	public.GET("/system/ping", h.Ping)
	admin.GET("/admin/system/info", h.Info)
	admin.GET("/admin/system/tasks", h.Tasks)
	admin.POST("/admin/system/tasks/:name/run", h.RunTask)
}

// SystemInfoResponse describes the running build
type SystemInfoResponse struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

// HealthResponse is the body of /health
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health runs the dependency checks. A failing required check answers 503.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	resp := HealthResponse{Status: "healthy", Checks: make(map[string]string, len(h.checks))}
	status := http.StatusOK
	for _, chk := range h.checks {
		if err := chk.Check(ctx); err != nil {
			resp.Checks[chk.Name] = err.Error()
			if chk.Optional {
				if resp.Status == "healthy" {
					resp.Status = "degraded"
				}
				continue
			}
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[chk.Name] = "ok"
	}
	c.JSON(status, resp)
}

// Ping answers pong
func (h *SystemHandler) Ping(c *gin.Context) {
	h.Success(c, gin.H{"message": "pong", "timestamp": time.Now().Format(time.RFC3339)})
}

// Info returns build and uptime information
func (h *SystemHandler) Info(c *gin.Context) {
	h.Success(c, SystemInfoResponse{
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	})
}

// Tasks lists the scheduled tasks and their last outcome
func (h *SystemHandler) Tasks(c *gin.Context) {
	if h.tasks == nil {
		h.Success(c, []scheduler.TaskStatus{})
		return
	}
	h.Success(c, h.tasks.Status())
}

// RunTask runs a scheduled task immediately
func (h *SystemHandler) RunTask(c *gin.Context) {
	if h.tasks == nil {
		h.NotFound(c, "Scheduler is not running")
		return
	}
	name := c.Param("name")
	err := h.tasks.RunNow(c.Request.Context(), name)
	switch {
	case errors.Is(err, scheduler.ErrTaskNotFound):
		h.NotFound(c, "Task not found")
	case err != nil:
		h.Error(c, http.StatusBadGateway, dto.ErrCodeInternal, err.Error())
	default:
		h.Success(c, gin.H{"task": name, "ran": true})
	}
}
