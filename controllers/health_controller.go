package controllers

import (
	"context"
	"net/http"
	"time"

	"matte/utils"
	"matte/workers"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// StoragePinger is the part of the storage backend the health check needs.
type StoragePinger interface {
	Ping(ctx context.Context) error
	Name() string
}

// ActionStatsProvider reports the action hand-off queue state.
type ActionStatsProvider interface {
	GetStats() workers.ActionWorkerStats
}

type HealthController struct {
	storage   StoragePinger
	actions   ActionStatsProvider
	version   string
	startedAt time.Time
}

func NewHealthController(storage StoragePinger, actions ActionStatsProvider, version string) *HealthController {
	return &HealthController{
		storage:   storage,
		actions:   actions,
		version:   version,
		startedAt: time.Now(),
	}
}

// HealthCheck reports 200 while the storage backend answers, 503 otherwise.
func (hc *HealthController) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	services := map[string]string{}
	if hc.storage != nil {
		name := hc.storage.Name()
		if err := hc.storage.Ping(ctx); err != nil {
			logrus.Warnf("Health check: %s unreachable: %v", name, err)
			services[name] = "unhealthy"
		} else {
			services[name] = "healthy"
		}
	}

	response := utils.HealthCheckResponse(services, hc.version, time.Since(hc.startedAt).Round(time.Second).String())

	status := http.StatusOK
	if response.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}

	body := gin.H{"health": response}
	if hc.actions != nil {
		body["actions"] = hc.actions.GetStats()
	}
	c.JSON(status, body)
}
