package controllers

import (
	"net/http"

	"github.com/aidoc/backend-go/internal/database"
)

// HealthController 健康检查
type HealthController struct {
	BaseController
}

// Health 检查数据库与Redis连通性
func (c *HealthController) Health() {
	checks := map[string]string{
		"database": "ok",
		"redis":    "ok",
	}
	healthy := true

	if database.DB == nil {
		checks["database"] = "not initialized"
		healthy = false
	} else if sqlDB, err := database.DB.DB(); err != nil || sqlDB.Ping() != nil {
		checks["database"] = "unreachable"
		healthy = false
	}

	if database.RedisClient == nil {
		checks["redis"] = "not initialized"
		healthy = false
	} else if err := database.RedisClient.Ping(c.Ctx.Request.Context()).Err(); err != nil {
		checks["redis"] = "unreachable"
		healthy = false
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, map[string]interface{}{
		"healthy": healthy,
		"checks":  checks,
	})
}
