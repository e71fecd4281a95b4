package services

import (
	"context"
	"fmt"

	"github.com/localnerve/layersync/internal/catalog"
	"github.com/localnerve/layersync/internal/config"
	"github.com/localnerve/layersync/internal/logging"
	"github.com/localnerve/layersync/internal/utils"
	"gorm.io/gorm"
)

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Status       string            `json:"status"`
	Database     string            `json:"database"`
	GeoServer    string            `json:"geoserver"`
	Authorizer   string            `json:"authorizer,omitempty"`
	Details      map[string]string `json:"details,omitempty"`
	ErrorMessage string            `json:"error,omitempty"`
}

func (r *HealthCheckResult) fail(part, message string, err error) {
	r.Status = "unhealthy"
	r.Details[part+"_error"] = err.Error()
	msg := fmt.Sprintf("%s: %v", message, err)
	if r.ErrorMessage == "" {
		r.ErrorMessage = msg
	} else {
		r.ErrorMessage += "; " + msg
	}
	logging.Component("health").Warnf("Health check failed - %s", msg)
}

// HealthCheck checks the local database, the catalog of the OGC server and,
// when configured, the authorizer.
func HealthCheck(ctx context.Context, cfg *config.Config, db *gorm.DB, cat catalog.Catalog) HealthCheckResult {
	result := HealthCheckResult{
		Status:  "healthy",
		Details: make(map[string]string),
	}

	// Check database connectivity
	sqlDB, err := db.DB()
	if err != nil {
		result.Database = "error"
		result.fail("database", "Database connection error", err)
	} else if err := sqlDB.PingContext(ctx); err != nil {
		result.Database = "unreachable"
		result.fail("database", "Database ping failed", err)
	} else {
		result.Database = "ok"
		result.Details["database_type"] = cfg.DBType
		result.Details["database_name"] = cfg.DBDatabase
	}

	// Check the OGC server: reachable, then the default workspace exists
	if err := utils.PingService(ctx, cfg.GeoServerLocation, cfg.GeoServerTimeout); err != nil {
		result.GeoServer = "unreachable"
		result.fail("geoserver", "GeoServer ping failed", err)
	} else if ws, err := cat.GetWorkspace(ctx, cfg.GeoServerWorkspace); err != nil {
		result.GeoServer = "error"
		result.fail("geoserver", "GeoServer catalog request failed", err)
	} else if ws == nil {
		result.GeoServer = "error"
		result.fail("geoserver", "GeoServer workspace missing", fmt.Errorf("workspace %s not found", cfg.GeoServerWorkspace))
	} else {
		result.GeoServer = "ok"
		result.Details["geoserver_location"] = cfg.GeoServerLocation
	}

	if cfg.AuthzURL != "" {
		if err := utils.PingAuthorizer(ctx, cfg.AuthzURL); err != nil {
			result.Authorizer = "unreachable"
			result.fail("authorizer", "Authorizer ping failed", err)
		} else {
			result.Authorizer = "ok"
			result.Details["authorizer_url"] = cfg.AuthzURL
		}
	}

	if result.Status == "healthy" {
		logging.Component("health").Info("Health check passed - all systems operational")
	}
	return result
}
