// config.go
//
// Keeps GeoServer layers and the local layer registry in sync
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of layersync.
// layersync is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// layersync is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with layersync.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port      string
	LogLevel  string
	LogFormat string

	// Database configuration
	DBType            string // mysql, postgres, sqlite, sqlserver, etc.
	DBHost            string
	DBPort            string
	DBDatabase        string
	DBUser            string
	DBPassword        string
	DBConnectionLimit int

	// OGC server (GeoServer) configuration
	GeoServerLocation       string
	GeoServerPublicLocation string
	GeoServerUser           string
	GeoServerPassword       string
	GeoServerWorkspace      string
	GeoServerDatastore      string // name of the database-backed feature store, empty for none
	GeoServerTimeout        time.Duration
	WPSEnabled              bool
	WCSRetryDelay           time.Duration

	// Datastore database, the one GeoServer's database-backed store writes into
	DatastoreHost     string
	DatastorePort     string
	DatastoreName     string
	DatastoreUser     string
	DatastorePassword string
	DatastoreEngine   string

	// Metadata catalogue (CSW) endpoint, empty disables record removal
	CatalogueURL string

	// Authorizer configuration, empty disables admin session checks
	AuthzURL      string
	AuthzClientID string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:                    getEnv("PORT", "3000"),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		LogFormat:               getEnv("LOG_FORMAT", "text"),
		DBType:                  getEnv("DB_TYPE", "postgres"),
		DBHost:                  getEnv("DB_HOST", "localhost"),
		DBPort:                  getEnv("DB_PORT", "5432"),
		DBDatabase:              getEnv("DB_DATABASE", ""),
		DBUser:                  getEnv("DB_USER", ""),
		DBPassword:              getEnv("DB_PASSWORD", ""),
		DBConnectionLimit:       getEnvAsInt("DB_CONNECTION_LIMIT", 5),
		GeoServerLocation:       withTrailingSlash(getEnv("GEOSERVER_LOCATION", "http://localhost:8080/geoserver/")),
		GeoServerPublicLocation: withTrailingSlash(getEnv("GEOSERVER_PUBLIC_LOCATION", "")),
		GeoServerUser:           getEnv("GEOSERVER_USER", "admin"),
		GeoServerPassword:       getEnv("GEOSERVER_PASSWORD", "geoserver"),
		GeoServerWorkspace:      getEnv("GEOSERVER_WORKSPACE", "geonode"),
		GeoServerDatastore:      getEnv("GEOSERVER_DATASTORE", ""),
		GeoServerTimeout:        getEnvAsDuration("GEOSERVER_TIMEOUT", 60*time.Second),
		WPSEnabled:              getEnvAsBool("GEOSERVER_WPS_ENABLED", false),
		WCSRetryDelay:           getEnvAsDuration("WCS_RETRY_DELAY", 2*time.Second),
		DatastoreHost:           getEnv("DATASTORE_DB_HOST", "localhost"),
		DatastorePort:           getEnv("DATASTORE_DB_PORT", "5432"),
		DatastoreName:           getEnv("DATASTORE_DB_NAME", ""),
		DatastoreUser:           getEnv("DATASTORE_DB_USER", ""),
		DatastorePassword:       getEnv("DATASTORE_DB_PASSWORD", ""),
		DatastoreEngine:         getEnv("DATASTORE_DB_ENGINE", "postgis"),
		CatalogueURL:            getEnv("CATALOGUE_URL", ""),
		AuthzURL:                getEnv("AUTHZ_URL", ""),
		AuthzClientID:           getEnv("AUTHZ_CLIENT_ID", ""),
	}

	if cfg.GeoServerPublicLocation == "" {
		cfg.GeoServerPublicLocation = cfg.GeoServerLocation
	}

	// Validate required fields
	if cfg.DBDatabase == "" {
		return nil, fmt.Errorf("DB_DATABASE is required")
	}
	if cfg.DBType != "sqlite" && cfg.DBUser == "" {
		return nil, fmt.Errorf("DB_USER is required")
	}
	if cfg.GeoServerDatastore != "" && cfg.DatastoreName == "" {
		return nil, fmt.Errorf("DATASTORE_DB_NAME is required when GEOSERVER_DATASTORE is set")
	}
	if (cfg.AuthzURL == "") != (cfg.AuthzClientID == "") {
		return nil, fmt.Errorf("AUTHZ_URL and AUTHZ_CLIENT_ID must be set together")
	}

	return cfg, nil
}

// RestURL is the base of the GeoServer REST API.
func (c *Config) RestURL() string {
	return c.GeoServerLocation + "rest"
}

// OWSURL is the shared OGC service endpoint.
func (c *Config) OWSURL() string {
	return c.GeoServerLocation + "ows"
}

// PublicWCSURL is the WCS endpoint as advertised to clients.
func (c *Config) PublicWCSURL() string {
	return c.GeoServerPublicLocation + "wcs"
}

// DatastoreParams are the connection parameters GeoServer needs to create the
// database-backed feature store.
func (c *Config) DatastoreParams() map[string]string {
	return map[string]string{
		"host":     c.DatastoreHost,
		"port":     c.DatastorePort,
		"database": c.DatastoreName,
		"user":     c.DatastoreUser,
		"passwd":   c.DatastorePassword,
		"dbtype":   c.DatastoreEngine,
	}
}

// DatastoreConnString is the pgx connection string for the datastore database.
func (c *Config) DatastoreConnString() string {
	return fmt.Sprintf("host=%s port=%s dbname=%s user=%s password=%s sslmode=disable",
		c.DatastoreHost, c.DatastorePort, c.DatastoreName, c.DatastoreUser, c.DatastorePassword)
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go durations ("90s") or a bare number of seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func withTrailingSlash(s string) string {
	if s == "" || strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}
