// Package app wires the configured collaborators into a sync service. The
// server and the command line tool share it.
package app

import (
	"net/http"

	"github.com/localnerve/layersync/internal/config"
	"github.com/localnerve/layersync/internal/csw"
	"github.com/localnerve/layersync/internal/database"
	"github.com/localnerve/layersync/internal/geoserver"
	"github.com/localnerve/layersync/internal/logging"
	"github.com/localnerve/layersync/internal/ogc"
	"github.com/localnerve/layersync/internal/postgis"
	"github.com/localnerve/layersync/internal/records"
	"github.com/localnerve/layersync/internal/services"
	"github.com/localnerve/layersync/internal/wps"
	"gorm.io/gorm"
)

// App holds the long-lived handles of the process.
type App struct {
	Config  *config.Config
	DB      *gorm.DB
	Catalog *geoserver.Client
	Service *services.Service
}

// New connects to the database, migrates it and builds the service.
func New(cfg *config.Config) (*App, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(db); err != nil {
		_ = database.Close(db)
		return nil, err
	}
	a := &App{Config: cfg, DB: db}
	a.Catalog = geoserver.New(cfg.RestURL(), cfg.GeoServerUser, cfg.GeoServerPassword, cfg.GeoServerWorkspace, cfg.GeoServerTimeout)
	a.Service = services.New(Options(cfg, a.Catalog, records.New(db)))
	return a, nil
}

// Options builds the service options from configuration. Optional
// collaborators stay unset when their endpoint is not configured.
func Options(cfg *config.Config, cat *geoserver.Client, store *records.Store) services.Options {
	client := &http.Client{Timeout: cfg.GeoServerTimeout}
	opts := services.Options{
		Catalog:    cat,
		Records:    store,
		Discoverer: ogc.NewDiscoverer(cfg.GeoServerLocation, client),
		Stats:      wps.New(cfg.OWSURL(), cfg.GeoServerUser, cfg.GeoServerPassword, cfg.WPSEnabled, cfg.GeoServerTimeout),
		Coverages:  ogc.NewWCSLookup(cfg.PublicWCSURL(), cfg.WCSRetryDelay, client),
		Log:        logging.Component("services"),
	}
	if cfg.GeoServerDatastore != "" {
		opts.Datastore = cfg.GeoServerDatastore
		opts.DatastoreParams = cfg.DatastoreParams()
		opts.Dropper = postgis.NewDropper(cfg.DatastoreConnString())
	}
	if cfg.CatalogueURL != "" {
		opts.Metadata = csw.New(cfg.CatalogueURL, cfg.GeoServerTimeout)
	}
	return opts
}

// Close releases the database connection.
func (a *App) Close() error {
	return database.Close(a.DB)
}
