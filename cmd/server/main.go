// main.go
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

package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	swagger "github.com/gofiber/swagger"
	"github.com/joho/godotenv"
	"github.com/localnerve/layersync/internal/app"
	"github.com/localnerve/layersync/internal/config"
	"github.com/localnerve/layersync/internal/handlers"
	"github.com/localnerve/layersync/internal/logging"
	"github.com/localnerve/layersync/internal/services"

	_ "github.com/localnerve/layersync/docs/api" // Swagger docs
)

// @title Layersync API
// @version 1.0.0
// @description Keeps GeoServer layers and the local layer registry in sync
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/localnerve/layersync
// @contact.email info@localnerve.com

// @license.name AGPL-3.0
// @license.url https://www.gnu.org/licenses/agpl-3.0.html

// @host localhost:3000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name cookie_session

func main() {
	// A .env file is optional
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Setup("info", "text").Fatalf("Failed to load configuration: %v", err)
	}
	log := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer a.Close()

	server := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
		BodyLimit:    512 * 1024 * 1024,
	})

	// Global middleware
	server.Use(recover.New())
	server.Use(logger.New())
	server.Use(compress.New())

	// Prometheus metrics, served alongside the sync counters
	prometheus := fiberprometheus.New("layersync")
	prometheus.RegisterAt(server, "/metrics")
	server.Use(prometheus.Middleware)

	// Swagger documentation
	server.Get("/swagger/*", swagger.HandlerDefault)

	handlers.Register(server, handlers.Deps{
		Config:     cfg,
		DB:         a.DB,
		Catalog:    a.Catalog,
		Service:    a.Service,
		Authorizer: services.NewAuthorizer(cfg),
	})
	server.Use(handlers.NotFound)

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		log.Info("Gracefully shutting down...")
		_ = server.Shutdown()
	}()

	log.Infof("Starting server on port %s", cfg.Port)
	if err := server.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	log.Info("Server stopped")
}
