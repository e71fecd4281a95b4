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
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/localnerve/layersync/internal/config"
	"github.com/localnerve/layersync/internal/database"
	"github.com/localnerve/layersync/internal/geoserver"
	"github.com/localnerve/layersync/internal/logging"
	"github.com/localnerve/layersync/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logging.Setup("info", "text").Fatalf("Failed to load configuration: %v", err)
	}
	log := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	// Connect to the registry database, no migration
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	cat := geoserver.New(cfg.RestURL(), cfg.GeoServerUser, cfg.GeoServerPassword, cfg.GeoServerWorkspace, cfg.GeoServerTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.GeoServerTimeout)
	defer cancel()

	// Perform health check
	result := services.HealthCheck(ctx, cfg, db, cat)

	// Output result as JSON
	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal health check result: %v", err)
	}

	fmt.Println(string(output))

	// Exit with appropriate code
	if result.Status != "healthy" {
		os.Exit(1)
	}
}
