// common.go
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

package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/layersync/internal/catalog"
	"github.com/localnerve/layersync/internal/records"
	"github.com/localnerve/layersync/internal/services"
	"github.com/localnerve/layersync/internal/styles"
	"github.com/localnerve/layersync/internal/utils"
)

// queryBool reads a boolean query parameter, accepting the usual spellings.
func queryBool(c *fiber.Ctx, key string, def bool) bool {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// splitList splits comma-separated values, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// statusFor maps service errors onto HTTP statuses.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, records.ErrNotFound):
		return fiber.StatusNotFound, "notFound"
	case errors.Is(err, services.ErrLocalRecordExists):
		return fiber.StatusConflict, "localRecordExists"
	case errors.Is(err, services.ErrNameConflict):
		return fiber.StatusConflict, "nameConflict"
	case errors.Is(err, services.ErrTypeMismatch):
		return fiber.StatusUnprocessableEntity, "typeMismatch"
	case errors.Is(err, services.ErrProjectionUnresolvable):
		return fiber.StatusUnprocessableEntity, "projectionUnresolvable"
	case errors.Is(err, services.ErrResourceMissing):
		return fiber.StatusUnprocessableEntity, "resourceMissing"
	case errors.Is(err, services.ErrUploadFailed):
		return fiber.StatusBadRequest, "uploadFailed"
	case errors.Is(err, services.ErrNotCoverage), errors.Is(err, styles.ErrMalformedStyle):
		return fiber.StatusBadRequest, "badRequest"
	case errors.Is(err, catalog.ErrRequestFailed):
		return fiber.StatusBadGateway, "geoserver"
	}
	return fiber.StatusInternalServerError, "unknown"
}

// errorResponse renders err with the status it maps to.
func errorResponse(c *fiber.Ctx, err error) error {
	status, errorType := statusFor(err)
	return utils.ErrorResponse(c, err.Error(), status, errorType)
}
