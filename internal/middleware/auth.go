// auth.go
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

package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/layersync/internal/services"
	"github.com/localnerve/layersync/internal/types"
)

// AuthAdmin validates that the request has admin role authorization. A nil
// authorizer leaves the routes open.
func AuthAdmin(authz *services.Authorizer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if authz == nil {
			return c.Next()
		}
		return authorize(c, authz, []string{"admin"}, "layers.authorization.admin")
	}
}

// authorize performs the authorization check
func authorize(c *fiber.Ctx, authz *services.Authorizer, roles []string, errorType string) error {
	session := c.Cookies("cookie_session")
	if session == "" {
		return &types.CustomError{
			Code:    fiber.StatusForbidden,
			Message: "Authorizer cookie \"cookie_session\" not found",
			Type:    errorType,
		}
	}

	if err := authz.Init(c.UserContext(), c.Protocol(), c.Hostname()); err != nil {
		return &types.CustomError{
			Code:    fiber.StatusServiceUnavailable,
			Message: err.Error(),
			Type:    errorType,
			Err:     err,
		}
	}

	data, err := authz.ValidateSession(session, roles)
	if err != nil {
		return &types.CustomError{
			Code:    fiber.StatusForbidden,
			Message: fmt.Sprintf("Invalid session: %v", err),
			Type:    errorType,
			Err:     err,
		}
	}

	if user, ok := data["user"]; ok {
		c.Locals("user", user)
	}
	return c.Next()
}
