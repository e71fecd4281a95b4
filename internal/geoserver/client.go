// client.go
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

// Package geoserver implements catalog.Catalog over the GeoServer REST API.
package geoserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/localnerve/layersync/internal/catalog"
	"github.com/localnerve/layersync/internal/logging"
	"github.com/sirupsen/logrus"
)

// Client talks to one GeoServer instance.
type Client struct {
	restURL   string
	user      string
	password  string
	workspace string
	http      *http.Client
	log       *logrus.Entry
}

// New returns a client for the REST endpoint restURL (".../geoserver/rest").
// Uploads without an explicit workspace go to the default workspace.
func New(restURL, user, password, workspace string, timeout time.Duration) *Client {
	return &Client{
		restURL:   strings.TrimSuffix(restURL, "/"),
		user:      user,
		password:  password,
		workspace: workspace,
		http:      &http.Client{Timeout: timeout},
		log:       logging.Component("geoserver"),
	}
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	accept      string
}

// do runs a request and returns the body. A 404 is reported as found=false
// with no error; other statuses >= 400 are RequestErrors.
func (c *Client) do(ctx context.Context, r request) (body []byte, found bool, err error) {
	u := c.restURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u, r.body)
	if err != nil {
		return nil, false, err
	}
	req.SetBasicAuth(c.user, c.password)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.accept != "" {
		req.Header.Set("Accept", r.accept)
	} else {
		req.Header.Set("Accept", "application/json")
	}

	c.log.WithFields(logrus.Fields{"method": r.method, "url": u}).Debug("catalog request")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, false, &catalog.RequestError{Method: r.method, URL: u, Err: err}
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, &catalog.RequestError{Method: r.method, URL: u, Err: err}
	}
	if resp.StatusCode == http.StatusNotFound {
		return body, false, nil
	}
	if resp.StatusCode >= 400 {
		return body, false, &catalog.RequestError{Method: r.method, URL: u, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, true, nil
}

// getJSON fetches path and decodes it into v, reporting whether it existed.
func (c *Client) getJSON(ctx context.Context, path string, v any) (bool, error) {
	body, found, err := c.do(ctx, request{method: http.MethodGet, path: path})
	if err != nil || !found {
		return false, err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", path, err)
	}
	return true, nil
}

// sendJSON sends v as the body of a POST or PUT.
func (c *Client) sendJSON(ctx context.Context, method, path string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, found, err := c.do(ctx, request{method: method, path: path, body: bytes.NewReader(payload), contentType: "application/json"})
	if err != nil {
		return conflictOr(err)
	}
	if !found {
		return &catalog.RequestError{Method: method, URL: c.restURL + path, Status: http.StatusNotFound}
	}
	return nil
}

// del issues a DELETE; a missing entity is not an error.
func (c *Client) del(ctx context.Context, path string, query url.Values) error {
	_, _, err := c.do(ctx, request{method: http.MethodDelete, path: path, query: query})
	return err
}

// conflictOr tags "already exists" responses as catalog.ErrConflict.
func conflictOr(err error) error {
	reqErr, ok := err.(*catalog.RequestError)
	if !ok {
		return err
	}
	if reqErr.Status == http.StatusConflict || strings.Contains(strings.ToLower(reqErr.Body), "already exists") {
		return fmt.Errorf("%w: %w", catalog.ErrConflict, err)
	}
	return err
}

// uploadErr tags failed uploads as catalog.ErrUpload unless they conflict.
func uploadErr(err error) error {
	tagged := conflictOr(err)
	if tagged != err {
		return tagged
	}
	return fmt.Errorf("%w: %w", catalog.ErrUpload, err)
}

func esc(s string) string {
	return url.PathEscape(s)
}

// splitQualified splits "ws:name" into its parts.
func splitQualified(name string) (workspace, local string) {
	if i := strings.Index(name, ":"); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}
