// Package ogc discovers layer schemas through the OGC services (WFS, WMS,
// WCS) and ArcGIS REST endpoints.
package ogc

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/localnerve/layersync/internal/logging"
	"github.com/sirupsen/logrus"
)

// ArcRESTSource is the remote service type of ArcGIS REST services.
const ArcRESTSource = "gxp_arcrestsource"

// Field is one discovered attribute.
type Field struct {
	Name string
	Type string
}

// Target identifies the layer whose schema is discovered.
type Target struct {
	Typename    string
	StoreType   string
	ServiceURL  string // base URL of a cascaded remote service
	ServiceType string
	BBox        [4]float64 // x0, x1, y0, y1
}

type strategy struct {
	name string
	run  func(ctx context.Context, serverURL string, t Target) ([]Field, error)
}

// Discoverer runs the ordered strategy chain for a layer's store type.
type Discoverer struct {
	location string
	http     *http.Client
	log      *logrus.Entry
}

// NewDiscoverer builds a discoverer for the server rooted at location
// (".../geoserver/").
func NewDiscoverer(location string, client *http.Client) *Discoverer {
	if client == nil {
		client = http.DefaultClient
	}
	return &Discoverer{location: location, http: client, log: logging.Component("ogc")}
}

func (d *Discoverer) chain(t Target) []strategy {
	switch {
	case t.StoreType == "remoteStore" && t.ServiceType == ArcRESTSource:
		return []strategy{{"arcgis", d.arcgis}}
	case t.StoreType == "dataStore" || t.StoreType == "remoteStore" || t.StoreType == "wmsStore":
		return []strategy{{"wfs", d.describeFeatureType}, {"wms", d.getFeatureInfo}}
	case t.StoreType == "coverageStore":
		return []strategy{{"wcs", d.describeCoverage}}
	}
	return nil
}

// Discover returns the layer's fields from the first strategy that yields any.
// When every strategy fails or comes back empty the result is empty.
func (d *Discoverer) Discover(ctx context.Context, t Target) []Field {
	serverURL := d.location
	if t.StoreType == "remoteStore" {
		serverURL = t.ServiceURL
	}
	for _, s := range d.chain(t) {
		fields, err := s.run(ctx, serverURL, t)
		if err == nil && len(fields) > 0 {
			return fields
		}
		if err == nil {
			continue
		}
		d.log.WithFields(logrus.Fields{"typename": t.Typename, "strategy": s.name}).WithError(err).Debug("attribute discovery failed")
	}
	return nil
}

func (d *Discoverer) get(ctx context.Context, u string) ([]byte, error) {
	return fetch(ctx, d.http, u)
}

func fetch(ctx context.Context, client *http.Client, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("GET %s: status %d", u, resp.StatusCode)
	}
	return body, nil
}

var trailingWMS = regexp.MustCompile(`/wms/?$`)

// WFSURL is the DescribeFeatureType request for typename on serverURL.
func WFSURL(serverURL, typename string) string {
	q := url.Values{
		"service":  {"wfs"},
		"version":  {"1.0.0"},
		"request":  {"DescribeFeatureType"},
		"typename": {typename},
	}
	return trailingWMS.ReplaceAllString(serverURL, "/") + "wfs?" + q.Encode()
}

// WMSFeatureInfoURL is the 1x1 pixel GetFeatureInfo request used to read
// field names from the HTML table headers.
func WMSFeatureInfoURL(serverURL string, t Target) string {
	bbox := make([]string, len(t.BBox))
	for i, v := range t.BBox {
		bbox[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	q := url.Values{
		"service":       {"wms"},
		"version":       {"1.0.0"},
		"request":       {"GetFeatureInfo"},
		"bbox":          {strings.Join(bbox, ",")},
		"LAYERS":        {t.Typename},
		"QUERY_LAYERS":  {t.Typename},
		"feature_count": {"1"},
		"width":         {"1"},
		"height":        {"1"},
		"srs":           {"EPSG:4326"},
		"info_format":   {"text/html"},
		"x":             {"1"},
		"y":             {"1"},
	}
	return serverURL + "?" + q.Encode()
}

// WCSDescribeURL is the WCS 1.1.0 DescribeCoverage request for typename.
func WCSDescribeURL(serverURL, typename string) string {
	q := url.Values{
		"service":     {"wcs"},
		"version":     {"1.1.0"},
		"request":     {"DescribeCoverage"},
		"identifiers": {typename},
	}
	return serverURL + "wcs?" + q.Encode()
}
