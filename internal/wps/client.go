// Package wps derives attribute statistics through the server's WPS
// gs:Aggregate and gs:Unique processes.
package wps

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/localnerve/layersync/data"
	"github.com/localnerve/layersync/internal/logging"
	"github.com/sirupsen/logrus"
)

// ErrUnavailable is returned when WPS is disabled.
var ErrUnavailable = errors.New("wps is not enabled")

// UniqueValuesLimit is the feature count at or above which unique values are
// not computed.
const UniqueValuesLimit = 10000

// NotAvailable marks a statistic the server did not return.
const NotAvailable = "NA"

var requests = template.Must(template.ParseFS(data.WPS, "wps/*.xml"))

// Statistics are the aggregate values of one attribute.
type Statistics struct {
	Count        int64
	Min          string
	Max          string
	Average      string
	Median       string
	StdDev       string
	Sum          string
	UniqueValues string
	Updated      time.Time
}

// Client executes WPS requests against the OWS endpoint.
type Client struct {
	owsURL  string
	enabled bool
	user    string
	pass    string
	http    *http.Client
	log     *logrus.Entry
}

// New returns a client for owsURL; a disabled client always returns ErrUnavailable.
func New(owsURL, user, password string, enabled bool, timeout time.Duration) *Client {
	return &Client{
		owsURL:  owsURL,
		enabled: enabled,
		user:    user,
		pass:    password,
		http:    &http.Client{Timeout: timeout},
		log:     logging.Component("wps"),
	}
}

type aggregationResults struct {
	XMLName           xml.Name `xml:"AggregationResults"`
	Min               *string  `xml:"Min"`
	Max               *string  `xml:"Max"`
	Average           *string  `xml:"Average"`
	Median            *string  `xml:"Median"`
	StandardDeviation *string  `xml:"StandardDeviation"`
	Sum               *string  `xml:"Sum"`
	Count             *string  `xml:"Count"`
}

func valueOr(s *string) string {
	if s == nil {
		return NotAvailable
	}
	return strings.TrimSpace(*s)
}

// AttributeStatistics aggregates field over the layer typename.
func (c *Client) AttributeStatistics(ctx context.Context, typename, field string) (*Statistics, error) {
	if !c.enabled {
		return nil, ErrUnavailable
	}
	c.log.WithFields(logrus.Fields{"typename": typename, "field": field}).Debug("deriving aggregate statistics")

	body, err := c.execute(ctx, "aggregate.xml", typename, field)
	if err != nil {
		return nil, err
	}
	var res aggregationResults
	if err := xml.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("aggregate response: %w", err)
	}

	stats := &Statistics{
		Min:          valueOr(res.Min),
		Max:          valueOr(res.Max),
		Average:      valueOr(res.Average),
		Median:       valueOr(res.Median),
		StdDev:       valueOr(res.StandardDeviation),
		Sum:          valueOr(res.Sum),
		UniqueValues: NotAvailable,
		Updated:      time.Now().UTC(),
	}
	if res.Count != nil {
		if stats.Count, err = strconv.ParseInt(strings.TrimSpace(*res.Count), 10, 64); err != nil {
			return nil, fmt.Errorf("aggregate count: %w", err)
		}
	}

	if stats.Count < UniqueValuesLimit {
		values, err := c.uniqueValues(ctx, typename, field)
		if err != nil {
			c.log.WithError(err).Warn("unique values unavailable")
		} else {
			stats.UniqueValues = values
		}
	}
	return stats, nil
}

type uniqueResult struct {
	Features []struct {
		Properties struct {
			Value any `json:"value"`
		} `json:"properties"`
	} `json:"features"`
}

// uniqueValues returns the distinct values as a JSON array.
func (c *Client) uniqueValues(ctx context.Context, typename, field string) (string, error) {
	body, err := c.execute(ctx, "unique.xml", typename, field)
	if err != nil {
		return "", err
	}
	var res uniqueResult
	if err := json.Unmarshal(body, &res); err != nil {
		return "", fmt.Errorf("unique response: %w", err)
	}
	values := make([]string, 0, len(res.Features))
	for _, f := range res.Features {
		values = append(values, fmt.Sprint(f.Properties.Value))
	}
	sort.Strings(values)
	out, err := json.Marshal(values)
	return string(out), err
}

func (c *Client) execute(ctx context.Context, tmpl, typename, field string) ([]byte, error) {
	var buf bytes.Buffer
	params := struct{ Typename, Field string }{escape(typename), escape(field)}
	if err := requests.ExecuteTemplate(&buf, tmpl, params); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.owsURL, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/xml")
	if c.user != "" {
		req.SetBasicAuth(c.user, c.pass)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("wps %s: status %d", tmpl, resp.StatusCode)
	}
	return body, nil
}

func escape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
