package ogc

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/localnerve/layersync/internal/logging"
	"github.com/sirupsen/logrus"
)

// ErrCoverageNotFound is returned when the WCS does not list the coverage.
var ErrCoverageNotFound = errors.New("coverage not found in WCS")

// CoverageRecord is a coverage as listed in the WCS 1.0.0 capabilities.
type CoverageRecord struct {
	Identifier string
	Label      string
}

// WCSLookup finds coverages on the public WCS endpoint. Newly published
// coverages may take a moment to appear, so a miss is retried once after Delay.
type WCSLookup struct {
	URL   string
	Delay time.Duration

	http *http.Client
	log  *logrus.Entry
}

// NewWCSLookup returns a lookup against the WCS endpoint wcsURL.
func NewWCSLookup(wcsURL string, delay time.Duration, client *http.Client) *WCSLookup {
	if client == nil {
		client = http.DefaultClient
	}
	return &WCSLookup{URL: wcsURL, Delay: delay, http: client, log: logging.Component("wcs")}
}

type wcsCapabilities struct {
	Coverages []struct {
		Name  string `xml:"name"`
		Label string `xml:"label"`
	} `xml:"ContentMetadata>CoverageOfferingBrief"`
}

// Record returns the coverage workspace:name, retrying once on a miss.
func (w *WCSLookup) Record(ctx context.Context, workspace, name string) (*CoverageRecord, error) {
	key := workspace + ":" + name
	rec, err := w.lookup(ctx, key)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, ErrCoverageNotFound) {
		return nil, err
	}

	w.log.WithField("coverage", key).Debugf("%v, waiting %s before trying again", err, w.Delay)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(w.Delay):
	}
	return w.lookup(ctx, key)
}

func (w *WCSLookup) lookup(ctx context.Context, key string) (*CoverageRecord, error) {
	q := url.Values{"service": {"WCS"}, "version": {"1.0.0"}, "request": {"GetCapabilities"}}
	body, err := w.get(ctx, w.URL+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	var caps wcsCapabilities
	if err := xml.Unmarshal(body, &caps); err != nil {
		return nil, err
	}
	for _, c := range caps.Coverages {
		if c.Name == key {
			return &CoverageRecord{Identifier: c.Name, Label: c.Label}, nil
		}
	}
	return nil, fmt.Errorf("%w: layer %q at %s", ErrCoverageNotFound, key, w.URL)
}

type gridEnvelope struct {
	Low  string `xml:"CoverageOffering>domainSet>spatialDomain>RectifiedGrid>limits>GridEnvelope>low"`
	High string `xml:"CoverageOffering>domainSet>spatialDomain>RectifiedGrid>limits>GridEnvelope>high"`
}

// GridExtent returns the coverage size in pixels along each grid axis.
func (w *WCSLookup) GridExtent(ctx context.Context, workspace, name string) ([]int, error) {
	rec, err := w.Record(ctx, workspace, name)
	if err != nil {
		return nil, err
	}
	q := url.Values{"service": {"WCS"}, "version": {"1.0.0"}, "request": {"DescribeCoverage"}, "coverage": {rec.Identifier}}
	body, err := w.get(ctx, w.URL+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	var env gridEnvelope
	if err := xml.Unmarshal(body, &env); err != nil {
		return nil, err
	}
	low, high := strings.Fields(env.Low), strings.Fields(env.High)
	if len(low) == 0 || len(low) != len(high) {
		return nil, fmt.Errorf("coverage %s has no grid envelope", rec.Identifier)
	}
	extent := make([]int, len(low))
	for i := range low {
		l, err := strconv.Atoi(low[i])
		if err != nil {
			return nil, err
		}
		h, err := strconv.Atoi(high[i])
		if err != nil {
			return nil, err
		}
		extent[i] = h - l + 1
	}
	return extent, nil
}

func (w *WCSLookup) get(ctx context.Context, u string) ([]byte, error) {
	return fetch(ctx, w.http, u)
}
