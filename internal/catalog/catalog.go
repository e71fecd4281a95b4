// catalog.go
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

// Package catalog defines the contract for talking to the remote OGC server's
// configuration catalog, along with the entities it manages.
package catalog

import (
	"context"
	"strings"

	"github.com/paulmach/orb"
)

// ResourceKind is the tagged variant of a published resource.
type ResourceKind int

const (
	KindUnknown ResourceKind = iota
	KindVector
	KindRaster
)

func (k ResourceKind) String() string {
	switch k {
	case KindVector:
		return "featureType"
	case KindRaster:
		return "coverage"
	}
	return "unknown"
}

// StoreKind names the class of store a resource lives in.
type StoreKind string

const (
	DataStore     StoreKind = "dataStore"
	CoverageStore StoreKind = "coverageStore"
	WMSStore      StoreKind = "wmsStore"
	RemoteStore   StoreKind = "remoteStore"
)

// StoreKindFor maps a resource kind onto the store class that holds it.
func StoreKindFor(k ResourceKind) StoreKind {
	if k == KindRaster {
		return CoverageStore
	}
	return DataStore
}

// Flag is a tri-state boolean: the server may omit enabled/advertised.
type Flag int

const (
	FlagUnset Flag = iota
	FlagTrue
	FlagFalse
)

// FlagOf converts a known boolean.
func FlagOf(b bool) Flag {
	if b {
		return FlagTrue
	}
	return FlagFalse
}

// TrueOrUnset reports whether the flag is true or was never reported.
func (f Flag) TrueOrUnset() bool {
	return f != FlagFalse
}

// BBox is a bounding box in the order the server reports it.
type BBox struct {
	MinX, MaxX, MinY, MaxY float64
	CRS                    string
}

// Bound converts the box to an orb bound.
func (b BBox) Bound() orb.Bound {
	return orb.Bound{Min: orb.Point{b.MinX, b.MinY}, Max: orb.Point{b.MaxX, b.MaxY}}
}

// Geographic is the valid range of longitude/latitude coordinates.
var Geographic = orb.Bound{Min: orb.Point{-180, -90}, Max: orb.Point{180, 90}}

// IsGeographic reports whether every corner lies within lon [-180,180] and lat [-90,90].
func (b BBox) IsGeographic() bool {
	bound := b.Bound()
	return Geographic.Contains(bound.Min) && Geographic.Contains(bound.Max)
}

type Workspace struct {
	Name string
}

// Store is a container of resources on the server.
type Store struct {
	Name                 string
	Workspace            string
	Kind                 StoreKind
	Type                 string // backend format, e.g. "PostGIS", "Shapefile", "GeoTIFF"
	Enabled              bool
	ConnectionParameters map[string]string
}

// DBType returns the lower-cased dbtype connection parameter, if any.
func (s *Store) DBType() string {
	return strings.ToLower(s.ConnectionParameters["dbtype"])
}

// Resource is a feature type or coverage published from a store.
type Resource struct {
	Name       string
	Workspace  string
	Store      string
	StoreKind  StoreKind
	Kind       ResourceKind
	Title      string
	Abstract   string
	Keywords   []string
	Enabled    Flag
	Advertised Flag
	Projection string
	NativeBBox *BBox
	LatLonBBox *BBox
}

// Typename is the workspace-qualified resource name.
func (r *Resource) Typename() string {
	return r.Workspace + ":" + r.Name
}

// StyleRef points at a style by name.
type StyleRef struct {
	Name      string
	Workspace string
}

// Layer is the published view over a resource.
type Layer struct {
	Name         string
	Resource     *Resource
	DefaultStyle *StyleRef
	Styles       []StyleRef
}

// AllStyles returns the default style followed by the alternates.
func (l *Layer) AllStyles() []StyleRef {
	out := make([]StyleRef, 0, len(l.Styles)+1)
	if l.DefaultStyle != nil {
		out = append(out, *l.DefaultStyle)
	}
	return append(out, l.Styles...)
}

// Style is a named SLD document on the server.
type Style struct {
	Name      string
	Workspace string
	Title     string
	Body      string
	URL       string
}

// ResourceFilter narrows ListResources; empty fields match everything.
type ResourceFilter struct {
	Workspace string
	Store     string
}

// Catalog is the client for the remote server's configuration catalog.
// Lookups return (nil, nil) when the entity does not exist.
type Catalog interface {
	GetWorkspace(ctx context.Context, name string) (*Workspace, error)
	ListStores(ctx context.Context, workspace string) ([]Store, error)
	GetStore(ctx context.Context, name, workspace string) (*Store, error)
	ListResources(ctx context.Context, filter ResourceFilter) ([]Resource, error)
	GetResource(ctx context.Context, name, workspace, store string) (*Resource, error)
	GetLayer(ctx context.Context, name string) (*Layer, error)
	GetStyle(ctx context.Context, name string) (*Style, error)

	CreateFeatureStore(ctx context.Context, name string, data Dataset, overwrite bool, charset string) error
	CreateCoverageStore(ctx context.Context, name string, data Dataset, overwrite bool) error
	CreateDatastore(ctx context.Context, name string, params map[string]string) (*Store, error)
	AddDataToStore(ctx context.Context, store *Store, name string, data Dataset, overwrite bool, charset string) error
	CreateStyle(ctx context.Context, name, sld string) error

	SaveResource(ctx context.Context, r *Resource) error
	SaveLayer(ctx context.Context, l *Layer) error

	DeleteLayer(ctx context.Context, name string) error
	DeleteStyle(ctx context.Context, name string, purge bool) error
	DeleteResource(ctx context.Context, r *Resource) error
	DeleteStore(ctx context.Context, s *Store, recurse bool) error
	Reload(ctx context.Context) error
}
