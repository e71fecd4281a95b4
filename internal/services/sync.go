// sync.go
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

package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/localnerve/layersync/internal/catalog"
	"github.com/localnerve/layersync/internal/metrics"
	"github.com/localnerve/layersync/internal/models"
	"github.com/pkg/errors"
)

// Item statuses reported by Reconcile.
const (
	StatusCreated         = "created"
	StatusUpdated         = "updated"
	StatusFailed          = "failed"
	StatusDeleteSucceeded = "delete_succeeded"
	StatusDeleteFailed    = "delete_failed"
)

// Placeholders for resources published without a title or abstract.
const (
	NoTitle    = "No title provided"
	NoAbstract = "No abstract provided"
)

// SyncOptions selects and filters the resources to reconcile.
type SyncOptions struct {
	IgnoreErrors     bool
	Owner            string
	Workspace        string
	Store            string
	Filter           string // substring of the resource name
	SkipUnadvertised bool
	SkipRegistered   bool
	RemoveDeleted    bool

	// Progress, when set, is called after each item with its 1-based position.
	Progress func(item ItemStatus, index, total int)
}

// ItemStatus is the outcome for one layer.
type ItemStatus struct {
	Name          string `json:"name"`
	Status        string `json:"status"`
	Error         string `json:"error,omitempty"`
	ExceptionType string `json:"exception_type,omitempty"`
	Traceback     string `json:"traceback,omitempty"`
}

// SyncReport summarizes a reconciliation run.
type SyncReport struct {
	Created         int          `json:"created"`
	Updated         int          `json:"updated"`
	Failed          int          `json:"failed"`
	Deleted         int          `json:"deleted"`
	Layers          []ItemStatus `json:"layers"`
	DeletedLayers   []ItemStatus `json:"deleted_layers"`
	DurationSeconds float64      `json:"duration_sec"`
}

func failedItem(name, status string, err error) ItemStatus {
	return ItemStatus{
		Name:          name,
		Status:        status,
		Error:         err.Error(),
		ExceptionType: fmt.Sprintf("%T", errors.Cause(err)),
		Traceback:     traceback(err),
	}
}

// Reconcile brings the local layer records in line with the server's
// resources. Items are processed one at a time; unless IgnoreErrors is set
// the first failing item aborts the run.
func (s *Service) Reconcile(ctx context.Context, opts SyncOptions) (*SyncReport, error) {
	start := s.now()
	log := s.log.WithField("op", "reconcile")

	resources, err := s.candidates(ctx, opts.Workspace, opts.Store)
	if err != nil {
		return nil, errors.Wrap(err, "list resources")
	}

	var snapshot []catalog.Resource
	if opts.RemoveDeleted {
		for _, r := range resources {
			if r.Enabled == catalog.FlagTrue && (!opts.SkipUnadvertised || r.Advertised.TrueOrUnset()) {
				snapshot = append(snapshot, r)
			}
		}
	}

	resources, err = s.filterResources(ctx, resources, opts)
	if err != nil {
		return nil, err
	}

	report := &SyncReport{Layers: []ItemStatus{}, DeletedLayers: []ItemStatus{}}
	log.Infof("found %d layers, starting processing", len(resources))
	for i := range resources {
		r := &resources[i]
		created, err := s.syncResource(ctx, r, opts.Owner)
		item := ItemStatus{Name: r.Name}
		switch {
		case err != nil:
			item = failedItem(r.Name, StatusFailed, err)
			report.Failed++
			log.WithError(err).Warnf("layer %s failed", r.Name)
		case created:
			item.Status = StatusCreated
			report.Created++
		default:
			item.Status = StatusUpdated
			report.Updated++
		}
		metrics.SyncLayers.WithLabelValues(item.Status).Inc()
		report.Layers = append(report.Layers, item)
		if opts.Progress != nil {
			opts.Progress(item, i+1, len(resources))
		}
		if err != nil && !opts.IgnoreErrors {
			log.Error("stopping because errors are not ignored")
			return nil, errors.Wrapf(err, "sync layer %s", r.Name)
		}
	}

	if opts.RemoveDeleted {
		if err := s.removeDeleted(ctx, snapshot, opts, report); err != nil {
			return nil, err
		}
	}

	report.DurationSeconds = s.now().Sub(start).Seconds()
	metrics.SyncDuration.Observe(report.DurationSeconds)
	s.recordRun(ctx, opts.Owner, start, report)
	return report, nil
}

// candidates resolves the narrowest resource set the filters name. A missing
// workspace or store gives an empty set.
func (s *Service) candidates(ctx context.Context, workspace, store string) ([]catalog.Resource, error) {
	filter := catalog.ResourceFilter{Workspace: workspace, Store: store}
	if workspace != "" {
		ws, err := s.cat.GetWorkspace(ctx, workspace)
		if err != nil || ws == nil {
			return nil, err
		}
		if store != "" {
			st, err := s.cat.GetStore(ctx, store, workspace)
			if err != nil || st == nil {
				return nil, err
			}
		}
	}
	return s.cat.ListResources(ctx, filter)
}

func (s *Service) filterResources(ctx context.Context, resources []catalog.Resource, opts SyncOptions) ([]catalog.Resource, error) {
	var registered map[string]struct{}
	if opts.SkipRegistered {
		var err error
		if registered, err = s.records.Typenames(ctx); err != nil {
			return nil, errors.Wrap(err, "list registered layers")
		}
	}
	out := resources[:0:0]
	for _, r := range resources {
		if opts.Filter != "" && !strings.Contains(r.Name, opts.Filter) {
			continue
		}
		if r.Enabled != catalog.FlagTrue {
			continue
		}
		if opts.SkipUnadvertised && !r.Advertised.TrueOrUnset() {
			continue
		}
		if _, ok := registered[r.Typename()]; ok {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// syncResource creates or refreshes the local layer for r.
func (s *Service) syncResource(ctx context.Context, r *catalog.Resource, owner string) (bool, error) {
	title := r.Title
	if title == "" {
		title = NoTitle
	}
	abstract := r.Abstract
	if abstract == "" {
		abstract = NoAbstract
	}
	layer, created, err := s.records.GetOrCreateLayer(ctx, r.Name, models.Layer{
		Name:      r.Name,
		Workspace: r.Workspace,
		Store:     r.Store,
		StoreType: string(r.StoreKind),
		Typename:  r.Typename(),
		Title:     title,
		Abstract:  abstract,
		Owner:     owner,
		UUID:      s.newUUID(),
		SRID:      r.Projection,
	})
	if err != nil {
		return false, errors.Wrapf(err, "get or create layer %s", r.Name)
	}

	bbox := r.LatLonBBox
	if bbox == nil {
		bbox = r.NativeBBox
	}
	setBBox(layer, bbox)
	if err := s.records.SaveLayer(ctx, layer); err != nil {
		return false, errors.Wrapf(err, "save layer %s", r.Name)
	}

	log := s.log.WithField("layer", r.Name)
	if err := s.SetStyles(ctx, layer); err != nil {
		log.WithError(err).Warn("style sync failed")
	}
	if len(r.Keywords) > 0 {
		if err := s.records.SetKeywords(ctx, layer, r.Keywords); err != nil {
			log.WithError(err).Warn("keywords not saved")
		}
	}

	if err := s.DiscoverAttributes(ctx, layer, true); err != nil {
		return false, err
	}
	if created {
		if err := s.records.SetDefaultPermissions(ctx, layer); err != nil {
			return false, errors.Wrapf(err, "set default permissions on %s", r.Name)
		}
	}
	return created, nil
}

// removeDeleted drops local layers in scope that no longer match a remote
// resource on name, workspace and store.
func (s *Service) removeDeleted(ctx context.Context, snapshot []catalog.Resource, opts SyncOptions, report *SyncReport) error {
	local, err := s.records.LayersInScope(ctx, opts.Workspace, opts.Store)
	if err != nil {
		return errors.Wrap(err, "list local layers")
	}
	type key struct{ name, workspace, store string }
	remote := make(map[key]struct{}, len(snapshot))
	for _, r := range snapshot {
		remote[key{r.Name, r.Workspace, r.Store}] = struct{}{}
	}

	var stale []models.Layer
	for _, l := range local {
		if _, ok := remote[key{l.Name, l.Workspace, l.Store}]; !ok {
			stale = append(stale, l)
		}
	}
	s.log.Infof("found %d layers to delete", len(stale))

	for i := range stale {
		l := &stale[i]
		item := ItemStatus{Name: l.Name, Status: StatusDeleteSucceeded}
		if err := s.records.DeleteLayerCascade(ctx, l); err != nil {
			item = failedItem(l.Name, StatusDeleteFailed, errors.WithStack(err))
			s.log.WithError(err).Warnf("could not delete layer %s", l.Name)
		} else {
			report.Deleted++
		}
		metrics.SyncLayers.WithLabelValues(item.Status).Inc()
		report.DeletedLayers = append(report.DeletedLayers, item)
		if opts.Progress != nil {
			opts.Progress(item, i+1, len(stale))
		}
	}
	return nil
}

func (s *Service) recordRun(ctx context.Context, owner string, start time.Time, report *SyncReport) {
	doc, err := models.NewReportDocument(report)
	if err != nil {
		s.log.WithError(err).Warn("could not encode sync report")
		return
	}
	run := &models.SyncRun{
		Owner:     owner,
		Created:   report.Created,
		Updated:   report.Updated,
		Failed:    report.Failed,
		Deleted:   report.Deleted,
		Duration:  report.DurationSeconds,
		Report:    doc,
		StartedAt: start,
	}
	if err := s.records.RecordSyncRun(ctx, run); err != nil {
		s.log.WithError(err).Warn("could not record sync run")
	}
}
