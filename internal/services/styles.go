package services

import (
	"context"
	"net/http"
	"strings"

	"github.com/localnerve/layersync/internal/catalog"
	"github.com/localnerve/layersync/internal/models"
	"github.com/localnerve/layersync/internal/records"
	"github.com/localnerve/layersync/internal/styles"
	"github.com/pkg/errors"
)

// SetStyles copies the remote layer's default and alternate styles into the
// record store and links them to layer.
func (s *Service) SetStyles(ctx context.Context, layer *models.Layer) error {
	remote, err := s.cat.GetLayer(ctx, layer.Name)
	if err != nil {
		return errors.Wrapf(err, "get remote layer %s", layer.Name)
	}
	if remote == nil {
		return nil
	}

	var defaultStyle *models.Style
	set := make([]models.Style, 0, len(remote.Styles)+1)
	for i, ref := range remote.AllStyles() {
		style, err := s.saveStyle(ctx, ref)
		if err != nil {
			return err
		}
		if style == nil {
			continue
		}
		if i == 0 && remote.DefaultStyle != nil {
			defaultStyle = style
		}
		set = append(set, *style)
	}
	return s.records.SetLayerStyles(ctx, layer, defaultStyle, set)
}

func (s *Service) saveStyle(ctx context.Context, ref catalog.StyleRef) (*models.Style, error) {
	remote, err := s.cat.GetStyle(ctx, ref.Name)
	if err != nil {
		return nil, errors.Wrapf(err, "get style %s", ref.Name)
	}
	if remote == nil {
		return nil, nil
	}
	style, err := s.records.UpsertStyle(ctx, models.Style{
		Name:      remote.Name,
		Workspace: remote.Workspace,
		SLDTitle:  remote.Title,
		SLDBody:   remote.Body,
		SLDURL:    remote.URL,
	})
	return style, errors.Wrapf(err, "save style %s", ref.Name)
}

// ApplyStyleNotification mirrors a style change made on the server. POST
// creates the style and links it to the named layer, PUT updates an existing
// style and DELETE removes it.
func (s *Service) ApplyStyleNotification(ctx context.Context, n *styles.Notification) error {
	switch n.Method {
	case http.MethodPost:
		style, err := s.records.UpsertStyle(ctx, models.Style{
			Name:     n.StyleName,
			SLDTitle: n.Title,
			SLDBody:  n.Body,
			SLDURL:   n.URL,
		})
		if err != nil {
			return errors.Wrapf(err, "save style %s", n.StyleName)
		}
		if n.LayerName != "" {
			err := s.records.AddStyleToLayer(ctx, style, n.LayerName)
			if err != nil && !errors.Is(err, records.ErrNotFound) {
				return errors.Wrapf(err, "link style %s to %s", n.StyleName, n.LayerName)
			}
		}
		return nil
	case http.MethodPut:
		_, err := s.records.UpdateStyle(ctx, n.StyleName, n.Title, n.Body, n.URL)
		return errors.Wrapf(err, "update style %s", n.StyleName)
	case http.MethodDelete:
		return s.records.DeleteStyle(ctx, n.StyleName)
	}
	return errors.Errorf("unsupported style notification method %q", n.Method)
}

// StoreInfo describes one remote store.
type StoreInfo struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Workspace string `json:"workspace"`
}

// GetStores lists the stores of every workspace, optionally only those whose
// backend type matches storeType (case-insensitive).
func (s *Service) GetStores(ctx context.Context, storeType string) ([]StoreInfo, error) {
	stores, err := s.cat.ListStores(ctx, "")
	if err != nil {
		return nil, errors.Wrap(err, "list stores")
	}
	out := make([]StoreInfo, 0, len(stores))
	for _, st := range stores {
		t := strings.ToLower(st.Type)
		if storeType != "" && strings.ToLower(storeType) != t {
			continue
		}
		out = append(out, StoreInfo{Name: st.Name, Type: t, Workspace: st.Workspace})
	}
	return out, nil
}
