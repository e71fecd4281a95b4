package services

import (
	"context"
	"strings"
	"unicode"

	"github.com/localnerve/layersync/internal/catalog"
	"github.com/localnerve/layersync/internal/models"
	"github.com/localnerve/layersync/internal/ogc"
	"github.com/localnerve/layersync/internal/wps"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var numericTypes = map[string]bool{
	"xsd:byte":               true,
	"xsd:decimal":            true,
	"xsd:double":             true,
	"xsd:int":                true,
	"xsd:integer":            true,
	"xsd:long":               true,
	"xsd:negativeInteger":    true,
	"xsd:nonNegativeInteger": true,
	"xsd:nonPositiveInteger": true,
	"xsd:positiveInteger":    true,
	"xsd:short":              true,
	"xsd:unsignedLong":       true,
	"xsd:unsignedInt":        true,
	"xsd:unsignedShort":      true,
	"xsd:unsignedByte":       true,
}

// aggregable reports whether statistics make sense for the field: numeric,
// on a vector store, and not an identifier.
func aggregable(storeType, field, fieldType string) bool {
	if storeType != string(catalog.DataStore) {
		return false
	}
	if !numericTypes[fieldType] {
		return false
	}
	switch strings.ToLower(field) {
	case "id", "identifier":
		return false
	}
	return true
}

func targetFor(layer *models.Layer) ogc.Target {
	return ogc.Target{
		Typename:    layer.Typename,
		StoreType:   layer.StoreType,
		ServiceURL:  layer.RemoteServiceURL,
		ServiceType: layer.RemoteServiceType,
		BBox: [4]float64{
			layer.BBoxX0.InexactFloat64(), layer.BBoxX1.InexactFloat64(),
			layer.BBoxY0.InexactFloat64(), layer.BBoxY1.InexactFloat64(),
		},
	}
}

// DiscoverAttributes refreshes the layer's attributes from the server's
// description of its schema. Existing attributes missing upstream, or all of
// them when overwrite is set, are deleted; new fields are appended in
// discovery order. Discovery failures leave the layer with no new fields.
func (s *Service) DiscoverAttributes(ctx context.Context, layer *models.Layer, overwrite bool) error {
	var fields []ogc.Field
	if s.discover != nil {
		fields = s.discover.Discover(ctx, targetFor(layer))
	}
	log := s.log.WithField("layer", layer.Name)

	discovered := make(map[string]string, len(fields))
	for _, f := range fields {
		if _, ok := discovered[f.Name]; !ok {
			discovered[f.Name] = f.Type
		}
	}

	existing, err := s.records.Attributes(ctx, layer.ID)
	if err != nil {
		return errors.Wrapf(err, "list attributes of %s", layer.Name)
	}
	for i := range existing {
		attr := &existing[i]
		fieldType, found := discovered[attr.Attribute]
		if overwrite || !found || fieldType != attr.AttributeType {
			log.Debugf("deleting attribute %s", attr.Attribute)
			if err := s.records.DeleteAttribute(ctx, attr); err != nil {
				return errors.Wrapf(err, "delete attribute %s", attr.Attribute)
			}
		}
	}
	if len(fields) == 0 {
		log.Debug("no attributes found")
		return nil
	}

	count, err := s.records.CountAttributes(ctx, layer.ID)
	if err != nil {
		return errors.Wrapf(err, "count attributes of %s", layer.Name)
	}
	order := int(count) + 1
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		// The first type reported for a name wins.
		if f.Name == "" || seen[f.Name] {
			continue
		}
		seen[f.Name] = true
		attr, created, err := s.records.GetOrCreateAttribute(ctx, layer.ID, f.Name, f.Type)
		if err != nil {
			return errors.Wrapf(err, "create attribute %s", f.Name)
		}
		if !created {
			continue
		}
		if aggregable(layer.StoreType, f.Name, f.Type) {
			s.applyStatistics(ctx, log, layer, attr)
		}
		attr.AttributeLabel = titleCase(f.Name)
		attr.Visible = !strings.HasPrefix(f.Type, "gml:")
		attr.DisplayOrder = order
		if err := s.records.SaveAttribute(ctx, attr); err != nil {
			return errors.Wrapf(err, "save attribute %s", f.Name)
		}
		order++
		log.Debugf("created attribute %s", f.Name)
	}
	return nil
}

func (s *Service) applyStatistics(ctx context.Context, log *logrus.Entry, layer *models.Layer, attr *models.Attribute) {
	if s.stats == nil {
		return
	}
	stats, err := s.stats.AttributeStatistics(ctx, layer.Typename, attr.Attribute)
	if err != nil {
		if errors.Is(err, wps.ErrUnavailable) {
			log.Debug("statistics unavailable")
		} else {
			log.WithError(err).Warnf("statistics for %s failed", attr.Attribute)
		}
		return
	}
	attr.Count = stats.Count
	attr.Min = stats.Min
	attr.Max = stats.Max
	attr.Average = stats.Average
	attr.Median = stats.Median
	attr.StdDev = stats.StdDev
	attr.Sum = stats.Sum
	attr.UniqueValues = stats.UniqueValues
	updated := stats.Updated
	if updated.IsZero() {
		updated = s.now()
	}
	attr.LastStatsUpdated = &updated
}

// titleCase upper-cases the first letter of every run of letters and
// lower-cases the rest: "pop_est" becomes "Pop_Est".
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inWord := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if inWord {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToTitle(r))
			}
			inWord = true
			continue
		}
		b.WriteRune(r)
		inWord = false
	}
	return b.String()
}
