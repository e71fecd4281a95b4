package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var vectorExtensions = map[string]bool{
	".shp": true, ".zip": true, ".kml": true, ".gml": true, ".geojson": true, ".json": true, ".csv": true,
}

var rasterExtensions = map[string]bool{
	".tif": true, ".tiff": true, ".geotif": true, ".geotiff": true, ".asc": true, ".img": true,
}

// companionExtensions are files that travel with a base file.
var companionExtensions = []string{".shx", ".dbf", ".prj", ".cpg", ".sld", ".xml"}

// Dataset is an uploaded file set: the base file plus its companions.
type Dataset struct {
	Base  string
	Files map[string]string // extension (without dot) -> path
}

// Kind resolves the resource kind from the base file extension.
func (d Dataset) Kind() ResourceKind {
	ext := strings.ToLower(filepath.Ext(d.Base))
	switch {
	case vectorExtensions[ext]:
		return KindVector
	case rasterExtensions[ext]:
		return KindRaster
	}
	return KindUnknown
}

// IsBaseFile reports whether path names a vector or raster file that can be
// published on its own.
func IsBaseFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return vectorExtensions[ext] || rasterExtensions[ext]
}

// IsShapefile reports whether the dataset is an ESRI shapefile set.
func (d Dataset) IsShapefile() bool {
	return strings.EqualFold(filepath.Ext(d.Base), ".shp")
}

// SLD returns the path of a bundled style document, if any.
func (d Dataset) SLD() string {
	return d.Files["sld"]
}

// Paths lists every file of the set, base first.
func (d Dataset) Paths() []string {
	out := []string{d.Base}
	for _, ext := range companionExtensions {
		if p, ok := d.Files[strings.TrimPrefix(ext, ".")]; ok {
			out = append(out, p)
		}
	}
	return out
}

// GatherFiles builds a Dataset for base, picking up sibling files that share its
// stem. Shapefiles must carry .shx and .dbf companions.
func GatherFiles(base string) (Dataset, error) {
	if _, err := os.Stat(base); err != nil {
		return Dataset{}, fmt.Errorf("base file: %w", err)
	}
	ds := Dataset{Base: base, Files: map[string]string{}}
	ext := filepath.Ext(base)
	ds.Files[strings.ToLower(strings.TrimPrefix(ext, "."))] = base

	stem := strings.TrimSuffix(base, ext)
	entries, err := os.ReadDir(filepath.Dir(base))
	if err != nil {
		return Dataset{}, err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		p := filepath.Join(filepath.Dir(base), entry.Name())
		e := filepath.Ext(p)
		if !strings.EqualFold(strings.TrimSuffix(p, e), stem) {
			continue
		}
		for _, c := range companionExtensions {
			if strings.EqualFold(e, c) {
				ds.Files[strings.TrimPrefix(c, ".")] = p
			}
		}
	}

	if ds.IsShapefile() {
		for _, required := range []string{"shx", "dbf"} {
			if _, ok := ds.Files[required]; !ok {
				return Dataset{}, fmt.Errorf("shapefile %s is missing its .%s file", filepath.Base(base), required)
			}
		}
	}
	return ds, nil
}
