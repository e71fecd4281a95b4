package geoserver

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/localnerve/layersync/internal/catalog"
)

// named is the {"name": ..., "href": ...} element of REST listings.
type named struct {
	Name string `json:"name"`
	Href string `json:"href,omitempty"`
}

// decodeListing extracts the names from {"outer":{"inner":[...]}}. GeoServer
// renders an empty listing as "" and a single element as an object.
func decodeListing(body []byte, outer, inner string) ([]string, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, err
	}
	raw := bytes.TrimSpace(top[outer])
	if len(raw) == 0 || raw[0] != '{' {
		return nil, nil
	}
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, err
	}
	items, err := decodeOneOrMany[named](wrapper[inner])
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(items))
	for _, it := range items {
		names = append(names, it.Name)
	}
	return names, nil
}

func decodeOneOrMany[T any](raw json.RawMessage) ([]T, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	if raw[0] == '[' {
		var out []T
		err := json.Unmarshal(raw, &out)
		return out, err
	}
	if raw[0] != '{' {
		return nil, nil
	}
	var one T
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, err
	}
	return []T{one}, nil
}

type entry struct {
	Key   string `json:"@key"`
	Value any    `json:"$"`
}

type entries struct {
	Entry json.RawMessage `json:"entry"`
}

func (e entries) toMap() map[string]string {
	list, err := decodeOneOrMany[entry](e.Entry)
	if err != nil {
		return nil
	}
	out := make(map[string]string, len(list))
	for _, it := range list {
		switch v := it.Value.(type) {
		case string:
			out[it.Key] = v
		case float64:
			out[it.Key] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			out[it.Key] = strconv.FormatBool(v)
		}
	}
	return out
}

func entriesOf(m map[string]string) map[string]any {
	list := make([]entry, 0, len(m))
	for k, v := range m {
		list = append(list, entry{Key: k, Value: v})
	}
	return map[string]any{"entry": list}
}

type storeJSON struct {
	Name                 string  `json:"name"`
	Type                 string  `json:"type"`
	Enabled              bool    `json:"enabled"`
	ConnectionParameters entries `json:"connectionParameters"`
}

type bboxJSON struct {
	MinX float64         `json:"minx"`
	MaxX float64         `json:"maxx"`
	MinY float64         `json:"miny"`
	MaxY float64         `json:"maxy"`
	CRS  json.RawMessage `json:"crs,omitempty"`
}

func (b *bboxJSON) toBBox() *catalog.BBox {
	if b == nil {
		return nil
	}
	out := &catalog.BBox{MinX: b.MinX, MaxX: b.MaxX, MinY: b.MinY, MaxY: b.MaxY}
	var s string
	if err := json.Unmarshal(b.CRS, &s); err == nil {
		out.CRS = s
	} else {
		var obj struct {
			Value string `json:"$"`
		}
		if json.Unmarshal(b.CRS, &obj) == nil {
			out.CRS = obj.Value
		}
	}
	return out
}

func fromBBox(b *catalog.BBox) *bboxJSON {
	if b == nil {
		return nil
	}
	crs, _ := json.Marshal(b.CRS)
	return &bboxJSON{MinX: b.MinX, MaxX: b.MaxX, MinY: b.MinY, MaxY: b.MaxY, CRS: crs}
}

type keywordsJSON struct {
	String json.RawMessage `json:"string"`
}

type resourceJSON struct {
	Name              string        `json:"name"`
	NativeName        string        `json:"nativeName,omitempty"`
	Title             string        `json:"title,omitempty"`
	Abstract          string        `json:"abstract,omitempty"`
	Keywords          *keywordsJSON `json:"keywords,omitempty"`
	SRS               string        `json:"srs,omitempty"`
	ProjectionPolicy  string        `json:"projectionPolicy,omitempty"`
	Enabled           *bool         `json:"enabled,omitempty"`
	Advertised        *bool         `json:"advertised,omitempty"`
	NativeBoundingBox *bboxJSON     `json:"nativeBoundingBox,omitempty"`
	LatLonBoundingBox *bboxJSON     `json:"latLonBoundingBox,omitempty"`
}

func flagOf(b *bool) catalog.Flag {
	if b == nil {
		return catalog.FlagUnset
	}
	return catalog.FlagOf(*b)
}

func boolOf(f catalog.Flag) *bool {
	if f == catalog.FlagUnset {
		return nil
	}
	b := f == catalog.FlagTrue
	return &b
}

func (r *resourceJSON) keywords() []string {
	if r.Keywords == nil {
		return nil
	}
	var many []string
	if err := json.Unmarshal(r.Keywords.String, &many); err == nil {
		return many
	}
	var one string
	if err := json.Unmarshal(r.Keywords.String, &one); err == nil && one != "" {
		return []string{one}
	}
	return nil
}

type styleRefJSON struct {
	Name      string `json:"name"`
	Workspace string `json:"workspace,omitempty"`
	Href      string `json:"href,omitempty"`
}

type layerStylesJSON struct {
	Class string          `json:"@class,omitempty"`
	Style json.RawMessage `json:"style"`
}

type layerResourceJSON struct {
	Class string `json:"@class"`
	Name  string `json:"name"`
	Href  string `json:"href"`
}

type layerJSON struct {
	Name         string             `json:"name,omitempty"`
	DefaultStyle *styleRefJSON      `json:"defaultStyle,omitempty"`
	Styles       *layerStylesJSON   `json:"styles,omitempty"`
	Resource     *layerResourceJSON `json:"resource,omitempty"`
}

type styleJSON struct {
	Name      string `json:"name"`
	Workspace *named `json:"workspace,omitempty"`
	Format    string `json:"format,omitempty"`
	Filename  string `json:"filename,omitempty"`
}

func jsonRaw(v any) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	return json.RawMessage(b), err
}
