// Package styles generates default SLD documents and parses the style
// notifications the map editor sends.
package styles

import (
	"bytes"
	"encoding/xml"
	"regexp"
	"sync"
	"text/template"

	"github.com/localnerve/layersync/data"
)

// Default style names the server assigns on publish. They are shared by many
// layers and are never deleted with a layer.
const (
	Point   = "point"
	Line    = "line"
	Polygon = "polygon"
	Raster  = "raster"
)

// IsDefault reports whether name is one of the server's built-in styles.
func IsDefault(name string) bool {
	switch name {
	case Point, Line, Polygon, Raster:
		return true
	}
	return false
}

var (
	foregrounds = []string{"#ffbbbb", "#bbffbb", "#bbbbff", "#ffffbb", "#bbffff", "#ffbbff"}
	backgrounds = []string{"#880000", "#008800", "#000088", "#888800", "#008888", "#880088"}
	marks       = []string{"square", "circle", "cross", "x", "triangle"}
)

// Colors is one palette entry.
type Colors struct {
	Foreground string
	Background string
	Mark       string
}

// Palette hands out colors round-robin. Each list cycles on its own, so the
// sequence is deterministic for a given starting point.
type Palette struct {
	mu sync.Mutex
	n  int
}

// Next returns the next entry.
func (p *Palette) Next() Colors {
	p.mu.Lock()
	defer p.mu.Unlock()
	c := Colors{
		Foreground: foregrounds[p.n%len(foregrounds)],
		Background: backgrounds[p.n%len(backgrounds)],
		Mark:       marks[p.n%len(marks)],
	}
	p.n++
	return c
}

var templates = template.Must(template.ParseFS(data.SLD, "sld/*.sld"))

type sldParams struct {
	Name string
	Colors
}

// Generate renders the default SLD for the geometry kind (point, line, polygon
// or raster). ok is false for any other kind.
func Generate(geometry, layerName string, colors Colors) (sld string, ok bool) {
	if !IsDefault(geometry) {
		return "", false
	}
	var buf bytes.Buffer
	params := sldParams{Name: escape(layerName), Colors: colors}
	if err := templates.ExecuteTemplate(&buf, geometry+".sld", params); err != nil {
		return "", false
	}
	return buf.String(), true
}

func escape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

var punctuation = regexp.MustCompile(`[.:]`)

// Name derives a style name from a workspace-qualified resource name.
func Name(workspace, resource string) string {
	return punctuation.ReplaceAllString(workspace+":"+resource, "_")
}
