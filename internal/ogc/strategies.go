package ogc

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// EsriTypes maps ArcGIS field types onto XML schema types.
var EsriTypes = map[string]string{
	"esriFieldTypeDouble":       "xsd:double",
	"esriFieldTypeString":       "xsd:string",
	"esriFieldTypeSmallInteger": "xsd:int",
	"esriFieldTypeInteger":      "xsd:int",
	"esriFieldTypeDate":         "xsd:dateTime",
	"esriFieldTypeOID":          "xsd:long",
	"esriFieldTypeGeometry":     "xsd:geometry",
	"esriFieldTypeBlob":         "xsd:base64Binary",
	"esriFieldTypeRaster":       "raster",
	"esriFieldTypeGUID":         "xsd:string",
	"esriFieldTypeGlobalID":     "xsd:string",
	"esriFieldTypeXML":          "xsd:anyType",
}

type esriLayer struct {
	Fields []struct {
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"fields"`
}

func (d *Discoverer) arcgis(ctx context.Context, serverURL string, t Target) ([]Field, error) {
	body, err := d.get(ctx, serverURL+t.Typename+"?f=json")
	if err != nil {
		return nil, err
	}
	var layer esriLayer
	if err := json.Unmarshal(body, &layer); err != nil {
		return nil, err
	}
	var fields []Field
	for _, f := range layer.Fields {
		if f.Name == "" || f.Type == "" {
			continue
		}
		xsdType, ok := EsriTypes[f.Type]
		if !ok {
			return nil, fmt.Errorf("unknown esri field type %s", f.Type)
		}
		fields = append(fields, Field{Name: f.Name, Type: xsdType})
	}
	return fields, nil
}

type xsdElement struct {
	Name string `xml:"name,attr"`
	Type string `xml:"type,attr"`
}

type xsdSchema struct {
	ComplexTypes []struct {
		Elements []xsdElement `xml:"complexContent>extension>sequence>element"`
	} `xml:"complexType"`
}

func (d *Discoverer) describeFeatureType(ctx context.Context, serverURL string, t Target) ([]Field, error) {
	body, err := d.get(ctx, WFSURL(serverURL, t.Typename))
	if err != nil {
		return nil, err
	}
	var schema xsdSchema
	if err := xml.Unmarshal(body, &schema); err != nil {
		return nil, err
	}
	var fields []Field
	for _, ct := range schema.ComplexTypes {
		for _, el := range ct.Elements {
			if el.Name != "" && el.Type != "" {
				fields = append(fields, Field{Name: el.Name, Type: el.Type})
			}
		}
	}
	return fields, nil
}

func (d *Discoverer) getFeatureInfo(ctx context.Context, serverURL string, t Target) ([]Field, error) {
	body, err := d.get(ctx, WMSFeatureInfoURL(serverURL, t))
	if err != nil {
		return nil, err
	}
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	var fields []Field
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Th {
			if name := headerText(n); name != "" {
				fields = append(fields, Field{Name: name, Type: "xsd:string"})
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return fields, nil
}

// headerText is the text of the header cell, or of its first child when the
// cell wraps its label in markup.
func headerText(n *html.Node) string {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			if s := strings.TrimSpace(c.Data); s != "" {
				return s
			}
		case html.ElementNode:
			return headerText(c)
		}
	}
	return ""
}

// describeCoverage reads the band keys: Axis/AvailableKeys/Key.
func (d *Discoverer) describeCoverage(ctx context.Context, serverURL string, t Target) ([]Field, error) {
	body, err := d.get(ctx, WCSDescribeURL(serverURL, t.Typename))
	if err != nil {
		return nil, err
	}
	dec := xml.NewDecoder(bytes.NewReader(body))
	var stack []string
	var fields []Field
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			n := len(stack)
			if el.Name.Local == "Key" && n >= 2 && stack[n-1] == "AvailableKeys" && stack[n-2] == "Axis" {
				var key string
				if err := dec.DecodeElement(&key, &el); err != nil {
					return nil, err
				}
				if key = strings.TrimSpace(key); key != "" {
					fields = append(fields, Field{Name: key, Type: "raster"})
				}
				continue
			}
			stack = append(stack, el.Name.Local)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	return fields, nil
}
