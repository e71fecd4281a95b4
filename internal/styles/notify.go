package styles

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
)

const sldNamespace = "http://www.opengis.net/sld"

const xmlHeader = `<?xml version="1.0" encoding="UTF-8"?>`

// ErrMalformedStyle is returned when an SLD lacks the layer or style name.
var ErrMalformedStyle = errors.New("malformed style document")

// Notification is a style change reported by the map editor.
type Notification struct {
	Method    string
	LayerName string // typename of the layer the style belongs to
	StyleName string
	Title     string
	Body      string
	URL       string
}

// ParseNotification reads a POST/PUT body. The first sld:Name is the layer,
// the second is the user style. A new style's title falls back to the style
// name; an update without a title leaves it empty.
func ParseNotification(method, url string, body []byte) (*Notification, error) {
	var names []string
	var title string
	var inName, inTitle bool
	var text strings.Builder

	dec := xml.NewDecoder(bytes.NewReader(body))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedStyle, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if !inSLD(t.Name) {
				continue
			}
			switch t.Name.Local {
			case "Name":
				inName = true
				text.Reset()
			case "Title":
				inTitle = title == ""
				text.Reset()
			}
		case xml.CharData:
			if inName || inTitle {
				text.Write(t)
			}
		case xml.EndElement:
			if !inSLD(t.Name) {
				continue
			}
			switch {
			case t.Name.Local == "Name" && inName:
				names = append(names, strings.TrimSpace(text.String()))
				inName = false
			case t.Name.Local == "Title" && inTitle:
				title = strings.TrimSpace(text.String())
				inTitle = false
			}
		}
	}

	if len(names) < 2 {
		return nil, fmt.Errorf("%w: expected layer and style names", ErrMalformedStyle)
	}
	n := &Notification{
		Method:    method,
		LayerName: names[0],
		StyleName: names[1],
		Title:     title,
		Body:      string(body),
		URL:       url,
	}
	if n.Title == "" && method != http.MethodPut {
		n.Title = n.StyleName
	}
	if !strings.HasPrefix(strings.TrimSpace(n.Body), "<?xml") {
		n.Body = xmlHeader + n.Body
	}
	return n, nil
}

// DeleteNotification names the style to delete from the request path.
func DeleteNotification(requestPath string) *Notification {
	return &Notification{Method: "DELETE", StyleName: path.Base(requestPath)}
}

func inSLD(name xml.Name) bool {
	return name.Space == sldNamespace || name.Space == ""
}

// Title extracts the first title from an SLD document, or "".
func Title(sld string) string {
	dec := xml.NewDecoder(strings.NewReader(sld))
	for {
		tok, err := dec.Token()
		if err != nil {
			return ""
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "Title" {
			var s string
			if err := dec.DecodeElement(&s, &se); err != nil {
				return ""
			}
			return strings.TrimSpace(s)
		}
	}
}
