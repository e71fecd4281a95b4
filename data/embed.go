// Package data holds the request and style templates compiled into the binaries.
package data

import (
	"embed"
)

// SLD holds the default style templates, one per geometry kind.
//
//go:embed sld/*.sld
var SLD embed.FS

// WPS holds the WPS Execute request templates.
//
//go:embed wps/*.xml
var WPS embed.FS
