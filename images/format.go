package images

import (
	"path/filepath"
	"strings"
)

// ImageFormat represents supported image formats
type ImageFormat string

const (
	FormatJPEG ImageFormat = "jpeg"
	FormatPNG  ImageFormat = "png"
)

var formats = map[string]ImageFormat{
	".jpg":  FormatJPEG,
	".jpeg": FormatJPEG,
	".png":  FormatPNG,
}

// FormatOf maps a file name to its image format by extension, ignoring case.
func FormatOf(name string) (ImageFormat, bool) {
	f, ok := formats[strings.ToLower(filepath.Ext(name))]
	return f, ok
}
