// Package images - Image dimensions, loading and region extraction for the search agents.
package images

import (
	"fmt"
	"image"
	// Register decoders for image.DecodeConfig.
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/nvr-ai/go-localize/common"
	"github.com/pkg/errors"
)

var (
	// ErrInvalidSize is returned for images too small to hold a box.
	ErrInvalidSize = errors.New("invalid image size")
	// ErrImageNotFound is returned when no file matches an image identifier.
	ErrImageNotFound = errors.New("image not found")
)

// Extensions tried, in order, when resolving an image identifier to a file.
var Extensions = []string{".jpg", ".jpeg", ".png"}

// Size holds the pixel dimensions of an image.
type Size struct {
	// The width of the image.
	Width int `json:"width" yaml:"width"`
	// The height of the image.
	Height int `json:"height" yaml:"height"`
}

// Validate checks that the image can hold a box with positive area.
func (s Size) Validate() error {
	if s.Width < 2 || s.Height < 2 {
		return errors.Wrapf(ErrInvalidSize, "%dx%d", s.Width, s.Height)
	}
	return nil
}

// Full returns the box spanning the whole image, (0, 0, W-1, H-1).
func (s Size) Full() common.Box {
	return common.NewBox(0, 0, float64(s.Width-1), float64(s.Height-1))
}

// Contains reports whether b lies inside the image.
func (s Size) Contains(b common.Box) bool {
	return b.Within(s.Width, s.Height)
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Resolve returns the path of the first file named id plus one of
// Extensions inside dir. Extensions in other cases, such as ".JPG", are
// found by scanning dir.
//
// Arguments:
//   - dir: Directory holding the images.
//   - id: Image identifier, the file name without extension.
//
// Returns:
//   - string: The path of the image file.
//   - error: ErrImageNotFound if no candidate exists.
func Resolve(dir, id string) (string, error) {
	for _, ext := range Extensions {
		path := filepath.Join(dir, id+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", errors.Wrapf(ErrImageNotFound, "%s in %s: %v", id, dir, err)
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.TrimSuffix(name, filepath.Ext(name)) != id {
			continue
		}
		if _, ok := FormatOf(name); ok {
			return filepath.Join(dir, name), nil
		}
	}
	return "", errors.Wrapf(ErrImageNotFound, "%s in %s", id, dir)
}

// LoadSize reads the dimensions of the image identified by id without
// decoding its pixels.
//
// Arguments:
//   - dir: Directory holding the images.
//   - id: Image identifier, the file name without extension.
//
// Returns:
//   - Size: The image dimensions.
//   - error: An error if the file is missing or its header cannot be decoded.
//
// @example
// size, err := images.LoadSize("/data/voc/JPEGImages", "000005")
//
//	if err != nil {
//	    return err
//	}
func LoadSize(dir, id string) (Size, error) {
	path, err := Resolve(dir, id)
	if err != nil {
		return Size{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return Size{}, errors.Wrap(err, "open image")
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return Size{}, errors.Wrapf(err, "decode header of %s", path)
	}

	size := Size{Width: cfg.Width, Height: cfg.Height}
	if err := size.Validate(); err != nil {
		return Size{}, err
	}
	return size, nil
}

// Load decodes the image identified by id.
func Load(dir, id string) (image.Image, error) {
	path, err := Resolve(dir, id)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open image")
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return img, nil
}
