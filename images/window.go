package images

import (
	"image"

	"github.com/nfnt/resize"
	"github.com/nvr-ai/go-localize/common"
	"github.com/pkg/errors"
)

const (
	// DefaultContextPad is the fraction of the box size added on every side
	// before a region is cropped.
	DefaultContextPad = 0.10
	// DefaultCropSize is the side of the square crop handed to a feature extractor.
	DefaultCropSize = 227
)

// subImager is implemented by every concrete image type in the standard library.
type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// ContextWindow expands a box by pad times its integer width and height on
// every side and clips it to the image.
//
// Arguments:
//   - box: The region of interest.
//   - size: The image dimensions.
//   - pad: Fraction of width/height added on each side.
//
// Returns:
//   - image.Rectangle: The padded window, Max exclusive, relative to the image origin.
//
// @example
// win := ContextWindow(common.NewBox(10, 10, 110, 60), Size{Width: 640, Height: 480}, 0.1)
// // (0,5)-(120,65)
func ContextWindow(box common.Box, size Size, pad float64) image.Rectangle {
	r := box.ToRect()
	dx := int(float64(r.Dx()) * pad)
	dy := int(float64(r.Dy()) * pad)

	// Not image.Rect: a box outside the image must stay empty, not be canonicalized.
	return image.Rectangle{
		Min: image.Point{X: max(r.Min.X-dx, 0), Y: max(r.Min.Y-dy, 0)},
		Max: image.Point{X: min(r.Max.X+dx, size.Width), Y: min(r.Max.Y+dy, size.Height)},
	}
}

// CropRegion cuts the context window around box out of img and resizes it
// to a dim x dim square.
//
// Arguments:
//   - img: The source image.
//   - box: The region of interest in image coordinates.
//   - pad: Context padding, see ContextWindow.
//   - dim: Side of the output square.
//
// Returns:
//   - image.Image: The resized crop.
//   - error: An error if the window is empty or the image cannot be cropped.
func CropRegion(img image.Image, box common.Box, pad float64, dim int) (image.Image, error) {
	if dim <= 0 {
		return nil, errors.Errorf("invalid crop size %d", dim)
	}

	bounds := img.Bounds()
	win := ContextWindow(box, Size{Width: bounds.Dx(), Height: bounds.Dy()}, pad)
	if win.Empty() {
		return nil, errors.Errorf("empty context window for box %s", box)
	}

	si, ok := img.(subImager)
	if !ok {
		return nil, errors.Errorf("image type %T does not support cropping", img)
	}
	crop := si.SubImage(win.Add(bounds.Min))

	return resize.Resize(uint(dim), uint(dim), crop, resize.Bilinear), nil
}
