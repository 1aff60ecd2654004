package svimage

import (
	"image"

	"github.com/disintegration/imaging"
)

// NewImageFromFile reads and decodes an image file.
func NewImageFromFile(fn string) (*Image, error) {
	img, err := imaging.Open(fn)
	if err != nil {
		return nil, err
	}
	return NewImageFromStdImage(img), nil
}

// WriteImageToFile encodes img based on the file extension.
func WriteImageToFile(fn string, img image.Image) error {
	return imaging.Save(imaging.Clone(img), fn)
}

// Resize scales the image to the given dimensions with linear interpolation.
// The pipeline uses it to bring raw frames down to the processing resolution.
func (i *Image) Resize(width, height int) *Image {
	if width == i.width && height == i.height {
		return i.Clone()
	}
	return NewImageFromStdImage(imaging.Resize(i, width, height, imaging.Linear))
}
