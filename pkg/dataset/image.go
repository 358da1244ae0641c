// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// ImageReader decodes the image at path.
type ImageReader func(path string) (image.Image, error)

// ReadImage is the default ImageReader: it decodes any format supported by imaging (JPEG, PNG, GIF, TIFF, BMP)
// and applies the EXIF orientation.
func ReadImage(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read image %q", path)
	}
	return img, nil
}
