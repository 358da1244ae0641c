// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package loader feeds models: it reads the images of an inventory, resizes them to a fixed resolution
// and yields batches of pixels normalized to [0, 1] along with their labels.
//
// Dataset follows the usual training loop contract: Yield returns one batch at a time, io.EOF at the end
// of the epoch, and Reset restarts it.
package loader

import (
	"image"
	"io"
	"math/rand/v2"

	"github.com/disintegration/imaging"
	"github.com/gomlx/leafscan/pkg/dataset"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Default image size used by the models, both width and height.
const DefaultImageSize = 224

// NumChannels in the yielded images: R, G and B. Alpha is dropped.
const NumChannels = 3

// Batch of images and their labels.
type Batch struct {
	// Images holds the pixel values shaped [Size, Height, Width, NumChannels], flattened in row-major order,
	// with values from 0 to 1.
	Images []float32

	// Labels holds the class index of each image.
	Labels []int32

	// Paths of the images, for debugging and reporting.
	Paths []string

	Size, Height, Width int
}

// ImageSize is the number of float32 values of one image in Images.
func (b *Batch) ImageSize() int {
	return b.Height * b.Width * NumChannels
}

// Image returns the pixel values of the image at index idx, shaped [Height, Width, NumChannels].
// It shares the storage with Images.
func (b *Batch) Image(idx int) []float32 {
	size := b.ImageSize()
	return b.Images[idx*size : (idx+1)*size]
}

// OneHot returns the labels one-hot encoded, shaped [Size, dataset.NumLabels].
func (b *Batch) OneHot() [][]float32 {
	oneHot := make([][]float32, b.Size)
	for ii, label := range b.Labels {
		oneHot[ii] = make([]float32, dataset.NumLabels)
		oneHot[ii][label] = 1
	}
	return oneHot
}

// Dataset yields batches of the images of an inventory.
//
// It is not safe for concurrent use.
type Dataset struct {
	name          string
	inv           dataset.Inventory
	batchSize     int
	width, height int
	dropRemainder bool
	shuffle       *rand.Rand
	reader        dataset.ImageReader

	order []int // Order in which to yield the records of inv.
	next  int   // Position in order.
}

// New creates a Dataset that yields batches of batchSize images of inv, resized to DefaultImageSize.
//
// Use the With* methods to configure it further.
func New(name string, inv dataset.Inventory, batchSize int) *Dataset {
	ds := &Dataset{
		name:      name,
		inv:       inv,
		batchSize: batchSize,
		width:     DefaultImageSize,
		height:    DefaultImageSize,
		reader:    dataset.ReadImage,
	}
	ds.Reset()
	return ds
}

// WithImageSize sets the width and height of the yielded images.
func (ds *Dataset) WithImageSize(width, height int) *Dataset {
	ds.width, ds.height = width, height
	return ds
}

// WithShuffle makes each epoch yield the images in a different random order, drawn from rng.
// If rng is nil the inventory order is used.
func (ds *Dataset) WithShuffle(rng *rand.Rand) *Dataset {
	ds.shuffle = rng
	ds.Reset()
	return ds
}

// WithDropRemainder configures whether the last batch of an epoch is dropped when it has fewer than
// batchSize images. Useful for models that require a fixed batch size.
func (ds *Dataset) WithDropRemainder(drop bool) *Dataset {
	ds.dropRemainder = drop
	return ds
}

// WithReader replaces the function used to decode images.
func (ds *Dataset) WithReader(reader dataset.ImageReader) *Dataset {
	ds.reader = reader
	return ds
}

// Name of the dataset, used when reporting.
func (ds *Dataset) Name() string { return ds.name }

// Len returns the number of records in the dataset.
func (ds *Dataset) Len() int { return len(ds.inv) }

// Reset restarts the dataset from the beginning. If shuffling, a new order is drawn.
func (ds *Dataset) Reset() {
	if len(ds.order) != len(ds.inv) {
		ds.order = make([]int, len(ds.inv))
	}
	for ii := range ds.order {
		ds.order[ii] = ii
	}
	if ds.shuffle != nil {
		ds.shuffle.Shuffle(len(ds.order), func(i, j int) {
			ds.order[i], ds.order[j] = ds.order[j], ds.order[i]
		})
	}
	ds.next = 0
}

// Yield returns the next batch, or io.EOF when the epoch is over.
//
// Images that can't be read are logged and skipped, so a batch may be completed with images further on.
func (ds *Dataset) Yield() (*Batch, error) {
	if ds.batchSize <= 0 {
		return nil, errors.Errorf("dataset %q has invalid batch size %d", ds.name, ds.batchSize)
	}
	if ds.width <= 0 || ds.height <= 0 {
		return nil, errors.Errorf("dataset %q has invalid image size %dx%d", ds.name, ds.width, ds.height)
	}
	batch := &Batch{
		Images: make([]float32, 0, ds.batchSize*ds.height*ds.width*NumChannels),
		Labels: make([]int32, 0, ds.batchSize),
		Paths:  make([]string, 0, ds.batchSize),
		Height: ds.height,
		Width:  ds.width,
	}
	for batch.Size < ds.batchSize && ds.next < len(ds.order) {
		record := ds.inv[ds.order[ds.next]]
		ds.next++
		img, err := ds.reader(record.Path)
		if err != nil {
			klog.Warningf("dataset %q: skipping image: %v", ds.name, err)
			continue
		}
		batch.Images = AppendPixels(batch.Images, Resize(img, ds.width, ds.height))
		batch.Labels = append(batch.Labels, int32(record.Label))
		batch.Paths = append(batch.Paths, record.Path)
		batch.Size++
	}
	if batch.Size == 0 || (ds.dropRemainder && batch.Size < ds.batchSize) {
		return nil, io.EOF
	}
	return batch, nil
}

// Resize scales img to cover width x height, preserving the aspect ratio, and crops the center.
func Resize(img image.Image, width, height int) *image.NRGBA {
	return imaging.Fill(img, width, height, imaging.Center, imaging.Linear)
}

// AppendPixels appends the R, G and B values of img, row by row, divided by 255, to values.
func AppendPixels(values []float32, img *image.NRGBA) []float32 {
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		rowStart := img.PixOffset(bounds.Min.X, y)
		for x := 0; x < bounds.Dx(); x++ {
			pos := rowStart + 4*x
			values = append(values,
				float32(img.Pix[pos])/0xFF,
				float32(img.Pix[pos+1])/0xFF,
				float32(img.Pix[pos+2])/0xFF)
		}
	}
	return values
}
