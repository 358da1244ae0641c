// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package balance brings every category of an inventory up to a target number of images, by generating
// augmented copies of randomly chosen images of the same category.
package balance

import (
	"fmt"
	"image"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/leafscan/pkg/augment"
	"github.com/gomlx/leafscan/pkg/dataset"
	"github.com/gomlx/leafscan/pkg/support/fsutil"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ErrNoSourceImages is returned (wrapped) when a category needs new images but has no (readable) image to
// generate them from.
var ErrNoSourceImages = errors.New("no source images for class")

// ImageWriter persists a generated image at path.
type ImageWriter interface {
	WriteImage(path string, img *image.NRGBA) error
}

// FileWriter is the default ImageWriter: it encodes the image in the format given by the path extension,
// creating the directory if needed.
type FileWriter struct {
	// JPEGQuality from 1 to 100, used if the format is JPEG. If 0 it uses imaging's default (95).
	JPEGQuality int
}

// WriteImage implements ImageWriter.
func (w FileWriter) WriteImage(path string, img *image.NRGBA) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "failed to create directory for %q", path)
	}
	var opts []imaging.EncodeOption
	if w.JPEGQuality > 0 {
		opts = append(opts, imaging.JPEGQuality(w.JPEGQuality))
	}
	if err := imaging.Save(img, path, opts...); err != nil {
		return errors.Wrapf(err, "failed to write image %q", path)
	}
	return nil
}

// Balancer generates augmented images until each category reaches Target images.
//
// Use New to create one with the default reader and writer, and then adjust the fields if needed.
type Balancer struct {
	// Target number of images per category. Categories already at or above it are left untouched.
	Target int

	// OutputDir where generated images are written, as OutputDir/<category>/<category>_<count>.<Format>.
	OutputDir string

	// Format is the file extension, without the dot, of generated images. It defines the encoding.
	Format string

	// Categories to balance. Defaults to all labels.
	Categories []dataset.Label

	Augmenter *augment.Augmenter

	// RNG selects the source images. It should be seeded for reproducible runs.
	RNG *rand.Rand

	Reader dataset.ImageReader
	Writer ImageWriter

	// Hooks, all optional. OnStart is called with the number of images to generate per category, OnImage
	// after each image is written and OnEnd when the pass finishes, successfully or not.
	OnStart func(toGenerate dataset.Counts)
	OnImage func(generated dataset.Record)
	OnEnd   func()
}

// New creates a Balancer that writes JPEG images to outputDir.
func New(target int, outputDir string, augmenter *augment.Augmenter, rng *rand.Rand) *Balancer {
	return &Balancer{
		Target:     target,
		OutputDir:  outputDir,
		Format:     "jpg",
		Categories: dataset.AllLabels(),
		Augmenter:  augmenter,
		RNG:        rng,
		Reader:     dataset.ReadImage,
		Writer:     FileWriter{},
	}
}

func (b *Balancer) validate() error {
	if b.Target < 0 {
		return errors.Errorf("invalid negative target %d images per class", b.Target)
	}
	if b.OutputDir == "" {
		return errors.New("balancer needs an OutputDir")
	}
	if _, err := imaging.FormatFromExtension(b.Format); err != nil {
		return errors.Wrapf(err, "invalid output format %q", b.Format)
	}
	if b.Augmenter == nil || b.RNG == nil || b.Reader == nil || b.Writer == nil {
		return errors.New("balancer not fully configured: Augmenter, RNG, Reader and Writer are required")
	}
	return nil
}

// Plan returns how many images will be generated for each category: max(0, Target-count).
//
// It fails with ErrNoSourceImages if a category needs new images but has none in the inventory.
func (b *Balancer) Plan(inv dataset.Inventory) (toGenerate dataset.Counts, err error) {
	counts := inv.Counts()
	for _, label := range b.Categories {
		if !label.IsALabel() {
			return toGenerate, errors.Errorf("cannot balance unknown category %s", label)
		}
		missing := b.Target - counts[label]
		if missing <= 0 {
			continue
		}
		if counts[label] == 0 {
			return toGenerate, errors.Wrapf(ErrNoSourceImages, "class %q needs %d images but has none", label, missing)
		}
		toGenerate[label] = missing
	}
	return
}

// PrepareOutputDir removes OutputDir with any previous contents and creates it empty, with one
// subdirectory per category.
func (b *Balancer) PrepareOutputDir() error {
	dir, err := fsutil.ReplaceTildeInDir(b.OutputDir)
	if err != nil {
		return err
	}
	b.OutputDir = dir
	if err = fsutil.RecreateDir(dir); err != nil {
		return err
	}
	for _, label := range b.Categories {
		if err = os.MkdirAll(filepath.Join(dir, label.String()), 0755); err != nil {
			return errors.Wrapf(err, "failed to create output directory for class %q", label)
		}
	}
	return nil
}

// OutputPath returns the path of the generated image with the given running count for the label.
func (b *Balancer) OutputPath(label dataset.Label, count int) string {
	name := fmt.Sprintf("%s_%d.%s", label, count, strings.TrimPrefix(b.Format, "."))
	return filepath.Join(b.OutputDir, label.String(), name)
}

// Balance generates the images needed to bring each category to Target, and returns the records of the
// generated images only, in generation order. Merging them with inv is up to the caller.
//
// For each category with count c < Target, it repeatedly picks a source image of the category uniformly at
// random (with replacement), augments it and writes it as <category>_<count>, for count from c to Target-1.
//
// Source images that fail to decode are logged, excluded from further picks, and don't count.
// If no readable source is left, it fails with ErrNoSourceImages. Write errors are returned immediately;
// files already written are left on disk.
func (b *Balancer) Balance(inv dataset.Inventory) (dataset.Inventory, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}
	toGenerate, err := b.Plan(inv)
	if err != nil {
		return nil, err
	}
	total := toGenerate.Total()
	generated := make(dataset.Inventory, 0, total)
	if total == 0 {
		klog.Infof("all classes already have at least %d images, nothing to generate", b.Target)
		return generated, nil
	}

	if b.OnStart != nil {
		b.OnStart(toGenerate)
	}
	if b.OnEnd != nil {
		defer b.OnEnd()
	}
	groups := inv.ByLabel()
	counts := inv.Counts()
	for _, label := range b.Categories {
		if toGenerate[label] == 0 {
			continue
		}
		records, err := b.balanceLabel(label, groups[label], counts[label])
		generated = append(generated, records...)
		if err != nil {
			return nil, err
		}
	}
	klog.Infof("generated %s images in %q", humanize.Comma(int64(len(generated))), b.OutputDir)
	return generated, nil
}

func (b *Balancer) balanceLabel(label dataset.Label, sources dataset.Inventory, count int) (dataset.Inventory, error) {
	sources = slices.Clone(sources)
	records := make(dataset.Inventory, 0, b.Target-count)
	reuse := make(map[string]int, len(sources))
	for count < b.Target {
		if len(sources) == 0 {
			return records, errors.Wrapf(ErrNoSourceImages,
				"class %q: every source image is unreadable, %d images still missing", label, b.Target-count)
		}
		sourceIdx := b.RNG.IntN(len(sources))
		source := sources[sourceIdx]
		img, err := b.Reader(source.Path)
		if err != nil {
			klog.Warningf("class %q: skipping unreadable source image: %v", label, err)
			sources = slices.Delete(sources, sourceIdx, sourceIdx+1)
			continue
		}
		outPath := b.OutputPath(label, count)
		if err = b.Writer.WriteImage(outPath, b.Augmenter.Apply(img)); err != nil {
			return records, errors.WithMessagef(err, "while generating images for class %q", label)
		}
		record := dataset.Record{Path: outPath, Label: label}
		records = append(records, record)
		reuse[source.Path]++
		count++
		if b.OnImage != nil {
			b.OnImage(record)
		}
	}

	// Sampling is with replacement, so few sources means many near-duplicates: report the worst case.
	var maxReuse int
	var maxReusePath string
	for p, n := range reuse {
		if n > maxReuse || (n == maxReuse && p < maxReusePath) {
			maxReuse, maxReusePath = n, p
		}
	}
	klog.Infof("class %q: generated %s images from %d sources, most reused source %q (%d times)",
		label, humanize.Comma(int64(len(records))), len(reuse), maxReusePath, maxReuse)
	return records, nil
}
