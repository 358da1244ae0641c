// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package augment implements randomized image transformations used to synthesize new training images.
//
// An Augmenter holds an ordered list of transforms, each with its own probability. Every call to
// Augmenter.Apply draws, for each transform, whether it is applied and with which magnitude, so
// the same source image generates different outputs. All randomness comes from the *rand.Rand given
// to New, so a seeded generator makes the outputs reproducible.
//
// Images are normalized to *image.NRGBA (non-premultiplied R,G,B,A channel order) before any transform,
// and transforms always return *image.NRGBA of the same size as their input.
package augment

import (
	"image"
	"image/color"
	"math"
	"math/rand/v2"

	"github.com/disintegration/imaging"
)

// Config holds the probability and magnitude of each transform.
// A transform with probability 0 is never applied.
type Config struct {
	// FlipProbability of flipping the image horizontally.
	FlipProbability float64 `yaml:"flip_probability"`

	// RotateProbability of rotating the image by an angle uniformly drawn from [-MaxRotateDegrees, MaxRotateDegrees].
	// The image is cropped back to its original size, and uncovered areas are black.
	RotateProbability float64 `yaml:"rotate_probability"`
	MaxRotateDegrees  float64 `yaml:"max_rotate_degrees"`

	// BrightnessContrastProbability of changing brightness and contrast, each by a percentage uniformly
	// drawn from [-MaxBrightness, MaxBrightness] and [-MaxContrast, MaxContrast].
	BrightnessContrastProbability float64 `yaml:"brightness_contrast_probability"`
	MaxBrightness                 float64 `yaml:"max_brightness"`
	MaxContrast                   float64 `yaml:"max_contrast"`

	// NoiseProbability of adding gaussian noise, with standard deviation uniformly drawn from
	// [0, MaxNoiseStdDev], in pixel units (0 to 255).
	NoiseProbability float64 `yaml:"noise_probability"`
	MaxNoiseStdDev   float64 `yaml:"max_noise_stddev"`

	// ShiftScaleRotateProbability of the combined transform: shift by up to MaxShift (fraction of the
	// image size), scale by 1±MaxScale and rotate by up to MaxShiftScaleRotateDegrees.
	ShiftScaleRotateProbability float64 `yaml:"shift_scale_rotate_probability"`
	MaxShift                    float64 `yaml:"max_shift"`
	MaxScale                    float64 `yaml:"max_scale"`
	MaxShiftScaleRotateDegrees  float64 `yaml:"max_shift_scale_rotate_degrees"`

	// BlurProbability of a gaussian blur with sigma uniformly drawn from [0.5, MaxBlurSigma].
	BlurProbability float64 `yaml:"blur_probability"`
	MaxBlurSigma    float64 `yaml:"max_blur_sigma"`
}

// DefaultConfig returns the transform set used to balance the leaf disease dataset.
func DefaultConfig() Config {
	return Config{
		FlipProbability:               0.5,
		RotateProbability:             0.5,
		MaxRotateDegrees:              30,
		BrightnessContrastProbability: 0.5,
		MaxBrightness:                 20,
		MaxContrast:                   20,
		NoiseProbability:              0.3,
		MaxNoiseStdDev:                7,
		ShiftScaleRotateProbability:   0.5,
		MaxShift:                      0.0625,
		MaxScale:                      0.1,
		MaxShiftScaleRotateDegrees:    45,
		BlurProbability:               0.2,
		MaxBlurSigma:                  1.5,
	}
}

// Transform is one randomized image transformation.
type Transform interface {
	// Name of the transform, for logging.
	Name() string

	// Probability that the transform is applied in each call to Augmenter.Apply.
	Probability() float64

	// Apply the transform with randomly drawn parameters. It must return an image of the same size.
	Apply(img *image.NRGBA, rng *rand.Rand) *image.NRGBA
}

// Augmenter applies a random composition of transforms.
type Augmenter struct {
	transforms []Transform
	rng        *rand.Rand
}

// New creates an Augmenter with the transforms configured in config, applied in the order:
// flip, rotate, brightness/contrast, noise, shift/scale/rotate, blur.
//
// rng must not be nil: pass a seeded generator to have reproducible augmentations.
func New(config Config, rng *rand.Rand) *Augmenter {
	return NewWithTransforms(rng,
		&FlipH{P: config.FlipProbability},
		&Rotate{P: config.RotateProbability, MaxDegrees: config.MaxRotateDegrees},
		&BrightnessContrast{P: config.BrightnessContrastProbability,
			MaxBrightness: config.MaxBrightness, MaxContrast: config.MaxContrast},
		&GaussianNoise{P: config.NoiseProbability, MaxStdDev: config.MaxNoiseStdDev},
		&ShiftScaleRotate{P: config.ShiftScaleRotateProbability,
			MaxShift: config.MaxShift, MaxScale: config.MaxScale, MaxDegrees: config.MaxShiftScaleRotateDegrees},
		&Blur{P: config.BlurProbability, MaxSigma: config.MaxBlurSigma},
	)
}

// NewWithTransforms creates an Augmenter with an arbitrary list of transforms, applied in the order given.
func NewWithTransforms(rng *rand.Rand, transforms ...Transform) *Augmenter {
	if rng == nil {
		panic("augment.NewWithTransforms requires a non-nil *rand.Rand")
	}
	return &Augmenter{transforms: transforms, rng: rng}
}

// Transforms returns the transforms used by the Augmenter.
func (a *Augmenter) Transforms() []Transform {
	return a.transforms
}

// Apply returns a new augmented copy of img. The input is never modified.
//
// For each transform, in order, a uniform draw decides whether it is applied.
func (a *Augmenter) Apply(img image.Image) *image.NRGBA {
	out := ToNRGBA(img)
	for _, t := range a.transforms {
		p := t.Probability()
		if p <= 0 {
			continue
		}
		if a.rng.Float64() < p {
			out = t.Apply(out, a.rng)
		}
	}
	return out
}

// ToNRGBA returns a copy of img as *image.NRGBA with bounds starting at (0, 0).
// Decoders return many color models (YCbCr for JPEG, paletted, gray, 16 bits...), this brings
// all of them to the same R,G,B,A layout.
func ToNRGBA(img image.Image) *image.NRGBA {
	return imaging.Clone(img)
}

// uniform returns a value uniformly drawn from [-limit, limit].
func uniform(rng *rand.Rand, limit float64) float64 {
	return (2*rng.Float64() - 1) * limit
}

// FlipH mirrors the image horizontally.
type FlipH struct {
	P float64
}

func (t *FlipH) Name() string         { return "flip_h" }
func (t *FlipH) Probability() float64 { return t.P }

func (t *FlipH) Apply(img *image.NRGBA, _ *rand.Rand) *image.NRGBA {
	return imaging.FlipH(img)
}

// Rotate rotates the image around its center, keeping the original size.
type Rotate struct {
	P, MaxDegrees float64
}

func (t *Rotate) Name() string         { return "rotate" }
func (t *Rotate) Probability() float64 { return t.P }

func (t *Rotate) Apply(img *image.NRGBA, rng *rand.Rand) *image.NRGBA {
	angle := uniform(rng, t.MaxDegrees)
	size := img.Bounds().Size()
	rotated := imaging.Rotate(img, angle, color.NRGBA{A: 255})
	return imaging.CropCenter(rotated, size.X, size.Y)
}

// BrightnessContrast jitters brightness and contrast by a random percentage.
type BrightnessContrast struct {
	P, MaxBrightness, MaxContrast float64
}

func (t *BrightnessContrast) Name() string         { return "brightness_contrast" }
func (t *BrightnessContrast) Probability() float64 { return t.P }

func (t *BrightnessContrast) Apply(img *image.NRGBA, rng *rand.Rand) *image.NRGBA {
	img = imaging.AdjustBrightness(img, uniform(rng, t.MaxBrightness))
	return imaging.AdjustContrast(img, uniform(rng, t.MaxContrast))
}

// GaussianNoise adds independent gaussian noise to each R, G and B value. Alpha is untouched.
type GaussianNoise struct {
	P, MaxStdDev float64
}

func (t *GaussianNoise) Name() string         { return "gaussian_noise" }
func (t *GaussianNoise) Probability() float64 { return t.P }

func (t *GaussianNoise) Apply(img *image.NRGBA, rng *rand.Rand) *image.NRGBA {
	stdDev := rng.Float64() * t.MaxStdDev
	out := imaging.Clone(img)
	if stdDev == 0 {
		return out
	}
	for pos := 0; pos+3 < len(out.Pix); pos += 4 {
		for channel := range 3 {
			v := float64(out.Pix[pos+channel]) + rng.NormFloat64()*stdDev
			out.Pix[pos+channel] = uint8(math.Max(0, math.Min(255, math.Round(v))))
		}
	}
	return out
}

// ShiftScaleRotate scales, rotates and shifts the image in one transform, keeping the original size.
// Uncovered areas are black.
type ShiftScaleRotate struct {
	P, MaxShift, MaxScale, MaxDegrees float64
}

func (t *ShiftScaleRotate) Name() string         { return "shift_scale_rotate" }
func (t *ShiftScaleRotate) Probability() float64 { return t.P }

func (t *ShiftScaleRotate) Apply(img *image.NRGBA, rng *rand.Rand) *image.NRGBA {
	size := img.Bounds().Size()
	scale := 1 + uniform(rng, t.MaxScale)
	angle := uniform(rng, t.MaxDegrees)
	dx := int(math.Round(uniform(rng, t.MaxShift) * float64(size.X)))
	dy := int(math.Round(uniform(rng, t.MaxShift) * float64(size.Y)))

	scaledW := max(1, int(math.Round(float64(size.X)*scale)))
	scaledH := max(1, int(math.Round(float64(size.Y)*scale)))
	transformed := imaging.Resize(img, scaledW, scaledH, imaging.Linear)
	transformed = imaging.Rotate(transformed, angle, color.NRGBA{A: 255})

	canvas := imaging.New(size.X, size.Y, color.NRGBA{A: 255})
	tSize := transformed.Bounds().Size()
	pos := image.Pt((size.X-tSize.X)/2+dx, (size.Y-tSize.Y)/2+dy)
	return imaging.Paste(canvas, transformed, pos)
}

// Blur applies a gaussian blur.
type Blur struct {
	P, MaxSigma float64
}

func (t *Blur) Name() string         { return "blur" }
func (t *Blur) Probability() float64 { return t.P }

func (t *Blur) Apply(img *image.NRGBA, rng *rand.Rand) *image.NRGBA {
	sigma := 0.5
	if t.MaxSigma > sigma {
		sigma += rng.Float64() * (t.MaxSigma - sigma)
	}
	return imaging.Blur(img, sigma)
}
