// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package augment

import (
	"image"
	"image/color"
	"math/rand/v2"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gradient returns a test image whose pixels are all different, so flips and rotations are observable.
func gradient(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			img.Set(x, y, color.RGBA{R: uint8(x * 255 / width), G: uint8(y * 255 / height), B: 128, A: 255})
		}
	}
	return img
}

func alwaysConfig() Config {
	config := DefaultConfig()
	config.FlipProbability = 1
	config.RotateProbability = 1
	config.BrightnessContrastProbability = 1
	config.NoiseProbability = 1
	config.ShiftScaleRotateProbability = 1
	config.BlurProbability = 1
	return config
}

func TestApplyKeepsSize(t *testing.T) {
	src := gradient(40, 30)
	aug := New(alwaysConfig(), rand.New(rand.NewPCG(1, 2)))
	for range 5 {
		out := aug.Apply(src)
		require.NotNil(t, out)
		assert.Equal(t, image.Pt(40, 30), out.Bounds().Size())
		assert.Equal(t, image.Pt(0, 0), out.Bounds().Min)
	}
	// The source is never modified.
	assert.Equal(t, gradient(40, 30).Pix, src.Pix)
}

func TestApplyDeterministic(t *testing.T) {
	src := gradient(32, 32)
	aug1 := New(DefaultConfig(), rand.New(rand.NewPCG(42, 0)))
	aug2 := New(DefaultConfig(), rand.New(rand.NewPCG(42, 0)))
	for range 10 {
		assert.Equal(t, aug1.Apply(src).Pix, aug2.Apply(src).Pix)
	}
}

func TestApplyNoTransforms(t *testing.T) {
	src := gradient(16, 8)
	aug := New(Config{}, rand.New(rand.NewPCG(0, 0)))
	out := aug.Apply(src)
	assert.Equal(t, imaging.Clone(src).Pix, out.Pix)
}

func TestFlipOnly(t *testing.T) {
	src := gradient(16, 8)
	aug := NewWithTransforms(rand.New(rand.NewPCG(0, 0)), &FlipH{P: 1})
	assert.Equal(t, imaging.FlipH(src).Pix, aug.Apply(src).Pix)
}

func TestChannelOrder(t *testing.T) {
	// A paletted (non RGBA) image with a single pure red color must come out red in R,G,B,A order.
	palette := color.Palette{color.RGBA{R: 255, A: 255}}
	src := image.NewPaletted(image.Rect(0, 0, 4, 4), palette)
	out := ToNRGBA(src)
	assert.Equal(t, []uint8{255, 0, 0, 255}, out.Pix[0:4])
}

func TestGaussianNoise(t *testing.T) {
	src := imaging.New(8, 8, color.NRGBA{R: 100, G: 100, B: 100, A: 200})
	noise := &GaussianNoise{P: 1, MaxStdDev: 20}
	out := noise.Apply(src, rand.New(rand.NewPCG(3, 4)))
	changed := false
	for pos := 0; pos < len(out.Pix); pos += 4 {
		assert.Equal(t, uint8(200), out.Pix[pos+3], "alpha must not change")
		if out.Pix[pos] != 100 || out.Pix[pos+1] != 100 || out.Pix[pos+2] != 100 {
			changed = true
		}
	}
	assert.True(t, changed)
	assert.Equal(t, uint8(100), src.Pix[0], "source must not change")
}

func TestTransformNames(t *testing.T) {
	aug := New(DefaultConfig(), rand.New(rand.NewPCG(0, 0)))
	var names []string
	for _, tr := range aug.Transforms() {
		names = append(names, tr.Name())
	}
	assert.Equal(t, []string{"flip_h", "rotate", "brightness_contrast", "gaussian_noise", "shift_scale_rotate", "blur"}, names)
}
