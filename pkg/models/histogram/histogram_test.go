// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package histogram

import (
	"fmt"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/gomlx/leafscan/pkg/dataset"
	"github.com/gomlx/leafscan/pkg/ensemble"
	"github.com/gomlx/leafscan/pkg/loader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var leafColors = map[dataset.Label]color.NRGBA{
	dataset.LabelHealthy:    {R: 40, G: 160, B: 40, A: 255},
	dataset.LabelBrownSpots: {R: 140, G: 90, B: 30, A: 255},
	dataset.LabelWhiteScale: {R: 230, G: 230, B: 220, A: 255},
}

// leafReader draws a leaf of the color of the class in the path, with a little variation per image.
func leafReader(path string) (image.Image, error) {
	var (
		labelName string
		idx       int
	)
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	labelName = parts[0]
	if _, err := fmt.Sscanf(parts[1], "%d.png", &idx); err != nil {
		return nil, err
	}
	label, err := dataset.LabelString(labelName)
	if err != nil {
		return nil, err
	}
	c := leafColors[label]
	c.R += uint8(idx % 5)
	img := imaging.New(8, 8, c)
	// Some background.
	for x := range 8 {
		img.Set(x, 0, color.NRGBA{A: 255})
	}
	return img, nil
}

func leafDataset(name string, perClass int) *loader.Dataset {
	var inv dataset.Inventory
	for _, label := range dataset.AllLabels() {
		for ii := range perClass {
			inv = append(inv, dataset.Record{Path: fmt.Sprintf("/%s/%d.png", label, ii), Label: label})
		}
	}
	return loader.New(name, inv, 4).WithImageSize(8, 8).WithReader(leafReader)
}

func TestHistogram(t *testing.T) {
	m := &Model{bins: 4}
	// 2 pixels: black and white.
	hist := m.Histogram([]float32{0, 0, 0, 1, 1, 1})
	require.Len(t, hist, 12)
	for channel := range loader.NumChannels {
		assert.InDeltaSlice(t, []float64{0.5, 0, 0, 0.5}, hist[channel*4:(channel+1)*4], 1e-9)
	}
	assert.Len(t, m.Histogram(nil), 12)
}

func TestFitPredict(t *testing.T) {
	train := leafDataset("train", 6)
	m8, err := Fit("", train, 8)
	require.NoError(t, err)
	assert.Equal(t, "histogram-8", m8.Name())
	assert.Equal(t, 8, m8.Bins())
	assert.Equal(t, dataset.Counts{6, 6, 6}, m8.Counts())

	m16, err := Fit("coarse", train, 16)
	require.NoError(t, err)
	m16.WithTemperature(5)

	test := leafDataset("test", 3)
	report, err := ensemble.Evaluate(test, m8, m16)
	require.NoError(t, err)
	require.Len(t, report.Metrics, 3)
	for _, metrics := range report.Metrics {
		assert.InDeltaf(t, 1.0, metrics.Accuracy, 1e-9, "%s should separate solid colors", metrics.Name)
	}

	batch, err := test.Yield()
	require.NoError(t, err)
	probs, err := m8.Predict(batch)
	require.NoError(t, err)
	require.Len(t, probs, batch.Size)
	for _, p := range probs {
		var sum float64
		for _, v := range p {
			sum += v
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	}
}

func TestFitMissingClass(t *testing.T) {
	inv := dataset.Inventory{
		{Path: "/healthy/0.png", Label: dataset.LabelHealthy},
		{Path: "/white_scale/0.png", Label: dataset.LabelWhiteScale},
	}
	ds := loader.New("partial", inv, 2).WithImageSize(8, 8).WithReader(leafReader)
	m, err := Fit("partial", ds, 4)
	require.NoError(t, err)
	batch, err := ds.Yield()
	require.NoError(t, err)
	probs, err := m.Predict(batch)
	require.NoError(t, err)
	for _, p := range probs {
		assert.Zero(t, p[dataset.LabelBrownSpots], "class without examples is never predicted")
	}
}

func TestFitErrors(t *testing.T) {
	_, err := Fit("", leafDataset("train", 1), 0)
	require.Error(t, err)
	_, err = Fit("", leafDataset("empty", 0), 8)
	require.Error(t, err)
}
