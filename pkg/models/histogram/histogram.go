// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package histogram implements a small nearest-centroid classifier over color histograms.
//
// It is a reference model: it trains in one pass over the data, without any ML backend, and it is enough to
// tell apart leaves by their dominant colors. Its probabilities are the softmax of the negative L1 distances
// from the image histogram to the mean histogram of each class.
package histogram

import (
	"fmt"
	"io"
	"math"

	"github.com/gomlx/leafscan/pkg/dataset"
	"github.com/gomlx/leafscan/pkg/ensemble"
	"github.com/gomlx/leafscan/pkg/loader"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// DefaultTemperature scales the distances before the softmax. Higher values give sharper probabilities.
const DefaultTemperature = 10.0

// Model holds one centroid histogram per class.
type Model struct {
	name        string
	bins        int
	temperature float64

	// centroids[label] has NumChannels*bins values, each channel sums to 1. It is nil for labels
	// without training examples.
	centroids [dataset.NumLabels][]float64
	counts    dataset.Counts
}

var _ ensemble.Classifier = (*Model)(nil)

// Fit computes the centroids over one epoch of ds, using the given number of bins per channel.
//
// The name is used in reports; if empty one is generated from the number of bins.
func Fit(name string, ds ensemble.Dataset, bins int) (*Model, error) {
	if bins < 1 || bins > 256 {
		return nil, errors.Errorf("invalid number of bins %d, it must be between 1 and 256", bins)
	}
	if name == "" {
		name = fmt.Sprintf("histogram-%d", bins)
	}
	m := &Model{name: name, bins: bins, temperature: DefaultTemperature}
	ds.Reset()
	defer ds.Reset()
	for {
		batch, err := ds.Yield()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.WithMessagef(err, "while fitting %q", name)
		}
		for ii := range batch.Size {
			label := dataset.Label(batch.Labels[ii])
			if !label.IsALabel() {
				return nil, errors.Errorf("%q: invalid label %d in %q", name, batch.Labels[ii], batch.Paths[ii])
			}
			if m.centroids[label] == nil {
				m.centroids[label] = make([]float64, loader.NumChannels*bins)
			}
			hist := m.Histogram(batch.Image(ii))
			for jj, v := range hist {
				m.centroids[label][jj] += v
			}
			m.counts[label]++
		}
	}
	if m.counts.Total() == 0 {
		return nil, errors.Errorf("%q: no training images in %q", name, ds.Name())
	}
	for label, centroid := range m.centroids {
		for jj := range centroid {
			centroid[jj] /= float64(m.counts[label])
		}
	}
	klog.V(1).Infof("fitted %q on %d images of %q: %v", name, m.counts.Total(), ds.Name(), m.counts)
	return m, nil
}

// WithTemperature sets the scale of the distances before the softmax.
func (m *Model) WithTemperature(temperature float64) *Model {
	m.temperature = temperature
	return m
}

// Name implements ensemble.Classifier.
func (m *Model) Name() string { return m.name }

// Bins per channel.
func (m *Model) Bins() int { return m.bins }

// Counts of training images per class.
func (m *Model) Counts() dataset.Counts { return m.counts }

// Histogram returns the normalized histogram of an image given as [height, width, NumChannels] values
// in [0, 1]: bins values per channel, each channel summing to 1.
func (m *Model) Histogram(pixels []float32) []float64 {
	hist := make([]float64, loader.NumChannels*m.bins)
	numPixels := len(pixels) / loader.NumChannels
	if numPixels == 0 {
		return hist
	}
	for ii, v := range pixels {
		channel := ii % loader.NumChannels
		bin := int(v * float32(m.bins))
		bin = min(max(bin, 0), m.bins-1)
		hist[channel*m.bins+bin]++
	}
	for ii := range hist {
		hist[ii] /= float64(numPixels)
	}
	return hist
}

// Predict implements ensemble.Classifier.
func (m *Model) Predict(batch *loader.Batch) ([][]float64, error) {
	probs := make([][]float64, batch.Size)
	for ii := range batch.Size {
		probs[ii] = m.predictOne(m.Histogram(batch.Image(ii)))
	}
	return probs, nil
}

func (m *Model) predictOne(hist []float64) []float64 {
	logits := make([]float64, dataset.NumLabels)
	maxLogit := math.Inf(-1)
	for label, centroid := range m.centroids {
		if centroid == nil {
			logits[label] = math.Inf(-1)
			continue
		}
		var dist float64
		for jj, v := range hist {
			dist += math.Abs(v - centroid[jj])
		}
		logits[label] = -m.temperature * dist
		maxLogit = max(maxLogit, logits[label])
	}
	var sum float64
	for label, logit := range logits {
		logits[label] = math.Exp(logit - maxLogit)
		sum += logits[label]
	}
	for label := range logits {
		logits[label] /= sum
	}
	return logits
}
