// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package ensemble combines the predictions of independently trained classifiers and evaluates them.
//
// Classifiers output one probability vector per image. An Ensemble averages the vectors of its members,
// unweighted, and the predicted class is the argmax of the average.
package ensemble

import (
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/leafscan/pkg/loader"
	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
)

// Classifier predicts class probabilities for a batch of images.
type Classifier interface {
	// Name of the classifier, used in reports.
	Name() string

	// Predict returns one probability vector, of size dataset.NumLabels, per image in the batch.
	Predict(batch *loader.Batch) ([][]float64, error)
}

// Average returns the element-wise arithmetic mean of the vectors.
//
// It panics if no vector is given or if they have different lengths.
func Average[T constraints.Float](vectors ...[]T) []T {
	if len(vectors) == 0 {
		exceptions.Panicf("ensemble.Average requires at least one vector")
	}
	mean := make([]T, len(vectors[0]))
	for ii, v := range vectors {
		if len(v) != len(mean) {
			exceptions.Panicf("ensemble.Average: vector #%d has length %d, but vector #0 has length %d",
				ii, len(v), len(mean))
		}
		for jj, x := range v {
			mean[jj] += x
		}
	}
	n := T(len(vectors))
	for jj := range mean {
		mean[jj] /= n
	}
	return mean
}

// Argmax returns the index of the largest value. Ties go to the lowest index.
//
// It panics on an empty vector.
func Argmax[T constraints.Float](v []T) int {
	if len(v) == 0 {
		exceptions.Panicf("ensemble.Argmax of an empty vector")
	}
	best := 0
	for ii, x := range v[1:] {
		if x > v[best] {
			best = ii + 1
		}
	}
	return best
}

// Ensemble is a Classifier that averages the probabilities of its members.
type Ensemble struct {
	name    string
	members []Classifier
}

var _ Classifier = (*Ensemble)(nil)

// New creates an Ensemble of the given members. If name is empty, one is built from the members' names.
func New(name string, members ...Classifier) (*Ensemble, error) {
	if len(members) == 0 {
		return nil, errors.New("an ensemble needs at least one member")
	}
	if name == "" {
		names := make([]string, len(members))
		for ii, m := range members {
			names[ii] = m.Name()
		}
		name = "ensemble(" + strings.Join(names, "+") + ")"
	}
	return &Ensemble{name: name, members: members}, nil
}

// Name implements Classifier.
func (e *Ensemble) Name() string { return e.name }

// Members of the ensemble.
func (e *Ensemble) Members() []Classifier { return e.members }

// Predict implements Classifier.
func (e *Ensemble) Predict(batch *loader.Batch) ([][]float64, error) {
	predictions := make([][][]float64, len(e.members))
	for ii, m := range e.members {
		var err error
		predictions[ii], err = m.Predict(batch)
		if err != nil {
			return nil, errors.WithMessagef(err, "ensemble %q member %q", e.name, m.Name())
		}
	}
	return e.combine(batch.Size, predictions)
}

// combine averages, per image, the predictions of the members.
func (e *Ensemble) combine(batchSize int, predictions [][][]float64) (probs [][]float64, err error) {
	err = exceptions.TryCatch[error](func() {
		probs = make([][]float64, batchSize)
		perImage := make([][]float64, len(predictions))
		for imgIdx := range batchSize {
			for ii, p := range predictions {
				if len(p) != batchSize {
					exceptions.Panicf("member %q returned %d predictions for a batch of %d images",
						e.members[ii].Name(), len(p), batchSize)
				}
				perImage[ii] = p[imgIdx]
			}
			probs[imgIdx] = Average(perImage...)
		}
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "ensemble %q", e.name)
	}
	return probs, nil
}
