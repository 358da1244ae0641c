// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ensemble

import (
	"io"
	"testing"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/leafscan/pkg/dataset"
	"github.com/gomlx/leafscan/pkg/loader"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAverage(t *testing.T) {
	mean := Average([]float64{0.7, 0.2, 0.1}, []float64{0.5, 0.1, 0.4})
	assert.InDeltaSlice(t, []float64{0.6, 0.15, 0.25}, mean, 1e-9)
	assert.Equal(t, 0, Argmax(mean))

	mean32 := Average([]float32{1, 0}, []float32{0, 1}, []float32{0, 1})
	assert.InDeltaSlice(t, []float32{1.0 / 3, 2.0 / 3}, mean32, 1e-6)
	assert.Equal(t, 1, Argmax(mean32))

	// A single vector is its own average.
	assert.Equal(t, []float64{0.2, 0.8}, Average([]float64{0.2, 0.8}))
}

func TestAveragePanics(t *testing.T) {
	err := exceptions.TryCatch[error](func() { Average[float64]() })
	require.Error(t, err)
	err = exceptions.TryCatch[error](func() { Average([]float64{0.5, 0.5}, []float64{0.2, 0.3, 0.5}) })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vector #1 has length 3")
}

func TestArgmax(t *testing.T) {
	assert.Equal(t, 2, Argmax([]float64{0.1, 0.2, 0.7}))
	assert.Equal(t, 0, Argmax([]float64{0.4, 0.4, 0.2}), "ties go to the lowest index")
	assert.Panics(t, func() { Argmax([]float64{}) })
}

// fixedClassifier returns the same probabilities for every image.
type fixedClassifier struct {
	name  string
	probs []float64
	err   error
}

func (c *fixedClassifier) Name() string { return c.name }

func (c *fixedClassifier) Predict(batch *loader.Batch) ([][]float64, error) {
	if c.err != nil {
		return nil, c.err
	}
	out := make([][]float64, batch.Size)
	for ii := range out {
		out[ii] = c.probs
	}
	return out, nil
}

// labelsDataset yields batches with labels only, no pixels.
type labelsDataset struct {
	batches [][]int32
	next    int
}

func (ds *labelsDataset) Name() string { return "labels" }
func (ds *labelsDataset) Reset()       { ds.next = 0 }
func (ds *labelsDataset) Yield() (*loader.Batch, error) {
	if ds.next >= len(ds.batches) {
		return nil, io.EOF
	}
	labels := ds.batches[ds.next]
	ds.next++
	return &loader.Batch{Labels: labels, Size: len(labels)}, nil
}

func TestEnsemblePredict(t *testing.T) {
	a := &fixedClassifier{name: "a", probs: []float64{0.7, 0.2, 0.1}}
	b := &fixedClassifier{name: "b", probs: []float64{0.5, 0.1, 0.4}}
	ens, err := New("", a, b)
	require.NoError(t, err)
	assert.Equal(t, "ensemble(a+b)", ens.Name())
	assert.Len(t, ens.Members(), 2)

	probs, err := ens.Predict(&loader.Batch{Labels: []int32{0, 1}, Size: 2})
	require.NoError(t, err)
	require.Len(t, probs, 2)
	for _, p := range probs {
		assert.InDeltaSlice(t, []float64{0.6, 0.15, 0.25}, p, 1e-9)
	}

	// Mismatched probability vectors become errors.
	bad := &fixedClassifier{name: "bad", probs: []float64{0.5, 0.5}}
	ens, err = New("mixed", a, bad)
	require.NoError(t, err)
	_, err = ens.Predict(&loader.Batch{Labels: []int32{0}, Size: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mixed")

	// Member errors are propagated.
	failing := &fixedClassifier{name: "failing", err: errors.New("out of memory")}
	ens, err = New("", a, failing)
	require.NoError(t, err)
	_, err = ens.Predict(&loader.Batch{Labels: []int32{0}, Size: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of memory")

	_, err = New("empty")
	require.Error(t, err)
}

func TestEvaluate(t *testing.T) {
	ds := &labelsDataset{batches: [][]int32{{0, 0, 1}, {2, 0}}}
	a := &fixedClassifier{name: "a", probs: []float64{0.7, 0.2, 0.1}}
	c := &fixedClassifier{name: "c", probs: []float64{0.1, 0.1, 0.8}}

	report, err := Evaluate(ds, a, c)
	require.NoError(t, err)
	assert.Equal(t, "labels", report.Dataset)
	require.Len(t, report.Metrics, 3)
	assert.Equal(t, 0, ds.next, "dataset must be reset after evaluation")

	mA := report.Get("a")
	require.NotNil(t, mA)
	assert.Equal(t, 5, mA.Total())
	assert.InDelta(t, 3.0/5.0, mA.Accuracy, 1e-9)
	assert.Equal(t, [dataset.NumLabels][dataset.NumLabels]int{{3, 0, 0}, {1, 0, 0}, {1, 0, 0}}, mA.Confusion)
	assert.InDelta(t, 3.0/5.0, mA.Precision[dataset.LabelHealthy], 1e-9)
	assert.InDelta(t, 1.0, mA.Recall[dataset.LabelHealthy], 1e-9)
	assert.Zero(t, mA.Precision[dataset.LabelWhiteScale], "never predicted")
	assert.Zero(t, mA.Recall[dataset.LabelBrownSpots])

	mC := report.Get("c")
	require.NotNil(t, mC)
	assert.InDelta(t, 1.0/5.0, mC.Accuracy, 1e-9)

	// Average of a and c is [0.4, 0.15, 0.45]: white_scale.
	ens := report.Ensemble()
	require.NotNil(t, ens)
	assert.Equal(t, "ensemble(a+c)", ens.Name)
	assert.Equal(t, mC.Confusion, ens.Confusion)

	assert.Nil(t, report.Get("missing"))
}

func TestEvaluateSingleClassifier(t *testing.T) {
	ds := &labelsDataset{batches: [][]int32{{1}}}
	report, err := Evaluate(ds, &fixedClassifier{name: "b", probs: []float64{0, 1, 0}})
	require.NoError(t, err)
	require.Len(t, report.Metrics, 1)
	assert.Nil(t, report.Ensemble())
	assert.InDelta(t, 1.0, report.Metrics[0].Accuracy, 1e-9)
}

func TestEvaluateErrors(t *testing.T) {
	ds := &labelsDataset{batches: [][]int32{{1, 2}}}
	_, err := Evaluate(ds)
	require.Error(t, err)

	_, err = Evaluate(ds, &fixedClassifier{name: "broken", err: errors.New("boom")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")

	// Wrong number of classes.
	_, err = Evaluate(ds, &fixedClassifier{name: "wide", probs: []float64{0, 0, 0, 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "label out of range")
}
