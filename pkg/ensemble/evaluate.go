// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ensemble

import (
	"io"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/leafscan/pkg/dataset"
	"github.com/gomlx/leafscan/pkg/loader"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Dataset is the source of labeled batches evaluated. loader.Dataset implements it.
type Dataset interface {
	Name() string
	Reset()
	Yield() (*loader.Batch, error)
}

// Metrics of one classifier over a dataset.
type Metrics struct {
	Name string

	// Confusion[trueLabel][predictedLabel] counts the images.
	Confusion [dataset.NumLabels][dataset.NumLabels]int

	Accuracy float64

	// Precision and Recall per label. They are 0 for labels never predicted (precision) or absent (recall).
	Precision, Recall [dataset.NumLabels]float64
}

// Total number of images evaluated.
func (m *Metrics) Total() int {
	var total int
	for _, row := range m.Confusion {
		for _, n := range row {
			total += n
		}
	}
	return total
}

// Correct returns the number of images classified correctly.
func (m *Metrics) Correct() int {
	var correct int
	for label := range m.Confusion {
		correct += m.Confusion[label][label]
	}
	return correct
}

// add one prediction.
func (m *Metrics) add(trueLabel, predicted int) {
	if trueLabel < 0 || trueLabel >= dataset.NumLabels || predicted < 0 || predicted >= dataset.NumLabels {
		exceptions.Panicf("%q: label out of range: true=%d, predicted=%d", m.Name, trueLabel, predicted)
	}
	m.Confusion[trueLabel][predicted]++
}

// finalize computes the ratios from the confusion matrix.
func (m *Metrics) finalize() {
	if total := m.Total(); total > 0 {
		m.Accuracy = float64(m.Correct()) / float64(total)
	}
	for label := range dataset.NumLabels {
		var predicted, actual int
		for other := range dataset.NumLabels {
			predicted += m.Confusion[other][label]
			actual += m.Confusion[label][other]
		}
		tp := float64(m.Confusion[label][label])
		if predicted > 0 {
			m.Precision[label] = tp / float64(predicted)
		}
		if actual > 0 {
			m.Recall[label] = tp / float64(actual)
		}
	}
}

// Report of an evaluation: one entry per classifier, followed by the ensemble of all of them, if there
// is more than one.
type Report struct {
	Dataset string
	Metrics []*Metrics
}

// Get returns the metrics of the classifier with the given name, or nil.
func (r *Report) Get(name string) *Metrics {
	for _, m := range r.Metrics {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Ensemble returns the metrics of the ensemble, or nil if only one classifier was evaluated.
func (r *Report) Ensemble() *Metrics {
	if len(r.Metrics) < 2 {
		return nil
	}
	return r.Metrics[len(r.Metrics)-1]
}

// Evaluate runs every classifier over one epoch of ds, and the ensemble of all of them when there is more
// than one, and returns their metrics.
//
// The ensemble reuses the members' predictions, so each image is read and classified once per member.
// ds is reset before and after the evaluation.
func Evaluate(ds Dataset, classifiers ...Classifier) (*Report, error) {
	if len(classifiers) == 0 {
		return nil, errors.New("Evaluate requires at least one classifier")
	}
	var ens *Ensemble
	if len(classifiers) > 1 {
		var err error
		ens, err = New("", classifiers...)
		if err != nil {
			return nil, err
		}
	}
	report := &Report{Dataset: ds.Name()}
	for _, c := range classifiers {
		report.Metrics = append(report.Metrics, &Metrics{Name: c.Name()})
	}
	var ensMetrics *Metrics
	if ens != nil {
		ensMetrics = &Metrics{Name: ens.Name()}
		report.Metrics = append(report.Metrics, ensMetrics)
	}

	ds.Reset()
	defer ds.Reset()
	var numBatches int
	for {
		batch, err := ds.Yield()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.WithMessagef(err, "while evaluating on %q", ds.Name())
		}
		numBatches++
		predictions := make([][][]float64, len(classifiers))
		for ii, c := range classifiers {
			predictions[ii], err = c.Predict(batch)
			if err != nil {
				return nil, errors.WithMessagef(err, "classifier %q failed on %q", c.Name(), ds.Name())
			}
			if err = tally(report.Metrics[ii], batch, predictions[ii]); err != nil {
				return nil, err
			}
		}
		if ens != nil {
			probs, err := ens.combine(batch.Size, predictions)
			if err != nil {
				return nil, err
			}
			if err = tally(ensMetrics, batch, probs); err != nil {
				return nil, err
			}
		}
	}
	for _, m := range report.Metrics {
		m.finalize()
		klog.V(1).Infof("%q on %q: accuracy %.2f%% over %d images", m.Name, ds.Name(), 100*m.Accuracy, m.Total())
	}
	klog.V(1).Infof("evaluated %d batches of %q", numBatches, ds.Name())
	return report, nil
}

// tally adds the predictions of one batch to m.
func tally(m *Metrics, batch *loader.Batch, probs [][]float64) error {
	return exceptions.TryCatch[error](func() {
		if len(probs) != batch.Size {
			exceptions.Panicf("%q returned %d predictions for a batch of %d images", m.Name, len(probs), batch.Size)
		}
		for ii, p := range probs {
			m.add(int(batch.Labels[ii]), Argmax(p))
		}
	})
}
