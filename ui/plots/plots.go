// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package plots draws the charts of a pipeline run: class counts before and after balancing, and the
// accuracy of the evaluated classifiers.
package plots

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gomlx/leafscan/pkg/dataset"
	"github.com/gomlx/leafscan/pkg/ensemble"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"k8s.io/klog/v2"
)

// Default size of the saved charts.
var (
	Width  = 8 * vg.Inch
	Height = 5 * vg.Inch
)

// CountsSeries is one group of bars of ClassCounts: one bar per category.
type CountsSeries struct {
	Name   string
	Counts dataset.Counts
}

// ClassCounts creates a grouped bar chart with the number of images per category of each series,
// e.g. before and after balancing.
func ClassCounts(title string, series ...CountsSeries) (*plot.Plot, error) {
	if len(series) == 0 {
		return nil, errors.New("ClassCounts requires at least one series")
	}
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "images"
	p.Legend.Top = true

	barWidth := vg.Points(60 / float64(len(series)))
	labels := dataset.AllLabels()
	for ii, s := range series {
		values := make(plotter.Values, len(labels))
		for jj, label := range labels {
			values[jj] = float64(s.Counts[label])
		}
		bars, err := plotter.NewBarChart(values, barWidth)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create bars for %q", s.Name)
		}
		bars.LineStyle.Width = vg.Length(0)
		bars.Color = plotutil.Color(ii)
		bars.Offset = barWidth * vg.Length(2*ii-len(series)+1) / 2
		p.Add(bars)
		p.Legend.Add(s.Name, bars)
	}
	names := make([]string, len(labels))
	for ii, label := range labels {
		names[ii] = label.String()
	}
	p.NominalX(names...)
	return p, nil
}

// Accuracy creates a bar chart with the accuracy of each classifier in the report.
func Accuracy(report *ensemble.Report) (*plot.Plot, error) {
	if report == nil || len(report.Metrics) == 0 {
		return nil, errors.New("no metrics to plot")
	}
	p := plot.New()
	p.Title.Text = "Accuracy on " + report.Dataset
	p.Y.Label.Text = "accuracy"
	p.Y.Min = 0
	p.Y.Max = 1

	values := make(plotter.Values, len(report.Metrics))
	names := make([]string, len(report.Metrics))
	for ii, m := range report.Metrics {
		values[ii] = m.Accuracy
		names[ii] = m.Name
	}
	bars, err := plotter.NewBarChart(values, vg.Points(40))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create accuracy bars")
	}
	bars.LineStyle.Width = vg.Length(0)
	bars.Color = plotutil.Color(0)
	p.Add(bars)
	p.NominalX(names...)
	return p, nil
}

// Save the plot to filePath, creating its directory if needed. The format is given by the extension,
// e.g. ".png" or ".svg".
func Save(p *plot.Plot, filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return errors.Wrapf(err, "failed to create directory for plot %q", filePath)
	}
	if err := p.Save(Width, Height, filePath); err != nil {
		return errors.Wrapf(err, "failed to save plot %q", filePath)
	}
	klog.V(1).Infof("saved plot %q", filePath)
	return nil
}

// Write the plot to w in the given format ("png", "svg", "pdf", ...).
func Write(p *plot.Plot, w io.Writer, format string) error {
	writerTo, err := p.WriterTo(Width, Height, strings.TrimPrefix(format, "."))
	if err != nil {
		return errors.Wrapf(err, "can't render plot as %q", format)
	}
	_, err = writerTo.WriteTo(w)
	return errors.Wrap(err, "failed to write plot")
}
