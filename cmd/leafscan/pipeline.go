// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/gomlx/leafscan/internal/config"
	"github.com/gomlx/leafscan/pkg/augment"
	"github.com/gomlx/leafscan/pkg/balance"
	"github.com/gomlx/leafscan/pkg/dataset"
	"github.com/gomlx/leafscan/pkg/ensemble"
	"github.com/gomlx/leafscan/pkg/loader"
	"github.com/gomlx/leafscan/pkg/models/histogram"
	"github.com/gomlx/leafscan/pkg/split"
	"github.com/gomlx/leafscan/pkg/support/fsutil"
	"github.com/gomlx/leafscan/ui/commandline"
	"github.com/gomlx/leafscan/ui/plots"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// File names written to the output directory.
const (
	InventoryManifest = "inventory.csv"
	BalancedManifest  = "balanced.csv"
	ConfigFile        = "config.yaml"
	CountsPlot        = "class_counts.png"
	AccuracyPlot      = "accuracy.png"
)

// pipeline runs the steps of leafscan with a configuration, writing reports to out.
type pipeline struct {
	cfg       *config.Config
	out       io.Writer
	outputDir string
	progress  bool
}

func newPipeline(cfg *config.Config, out io.Writer, progress bool) (*pipeline, error) {
	outputDir, err := fsutil.ReplaceTildeInDir(cfg.OutputDir)
	if err != nil {
		return nil, err
	}
	if err = os.MkdirAll(outputDir, 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create output directory %q", outputDir)
	}
	if err = cfg.Save(filepath.Join(outputDir, ConfigFile)); err != nil {
		return nil, err
	}
	return &pipeline{cfg: cfg, out: out, outputDir: outputDir, progress: progress}, nil
}

func (p *pipeline) outputPath(name string) string {
	return filepath.Join(p.outputDir, name)
}

// index the original images and save their manifest.
func (p *pipeline) index() (dataset.Inventory, error) {
	inv, err := dataset.Index(p.cfg.DataDir, p.cfg.Categories, dataset.IndexOptions{Extensions: p.cfg.Extensions})
	if err != nil {
		return nil, err
	}
	commandline.ReportCounts(p.out, "Original images", commandline.CountsColumn{Title: "images", Counts: inv.Counts()})
	if err = dataset.SaveManifest(p.outputPath(InventoryManifest), inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// balance generates the augmented images and returns the merged inventory, original images first.
func (p *pipeline) balance(inv dataset.Inventory) (dataset.Inventory, error) {
	rng := rand.New(rand.NewPCG(p.cfg.Seed, p.cfg.Seed))
	b := balance.New(p.cfg.Target, p.cfg.AugmentedDir, augment.New(p.cfg.Augment, rng), rng)
	b.Format = p.cfg.Format
	b.Categories = p.cfg.Categories
	if p.progress {
		commandline.AttachProgressBar(b, func() (string, string) { return "Output", b.OutputDir })
	}
	if err := b.PrepareOutputDir(); err != nil {
		return nil, err
	}
	generated, err := b.Balance(inv)
	if err != nil {
		return nil, err
	}
	balanced := inv.Concat(generated)
	before, after := inv.Counts(), balanced.Counts()
	commandline.ReportCounts(p.out, "Balancing",
		commandline.CountsColumn{Title: "original", Counts: before},
		commandline.CountsColumn{Title: "generated", Counts: generated.Counts()},
		commandline.CountsColumn{Title: "balanced", Counts: after})
	if err = dataset.SaveManifest(p.outputPath(BalancedManifest), balanced); err != nil {
		return nil, err
	}
	chart, err := plots.ClassCounts("Images per class",
		plots.CountsSeries{Name: "original", Counts: before},
		plots.CountsSeries{Name: "balanced", Counts: after})
	if err != nil {
		return nil, err
	}
	if err = plots.Save(chart, p.outputPath(CountsPlot)); err != nil {
		return nil, err
	}
	return balanced, nil
}

// split partitions the inventory and saves the manifest of each subset.
func (p *pipeline) split(inv dataset.Inventory) (split.Split, error) {
	s, err := split.Stratified(inv, p.cfg.TestFraction, p.cfg.ValidationFraction, p.cfg.Seed)
	if err != nil {
		return s, err
	}
	commandline.ReportSplit(p.out, s)
	if err = s.SaveManifests(p.outputDir); err != nil {
		return s, err
	}
	return s, nil
}

// newDataset creates the loader of one subset.
func (p *pipeline) newDataset(name string, inv dataset.Inventory, shuffle bool) *loader.Dataset {
	ds := loader.New(name, inv, p.cfg.BatchSize).WithImageSize(p.cfg.ImageSize, p.cfg.ImageSize)
	if shuffle {
		ds.WithShuffle(rand.New(rand.NewPCG(p.cfg.Seed, 1)))
	}
	return ds
}

// trainAndEvaluate fits one histogram classifier per configured number of bins on the train set, and
// evaluates them and their ensemble on the validation and test sets.
func (p *pipeline) trainAndEvaluate(s split.Split) ([]*ensemble.Report, error) {
	if len(p.cfg.HistogramBins) == 0 {
		return nil, errors.New("no classifiers configured: histogram_bins is empty")
	}
	trainDS := p.newDataset(split.TrainName, s.Train, true)
	classifiers := make([]ensemble.Classifier, 0, len(p.cfg.HistogramBins))
	for _, bins := range p.cfg.HistogramBins {
		model, err := histogram.Fit("", trainDS, bins)
		if err != nil {
			return nil, err
		}
		klog.Infof("trained %q on %d images", model.Name(), model.Counts().Total())
		classifiers = append(classifiers, model)
	}

	var reports []*ensemble.Report
	for _, subset := range []struct {
		name string
		inv  dataset.Inventory
	}{{split.ValidationName, s.Validation}, {split.TestName, s.Test}} {
		if len(subset.inv) == 0 {
			klog.Warningf("subset %q is empty, not evaluated", subset.name)
			continue
		}
		report, err := ensemble.Evaluate(p.newDataset(subset.name, subset.inv, false), classifiers...)
		if err != nil {
			return nil, err
		}
		commandline.ReportEval(p.out, report)
		reports = append(reports, report)
	}
	if len(reports) > 0 {
		chart, err := plots.Accuracy(reports[len(reports)-1])
		if err != nil {
			return nil, err
		}
		if err = plots.Save(chart, p.outputPath(AccuracyPlot)); err != nil {
			return nil, err
		}
	}
	return reports, nil
}

// loadOrIndex reads the inventory from a manifest, if given, or indexes the data directory otherwise.
func (p *pipeline) loadOrIndex(manifestPath string) (dataset.Inventory, error) {
	if manifestPath == "" {
		return p.index()
	}
	manifestPath, err := fsutil.ReplaceTildeInDir(manifestPath)
	if err != nil {
		return nil, err
	}
	inv, err := dataset.LoadManifest(manifestPath)
	if err != nil {
		return nil, err
	}
	if err = inv.Validate(); err != nil {
		return nil, errors.WithMessagef(err, "manifest %q", manifestPath)
	}
	commandline.ReportCounts(p.out, "Images in "+manifestPath, commandline.CountsColumn{Title: "images", Counts: inv.Counts()})
	return inv, nil
}
