// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/gomlx/leafscan/internal/config"
	"github.com/gomlx/leafscan/pkg/dataset"
	"github.com/gomlx/leafscan/pkg/split"
	"github.com/gomlx/leafscan/pkg/support/fsutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeLeaves writes small solid-color images, one color per category, with the given counts.
func makeLeaves(t *testing.T, counts dataset.Counts) string {
	dataDir := t.TempDir()
	colors := [dataset.NumLabels]color.NRGBA{
		{R: 40, G: 160, B: 40, A: 255},
		{R: 140, G: 90, B: 30, A: 255},
		{R: 230, G: 230, B: 220, A: 255},
	}
	for _, label := range dataset.AllLabels() {
		dir := filepath.Join(dataDir, label.String())
		require.NoError(t, os.MkdirAll(dir, 0755))
		for ii := range counts[label] {
			c := colors[label]
			c.G += uint8(ii)
			img := imaging.New(32, 24, c)
			require.NoError(t, imaging.Save(img, filepath.Join(dir, fmt.Sprintf("leaf_%03d.png", ii))))
		}
	}
	// Not an image: skipped by the extensions filter.
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "healthy", "notes.txt"), []byte("field notes"), 0644))
	return dataDir
}

func smallConfig(t *testing.T, dataDir string) *config.Config {
	cfg := config.Default()
	cfg.DataDir = dataDir
	cfg.AugmentedDir = filepath.Join(t.TempDir(), "augmented")
	cfg.OutputDir = filepath.Join(t.TempDir(), "output")
	cfg.Target = 20
	cfg.Format = "png"
	cfg.ImageSize = 16
	cfg.BatchSize = 8
	cfg.Seed = 3
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestPipeline(t *testing.T) {
	cfg := smallConfig(t, makeLeaves(t, dataset.Counts{12, 8, 5}))
	var out bytes.Buffer
	p, err := newPipeline(cfg, &out, false)
	require.NoError(t, err)
	assert.True(t, fsutil.MustFileExists(p.outputPath(ConfigFile)))

	inv, err := p.index()
	require.NoError(t, err)
	assert.Equal(t, dataset.Counts{12, 8, 5}, inv.Counts())

	balanced, err := p.balance(inv)
	require.NoError(t, err)
	assert.Equal(t, dataset.Counts{20, 20, 20}, balanced.Counts())
	assert.True(t, fsutil.MustFileExists(p.outputPath(CountsPlot)))
	reloaded, err := dataset.LoadManifest(p.outputPath(BalancedManifest))
	require.NoError(t, err)
	assert.Equal(t, balanced, reloaded)

	s, err := p.split(balanced)
	require.NoError(t, err)
	assert.Equal(t, 60, s.Len())
	for _, name := range split.Names() {
		assert.True(t, fsutil.MustFileExists(filepath.Join(p.outputDir, name+".csv")))
	}

	reports, err := p.trainAndEvaluate(s)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, split.ValidationName, reports[0].Dataset)
	assert.Equal(t, split.TestName, reports[1].Dataset)
	for _, report := range reports {
		require.Len(t, report.Metrics, 3, "two histogram classifiers and their ensemble")
		ens := report.Ensemble()
		require.NotNil(t, ens)
		assert.Greater(t, ens.Accuracy, 0.7, "leaf colors are easy to separate")
	}
	assert.True(t, fsutil.MustFileExists(p.outputPath(AccuracyPlot)))

	report := out.String()
	assert.Contains(t, report, "Original images")
	assert.Contains(t, report, "Balancing")
	assert.Contains(t, report, "Confusion matrix")

	// split from the saved manifest.
	fromManifest, err := p.loadOrIndex(p.outputPath(BalancedManifest))
	require.NoError(t, err)
	assert.Equal(t, balanced, fromManifest)
}

func TestPipelineMissingCategory(t *testing.T) {
	dataDir := makeLeaves(t, dataset.Counts{2, 2, 2})
	require.NoError(t, os.RemoveAll(filepath.Join(dataDir, "white_scale")))
	p, err := newPipeline(smallConfig(t, dataDir), &bytes.Buffer{}, false)
	require.NoError(t, err)
	_, err = p.index()
	require.ErrorIs(t, err, dataset.ErrMissingCategory)
	assert.Contains(t, err.Error(), "white_scale")
}

func TestRunCommand(t *testing.T) {
	dataDir := makeLeaves(t, dataset.Counts{6, 4, 3})
	outputDir := filepath.Join(t.TempDir(), "output")
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"run",
		"--data_dir", dataDir,
		"--augmented_dir", filepath.Join(t.TempDir(), "augmented"),
		"--output_dir", outputDir,
		"--target", "10",
		"--env_file", "",
		"--no_color", "--no_progress",
		"--set", "image_size=16;batch_size=4;format=png;histogram_bins=4,8",
	})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, 10, cfg.Target)
	assert.Equal(t, []int{4, 8}, cfg.HistogramBins)
	assert.Contains(t, out.String(), "ensemble(histogram-4+histogram-8)")

	saved, err := config.Load(filepath.Join(outputDir, ConfigFile))
	require.NoError(t, err)
	assert.Equal(t, dataDir, saved.DataDir)
	assert.Equal(t, "png", saved.Format)
}
