// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package config holds the configuration of a leafscan pipeline run.
//
// Values are layered: Default, then a YAML file (Load), then environment variables (ApplyEnv, which also
// reads a .env file if present), and finally the command-line flags, set by the caller.
package config

import (
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/gomlx/leafscan/pkg/augment"
	"github.com/gomlx/leafscan/pkg/dataset"
	"github.com/gomlx/leafscan/pkg/loader"
	"github.com/gomlx/leafscan/pkg/support/sets"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
	"k8s.io/klog/v2"
)

// Environment variables read by ApplyEnv.
const (
	EnvDataDir      = "LEAFSCAN_DATA_DIR"
	EnvAugmentedDir = "LEAFSCAN_AUGMENTED_DIR"
	EnvOutputDir    = "LEAFSCAN_OUTPUT_DIR"
	EnvTarget       = "LEAFSCAN_TARGET"
	EnvSeed         = "LEAFSCAN_SEED"
)

// DefaultEnvFile is the environment file read by the command line tool, if it exists.
const DefaultEnvFile = ".env"

// Config of a pipeline run.
type Config struct {
	// DataDir holds one subdirectory per category with the original images.
	DataDir string `yaml:"data_dir"`

	// AugmentedDir receives the generated images. It is recreated on every balancing run.
	AugmentedDir string `yaml:"augmented_dir"`

	// OutputDir receives manifests, plots and reports.
	OutputDir string `yaml:"output_dir"`

	Categories []dataset.Label `yaml:"categories"`

	// Extensions of the files indexed. If empty, every file is indexed.
	Extensions []string `yaml:"extensions"`

	// Target number of images per category after balancing.
	Target int `yaml:"target"`

	// Format of the generated images: the file extension, e.g. "jpg" or "png".
	Format string `yaml:"format"`

	// TestFraction is the fraction of each category held out for testing, and ValidationFraction
	// the fraction of the remainder held out for validation.
	TestFraction       float64 `yaml:"test_fraction"`
	ValidationFraction float64 `yaml:"validation_fraction"`

	// Seed for every random decision: source selection, augmentations, splits and shuffling.
	Seed uint64 `yaml:"seed"`

	ImageSize int `yaml:"image_size"`
	BatchSize int `yaml:"batch_size"`

	// HistogramBins lists the configurations of the reference classifiers trained by "run",
	// one classifier per entry.
	HistogramBins []int `yaml:"histogram_bins"`

	Augment augment.Config `yaml:"augment"`

	// RunID identifies the run in logs and reports. It is not read from the YAML file.
	RunID string `yaml:"-"`
}

// Default returns the configuration of the reference pipeline.
func Default() *Config {
	return &Config{
		DataDir:            "data",
		AugmentedDir:       filepath.Join("~", "tmp", "leafscan", "augmented"),
		OutputDir:          filepath.Join("~", "tmp", "leafscan", "output"),
		Categories:         dataset.AllLabels(),
		Extensions:         slices.Clone(dataset.DefaultImageExtensions),
		Target:             8000,
		Format:             "jpg",
		TestFraction:       0.2,
		ValidationFraction: 0.2,
		Seed:               42,
		ImageSize:          loader.DefaultImageSize,
		BatchSize:          32,
		HistogramBins:      []int{8, 16},
		Augment:            augment.DefaultConfig(),
		RunID:              uuid.NewString(),
	}
}

// Load returns the Default configuration overridden by the YAML file in path.
// If path is empty the defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %q", path)
	}
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to parse config file %q", path)
	}
	return cfg, nil
}

// Save writes the configuration as YAML to path.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	if err = os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "failed to create directory for %q", path)
	}
	return errors.Wrapf(os.WriteFile(path, data, 0644), "failed to write config %q", path)
}

// ApplyEnv loads envFile into the environment, if it exists, without overriding variables already set,
// and then applies the environment overrides to c.
func (c *Config) ApplyEnv(envFile string) error {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err = godotenv.Load(envFile); err != nil {
				return errors.Wrapf(err, "failed to load environment file %q", envFile)
			}
			klog.V(1).Infof("loaded environment from %q", envFile)
		}
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv(EnvAugmentedDir); v != "" {
		c.AugmentedDir = v
	}
	if v := os.Getenv(EnvOutputDir); v != "" {
		c.OutputDir = v
	}
	if v := os.Getenv(EnvTarget); v != "" {
		target, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "invalid %s=%q", EnvTarget, v)
		}
		c.Target = target
	}
	if v := os.Getenv(EnvSeed); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid %s=%q", EnvSeed, v)
		}
		c.Seed = seed
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("data_dir is not set")
	}
	if c.AugmentedDir == "" {
		return errors.New("augmented_dir is not set")
	}
	if len(c.Categories) == 0 {
		return errors.New("no categories configured")
	}
	seen := sets.Make[dataset.Label]()
	for _, label := range c.Categories {
		if !label.IsALabel() {
			return errors.Errorf("unknown category %s", label)
		}
		if seen.Has(label) {
			return errors.Errorf("category %q listed more than once", label)
		}
		seen.Insert(label)
	}
	if c.Target < 0 {
		return errors.Errorf("target must be >= 0, got %d", c.Target)
	}
	if c.Format == "" {
		return errors.New("format is not set")
	}
	if c.TestFraction < 0 || c.TestFraction >= 1 {
		return errors.Errorf("test_fraction must be in [0, 1), got %g", c.TestFraction)
	}
	if c.ValidationFraction < 0 || c.ValidationFraction >= 1 {
		return errors.Errorf("validation_fraction must be in [0, 1), got %g", c.ValidationFraction)
	}
	if c.ImageSize <= 0 {
		return errors.Errorf("image_size must be > 0, got %d", c.ImageSize)
	}
	if c.BatchSize <= 0 {
		return errors.Errorf("batch_size must be > 0, got %d", c.BatchSize)
	}
	for _, bins := range c.HistogramBins {
		if bins < 1 || bins > 256 {
			return errors.Errorf("histogram_bins values must be between 1 and 256, got %d", bins)
		}
	}
	return nil
}
