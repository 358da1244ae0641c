// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// leafscan prepares a leaf-disease image dataset and evaluates classifiers on it.
//
// It indexes the images of each category, balances the categories with augmented copies, splits the result
// into train, validation and test sets, and trains and evaluates a probability-averaging ensemble of reference
// classifiers.
//
// Usage:
//
//	leafscan run --data_dir=~/data/coconut --target=8000
//	leafscan index --data_dir=~/data/coconut
//	leafscan balance --config=leafscan.yaml --set="augment.blur_probability=0"
//	leafscan split --manifest=~/tmp/leafscan/output/balanced.csv
package main

import (
	goflag "flag"
	"fmt"
	"os"

	"github.com/gomlx/leafscan/internal/config"
	"github.com/gomlx/leafscan/ui/commandline"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

var (
	flagConfig     string
	flagEnvFile    string
	flagSettings   string
	flagNoColor    bool
	flagNoProgress bool

	// Flags mirroring the most used configuration values. They are only applied if set.
	flagDataDir      string
	flagAugmentedDir string
	flagOutputDir    string
	flagTarget       int
	flagSeed         uint64

	// cfg is loaded before any command runs.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "leafscan",
	Short: "Balance, split and evaluate a leaf-disease image dataset",
	Long: `leafscan prepares a leaf-disease image dataset organized as one directory per category
(healthy, brown_spots, white_scale) and evaluates classifiers on it.

Configuration is layered: defaults, then the --config YAML file, then the environment
(LEAFSCAN_* variables, also read from --env_file), then the flags, and finally --set.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	goflags := goflag.NewFlagSet("klog", goflag.ExitOnError)
	klog.InitFlags(goflags)
	rootCmd.PersistentFlags().AddGoFlagSet(goflags)

	defaults := config.Default()
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagConfig, "config", "", "YAML configuration file.")
	flags.StringVar(&flagEnvFile, "env_file", config.DefaultEnvFile, "Environment file loaded, if it exists.")
	flags.StringVar(&flagSettings, "set", "", commandline.SettingsUsage(defaults))
	flags.BoolVar(&flagNoColor, "no_color", false, "Disable colors in the reports.")
	flags.BoolVar(&flagNoProgress, "no_progress", false, "Disable the progress bar while generating images.")
	flags.StringVar(&flagDataDir, "data_dir", defaults.DataDir, "Directory with one subdirectory of images per category.")
	flags.StringVar(&flagAugmentedDir, "augmented_dir", defaults.AugmentedDir,
		"Directory where generated images are written. It is recreated on each balancing run!")
	flags.StringVar(&flagOutputDir, "output_dir", defaults.OutputDir, "Directory for manifests, plots and the configuration used.")
	flags.IntVar(&flagTarget, "target", defaults.Target, "Number of images per category after balancing.")
	flags.Uint64Var(&flagSeed, "seed", defaults.Seed, "Seed for all random decisions.")
	must.M(rootCmd.MarkPersistentFlagFilename("config", "yaml", "yml"))

	rootCmd.AddCommand(indexCmd, balanceCmd, splitCmd, runCmd)
}

// loadConfig builds cfg from its layers.
func loadConfig(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.Load(flagConfig)
	if err != nil {
		return err
	}
	if err = cfg.ApplyEnv(flagEnvFile); err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("data_dir") {
		cfg.DataDir = flagDataDir
	}
	if flags.Changed("augmented_dir") {
		cfg.AugmentedDir = flagAugmentedDir
	}
	if flags.Changed("output_dir") {
		cfg.OutputDir = flagOutputDir
	}
	if flags.Changed("target") {
		cfg.Target = flagTarget
	}
	if flags.Changed("seed") {
		cfg.Seed = flagSeed
	}
	if flagSettings != "" {
		paramsSet, err := commandline.ParseSettings(cfg, flagSettings)
		if err != nil {
			return err
		}
		klog.V(1).Infof("settings changed by --set:\n%s", commandline.SprintModifiedSettings(cfg, paramsSet))
	}
	if err = cfg.Validate(); err != nil {
		return errors.WithMessage(err, "invalid configuration")
	}
	commandline.SetColors(!flagNoColor)
	klog.Infof("run %s: data_dir=%q, augmented_dir=%q, target=%d, seed=%d",
		cfg.RunID, cfg.DataDir, cfg.AugmentedDir, cfg.Target, cfg.Seed)
	klog.V(2).Infof("configuration:\n%s", commandline.SprintSettings(cfg))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		klog.Errorf("leafscan failed: %+v", err)
		klog.Flush()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	klog.Flush()
}
