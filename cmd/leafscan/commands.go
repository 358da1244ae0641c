// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

var flagManifest string

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "List the images of each category and save the inventory manifest",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := newPipeline(cfg, cmd.OutOrStdout(), false)
		if err != nil {
			return err
		}
		_, err = p.index()
		return err
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Generate augmented images until every category has --target images",
	Long: `balance indexes the data directory and, for every category with fewer than --target images,
generates augmented copies of randomly chosen images of the category into --augmented_dir,
which is deleted and recreated first. It saves the manifest of the balanced dataset and a
chart of the class counts in --output_dir.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := newPipeline(cfg, cmd.OutOrStdout(), !flagNoProgress)
		if err != nil {
			return err
		}
		inv, err := p.index()
		if err != nil {
			return err
		}
		_, err = p.balance(inv)
		return err
	},
}

var splitCmd = &cobra.Command{
	Use:   "split",
	Short: "Split the dataset into train, validation and test sets, stratified by category",
	Long: `split partitions the images given by --manifest (or, if not set, the indexed data directory)
into train, validation and test sets with the same category proportions, and writes one
manifest per subset in --output_dir.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := newPipeline(cfg, cmd.OutOrStdout(), false)
		if err != nil {
			return err
		}
		inv, err := p.loadOrIndex(flagManifest)
		if err != nil {
			return err
		}
		_, err = p.split(inv)
		return err
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: index, balance, split, train and evaluate",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := newPipeline(cfg, cmd.OutOrStdout(), !flagNoProgress)
		if err != nil {
			return err
		}
		inv, err := p.index()
		if err != nil {
			return err
		}
		balanced, err := p.balance(inv)
		if err != nil {
			return err
		}
		s, err := p.split(balanced)
		if err != nil {
			return err
		}
		if _, err = p.trainAndEvaluate(s); err != nil {
			return err
		}
		klog.Infof("run %s finished, outputs in %q", cfg.RunID, p.outputDir)
		return nil
	},
}

func init() {
	splitCmd.Flags().StringVar(&flagManifest, "manifest", "",
		"Manifest (CSV with path and label columns) of the images to split, e.g. the balanced.csv written by balance.")
}
