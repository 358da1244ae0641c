// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package split partitions an inventory into train, validation and test subsets, stratified by label.
package split

import (
	"math"
	"math/rand/v2"
	"path/filepath"
	"slices"

	"github.com/gomlx/leafscan/pkg/dataset"
	"github.com/pkg/errors"
)

// Names of the subsets, also used for the manifest file names (e.g.: "train.csv").
const (
	TrainName      = "train"
	ValidationName = "validation"
	TestName       = "test"
)

// Split is a partition of an inventory in three disjoint subsets.
type Split struct {
	Train, Validation, Test dataset.Inventory
}

// Subset returns the subset with the given name, or nil if the name is unknown.
func (s *Split) Subset(name string) dataset.Inventory {
	switch name {
	case TrainName:
		return s.Train
	case ValidationName:
		return s.Validation
	case TestName:
		return s.Test
	}
	return nil
}

// Names returns the names of the subsets, in order.
func Names() []string {
	return []string{TrainName, ValidationName, TestName}
}

// Len returns the total number of records in the three subsets.
func (s *Split) Len() int {
	return len(s.Train) + len(s.Validation) + len(s.Test)
}

// Stratified splits inv in three subsets preserving, as close as rounding allows, the label proportions
// of inv in each of them.
//
// For each label with n records, round(n*testFraction) go to Test, round((n-nTest)*valFraction) of the
// remaining go to Validation and the rest to Train. Which records go where is decided by shuffling
// the records of each label with a generator seeded with seed: the same seed and the same input order
// always yield the same split. Each subset is shuffled too, so labels are interleaved.
func Stratified(inv dataset.Inventory, testFraction, valFraction float64, seed uint64) (Split, error) {
	var s Split
	if testFraction < 0 || testFraction >= 1 {
		return s, errors.Errorf("test fraction must be in [0, 1), got %g", testFraction)
	}
	if valFraction < 0 || valFraction >= 1 {
		return s, errors.Errorf("validation fraction (of the non-test remainder) must be in [0, 1), got %g", valFraction)
	}
	if err := inv.Validate(); err != nil {
		return s, errors.WithMessage(err, "cannot split inventory")
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	for _, group := range inv.ByLabel() {
		group = slices.Clone(group)
		shuffle(rng, group)
		n := len(group)
		numTest := int(math.Round(float64(n) * testFraction))
		numVal := int(math.Round(float64(n-numTest) * valFraction))
		s.Test = append(s.Test, group[:numTest]...)
		s.Validation = append(s.Validation, group[numTest:numTest+numVal]...)
		s.Train = append(s.Train, group[numTest+numVal:]...)
	}
	shuffle(rng, s.Train)
	shuffle(rng, s.Validation)
	shuffle(rng, s.Test)
	return s, nil
}

func shuffle(rng *rand.Rand, inv dataset.Inventory) {
	rng.Shuffle(len(inv), func(i, j int) {
		inv[i], inv[j] = inv[j], inv[i]
	})
}

// SaveManifests writes one CSV manifest per subset in dir: train.csv, validation.csv and test.csv.
func (s *Split) SaveManifests(dir string) error {
	for _, name := range Names() {
		filePath := filepath.Join(dir, name+".csv")
		if err := dataset.SaveManifest(filePath, s.Subset(name)); err != nil {
			return err
		}
	}
	return nil
}

// LoadManifests reads the subsets saved with SaveManifests.
func LoadManifests(dir string) (Split, error) {
	var s Split
	targets := map[string]*dataset.Inventory{TrainName: &s.Train, ValidationName: &s.Validation, TestName: &s.Test}
	for _, name := range Names() {
		inv, err := dataset.LoadManifest(filepath.Join(dir, name+".csv"))
		if err != nil {
			return s, err
		}
		*targets[name] = inv
	}
	return s, nil
}
