// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package dataset holds the inventory of labeled leaf images: the Label categories, the immutable
// Record (path + label) and the ordered Inventory built by Index or by the balancer.
//
// The inventory is a plain ordered slice: grouping and counting by label are explicit operations
// (Inventory.ByLabel, Inventory.Counts), and the count table is never stored on its own, so it always
// matches the records it was computed from.
package dataset

import (
	"github.com/gomlx/leafscan/pkg/support/sets"
	"github.com/pkg/errors"
)

// Label is the disease category of a leaf image. Its value is also the class index used by models.
//
//go:generate go tool enumer -type=Label -trimprefix=Label -transform=snake -text -yaml -output=gen_label_enumer.go
type Label int8

const (
	LabelHealthy Label = iota
	LabelBrownSpots
	LabelWhiteScale
)

// NumLabels is the number of known categories, and the size of the models' probability vectors.
const NumLabels = 3

// AllLabels in class index order.
func AllLabels() []Label {
	return LabelValues()
}

// Record is one image of the dataset: where it is and what it shows.
// It is a value type and it's never changed after created.
type Record struct {
	Path  string
	Label Label
}

// Inventory is an ordered sequence of records, in the order they were discovered (Index) or generated (balancer).
type Inventory []Record

// Counts of records per label, indexed by Label.
type Counts [NumLabels]int

// Total number of records counted.
func (c Counts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// Fraction of the records with the given label. Returns 0 for empty counts.
func (c Counts) Fraction(label Label) float64 {
	total := c.Total()
	if total == 0 {
		return 0
	}
	return float64(c[label]) / float64(total)
}

// Counts returns the number of records per label. It's computed on each call.
func (inv Inventory) Counts() (counts Counts) {
	for _, r := range inv {
		if r.Label.IsALabel() {
			counts[r.Label]++
		}
	}
	return
}

// ByLabel groups the records per label, preserving their relative order.
func (inv Inventory) ByLabel() (groups [NumLabels]Inventory) {
	for _, r := range inv {
		if r.Label.IsALabel() {
			groups[r.Label] = append(groups[r.Label], r)
		}
	}
	return
}

// Concat returns a new Inventory with the records of inv followed by the records of each of the others.
func (inv Inventory) Concat(others ...Inventory) Inventory {
	size := len(inv)
	for _, other := range others {
		size += len(other)
	}
	result := make(Inventory, 0, size)
	result = append(result, inv...)
	for _, other := range others {
		result = append(result, other...)
	}
	return result
}

// Paths returns the set of paths in the inventory.
func (inv Inventory) Paths() sets.Set[string] {
	paths := sets.Make[string](len(inv))
	for _, r := range inv {
		paths.Insert(r.Path)
	}
	return paths
}

// Validate checks that every record has a known label and a non-empty path.
func (inv Inventory) Validate() error {
	for ii, r := range inv {
		if !r.Label.IsALabel() {
			return errors.Errorf("record #%d (%q) has unknown label %s", ii, r.Path, r.Label)
		}
		if r.Path == "" {
			return errors.Errorf("record #%d with label %s has an empty path", ii, r.Label)
		}
	}
	return nil
}

// ParseLabels converts category names (as used for directory names) to labels.
func ParseLabels(names []string) ([]Label, error) {
	labels := make([]Label, 0, len(names))
	seen := sets.Make[Label](len(names))
	for _, name := range names {
		label, err := LabelString(name)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid category %q, valid values are %q", name, LabelStrings())
		}
		if seen.Has(label) {
			return nil, errors.Errorf("category %q given more than once", name)
		}
		seen.Insert(label)
		labels = append(labels, label)
	}
	return labels, nil
}
