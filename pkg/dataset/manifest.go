// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/pkg/errors"
)

// Manifest column names.
const (
	PathCol  = "path"
	LabelCol = "label"
)

// ToDataFrame converts the inventory to a DataFrame with the columns PathCol and LabelCol (the category name).
func (inv Inventory) ToDataFrame() dataframe.DataFrame {
	paths := make([]string, len(inv))
	labels := make([]string, len(inv))
	for ii, r := range inv {
		paths[ii] = r.Path
		labels[ii] = r.Label.String()
	}
	return dataframe.New(
		series.New(paths, series.String, PathCol),
		series.New(labels, series.String, LabelCol),
	)
}

// FromDataFrame converts a DataFrame with the columns PathCol and LabelCol back to an Inventory.
func FromDataFrame(df dataframe.DataFrame) (Inventory, error) {
	if df.Err != nil {
		return nil, errors.Wrap(df.Err, "invalid manifest")
	}
	pathCol := df.Col(PathCol)
	if pathCol.Err != nil {
		return nil, errors.Wrapf(pathCol.Err, "manifest has no %q column", PathCol)
	}
	labelCol := df.Col(LabelCol)
	if labelCol.Err != nil {
		return nil, errors.Wrapf(labelCol.Err, "manifest has no %q column", LabelCol)
	}
	paths, labels := pathCol.Records(), labelCol.Records()
	inv := make(Inventory, len(paths))
	for ii := range paths {
		label, err := LabelString(labels[ii])
		if err != nil {
			return nil, errors.Wrapf(err, "manifest row %d (%q)", ii, paths[ii])
		}
		inv[ii] = Record{Path: paths[ii], Label: label}
	}
	return inv, nil
}

// WriteManifest writes the inventory as CSV, with a header, in its current order.
func WriteManifest(w io.Writer, inv Inventory) error {
	return errors.Wrap(inv.ToDataFrame().WriteCSV(w), "failed to write manifest")
}

// ReadManifest reads an inventory written with WriteManifest.
func ReadManifest(r io.Reader) (Inventory, error) {
	contents, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read manifest")
	}
	lines := strings.Split(strings.TrimSpace(string(contents)), "\n")
	if len(lines) == 1 && lines[0] == PathCol+","+LabelCol {
		// Header only: dataframe refuses to load it, but it's a valid empty inventory.
		return Inventory{}, nil
	}
	df := dataframe.ReadCSV(bytes.NewReader(contents),
		dataframe.HasHeader(true),
		dataframe.WithTypes(map[string]series.Type{PathCol: series.String, LabelCol: series.String}))
	return FromDataFrame(df)
}

// SaveManifest writes the inventory to the CSV file filePath.
func SaveManifest(filePath string, inv Inventory) error {
	f, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to create manifest %q", filePath)
	}
	if err = WriteManifest(f, inv); err != nil {
		_ = f.Close()
		return errors.WithMessagef(err, "while saving %q", filePath)
	}
	return errors.Wrapf(f.Close(), "failed to close manifest %q", filePath)
}

// LoadManifest reads an inventory from the CSV file filePath.
func LoadManifest(filePath string) (Inventory, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open manifest %q", filePath)
	}
	defer func() { _ = f.Close() }()
	inv, err := ReadManifest(f)
	if err != nil {
		return nil, errors.WithMessagef(err, "while loading %q", filePath)
	}
	return inv, nil
}
