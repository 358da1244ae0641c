// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"os"
	"path/filepath"

	"github.com/gomlx/leafscan/pkg/support/fsutil"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ErrMissingCategory is returned (wrapped) by Index when a category has no subdirectory under the dataset root.
var ErrMissingCategory = errors.New("missing category directory")

// DefaultImageExtensions are the extensions accepted when filtering is enabled in IndexOptions.
var DefaultImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff"}

// IndexOptions configure Index.
type IndexOptions struct {
	// Extensions, if not empty, restricts the indexed files to these extensions (case-insensitive).
	// Every skipped file is logged as a warning.
	//
	// If empty every file is indexed as is, and unreadable ones will only fail later, when decoded.
	Extensions []string
}

// Index scans `root/<category>` for each of the categories and returns one Record per file found,
// labeled with the category of its directory.
//
// Categories are scanned in the order given, files in lexical order. Subdirectories are ignored.
// A missing category directory is a configuration error (ErrMissingCategory). Files are not opened here.
func Index(root string, categories []Label, opts IndexOptions) (Inventory, error) {
	root, err := fsutil.ReplaceTildeInDir(root)
	if err != nil {
		return nil, err
	}
	if len(categories) == 0 {
		return nil, errors.Errorf("no categories given to index %q", root)
	}
	var inv Inventory
	for _, label := range categories {
		if !label.IsALabel() {
			return nil, errors.Errorf("cannot index unknown category %s", label)
		}
		dir := filepath.Join(root, label.String())
		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, errors.Wrapf(ErrMissingCategory, "category %q expected in %q", label, dir)
			}
			return nil, errors.Wrapf(err, "failed to list category %q in %q", label, dir)
		}
		var numSkipped int
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if len(opts.Extensions) > 0 && !fsutil.HasExtension(entry.Name(), opts.Extensions) {
				klog.Warningf("skipping %q in category %q: not an image extension", entry.Name(), label)
				numSkipped++
				continue
			}
			inv = append(inv, Record{Path: filepath.Join(dir, entry.Name()), Label: label})
		}
		klog.V(1).Infof("indexed category %q in %q (%d files skipped)", label, dir, numSkipped)
	}
	return inv, nil
}
