// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pod

package main

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/woozymasta/pod"
)

// Stock entry values written by the reference packer ("BIG " and "DEB ").
const (
	stockTimestamp uint32 = 0x42494720
	stockChecksum  uint32 = 0x20444542
)

// sourceFile is one regular file found below an input directory.
type sourceFile struct {
	name    string
	path    string
	size    int64
	modTime time.Time
}

// discoverFiles walks dirs and returns files keyed by "\"-separated names
// relative to their input directory, sorted by lower-cased name. Later
// case-insensitive duplicates are ignored with a warning.
func discoverFiles(dirs []string, logger *slog.Logger) ([]sourceFile, error) {
	seen := make(map[string]sourceFile)
	for _, dir := range dirs {
		root, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", dir, err)
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if !d.Type().IsRegular() {
				return nil
			}

			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}

			info, err := d.Info()
			if err != nil {
				return err
			}

			name := pod.ArchiveName(filepath.ToSlash(rel))
			key := strings.ToLower(name)
			if previous, ok := seen[key]; ok {
				logger.Warn("ignoring duplicate", "name", name, "path", path, "previous", previous.path)
				return nil
			}

			seen[key] = sourceFile{name: name, path: path, size: info.Size(), modTime: info.ModTime()}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", dir, err)
		}
	}

	files := make([]sourceFile, 0, len(seen))
	for _, f := range seen {
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool {
		return strings.ToLower(files[i].name) < strings.ToLower(files[j].name)
	})

	return files, nil
}

// packInputs converts discovered files to pack inputs.
func packInputs(files []sourceFile, useModTime bool) []pod.Input {
	inputs := make([]pod.Input, len(files))
	for i, f := range files {
		timestamp := stockTimestamp
		if useModTime {
			timestamp = pod.TimestampFromTime(f.modTime)
		}

		path := f.path
		inputs[i] = pod.Input{
			Path:      f.name,
			SizeHint:  f.size,
			Timestamp: timestamp,
			Checksum:  stockChecksum,
			Open: func() (io.ReadCloser, error) {
				return os.Open(path) //nolint:gosec // path comes from the walked input directory
			},
		}
	}

	return inputs
}
