// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pod

package pod

import (
	"fmt"
	"io"
	"os"
)

// ReadHeader opens a POD and returns only header fields without parsing the index.
func ReadHeader(path string) (Header, error) {
	f, _, err := openFileWithSize(path)
	if err != nil {
		return Header{}, err
	}
	defer func() { _ = f.Close() }()

	return ReadHeaderFromReader(f, ReaderOptions{})
}

// ReadHeaderFromReader reads and validates header fields from the current position of r.
func ReadHeaderFromReader(r io.Reader, opts ReaderOptions) (Header, error) {
	if r == nil {
		return Header{}, ErrNilReader
	}

	opts.applyDefaults()

	header, _, err := parseHeader(r, opts.ByteOrder)
	if err != nil {
		return Header{}, err
	}

	return header, nil
}

// ListEntries opens a POD and returns entry metadata without payload reads.
func ListEntries(path string) ([]Entry, error) {
	return ListEntriesWithOptions(path, ReaderOptions{})
}

// ListEntriesWithOptions opens a POD and returns entry metadata without payload reads using reader options.
func ListEntriesWithOptions(path string, opts ReaderOptions) ([]Entry, error) {
	f, _, err := openFileWithSize(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	archive, err := ReadArchive(f, opts)
	if err != nil {
		return nil, err
	}

	return archive.Entries, nil
}

// openFileWithSize opens a file and returns a handle plus current size.
func openFileWithSize(path string) (*os.File, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open POD: %w", err)
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("stat: %w", err)
	}

	return f, fi.Size(), nil
}
