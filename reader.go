// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pod

package pod

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Reader provides read-only access to a parsed POD file.
type Reader struct {
	// ra is the underlying random-access reader used for payload reads.
	ra io.ReaderAt
	// file is set when Reader owns an *os.File opened via Open.
	file *os.File
	// archive stores parsed immutable header and entries.
	archive *Archive
	// size is total source size in bytes.
	size int64
	// mu guards closed state and close operation.
	mu sync.Mutex
	// closed reports whether Close was already called.
	closed bool
}

// ReadArchive decodes header and index from a seekable stream.
// The stream is positioned at an unspecified offset on return.
func ReadArchive(rs io.ReadSeeker, opts ReaderOptions) (*Archive, error) {
	if rs == nil {
		return nil, ErrNilReader
	}

	opts.applyDefaults()

	size, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("seek end: %w", err)
	}

	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek start: %w", err)
	}

	return decodeArchive(rs, size, opts)
}

// decodeArchive runs header parse, index seek and index parse over rs of known size.
func decodeArchive(rs io.ReadSeeker, size int64, opts ReaderOptions) (*Archive, error) {
	header, tail, err := parseHeader(rs, opts.ByteOrder)
	if err != nil {
		return nil, err
	}

	layout, err := layoutFor(header.Version)
	if err != nil {
		return nil, err
	}

	indexEnd := int64(tail.indexOffset) + indexByteSize(layout, tail.indexCount, tail.stringTableSize)
	if indexEnd > size {
		return nil, fmt.Errorf("%w: index ends at %d, file size %d", ErrTruncated, indexEnd, size)
	}

	if _, err := rs.Seek(int64(tail.indexOffset), io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek index: %w", err)
	}

	entries, err := parseIndex(rs, layout, tail.indexCount, tail.stringTableSize, opts.ByteOrder)
	if err != nil {
		return nil, err
	}

	if opts.StrictBounds {
		if err := validateEntryBounds(entries, size); err != nil {
			return nil, err
		}
	}

	return &Archive{Header: header, Entries: entries}, nil
}

// validateEntryBounds checks that every payload lies inside the file.
func validateEntryBounds(entries []Entry, size int64) error {
	for i := range entries {
		end := int64(entries[i].Offset) + int64(entries[i].CompressedSize)
		if end > size {
			return fmt.Errorf("%w: entry %s ends at %d, file size %d", ErrInvalidEntryOffset, entries[i].Name, end, size)
		}
	}

	return nil
}

// Open opens POD file by path and parses header and index.
func Open(path string) (*Reader, error) {
	return OpenWithOptions(path, ReaderOptions{})
}

// OpenWithOptions opens POD file by path and parses header and index using explicit reader options.
func OpenWithOptions(path string, opts ReaderOptions) (*Reader, error) {
	f, size, err := openFileWithSize(path)
	if err != nil {
		return nil, err
	}

	r, err := NewReaderWithOptions(f, size, opts)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	r.file = f
	return r, nil
}

// NewReader parses POD from existing ReaderAt and known size.
func NewReader(ra io.ReaderAt, size int64) (*Reader, error) {
	return NewReaderWithOptions(ra, size, ReaderOptions{})
}

// NewReaderWithOptions parses POD from existing ReaderAt and known size using explicit reader options.
func NewReaderWithOptions(ra io.ReaderAt, size int64, opts ReaderOptions) (*Reader, error) {
	if ra == nil {
		return nil, ErrNilReader
	}

	opts.applyDefaults()

	archive, err := decodeArchive(io.NewSectionReader(ra, 0, size), size, opts)
	if err != nil {
		return nil, err
	}

	return &Reader{ra: ra, size: size, archive: archive}, nil
}

// Header returns parsed header fields.
func (r *Reader) Header() Header {
	if r == nil || r.archive == nil {
		return Header{}
	}

	return r.archive.Header
}

// Entries returns a copy of parsed entries in index order.
func (r *Reader) Entries() []Entry {
	if r == nil || r.archive == nil {
		return nil
	}

	entries := make([]Entry, len(r.archive.Entries))
	copy(entries, r.archive.Entries)
	return entries
}

// Archive returns a copy of the parsed archive model.
func (r *Reader) Archive() *Archive {
	if r == nil || r.archive == nil {
		return nil
	}

	return &Archive{Header: r.archive.Header, Entries: r.Entries()}
}

// Size returns total source size in bytes.
func (r *Reader) Size() int64 {
	if r == nil {
		return 0
	}

	return r.size
}

// Close closes the underlying file if reader owns one.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}

	r.closed = true
	if r.file != nil {
		return r.file.Close()
	}

	return nil
}

// checkOpen returns ErrNilReader or ErrClosed when r cannot serve payload reads.
func (r *Reader) checkOpen() error {
	if r == nil || r.ra == nil {
		return ErrNilReader
	}

	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return ErrClosed
	}

	return nil
}
