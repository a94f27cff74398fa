// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pod

package pod

import (
	"errors"
	"fmt"
	"io"
)

// nopCloser wraps a reader and provides a no-op close.
type nopCloser struct {
	io.Reader
}

// Close closes nopCloser (no-op).
func (nopCloser) Close() error {
	return nil
}

// storedReader yields exactly size raw bytes of one entry.
type storedReader struct {
	src       io.Reader
	name      string
	size      int64
	remaining int64
}

// Read implements io.Reader.
func (r *storedReader) Read(p []byte) (int, error) {
	if r.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > r.remaining {
		p = p[:r.remaining]
	}

	n, err := r.src.Read(p)
	r.remaining -= int64(n)
	if n > 0 {
		return n, nil
	}

	if err == nil || errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("entry %s ended at %d of %d bytes: %w", r.name, r.size-r.remaining, r.size, io.ErrUnexpectedEOF)
	}

	return 0, fmt.Errorf("entry %s: %w", r.name, err)
}

// inflateReader yields exactly size inflated bytes of one entry.
type inflateReader struct {
	src       io.ReadCloser
	release   func()
	name      string
	size      int64
	remaining int64
}

// Read implements io.Reader.
func (r *inflateReader) Read(p []byte) (int, error) {
	if r.remaining <= 0 {
		return 0, io.EOF
	}
	if r.src == nil {
		return 0, ErrClosed
	}
	if int64(len(p)) > r.remaining {
		p = p[:r.remaining]
	}

	n, err := r.src.Read(p)
	if n > 0 {
		r.remaining -= int64(n)
		return n, nil
	}

	if err == nil || errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("%w: entry %s ended at %d of %d bytes", ErrDecompress, r.name, r.size-r.remaining, r.size)
	}

	return 0, fmt.Errorf("entry %s: %w", r.name, classifyInflateError(err))
}

// Close returns the inflater to its pool.
func (r *inflateReader) Close() error {
	if r.src == nil {
		return nil
	}

	r.src = nil
	r.release()
	return nil
}

// findEntryByName resolves one entry by normalized name.
func (r *Reader) findEntryByName(name string) *Entry {
	if r.archive == nil {
		return nil
	}

	return r.archive.Lookup(name)
}

// openEntryByInfo opens payload stream for already resolved entry metadata.
func (r *Reader) openEntryByInfo(info *Entry, name string) (io.ReadCloser, error) {
	if info == nil {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}

	sr := io.NewSectionReader(r.ra, int64(info.Offset), int64(info.CompressedSize))
	if !info.IsCompressed() {
		return nopCloser{Reader: &storedReader{
			src:       sr,
			name:      name,
			size:      int64(info.UncompressedSize),
			remaining: int64(info.UncompressedSize),
		}}, nil
	}

	inflater, release := acquireInflater(sr)
	return &inflateReader{
		src:       inflater,
		release:   release,
		name:      name,
		size:      int64(info.UncompressedSize),
		remaining: int64(info.UncompressedSize),
	}, nil
}

// OpenEntry opens named entry for reading.
// Returned stream yields inflated content for compressed entries.
func (r *Reader) OpenEntry(name string) (io.ReadCloser, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	return r.openEntryByInfo(r.findEntryByName(name), name)
}

// OpenEntryInfo opens entry stream by already resolved metadata.
// Returned stream yields inflated content for compressed entries.
func (r *Reader) OpenEntryInfo(info Entry) (io.ReadCloser, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	name := info.Name
	if name == "" {
		name = "<unknown>"
	}

	return r.openEntryByInfo(&info, name)
}

// ReadEntry reads full (inflated) content of the named entry.
func (r *Reader) ReadEntry(name string) ([]byte, error) {
	rc, err := r.OpenEntry(name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	return io.ReadAll(rc)
}
