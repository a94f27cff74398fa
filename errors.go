// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pod

package pod

import (
	"errors"
	"fmt"
)

// Error classes. Every format violation wraps ErrFormat and every payload
// inflate failure wraps ErrDecompress, so callers can test the class with errors.Is.
var (
	// ErrFormat means the archive structure is corrupt or not a POD at all.
	ErrFormat = errors.New("invalid POD file")
	// ErrDecompress means a deflated entry could not be inflated to its declared size.
	ErrDecompress = errors.New("decompression error")
)

// Format errors. Each one wraps ErrFormat.
var (
	// ErrBadMagic means the first three bytes are not the "POD" signature.
	ErrBadMagic = fmt.Errorf("%w: bad magic", ErrFormat)
	// ErrUnsupportedVersion means the version digit is outside 3..5.
	ErrUnsupportedVersion = fmt.Errorf("%w: unsupported version", ErrFormat)
	// ErrIndexCount means the stored entry count is outside 0..9999999.
	ErrIndexCount = fmt.Errorf("%w: bad index count", ErrFormat)
	// ErrReservedField means a reserved header field does not hold its fixed value.
	ErrReservedField = fmt.Errorf("%w: reserved field mismatch", ErrFormat)
	// ErrSizeMismatch means a stored entry has different compressed and uncompressed sizes.
	ErrSizeMismatch = fmt.Errorf("%w: compressed and uncompressed size mismatch when compression level is zero", ErrFormat)
	// ErrNameOffset means an entry name offset points outside the name block.
	ErrNameOffset = fmt.Errorf("%w: name offset out of range", ErrFormat)
	// ErrTruncated means the header, index or name block extends past end of file.
	ErrTruncated = fmt.Errorf("%w: truncated archive", ErrFormat)
	// ErrInvalidEntryOffset means an entry payload lies outside the file (strict bounds mode).
	ErrInvalidEntryOffset = fmt.Errorf("%w: entry payload out of file bounds", ErrFormat)
)

// Usage errors for reader, writer and extraction calls.
var (
	// ErrNilReader means the reader is nil.
	ErrNilReader = errors.New("reader is nil")
	// ErrNilWriter means the writer is nil.
	ErrNilWriter = errors.New("writer is nil")
	// ErrEntryNotFound means the entry is not found.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrClosed means the reader or resource is already closed.
	ErrClosed = errors.New("reader or resource already closed")
	// ErrSizeOverflow means a size or offset exceeds the uint32 POD limit.
	ErrSizeOverflow = errors.New("size exceeds uint32 or 4 GiB POD limit")
	// ErrEmptyInputs means no inputs provided for pack.
	ErrEmptyInputs = errors.New("no inputs provided for pack")
	// ErrInvalidRules means one or more compress or filter rules are invalid.
	ErrInvalidRules = errors.New("invalid path rules")
	// ErrInvalidEntryPath means an input entry name is empty, non-ASCII or invalid after normalization.
	ErrInvalidEntryPath = errors.New("invalid entry path")
	// ErrDuplicateEntryPath means two inputs resolve to the same name (case-insensitive).
	ErrDuplicateEntryPath = errors.New("duplicate entry path")
	// ErrInvalidExtractPath means archive entry name is invalid for extraction destination.
	ErrInvalidExtractPath = errors.New("invalid extract path")
)
