// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pod

package pod

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
)

// readerIndexBufferSize is a sequential read buffer for index record parsing.
const readerIndexBufferSize = 64 * 1024

var (
	// indexReaderPool reuses buffered readers for sequential index parsing.
	indexReaderPool = sync.Pool{
		New: func() any {
			return bufio.NewReaderSize(bytes.NewReader(nil), readerIndexBufferSize)
		},
	}
)

// indexInfo is what serializing the index yields for the header.
type indexInfo struct {
	offset          uint32
	count           int32
	stringTableSize uint32
	size            int64
}

// tail converts index info into header tail fields.
func (i indexInfo) tail() headerTail {
	return headerTail{
		indexCount:      i.count,
		indexOffset:     i.offset,
		stringTableSize: i.stringTableSize,
	}
}

// indexByteSize returns records plus name block length for count entries.
func indexByteSize(layout versionLayout, count int32, stringTableSize uint32) int64 {
	return int64(layout.recordSize)*int64(count) + int64(stringTableSize)
}

// parseIndex reads count records followed by the name block and resolves names.
// No entry is returned unless the whole index is valid.
func parseIndex(
	r io.Reader,
	layout versionLayout,
	count int32,
	stringTableSize uint32,
	order binary.ByteOrder,
) ([]Entry, error) {
	br := indexReaderPool.Get().(*bufio.Reader) //nolint:forcetypeassert // pool contains only *bufio.Reader
	br.Reset(r)
	defer func() {
		br.Reset(nil)
		indexReaderPool.Put(br)
	}()

	entries := make([]Entry, count)
	nameOffsets := make([]uint32, count)
	record := make([]byte, layout.recordSize)
	for i := range entries {
		if _, err := io.ReadFull(br, record); err != nil {
			return nil, indexReadError("entry record", err)
		}

		e := &entries[i]
		nameOffsets[i] = order.Uint32(record[0:4])
		e.CompressedSize = order.Uint32(record[4:8])
		e.Offset = order.Uint32(record[8:12])

		fields := record[12:]
		if layout.hasSizes {
			e.UncompressedSize = order.Uint32(fields[0:4])
			e.CompressionLevel = order.Uint32(fields[4:8])
			fields = fields[8:]
		} else {
			e.UncompressedSize = e.CompressedSize
			e.CompressionLevel = 0
		}

		e.Timestamp = order.Uint32(fields[0:4])
		e.Checksum = order.Uint32(fields[4:8])

		if e.CompressionLevel == 0 && e.CompressedSize != e.UncompressedSize {
			return nil, fmt.Errorf("%w: entry %d (%d != %d)", ErrSizeMismatch, i, e.CompressedSize, e.UncompressedSize)
		}
	}

	// Names are resolved only after the whole block is loaded: entries may share offsets.
	arena := make(nameArena, stringTableSize)
	if _, err := io.ReadFull(br, arena); err != nil {
		return nil, indexReadError("name table", err)
	}

	for i := range entries {
		name, err := arena.resolve(nameOffsets[i])
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}

		entries[i].Name = name
	}

	return entries, nil
}

// indexReadError maps short reads to ErrTruncated and keeps other I/O errors.
func indexReadError(what string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: short %s", ErrTruncated, what)
	}

	return fmt.Errorf("read %s: %w", what, err)
}

// writeIndex writes entry records in given order, then the name block.
// indexOffset is the absolute position w is at.
func writeIndex(
	w io.Writer,
	layout versionLayout,
	entries []Entry,
	indexOffset uint32,
	order binary.ByteOrder,
) (indexInfo, error) {
	if len(entries) > maxIndexCount {
		return indexInfo{}, fmt.Errorf("%w: %d entries", ErrIndexCount, len(entries))
	}

	names := newNameTable(len(entries))
	record := make([]byte, layout.recordSize)
	for i := range entries {
		e := &entries[i]
		nameOffset, err := names.put(e.Name)
		if err != nil {
			return indexInfo{}, err
		}

		order.PutUint32(record[0:4], nameOffset)
		order.PutUint32(record[4:8], e.CompressedSize)
		order.PutUint32(record[8:12], e.Offset)

		fields := record[12:]
		if layout.hasSizes {
			order.PutUint32(fields[0:4], e.UncompressedSize)
			order.PutUint32(fields[4:8], e.CompressionLevel)
			fields = fields[8:]
		}

		order.PutUint32(fields[0:4], e.Timestamp)
		order.PutUint32(fields[4:8], e.Checksum)

		if _, err := w.Write(record); err != nil {
			return indexInfo{}, fmt.Errorf("write entry %d: %w", i, err)
		}
	}

	if _, err := w.Write(names.bytes()); err != nil {
		return indexInfo{}, fmt.Errorf("write name table: %w", err)
	}

	info := indexInfo{
		offset:          indexOffset,
		count:           int32(len(entries)), //nolint:gosec // bounded by maxIndexCount
		stringTableSize: names.size(),
	}
	info.size = indexByteSize(layout, info.count, info.stringTableSize)
	if int64(indexOffset)+info.size > math.MaxUint32 {
		return indexInfo{}, fmt.Errorf("%w: index ends past 4 GiB", ErrSizeOverflow)
	}

	return info, nil
}
