// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pod

package pod

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/flate"
)

// Payload codec constants.
const (
	// entryBlockSize is the chunk size used to copy entry payloads.
	entryBlockSize = 4096
	// deflateLevel is the level used when packing and stored as the entry marker.
	deflateLevel = flate.BestCompression
)

var (
	// deflaterPool reuses raw deflate writers at deflateLevel.
	deflaterPool = sync.Pool{
		New: func() any {
			w, err := flate.NewWriter(io.Discard, deflateLevel)
			if err != nil {
				// Only fails on invalid level.
				panic(err)
			}

			return w
		},
	}
	// inflaterPool reuses raw deflate readers.
	inflaterPool sync.Pool
)

// deflatePayload compresses raw into a new raw deflate stream (no zlib or gzip framing).
func deflatePayload(raw []byte) ([]byte, error) {
	var dst bytes.Buffer
	dst.Grow(len(raw) / 2)

	w := deflaterPool.Get().(*flate.Writer) //nolint:forcetypeassert // pool contains only *flate.Writer
	defer deflaterPool.Put(w)
	w.Reset(&dst)

	if _, err := w.Write(raw); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	return dst.Bytes(), nil
}

// acquireInflater returns a raw deflate reader over src and its release callback.
func acquireInflater(src io.Reader) (io.ReadCloser, func()) {
	if v := inflaterPool.Get(); v != nil {
		rc := v.(io.ReadCloser) //nolint:forcetypeassert // pool contains only flate readers
		if err := rc.(flate.Resetter).Reset(src, nil); err == nil {
			return rc, func() { inflaterPool.Put(rc) }
		}
	}

	rc := flate.NewReader(src)
	return rc, func() { inflaterPool.Put(rc) }
}

// copyEntryPayload writes the uncompressed payload of e from src to dst.
// src must be positioned at the payload start.
func copyEntryPayload(dst io.Writer, src io.Reader, e *Entry, buf []byte) (int64, error) {
	if len(buf) == 0 {
		buf = make([]byte, entryBlockSize)
	}

	if !e.IsCompressed() {
		return copyStored(dst, io.LimitReader(src, int64(e.CompressedSize)), int64(e.UncompressedSize), buf)
	}

	inflater, release := acquireInflater(io.LimitReader(src, int64(e.CompressedSize)))
	defer release()

	return copyInflated(dst, inflater, int64(e.UncompressedSize), buf)
}

// copyStored copies exactly size raw bytes.
func copyStored(dst io.Writer, src io.Reader, size int64, buf []byte) (int64, error) {
	var written int64
	for written < size {
		chunk := buf[:min(int64(len(buf)), size-written)]
		n, err := io.ReadFull(src, chunk)
		if n > 0 {
			if _, werr := dst.Write(chunk[:n]); werr != nil {
				return written, werr
			}
			written += int64(n)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}

			return written, err
		}
	}

	return written, nil
}

// copyInflated copies exactly size inflated bytes. A decompressor that yields
// nothing before size is reached is a fatal error.
func copyInflated(dst io.Writer, src io.Reader, size int64, buf []byte) (int64, error) {
	var written int64
	for written < size {
		chunk := buf[:min(int64(len(buf)), size-written)]
		n, err := src.Read(chunk)
		if n > 0 {
			if _, werr := dst.Write(chunk[:n]); werr != nil {
				return written, werr
			}
			written += int64(n)
			continue
		}

		if err == nil || errors.Is(err, io.EOF) {
			return written, fmt.Errorf("%w: stream ended at %d of %d bytes", ErrDecompress, written, size)
		}

		return written, classifyInflateError(err)
	}

	return written, nil
}

// classifyInflateError wraps deflate stream errors with ErrDecompress and keeps I/O errors.
func classifyInflateError(err error) error {
	var corrupt flate.CorruptInputError
	var internal flate.InternalError
	switch {
	case errors.As(err, &corrupt), errors.As(err, &internal):
		return fmt.Errorf("%w: %w", ErrDecompress, err)
	case errors.Is(err, io.ErrUnexpectedEOF):
		return fmt.Errorf("%w: truncated stream", ErrDecompress)
	default:
		return err
	}
}
