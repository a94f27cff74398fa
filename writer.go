// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pod

package pod

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

var (
	// defaultPackWriterPool reuses default-sized bufio writers between Pack calls.
	defaultPackWriterPool = sync.Pool{
		New: func() any {
			return bufio.NewWriterSize(io.Discard, DefaultWriteBuffer)
		},
	}
	// defaultPackCopyBufferPool reuses payload copy buffers between Pack calls.
	defaultPackCopyBufferPool = sync.Pool{
		New: func() any {
			return new([packCopyBufferSize]byte)
		},
	}
)

const (
	// packCopyBufferSize is per-pack temporary buffer used by streaming payload copy.
	packCopyBufferSize = 64 * 1024
)

// writtenPayload stores concrete values produced during one payload write.
type writtenPayload struct {
	compressedSize   uint32
	uncompressedSize uint32
	compressionLevel uint32
}

// truncater is implemented by *os.File and other resizable outputs.
type truncater interface {
	Truncate(size int64) error
}

// Pack writes a POD to out from inputs in the given order.
// The header region is reserved first and back-patched once the index is written.
// Output longer than the archive is truncated when out has a Truncate method;
// other streams must be empty.
func Pack(ctx context.Context, out io.WriteSeeker, inputs []Input, opts PackOptions) (*PackResult, error) {
	if out == nil {
		return nil, ErrNilWriter
	}
	if ctx == nil {
		ctx = context.Background()
	}

	opts.applyDefaults()
	header := opts.Header

	layout, err := layoutFor(header.Version)
	if err != nil {
		return nil, err
	}

	plan, err := preparePackPlan(inputs)
	if err != nil {
		return nil, err
	}

	if len(plan) > maxIndexCount {
		return nil, fmt.Errorf("%w: %d inputs", ErrIndexCount, len(plan))
	}

	// Reject headers that would not read back.
	if err := validateReserved(&header, int32(len(plan))); err != nil { //nolint:gosec // bounded above
		return nil, err
	}

	compressMatcher, err := newRuleMatcher(opts.Compress, opts.CompressMatcherOptions)
	if err != nil {
		return nil, fmt.Errorf("compile compress rules: %w", err)
	}

	if _, err := out.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek archive start: %w", err)
	}

	w, releaseWriter := acquirePackWriter(out, opts.WriterBufferSize)
	defer releaseWriter()

	// Placeholder; the real header is written after the index.
	if _, err := w.Write(make([]byte, layout.headerSize)); err != nil {
		return nil, fmt.Errorf("reserve header: %w", err)
	}

	copyBuf, releaseCopyBuffer := acquirePackCopyBuffer()
	defer releaseCopyBuffer()

	res := &PackResult{Entries: make([]Entry, 0, len(plan))}
	currentOffset := uint32(layout.headerSize) //nolint:gosec // fixed small layout constant
	for i := range plan {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		in := &plan[i]
		candidate := shouldUseCompressionForInput(opts, compressMatcher, *in)
		record, err := writeInputPayload(w, *in, opts, candidate && layout.hasSizes, currentOffset, copyBuf)
		if err != nil {
			return nil, err
		}

		entry := Entry{
			Name:             in.Path,
			Offset:           currentOffset,
			CompressedSize:   record.compressedSize,
			UncompressedSize: record.uncompressedSize,
			CompressionLevel: record.compressionLevel,
			Timestamp:        in.Timestamp,
			Checksum:         in.Checksum,
		}
		res.Entries = append(res.Entries, entry)

		if entry.IsCompressed() {
			res.CompressedEntries++
		} else if candidate {
			res.SkippedCompressionEntries++
		}

		if opts.OnEntryDone != nil {
			opts.OnEntryDone(PackEntryProgress{
				Entry:                entry,
				Index:                i,
				Total:                len(plan),
				CompressionCandidate: candidate,
			})
		}

		currentOffset += record.compressedSize
	}

	info, err := writeIndex(w, layout, res.Entries, currentOffset, opts.ByteOrder)
	if err != nil {
		return nil, err
	}

	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("flush payloads and index: %w", err)
	}

	if _, err := out.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek header: %w", err)
	}

	if err := writeHeader(out, &header, info.tail(), opts.ByteOrder); err != nil {
		return nil, err
	}

	// Drop stale bytes of a reused stream.
	archiveEnd := int64(info.offset) + info.size
	if t, ok := out.(truncater); ok {
		if err := t.Truncate(archiveEnd); err != nil {
			return nil, fmt.Errorf("truncate archive: %w", err)
		}
	}

	if _, err := out.Seek(archiveEnd, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek archive end: %w", err)
	}

	res.WrittenEntries = len(res.Entries)
	res.DataSize = int64(currentOffset) - int64(layout.headerSize)
	res.IndexOffset = info.offset
	res.IndexSize = info.size
	res.StringTableSize = info.stringTableSize

	return res, nil
}

// PackFile writes a POD to outPath.
func PackFile(ctx context.Context, outPath string, inputs []Input, opts PackOptions) (*PackResult, error) {
	f, err := os.OpenFile(outPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create POD file: %w", err)
	}
	defer func() {
		if f != nil {
			_ = f.Close()
		}
	}()

	res, err := Pack(ctx, f, inputs, opts)
	if err != nil {
		return nil, err
	}

	if err := f.Sync(); err != nil {
		return nil, fmt.Errorf("sync POD file: %w", err)
	}

	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close POD file: %w", err)
	}
	f = nil

	return res, nil
}

// acquirePackWriter returns a buffered writer and release callback for Pack.
func acquirePackWriter(out io.Writer, size int) (*bufio.Writer, func()) {
	if size == DefaultWriteBuffer {
		w := defaultPackWriterPool.Get().(*bufio.Writer) //nolint:forcetypeassert // pool contains only *bufio.Writer
		w.Reset(out)

		return w, func() {
			w.Reset(io.Discard)
			defaultPackWriterPool.Put(w)
		}
	}

	return bufio.NewWriterSize(out, size), func() {}
}

// acquirePackCopyBuffer returns reusable payload copy buffer and release callback.
func acquirePackCopyBuffer() ([]byte, func()) {
	arr := defaultPackCopyBufferPool.Get().(*[packCopyBufferSize]byte) //nolint:forcetypeassert // pool contains only fixed-size buffers
	buf := arr[:]

	return buf, func() {
		defaultPackCopyBufferPool.Put(arr)
	}
}

// preparePackPlan validates input names and keeps caller order.
func preparePackPlan(inputs []Input) ([]Input, error) {
	plan := make([]Input, len(inputs))
	copy(plan, inputs)

	for i := range plan {
		name, err := normalizeArchiveEntryPath(plan[i].Path)
		if err != nil {
			return nil, err
		}

		plan[i].Path = name
	}

	if err := validateUniqueEntryPaths(plan); err != nil {
		return nil, err
	}

	return plan, nil
}

// openInputReader opens source stream for one input.
func openInputReader(in Input) (io.ReadCloser, error) {
	if in.Open == nil {
		return nil, fmt.Errorf("input %s: Open is nil", in.Path)
	}

	rc, err := in.Open()
	if err != nil {
		return nil, fmt.Errorf("open input %s: %w", in.Path, err)
	}

	return rc, nil
}

// writeInputPayload opens one input, writes its payload and closes it.
func writeInputPayload(
	dst io.Writer,
	in Input,
	opts PackOptions,
	useCompression bool,
	currentOffset uint32,
	copyBuf []byte,
) (writtenPayload, error) {
	rc, err := openInputReader(in)
	if err != nil {
		return writtenPayload{}, err
	}

	var record writtenPayload
	var writeErr error
	if useCompression {
		record, writeErr = writeCompressedCandidatePayload(dst, rc, in, opts, currentOffset, copyBuf)
	} else {
		record, writeErr = writeUncompressedPayload(dst, rc, in, currentOffset, copyBuf)
	}

	closeErr := rc.Close()
	if writeErr != nil {
		return writtenPayload{}, writeErr
	}
	if closeErr != nil {
		return writtenPayload{}, fmt.Errorf("close input %s: %w", in.Path, closeErr)
	}

	return record, nil
}

// shouldUseCompressionForInput reports whether input should enter compression candidate path.
func shouldUseCompressionForInput(opts PackOptions, matcher *ruleMatcher, in Input) bool {
	if !in.Compress && !opts.CompressAll && !matcher.Match(in.Path) {
		return false
	}

	return !shouldSkipCompressBySizeHint(opts, in.SizeHint)
}

// shouldSkipCompressBySizeHint reports whether known size hint guarantees no compression attempt.
func shouldSkipCompressBySizeHint(opts PackOptions, sizeHint int64) bool {
	if sizeHint <= 0 {
		return false
	}

	return sizeHint < int64(opts.MinCompressSize) || sizeHint > int64(opts.MaxCompressSize)
}

// writeUncompressedPayload streams payload directly into destination as a stored entry.
func writeUncompressedPayload(
	dst io.Writer,
	src io.Reader,
	in Input,
	currentOffset uint32,
	copyBuf []byte,
) (writtenPayload, error) {
	maxEntrySize := int64(^uint32(0)) - int64(currentOffset)
	streamed, err := copyPayloadBounded(dst, src, maxEntrySize, copyBuf)
	if err != nil {
		return writtenPayload{}, fmt.Errorf("stream input %s: %w", in.Path, err)
	}

	size, err := checkedDataSize(in.Path, streamed, currentOffset)
	if err != nil {
		return writtenPayload{}, err
	}

	return writtenPayload{compressedSize: size, uncompressedSize: size}, nil
}

// writeCompressedCandidatePayload reads up to MaxCompressSize into memory and
// deflates it. Larger sources, sizes outside the bounds and payloads that do
// not shrink are stored raw.
func writeCompressedCandidatePayload(
	dst io.Writer,
	src io.Reader,
	in Input,
	opts PackOptions,
	currentOffset uint32,
	copyBuf []byte,
) (writtenPayload, error) {
	limit := int64(opts.MaxCompressSize)
	raw, err := readPayloadBounded(src, limit, in.SizeHint, copyBuf)
	if err != nil {
		return writtenPayload{}, fmt.Errorf("stream input %s: %w", in.Path, err)
	}

	if int64(len(raw)) > limit {
		return writeUncompressedPayload(dst, io.MultiReader(bytes.NewReader(raw), src), in, currentOffset, copyBuf)
	}

	size, err := checkedDataSize(in.Path, int64(len(raw)), currentOffset)
	if err != nil {
		return writtenPayload{}, err
	}

	record := writtenPayload{compressedSize: size, uncompressedSize: size}
	if size < opts.MinCompressSize || size == 0 {
		return record, writeRaw(dst, raw, in.Path)
	}

	compressed, err := deflatePayload(raw)
	if err != nil {
		return writtenPayload{}, fmt.Errorf("compress %s: %w", in.Path, err)
	}
	if len(compressed) >= len(raw) {
		return record, writeRaw(dst, raw, in.Path)
	}

	record.compressedSize = uint32(len(compressed)) //nolint:gosec // smaller than checked raw size
	record.compressionLevel = deflateLevel
	return record, writeRaw(dst, compressed, in.Path)
}

// writeRaw writes one in-memory payload.
func writeRaw(dst io.Writer, data []byte, path string) error {
	if _, err := dst.Write(data); err != nil {
		return fmt.Errorf("write payload %s: %w", path, err)
	}

	return nil
}

// readPayloadBounded reads at most limit+1 bytes so callers can tell an oversize source.
func readPayloadBounded(src io.Reader, limit int64, sizeHint int64, copyBuf []byte) ([]byte, error) {
	var dst bytes.Buffer
	if sizeHint > 0 && sizeHint <= limit {
		dst.Grow(int(sizeHint))
	}

	if _, err := io.CopyBuffer(&dst, io.LimitReader(src, limit+1), copyBuf); err != nil {
		return nil, err
	}

	return dst.Bytes(), nil
}

// copyPayloadBounded streams payload from src to dst and enforces strict size limit.
func copyPayloadBounded(dst io.Writer, src io.Reader, limit int64, buf []byte) (int64, error) {
	if dst == nil {
		return 0, ErrNilWriter
	}
	if src == nil {
		return 0, ErrNilReader
	}
	if limit < 0 {
		return 0, ErrSizeOverflow
	}
	if len(buf) == 0 {
		buf = make([]byte, 32*1024)
	}

	var written int64
	emptyReads := 0
	for written < limit {
		chunkSize := len(buf)
		remaining := limit - written
		if int64(chunkSize) > remaining {
			chunkSize = int(remaining)
		}

		n, readErr := src.Read(buf[:chunkSize])
		if n > 0 {
			emptyReads = 0
			nw, writeErr := dst.Write(buf[:n])
			written += int64(nw)

			if writeErr != nil {
				return written, writeErr
			}
			if nw != n {
				return written, io.ErrShortWrite
			}
		}
		if n == 0 && readErr == nil {
			emptyReads++
			if emptyReads > 100 {
				return written, io.ErrNoProgress
			}

			continue
		}

		if readErr != nil {
			if readErr == io.EOF {
				break
			}

			return written, readErr
		}
	}

	// Consumed exactly the limit: probe one extra byte to ensure source is not longer.
	if written == limit {
		var probe [1]byte
		n, err := src.Read(probe[:])
		if n > 0 {
			return written, ErrSizeOverflow
		}
		if err != nil && err != io.EOF {
			return written, err
		}
	}

	return written, nil
}

// checkedDataSize validates entry size for uint32 fields and running offset.
func checkedDataSize(path string, size int64, currentOffset uint32) (uint32, error) {
	if size < 0 || size > int64(^uint32(0)) {
		return 0, fmt.Errorf("%w: entry %s size %d is out of uint32 range", ErrSizeOverflow, path, size)
	}

	maxEntrySize := int64(^uint32(0)) - int64(currentOffset)
	if size > maxEntrySize {
		return 0, fmt.Errorf("%w: entry %s size would exceed 4 GiB", ErrSizeOverflow, path)
	}

	return uint32(size), nil
}

// validateUniqueEntryPaths ensures there are no duplicate logical entry names.
func validateUniqueEntryPaths(inputs []Input) error {
	seen := make(map[string]string, len(inputs))
	for _, in := range inputs {
		key := strings.ToLower(NormalizePath(in.Path))
		if existing, ok := seen[key]; ok {
			return fmt.Errorf("%w: %q conflicts with %q", ErrDuplicateEntryPath, in.Path, existing)
		}

		seen[key] = in.Path
	}

	return nil
}

// TimestampFromTime converts time to the uint32 Unix timestamp stored in entries, clamping out-of-range values.
func TimestampFromTime(t time.Time) uint32 {
	u := t.Unix()
	if u < 0 {
		return 0
	}

	if u > 0xffffffff {
		return 0xffffffff
	}

	return uint32(u)
}
