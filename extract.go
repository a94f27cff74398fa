// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pod

package pod

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// SinkFactory opens the destination for one entry. Returning a nil writer
// and nil error skips the entry. The pipeline closes every returned writer.
type SinkFactory func(entry Entry) (io.WriteCloser, error)

// Unpack streams every entry payload of a from rs into sinks, in archive order.
// Offsets are absolute, so rs is seeked per entry. Compressed payloads are inflated.
func Unpack(ctx context.Context, rs io.ReadSeeker, a *Archive, sinks SinkFactory, opts UnpackOptions) (*UnpackResult, error) {
	if rs == nil {
		return nil, ErrNilReader
	}
	if a == nil {
		return nil, fmt.Errorf("%w: archive is nil", ErrNilReader)
	}
	if sinks == nil {
		return nil, fmt.Errorf("%w: sink factory is nil", ErrNilWriter)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	opts.applyDefaults()

	filter, err := newEntryFilter(opts)
	if err != nil {
		return nil, err
	}

	res := &UnpackResult{}
	buf := make([]byte, entryBlockSize)
	for i := range a.Entries {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		entry := a.Entries[i]
		if !filter.Allow(entry) {
			res.Skipped++
			continue
		}

		written, opened, err := unpackEntry(rs, &entry, sinks, buf)
		if err != nil {
			if opts.OnEntryError != nil && opts.OnEntryError(entry, err) {
				res.Failed++
				continue
			}

			return res, err
		}

		if !opened {
			res.Skipped++
			continue
		}

		res.Extracted++
		res.Bytes += written
		if opts.OnEntryDone != nil {
			opts.OnEntryDone(entry, written)
		}
	}

	return res, nil
}

// unpackEntry copies one entry into its sink and always closes the sink.
func unpackEntry(rs io.ReadSeeker, entry *Entry, sinks SinkFactory, buf []byte) (int64, bool, error) {
	if _, err := rs.Seek(int64(entry.Offset), io.SeekStart); err != nil {
		return 0, false, fmt.Errorf("seek entry %s: %w", entry.Name, err)
	}

	sink, err := sinks(*entry)
	if err != nil {
		return 0, false, fmt.Errorf("open sink %s: %w", entry.Name, err)
	}
	if sink == nil {
		return 0, false, nil
	}

	written, copyErr := copyEntryPayload(sink, rs, entry, buf)
	closeErr := sink.Close()
	if copyErr != nil {
		return written, true, fmt.Errorf("write %s: %w", entry.Name, copyErr)
	}
	if closeErr != nil {
		return written, true, fmt.Errorf("close %s: %w", entry.Name, closeErr)
	}

	return written, true, nil
}

// Unpack streams entries of the parsed archive into sinks.
func (r *Reader) Unpack(ctx context.Context, sinks SinkFactory, opts UnpackOptions) (*UnpackResult, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	return Unpack(ctx, io.NewSectionReader(r.ra, 0, r.size), r.archive, sinks, opts)
}

// Extract writes selected entries to dstDir, one file per entry.
// Entry names are mapped to relative paths with "\" and "/" treated as separators.
func (r *Reader) Extract(ctx context.Context, dstDir string, opts ExtractOptions) (*UnpackResult, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	opts.applyDefaults()

	sinks, err := DirectorySink(dstDir, opts.FileMode)
	if err != nil {
		return nil, err
	}

	return r.Unpack(ctx, sinks, opts.UnpackOptions)
}

// DirectorySink returns a SinkFactory writing entries below dstDir.
// Parent directories are created on demand.
func DirectorySink(dstDir string, mode ExtractFileMode) (SinkFactory, error) {
	if mode == "" {
		mode = ExtractFileModeSkipExisting
	}

	switch mode {
	case ExtractFileModeSkipExisting, ExtractFileModeTruncate, ExtractFileModeCreateOnly:
	default:
		return nil, fmt.Errorf("unknown extract file mode %q", mode)
	}

	dstRootAbs, err := filepath.Abs(dstDir)
	if err != nil {
		return nil, fmt.Errorf("resolve output dir: %w", err)
	}

	if err := os.MkdirAll(dstRootAbs, 0o750); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	return func(entry Entry) (io.WriteCloser, error) {
		normalizedPath, err := normalizeExtractEntryPath(entry.Name)
		if err != nil {
			return nil, fmt.Errorf("normalize entry path %s: %w", entry.Name, err)
		}

		outPath := filepath.Join(dstRootAbs, filepath.FromSlash(normalizedPath))
		if dir := filepath.Dir(outPath); dir != dstRootAbs {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("create output directory %s: %w", dir, err)
			}
		}

		file, err := openExtractFile(outPath, mode)
		if err != nil {
			return nil, err
		}
		if file == nil {
			return nil, nil
		}

		return file, nil
	}, nil
}

// openExtractFile opens output path according to selected extract file mode.
// It returns a nil file without error when the entry must be skipped.
func openExtractFile(path string, mode ExtractFileMode) (*os.File, error) {
	switch mode {
	case ExtractFileModeSkipExisting:
		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if errors.Is(err, os.ErrExist) {
			return nil, nil
		}

		return file, err
	case ExtractFileModeTruncate:
		return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	case ExtractFileModeCreateOnly:
		return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	default:
		return nil, fmt.Errorf("unknown extract file mode %q", mode)
	}
}

// normalizeExtractEntryPath normalizes entry path and rejects absolute/traversal inputs.
func normalizeExtractEntryPath(entryPath string) (string, error) {
	raw := strings.TrimSpace(entryPath)
	if raw == "" {
		return "", ErrInvalidExtractPath
	}
	if strings.ContainsRune(raw, 0) {
		return "", ErrInvalidExtractPath
	}
	if strings.HasPrefix(raw, `/`) || strings.HasPrefix(raw, `\`) {
		return "", ErrInvalidExtractPath
	}

	raw = strings.ReplaceAll(raw, `\`, `/`)
	if hasWindowsAbsDrivePrefix(raw) {
		return "", ErrInvalidExtractPath
	}

	parts := strings.Split(raw, `/`)
	cleanParts := make([]string, 0, len(parts))
	for _, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			return "", ErrInvalidExtractPath
		default:
			cleanParts = append(cleanParts, part)
		}
	}
	if len(cleanParts) == 0 {
		return "", ErrInvalidExtractPath
	}

	return strings.Join(cleanParts, `/`), nil
}

// hasWindowsAbsDrivePrefix reports whether path starts with drive-root prefix like C:/.
func hasWindowsAbsDrivePrefix(path string) bool {
	if len(path) < 3 {
		return false
	}

	return isASCIIAlpha(path[0]) && path[1] == ':' && path[2] == '/'
}

// isASCIIAlpha reports whether byte is ASCII latin letter.
func isASCIIAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
