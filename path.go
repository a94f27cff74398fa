// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pod

package pod

import (
	"fmt"
	"path"
	"strings"
)

// NormalizePath converts an archive/internal path to normalized slash-separated form.
// It trims spaces, accepts both "/" and "\", removes leading "./" and "/", and cleans "." segments.
func NormalizePath(raw string) string {
	raw = normalizePathForMatching(raw)
	raw = strings.TrimPrefix(raw, "/")
	raw = path.Clean("/" + raw)
	raw = strings.TrimPrefix(raw, "/")
	if raw == "." {
		return ""
	}

	return strings.TrimSuffix(raw, "/")
}

// ArchiveName converts a relative path to the stored entry name form with "\" separators.
func ArchiveName(raw string) string {
	return strings.ReplaceAll(NormalizePath(raw), "/", `\`)
}

// normalizePathForMatching normalizes user/input paths for matcher use.
func normalizePathForMatching(path string) string {
	path = strings.TrimSpace(path)
	path = strings.ReplaceAll(path, `\`, `/`)
	path = strings.TrimPrefix(path, "./")
	return path
}

// normalizeArchiveEntryPath validates an input name for the ASCII name table.
// Separators are kept as given by the caller.
func normalizeArchiveEntryPath(raw string) (string, error) {
	if NormalizePath(raw) == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidEntryPath, raw)
	}

	for i := 0; i < len(raw); i++ {
		if raw[i] == 0 || raw[i] >= 0x80 {
			return "", fmt.Errorf("%w: %q is not NUL-free ASCII", ErrInvalidEntryPath, raw)
		}
	}

	return raw, nil
}
