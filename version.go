// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pod

package pod

import "fmt"

// Version is the POD layout version carried in the last magic byte.
type Version uint8

// Supported layout versions.
const (
	// V3 stores only compressed size and offset per entry.
	V3 Version = 3
	// V4 adds uncompressed size and compression level per entry.
	V4 Version = 4
	// V5 extends the header with the 80-byte next archive name.
	V5 Version = 5
)

// DefaultVersion is used for packing when no version is given.
const DefaultVersion = V5

// versionLayout holds per-version binary layout constants.
type versionLayout struct {
	// headerSize is the fixed header length in bytes.
	headerSize int
	// recordSize is one index record length in bytes.
	recordSize int
	// hasNextName reports whether the header ends with the next name slot.
	hasNextName bool
	// hasSizes reports whether records carry uncompressed size and level.
	hasSizes bool
}

var layouts = map[Version]versionLayout{
	V3: {headerSize: 288, recordSize: 20, hasNextName: false, hasSizes: false},
	V4: {headerSize: 288, recordSize: 28, hasNextName: false, hasSizes: true},
	V5: {headerSize: 368, recordSize: 28, hasNextName: true, hasSizes: true},
}

// layoutFor returns the layout for v or ErrUnsupportedVersion.
func layoutFor(v Version) (versionLayout, error) {
	l, ok := layouts[v]
	if !ok {
		return versionLayout{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}

	return l, nil
}

// Valid reports whether v is one of the supported layout versions.
func (v Version) Valid() bool {
	_, ok := layouts[v]
	return ok
}

// HeaderSize returns the header length for v, or zero for unsupported versions.
func (v Version) HeaderSize() int {
	return layouts[v].headerSize
}

// SupportsCompression reports whether entries of v can record deflated payloads.
func (v Version) SupportsCompression() bool {
	return layouts[v].hasSizes
}

// String returns the magic form of v, e.g. "POD5".
func (v Version) String() string {
	return fmt.Sprintf("POD%d", uint8(v))
}
