// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pod

package pod

import (
	"bytes"
	"fmt"
)

// nameTable builds the name block on write. Identical names share one offset.
type nameTable struct {
	offsets map[string]uint32
	buf     bytes.Buffer
}

// newNameTable returns an empty table sized for n names.
func newNameTable(n int) *nameTable {
	return &nameTable{offsets: make(map[string]uint32, n)}
}

// put returns the offset of name, appending it with a NUL terminator on first use.
func (t *nameTable) put(name string) (uint32, error) {
	if offset, ok := t.offsets[name]; ok {
		return offset, nil
	}

	end := int64(t.buf.Len()) + int64(len(name)) + 1
	if end >= maxPODData {
		return 0, fmt.Errorf("%w: name table exceeds 4 GiB", ErrSizeOverflow)
	}

	offset := uint32(t.buf.Len()) //nolint:gosec // bounded by check above
	t.buf.WriteString(name)
	t.buf.WriteByte(0)
	t.offsets[name] = offset

	return offset, nil
}

// bytes returns the encoded name block.
func (t *nameTable) bytes() []byte {
	return t.buf.Bytes()
}

// size returns the encoded name block length.
func (t *nameTable) size() uint32 {
	return uint32(t.buf.Len()) //nolint:gosec // bounded in put
}

// nameArena is the loaded name block addressed by stored offsets.
type nameArena []byte

// resolve reads the NUL-terminated name at offset. A missing terminator
// runs the name to the end of the block.
func (a nameArena) resolve(offset uint32) (string, error) {
	if uint64(offset) >= uint64(len(a)) {
		return "", fmt.Errorf("%w: %d >= %d", ErrNameOffset, offset, len(a))
	}

	tail := a[offset:]
	if idx := bytes.IndexByte(tail, 0); idx >= 0 {
		tail = tail[:idx]
	}

	return string(tail), nil
}
