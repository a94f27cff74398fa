// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pod

package pod

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// headerTail carries header fields derived from the index at serialize time.
type headerTail struct {
	indexCount      int32
	indexOffset     uint32
	stringTableSize uint32
}

// parseMagic decodes the big-endian magic and returns the layout version.
func parseMagic(raw [4]byte) (Version, error) {
	magic := binary.BigEndian.Uint32(raw[:])
	if magic>>8 != magicSignature {
		return 0, fmt.Errorf("%w: %q", ErrBadMagic, raw[:3])
	}

	// Low byte below '0' wraps around and lands outside the table as well.
	version := Version(byte(magic&0xFF) - versionDigit)
	if !version.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedVersion, raw[:])
	}

	return version, nil
}

// parseHeader reads a full header from r and validates reserved fields.
func parseHeader(r io.Reader, order binary.ByteOrder) (Header, headerTail, error) {
	var h Header
	var tail headerTail

	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return h, tail, headerReadError(err)
	}

	version, err := parseMagic(magic)
	if err != nil {
		return h, tail, err
	}

	layout, err := layoutFor(version)
	if err != nil {
		return h, tail, err
	}

	raw := make([]byte, layout.headerSize-len(magic))
	if _, err := io.ReadFull(r, raw); err != nil {
		return h, tail, headerReadError(err)
	}

	// Offsets below are relative to raw, i.e. absolute minus 4.
	h.Version = version
	h.Checksum = order.Uint32(raw[0x00:])
	h.Comment = readStringSlot(raw[0x04:])
	tail.indexCount = int32(order.Uint32(raw[0x54:])) //nolint:gosec // signed on disk
	h.ReservedA = order.Uint32(raw[0x58:])
	h.ReservedB = order.Uint32(raw[0x5C:])
	h.ReservedC = order.Uint32(raw[0x60:])
	h.Author = readStringSlot(raw[0x64:])
	h.Copyright = readStringSlot(raw[0xB4:])
	tail.indexOffset = order.Uint32(raw[0x104:])
	h.ReservedD = order.Uint32(raw[0x108:])
	tail.stringTableSize = order.Uint32(raw[0x10C:])
	h.ReservedE = order.Uint32(raw[0x110:])
	h.ReservedF = int32(order.Uint32(raw[0x114:])) //nolint:gosec // signed on disk
	h.ReservedG = int32(order.Uint32(raw[0x118:])) //nolint:gosec // signed on disk
	if layout.hasNextName {
		h.NextName = readStringSlot(raw[0x11C:])
	}

	if tail.indexCount < 0 || tail.indexCount > maxIndexCount {
		return h, tail, fmt.Errorf("%w: %d", ErrIndexCount, tail.indexCount)
	}

	if err := validateReserved(&h, tail.indexCount); err != nil {
		return h, tail, err
	}

	return h, tail, nil
}

// validateReserved checks reserved fields that hold fixed values in every known archive.
func validateReserved(h *Header, indexCount int32) error {
	if h.ReservedA != 0 && int64(h.ReservedA) != int64(indexCount) {
		return fmt.Errorf("%w: 0x5C=%d, index count %d", ErrReservedField, h.ReservedA, indexCount)
	}
	if h.ReservedB != reservedFixed {
		return fmt.Errorf("%w: 0x60=%d", ErrReservedField, h.ReservedB)
	}
	if h.ReservedC != reservedFixed {
		return fmt.Errorf("%w: 0x64=%d", ErrReservedField, h.ReservedC)
	}
	if h.ReservedE != 0 {
		return fmt.Errorf("%w: 0x114=%d", ErrReservedField, h.ReservedE)
	}

	return nil
}

// headerReadError maps short reads to ErrTruncated and keeps other I/O errors.
func headerReadError(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: short header", ErrTruncated)
	}

	return fmt.Errorf("read header: %w", err)
}

// writeHeader writes the full header at the current position of w.
func writeHeader(w io.Writer, h *Header, tail headerTail, order binary.ByteOrder) error {
	layout, err := layoutFor(h.Version)
	if err != nil {
		return err
	}

	buf := make([]byte, layout.headerSize)
	binary.BigEndian.PutUint32(buf[0x00:], magicSignature<<8|(uint32(h.Version)+versionDigit))
	order.PutUint32(buf[0x04:], h.Checksum)
	writeStringSlot(buf[0x08:], h.Comment)
	order.PutUint32(buf[0x58:], uint32(tail.indexCount)) //nolint:gosec // range checked by caller
	order.PutUint32(buf[0x5C:], h.ReservedA)
	order.PutUint32(buf[0x60:], h.ReservedB)
	order.PutUint32(buf[0x64:], h.ReservedC)
	writeStringSlot(buf[0x68:], h.Author)
	writeStringSlot(buf[0xB8:], h.Copyright)
	order.PutUint32(buf[0x108:], tail.indexOffset)
	order.PutUint32(buf[0x10C:], h.ReservedD)
	order.PutUint32(buf[0x110:], tail.stringTableSize)
	order.PutUint32(buf[0x114:], h.ReservedE)
	order.PutUint32(buf[0x118:], uint32(h.ReservedF)) //nolint:gosec // signed on disk
	order.PutUint32(buf[0x11C:], uint32(h.ReservedG)) //nolint:gosec // signed on disk
	if layout.hasNextName {
		writeStringSlot(buf[0x120:], h.NextName)
	}

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	return nil
}

// readStringSlot decodes a NUL-terminated or full-width ASCII slot.
func readStringSlot(b []byte) string {
	slot := b[:stringSlotSize]
	if idx := bytes.IndexByte(slot, 0); idx >= 0 {
		slot = slot[:idx]
	}

	return string(slot)
}

// writeStringSlot writes s as ASCII into an 80-byte slot, truncating and NUL padding.
// Non-ASCII bytes are replaced with '?'.
func writeStringSlot(b []byte, s string) {
	slot := b[:stringSlotSize]
	n := min(len(s), stringSlotSize)
	for i := range n {
		c := s[i]
		if c >= 0x80 {
			c = '?'
		}
		slot[i] = c
	}

	clear(slot[n:])
}
