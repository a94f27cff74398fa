// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pod

package pod

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestNameTable_Dedup(t *testing.T) {
	t.Parallel()

	names := newNameTable(4)
	first, err := names.put("a.txt")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	second, err := names.put("b.txt")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	again, err := names.put("a.txt")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	// Exact match only: a suffix of a stored name gets its own slot.
	suffix, err := names.put("txt")
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	if first != again {
		t.Fatalf("duplicate name offsets %d and %d, want shared", first, again)
	}
	if first == second || suffix == first || suffix == second {
		t.Fatalf("offsets not distinct: %d %d %d", first, second, suffix)
	}
	if got := string(names.bytes()); got != "a.txt\x00b.txt\x00txt\x00" {
		t.Fatalf("name block=%q", got)
	}
	if names.size() != 16 {
		t.Fatalf("size=%d, want 16", names.size())
	}
}

func TestNameArena_Resolve(t *testing.T) {
	t.Parallel()

	arena := nameArena("a.txt\x00tail")
	testCases := []struct {
		name    string
		offset  uint32
		want    string
		wantErr bool
	}{
		{name: "first", offset: 0, want: "a.txt"},
		{name: "inside", offset: 2, want: "txt"},
		{name: "unterminated", offset: 6, want: "tail"},
		{name: "terminator", offset: 5, want: ""},
		{name: "past end", offset: 10, wantErr: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := arena.resolve(tc.offset)
			if tc.wantErr {
				if !errors.Is(err, ErrNameOffset) {
					t.Fatalf("resolve(%d) err=%v, want ErrNameOffset", tc.offset, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolve(%d): %v", tc.offset, err)
			}
			if got != tc.want {
				t.Fatalf("resolve(%d)=%q, want %q", tc.offset, got, tc.want)
			}
		})
	}
}

func TestWriteIndex_SharedNameOffset(t *testing.T) {
	t.Parallel()

	layout, err := layoutFor(V4)
	if err != nil {
		t.Fatal(err)
	}

	entries := []Entry{
		{Name: "same.txt", Offset: 288, CompressedSize: 1, UncompressedSize: 1},
		{Name: "same.txt", Offset: 289, CompressedSize: 1, UncompressedSize: 1},
		{Name: "other.txt", Offset: 290, CompressedSize: 1, UncompressedSize: 1},
	}

	var buf bytes.Buffer
	info, err := writeIndex(&buf, layout, entries, 291, binary.LittleEndian)
	if err != nil {
		t.Fatalf("writeIndex: %v", err)
	}

	raw := buf.Bytes()
	nameOffset := func(i int) uint32 {
		return binary.LittleEndian.Uint32(raw[i*layout.recordSize:])
	}
	if nameOffset(0) != nameOffset(1) {
		t.Fatalf("identical names got offsets %d and %d", nameOffset(0), nameOffset(1))
	}
	if nameOffset(0) == nameOffset(2) {
		t.Fatal("distinct names share an offset")
	}
	if info.stringTableSize != uint32(len("same.txt\x00other.txt\x00")) {
		t.Fatalf("stringTableSize=%d", info.stringTableSize)
	}
	if info.size != int64(buf.Len()) {
		t.Fatalf("info.size=%d, written=%d", info.size, buf.Len())
	}

	parsed, err := parseIndex(bytes.NewReader(raw), layout, info.count, info.stringTableSize, binary.LittleEndian)
	if err != nil {
		t.Fatalf("parseIndex: %v", err)
	}
	for i := range entries {
		if parsed[i] != entries[i] {
			t.Fatalf("entry %d: got %+v, want %+v", i, parsed[i], entries[i])
		}
	}
}

func TestParseIndex_V3SynthesizesSizes(t *testing.T) {
	t.Parallel()

	m := newManualPOD(V3)
	m.addStored("a.bin", []byte("abcdef"))

	a, err := ReadArchive(bytes.NewReader(m.bytes(binary.LittleEndian)), ReaderOptions{})
	if err != nil {
		t.Fatalf("ReadArchive: %v", err)
	}

	e := a.Entries[0]
	if e.UncompressedSize != 6 || e.CompressedSize != 6 || e.CompressionLevel != 0 {
		t.Fatalf("entry=%+v", e)
	}
	if a.HeaderSize() != 288 {
		t.Fatalf("header size=%d", a.HeaderSize())
	}
}

func TestParseIndex_StoredSizeMismatch(t *testing.T) {
	t.Parallel()

	m := newManualPOD(V4)
	m.addStored("ok.txt", []byte("fine"))
	m.addEntry("bad.txt", []byte("abc"), 10, 0)

	a, err := ReadArchive(bytes.NewReader(m.bytes(binary.LittleEndian)), ReaderOptions{})
	if !errors.Is(err, ErrSizeMismatch) || !errors.Is(err, ErrFormat) {
		t.Fatalf("err=%v, want ErrSizeMismatch", err)
	}
	if a != nil {
		t.Fatalf("partial archive returned: %+v", a)
	}
}

func TestParseIndex_AliasedNames(t *testing.T) {
	t.Parallel()

	m := newManualPOD(V5)
	m.addStored("shared.txt", []byte("one"))
	m.addStored("unused.txt", []byte("two"))
	m.records[1].nameOffset = m.records[0].nameOffset

	a, err := ReadArchive(bytes.NewReader(m.bytes(binary.LittleEndian)), ReaderOptions{})
	if err != nil {
		t.Fatalf("ReadArchive: %v", err)
	}
	if a.Entries[0].Name != "shared.txt" || a.Entries[1].Name != "shared.txt" {
		t.Fatalf("names=%q, %q", a.Entries[0].Name, a.Entries[1].Name)
	}
}

func TestParseIndex_BadNameOffset(t *testing.T) {
	t.Parallel()

	m := newManualPOD(V4)
	m.addStored("a.txt", []byte("x"))
	m.records[0].nameOffset = 1000

	_, err := ReadArchive(bytes.NewReader(m.bytes(binary.LittleEndian)), ReaderOptions{})
	if !errors.Is(err, ErrNameOffset) {
		t.Fatalf("err=%v, want ErrNameOffset", err)
	}
}

func TestReadArchive_IndexPastEOF(t *testing.T) {
	t.Parallel()

	m := newManualPOD(V4)
	m.addStored("a.txt", []byte("x"))
	data := m.bytes(binary.LittleEndian)

	_, err := ReadArchive(bytes.NewReader(data[:len(data)-3]), ReaderOptions{})
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("err=%v, want ErrTruncated", err)
	}
}
