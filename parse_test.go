// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pod

package pod

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/flate"
)

// manualRecord is one raw index record for hand-built fixtures.
type manualRecord struct {
	nameOffset       uint32
	compressedSize   uint32
	offset           uint32
	uncompressedSize uint32
	level            uint32
	timestamp        uint32
	checksum         uint32
}

// manualPOD builds archive bytes field by field, independent of writeHeader/writeIndex.
type manualPOD struct {
	header  Header
	records []manualRecord
	names   []byte
	payload []byte
	// count overrides the header index count when non-nil.
	count *int32
}

// newManualPOD returns an empty fixture for version v with stock header values.
func newManualPOD(v Version) *manualPOD {
	return &manualPOD{header: NewHeader(v)}
}

// addEntry appends payload, a fresh name and a record pointing at both.
func (m *manualPOD) addEntry(name string, stored []byte, uncompressedSize uint32, level uint32) {
	offset := uint32(m.header.Version.HeaderSize() + len(m.payload)) //nolint:gosec // small fixtures
	m.records = append(m.records, manualRecord{
		nameOffset:       uint32(len(m.names)), //nolint:gosec // small fixtures
		compressedSize:   uint32(len(stored)),  //nolint:gosec // small fixtures
		offset:           offset,
		uncompressedSize: uncompressedSize,
		level:            level,
		timestamp:        0x42494720,
		checksum:         0x20444542,
	})
	m.names = append(m.names, name...)
	m.names = append(m.names, 0)
	m.payload = append(m.payload, stored...)
}

// addStored appends an uncompressed entry.
func (m *manualPOD) addStored(name string, data []byte) {
	m.addEntry(name, data, uint32(len(data)), 0) //nolint:gosec // small fixtures
}

// bytes serializes the fixture using order for all non-magic fields.
func (m *manualPOD) bytes(order binary.ByteOrder) []byte {
	h := m.header
	hasSizes := h.Version != V3
	headerSize := h.Version.HeaderSize()
	count := int32(len(m.records)) //nolint:gosec // small fixtures
	if m.count != nil {
		count = *m.count
	}

	buf := make([]byte, headerSize)
	copy(buf[0x00:], "POD")
	buf[0x03] = byte('0' + h.Version)
	order.PutUint32(buf[0x04:], h.Checksum)
	copy(buf[0x08:0x58], h.Comment)
	order.PutUint32(buf[0x58:], uint32(count)) //nolint:gosec // negative counts are test input
	order.PutUint32(buf[0x5C:], h.ReservedA)
	order.PutUint32(buf[0x60:], h.ReservedB)
	order.PutUint32(buf[0x64:], h.ReservedC)
	copy(buf[0x68:0xB8], h.Author)
	copy(buf[0xB8:0x108], h.Copyright)
	order.PutUint32(buf[0x108:], uint32(headerSize+len(m.payload))) //nolint:gosec // small fixtures
	order.PutUint32(buf[0x10C:], h.ReservedD)
	order.PutUint32(buf[0x110:], uint32(len(m.names))) //nolint:gosec // small fixtures
	order.PutUint32(buf[0x114:], h.ReservedE)
	order.PutUint32(buf[0x118:], uint32(h.ReservedF)) //nolint:gosec // signed on disk
	order.PutUint32(buf[0x11C:], uint32(h.ReservedG)) //nolint:gosec // signed on disk
	if h.Version == V5 {
		copy(buf[0x120:0x170], h.NextName)
	}

	buf = append(buf, m.payload...)
	for _, rec := range m.records {
		fields := []uint32{rec.nameOffset, rec.compressedSize, rec.offset}
		if hasSizes {
			fields = append(fields, rec.uncompressedSize, rec.level)
		}
		fields = append(fields, rec.timestamp, rec.checksum)

		var word [4]byte
		for _, v := range fields {
			order.PutUint32(word[:], v)
			buf = append(buf, word[:]...)
		}
	}

	return append(buf, m.names...)
}

// writeFile stores little-endian fixture bytes in a temp file and returns the path.
func (m *manualPOD) writeFile(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "manual.pod")
	if err := os.WriteFile(path, m.bytes(binary.LittleEndian), 0o600); err != nil {
		t.Fatal(err)
	}

	return path
}

// deflateForTest compresses data as raw deflate.
func deflateForTest(t testing.TB, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	return buf.Bytes()
}

func TestOpen_ManualPOD(t *testing.T) {
	t.Parallel()

	m := newManualPOD(V4)
	m.addStored(`data\a.txt`, []byte("hello"))
	path := m.writeFile(t)

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = r.Close() }()

	entries := r.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Name != `data\a.txt` || entries[0].CompressedSize != 5 {
		t.Fatalf("entry=%+v", entries[0])
	}
	if entries[0].Timestamp != 0x42494720 || entries[0].Checksum != 0x20444542 {
		t.Fatalf("timestamp/checksum=%#x/%#x", entries[0].Timestamp, entries[0].Checksum)
	}

	data, err := r.ReadEntry("data/a.txt")
	if err != nil {
		t.Fatalf("ReadEntry: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("data=%q", data)
	}
}

func TestParseMagic(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		magic   string
		want    Version
		wantErr error
	}{
		{name: "pod3", magic: "POD3", want: V3},
		{name: "pod4", magic: "POD4", want: V4},
		{name: "pod5", magic: "POD5", want: V5},
		{name: "pod2", magic: "POD2", wantErr: ErrUnsupportedVersion},
		{name: "pod6", magic: "POD6", wantErr: ErrUnsupportedVersion},
		{name: "below digit", magic: "POD\x01", wantErr: ErrUnsupportedVersion},
		{name: "signature", magic: "PAK5", wantErr: ErrBadMagic},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var raw [4]byte
			copy(raw[:], tc.magic)
			got, err := parseMagic(raw)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) || !errors.Is(err, ErrFormat) {
					t.Fatalf("parseMagic(%q) err=%v, want %v", tc.magic, err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseMagic(%q): %v", tc.magic, err)
			}
			if got != tc.want {
				t.Fatalf("parseMagic(%q)=%v, want %v", tc.magic, got, tc.want)
			}
		})
	}
}

func TestParseHeader_RejectsVersionBeforeCount(t *testing.T) {
	t.Parallel()

	for _, magic := range []string{"POD2", "POD6"} {
		// Only the magic is present: reading further would report ErrTruncated instead.
		_, _, err := parseHeader(bytes.NewReader([]byte(magic)), binary.LittleEndian)
		if !errors.Is(err, ErrUnsupportedVersion) {
			t.Fatalf("%s: err=%v, want ErrUnsupportedVersion", magic, err)
		}
	}
}

func TestParseHeader_IndexCountBounds(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		count int32
		ok    bool
	}{
		{name: "zero", count: 0, ok: true},
		{name: "max", count: maxIndexCount, ok: true},
		{name: "over max", count: maxIndexCount + 1},
		{name: "negative", count: -1},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			m := newManualPOD(V5)
			m.count = &tc.count
			_, tail, err := parseHeader(bytes.NewReader(m.bytes(binary.LittleEndian)), binary.LittleEndian)
			if !tc.ok {
				if !errors.Is(err, ErrIndexCount) {
					t.Fatalf("count %d: err=%v, want ErrIndexCount", tc.count, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("count %d: %v", tc.count, err)
			}
			if tail.indexCount != tc.count {
				t.Fatalf("indexCount=%d, want %d", tail.indexCount, tc.count)
			}
		})
	}
}

func TestParseHeader_ReservedFields(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		mutate func(h *Header)
		ok     bool
	}{
		{name: "stock", mutate: func(*Header) {}, ok: true},
		{name: "a equals count", mutate: func(h *Header) { h.ReservedA = 2 }, ok: true},
		{name: "d opaque", mutate: func(h *Header) { h.ReservedD = 7 }, ok: true},
		{name: "a mismatch", mutate: func(h *Header) { h.ReservedA = 3 }},
		{name: "b", mutate: func(h *Header) { h.ReservedB = 999 }},
		{name: "c", mutate: func(h *Header) { h.ReservedC = 0 }},
		{name: "e", mutate: func(h *Header) { h.ReservedE = 1 }},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			m := newManualPOD(V4)
			m.addStored("a", []byte("1"))
			m.addStored("b", []byte("2"))
			tc.mutate(&m.header)

			_, err := ReadArchive(bytes.NewReader(m.bytes(binary.LittleEndian)), ReaderOptions{})
			if tc.ok && err != nil {
				t.Fatalf("ReadArchive: %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrReservedField) {
				t.Fatalf("err=%v, want ErrReservedField", err)
			}
		})
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	t.Parallel()

	for _, v := range []Version{V3, V4, V5} {
		v := v
		t.Run(v.String(), func(t *testing.T) {
			t.Parallel()

			h := NewHeader(v)
			h.Comment = "comment"
			h.Author = "author"
			h.Copyright = "(c) somebody"
			h.Checksum = 0x01020304
			h.ReservedA = 12
			h.ReservedD = 0xCAFEBABE
			h.ReservedF = 5
			h.ReservedG = -7
			if v == V5 {
				h.NextName = "next.pod"
			}

			tail := headerTail{indexCount: 12, indexOffset: 4096, stringTableSize: 77}
			for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
				var buf bytes.Buffer
				if err := writeHeader(&buf, &h, tail, order); err != nil {
					t.Fatalf("writeHeader: %v", err)
				}
				if buf.Len() != v.HeaderSize() {
					t.Fatalf("header len=%d, want %d", buf.Len(), v.HeaderSize())
				}

				got, gotTail, err := parseHeader(&buf, order)
				if err != nil {
					t.Fatalf("parseHeader: %v", err)
				}
				if got != h {
					t.Fatalf("header mismatch:\n got %+v\nwant %+v", got, h)
				}
				if gotTail != tail {
					t.Fatalf("tail=%+v, want %+v", gotTail, tail)
				}
			}
		})
	}
}

func TestWriteHeader_POD5Layout(t *testing.T) {
	t.Parallel()

	h := NewHeader(V5)
	h.NextName = "b.pod"
	var buf bytes.Buffer
	if err := writeHeader(&buf, &h, headerTail{indexCount: 2, indexOffset: 400, stringTableSize: 12}, binary.LittleEndian); err != nil {
		t.Fatalf("writeHeader: %v", err)
	}

	raw := buf.Bytes()
	if len(raw) != 368 {
		t.Fatalf("len=%d, want 368", len(raw))
	}
	if !bytes.Equal(raw[:4], []byte{0x50, 0x4F, 0x44, 0x35}) {
		t.Fatalf("magic=% x", raw[:4])
	}
	if got := binary.LittleEndian.Uint32(raw[0x58:]); got != 2 {
		t.Fatalf("count=%d", got)
	}
	if got := binary.LittleEndian.Uint32(raw[0x108:]); got != 400 {
		t.Fatalf("indexOffset=%d", got)
	}
	if got := binary.LittleEndian.Uint32(raw[0x110:]); got != 12 {
		t.Fatalf("stringTableSize=%d", got)
	}
	if got := string(raw[0x120:0x125]); got != "b.pod" {
		t.Fatalf("nextName=%q", got)
	}
}

func TestWriteStringSlot(t *testing.T) {
	t.Parallel()

	long := bytes.Repeat([]byte("x"), 100)
	testCases := []struct {
		name string
		in   string
		want string
	}{
		{name: "short", in: "abc", want: "abc"},
		{name: "non ascii", in: "caf\xc3\xa9", want: "caf??"},
		{name: "truncated", in: string(long), want: string(long[:stringSlotSize])},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			slot := bytes.Repeat([]byte{0xFF}, stringSlotSize)
			writeStringSlot(slot, tc.in)
			if got := readStringSlot(slot); got != tc.want {
				t.Fatalf("slot=%q, want %q", got, tc.want)
			}
		})
	}
}

func TestReadArchive_BigEndian(t *testing.T) {
	t.Parallel()

	m := newManualPOD(V5)
	m.addStored("a.txt", []byte("abc"))

	data := m.bytes(binary.BigEndian)
	a, err := ReadArchive(bytes.NewReader(data), ReaderOptions{ByteOrder: binary.BigEndian})
	if err != nil {
		t.Fatalf("ReadArchive: %v", err)
	}
	if len(a.Entries) != 1 || a.Entries[0].Name != "a.txt" || a.Entries[0].CompressedSize != 3 {
		t.Fatalf("entries=%+v", a.Entries)
	}

	if _, err := ReadArchive(bytes.NewReader(data), ReaderOptions{}); err == nil {
		t.Fatal("expected little-endian decode of big-endian archive to fail")
	}
}
