// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pod

package pod

import (
	"encoding/binary"
	"io"

	"github.com/woozymasta/pathrules"
)

// Internal binary layout and format limits.
const (
	magicSignature = 0x504F44 // "POD" in the top three magic bytes
	versionDigit   = 0x30     // ASCII '0', subtracted from the last magic byte
	stringSlotSize = 80       // fixed ASCII slot width in header
	maxIndexCount  = 9999999  // largest accepted entry count
	reservedFixed  = 1000     // value of reserved fields B and C
	maxPODData     = 1 << 32  // max addressable offset in uint32 fields
)

// Default packer tuning values.
const (
	DefaultWriteBuffer     = 4 * 1024 * 1024
	DefaultMinCompressSize = 0
	DefaultMaxCompressSize = 64 * 1024 * 1024
	// DefaultComment is written to the comment slot by NewHeader.
	DefaultComment = "Packed with podtool"
	// DefaultChecksum is the archive checksum NewHeader fills in ("DBBG").
	DefaultChecksum uint32 = 0x44424247
	// DefaultReservedD is the reserved 0x10C value NewHeader fills in ("XXXX").
	DefaultReservedD uint32 = 0x58585858
)

// Header holds decoded archive header fields except the index location,
// which is derived at serialize time.
type Header struct {
	// Comment is free ASCII text (80-byte slot).
	Comment string `json:"comment,omitempty" yaml:"comment,omitempty"`
	// Author is free ASCII text (80-byte slot).
	Author string `json:"author,omitempty" yaml:"author,omitempty"`
	// Copyright is free ASCII text (80-byte slot).
	Copyright string `json:"copyright,omitempty" yaml:"copyright,omitempty"`
	// NextName names the following archive in a chain; stored only by V5.
	NextName string `json:"next_name,omitempty" yaml:"next_name,omitempty"`
	// Checksum is an opaque archive checksum.
	Checksum uint32 `json:"checksum" yaml:"checksum"`
	// ReservedA (0x5C) is 0 or equal to entry count.
	ReservedA uint32 `json:"reserved_a,omitempty" yaml:"reserved_a,omitempty"`
	// ReservedB (0x60) is always 1000.
	ReservedB uint32 `json:"reserved_b" yaml:"reserved_b"`
	// ReservedC (0x64) is always 1000.
	ReservedC uint32 `json:"reserved_c" yaml:"reserved_c"`
	// ReservedD (0x10C) is opaque.
	ReservedD uint32 `json:"reserved_d,omitempty" yaml:"reserved_d,omitempty"`
	// ReservedE (0x114) is always 0.
	ReservedE uint32 `json:"reserved_e,omitempty" yaml:"reserved_e,omitempty"`
	// ReservedF (0x118) is opaque, -1 by default.
	ReservedF int32 `json:"reserved_f" yaml:"reserved_f"`
	// ReservedG (0x11C) is opaque, -1 by default.
	ReservedG int32 `json:"reserved_g" yaml:"reserved_g"`
	// Version selects the binary layout.
	Version Version `json:"version" yaml:"version"`
}

// NewHeader returns a header for v filled with the values stock packers write.
func NewHeader(v Version) Header {
	return Header{
		Version:   v,
		Checksum:  DefaultChecksum,
		Comment:   DefaultComment,
		ReservedB: reservedFixed,
		ReservedC: reservedFixed,
		ReservedD: DefaultReservedD,
		ReservedF: -1,
		ReservedG: -1,
	}
}

// fillStock replaces zero-valued Checksum and reserved fields B, C, D, F and G
// with NewHeader values. Text slots and reserved fields A and E are kept.
func (h *Header) fillStock() {
	stock := NewHeader(h.Version)
	if h.Checksum == 0 {
		h.Checksum = stock.Checksum
	}
	if h.ReservedB == 0 && h.ReservedC == 0 {
		h.ReservedB = stock.ReservedB
		h.ReservedC = stock.ReservedC
	}
	if h.ReservedD == 0 {
		h.ReservedD = stock.ReservedD
	}
	if h.ReservedF == 0 && h.ReservedG == 0 {
		h.ReservedF = stock.ReservedF
		h.ReservedG = stock.ReservedG
	}
}

// HeaderSize returns the fixed header length for the header version.
func (h *Header) HeaderSize() int {
	return h.Version.HeaderSize()
}

// Entry describes a single parsed POD entry.
type Entry struct {
	// Name is the entry name as stored in the name table.
	Name string `json:"name" yaml:"name"`
	// Offset is the absolute byte offset of the payload.
	Offset uint32 `json:"offset" yaml:"offset"`
	// CompressedSize is the stored payload size in bytes.
	CompressedSize uint32 `json:"compressed_size" yaml:"compressed_size"`
	// UncompressedSize is the payload size after inflate.
	UncompressedSize uint32 `json:"uncompressed_size" yaml:"uncompressed_size"`
	// CompressionLevel is 0 for stored payloads, otherwise raw deflate was used.
	CompressionLevel uint32 `json:"compression_level,omitempty" yaml:"compression_level,omitempty"`
	// Timestamp is opaque entry time.
	Timestamp uint32 `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	// Checksum is opaque entry checksum.
	Checksum uint32 `json:"checksum,omitempty" yaml:"checksum,omitempty"`
}

// IsCompressed reports whether the payload is raw-deflate compressed.
func (e *Entry) IsCompressed() bool {
	return e.CompressionLevel > 0
}

// Archive is a decoded POD: header plus ordered entries.
type Archive struct {
	Header
	Entries []Entry `json:"entries" yaml:"entries"`
}

// Lookup returns the entry with the normalized name, or nil.
func (a *Archive) Lookup(name string) *Entry {
	lookupName := NormalizePath(name)
	for i := range a.Entries {
		if NormalizePath(a.Entries[i].Name) == lookupName {
			return &a.Entries[i]
		}
	}

	return nil
}

// Input describes one source stream to be packed into a POD entry.
type Input struct {
	// Open returns raw source stream for this entry.
	Open func() (io.ReadCloser, error) `json:"-" yaml:"-"`
	// Path is destination name inside the archive.
	Path string `json:"path" yaml:"path"`
	// SizeHint is expected size in bytes (zero when unknown).
	SizeHint int64 `json:"size_hint,omitempty" yaml:"size_hint,omitempty"`
	// Timestamp is stored as is in the entry record.
	Timestamp uint32 `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	// Checksum is stored as is in the entry record.
	Checksum uint32 `json:"checksum,omitempty" yaml:"checksum,omitempty"`
	// Compress forces this entry into the compression path regardless of rules.
	Compress bool `json:"compress,omitempty" yaml:"compress,omitempty"`
}

// PackEntryProgress contains one completed entry write event from pack flow.
type PackEntryProgress struct {
	// Entry is the index record written for this input.
	Entry Entry `json:"entry" yaml:"entry"`
	// Index is the zero-based position in the index.
	Index int `json:"index" yaml:"index"`
	// Total is the number of inputs in this pack run.
	Total int `json:"total" yaml:"total"`
	// CompressionCandidate reports whether compression path was selected for this input entry.
	CompressionCandidate bool `json:"compression_candidate,omitempty" yaml:"compression_candidate,omitempty"`
}

// PackOptions configures pack behavior.
type PackOptions struct {
	// OnEntryDone is called after one entry is fully written to archive payload.
	OnEntryDone func(entry PackEntryProgress) `json:"-" yaml:"-"`
	// ByteOrder is used for every header and index field except magic.
	ByteOrder binary.ByteOrder `json:"-" yaml:"-"`
	// Header supplies archive header fields; zero value means NewHeader(DefaultVersion).
	// Zero Checksum and reserved B, C, D, F, G take NewHeader values; text slots are written as given.
	Header Header `json:"header,omitzero" yaml:"header,omitempty"`
	// Compress defines ordered path rules for compression candidate selection.
	Compress []pathrules.Rule `json:"compress,omitempty" yaml:"compress,omitempty"`
	// CompressMatcherOptions control compression path rule matching.
	CompressMatcherOptions pathrules.MatcherOptions `json:"compress_matcher_options,omitzero" yaml:"compress_matcher_options,omitempty"`
	// WriterBufferSize is buffered writer size in bytes.
	WriterBufferSize int `json:"writer_buffer_size,omitempty" yaml:"writer_buffer_size,omitempty"`
	// MinCompressSize disables compression for entries smaller than this size.
	MinCompressSize uint32 `json:"min_compress_size,omitempty" yaml:"min_compress_size,omitempty"`
	// MaxCompressSize disables compression for entries larger than this size.
	// It also bounds the in-memory deflate buffer.
	MaxCompressSize uint32 `json:"max_compress_size,omitempty" yaml:"max_compress_size,omitempty"`
	// CompressAll makes every input a compression candidate.
	CompressAll bool `json:"compress_all,omitempty" yaml:"compress_all,omitempty"`
}

// PackResult contains pack output statistics.
type PackResult struct {
	// Entries are the index records in on-disk order.
	Entries []Entry `json:"entries,omitempty" yaml:"entries,omitempty"`
	// WrittenEntries is number of entries written to archive.
	WrittenEntries int `json:"written_entries" yaml:"written_entries"`
	// DataSize is total payload bytes written.
	DataSize int64 `json:"data_size" yaml:"data_size"`
	// IndexOffset is absolute offset of the index.
	IndexOffset uint32 `json:"index_offset" yaml:"index_offset"`
	// IndexSize is index records plus name table in bytes.
	IndexSize int64 `json:"index_size" yaml:"index_size"`
	// StringTableSize is the name table size in bytes.
	StringTableSize uint32 `json:"string_table_size" yaml:"string_table_size"`
	// CompressedEntries is number of entries written with deflated payload.
	CompressedEntries int `json:"compressed_entries,omitempty" yaml:"compressed_entries,omitempty"`
	// SkippedCompressionEntries is number of compression candidates stored raw.
	SkippedCompressionEntries int `json:"skipped_compression_entries,omitempty" yaml:"skipped_compression_entries,omitempty"`
}

// ReaderOptions configures archive parsing.
type ReaderOptions struct {
	// ByteOrder is used for every header and index field except magic.
	ByteOrder binary.ByteOrder `json:"-" yaml:"-"`
	// StrictBounds rejects entries whose payload lies outside the file.
	StrictBounds bool `json:"strict_bounds,omitempty" yaml:"strict_bounds,omitempty"`
}

// UnpackOptions configures the sink-based extraction pipeline.
type UnpackOptions struct {
	// Include is an optional predicate; entries for which it returns false are skipped.
	Include func(entry Entry) bool `json:"-" yaml:"-"`
	// OnEntryDone is called after one entry is written and its sink closed.
	OnEntryDone func(entry Entry, written int64) `json:"-" yaml:"-"`
	// OnEntryError decides whether to continue after a failed entry; nil aborts on first error.
	OnEntryError func(entry Entry, err error) bool `json:"-" yaml:"-"`
	// Filter defines ordered include/exclude rules over normalized entry names.
	Filter []pathrules.Rule `json:"filter,omitempty" yaml:"filter,omitempty"`
	// FilterMatcherOptions control filter rule matching.
	FilterMatcherOptions pathrules.MatcherOptions `json:"filter_matcher_options,omitzero" yaml:"filter_matcher_options,omitempty"`
}

// UnpackResult contains extraction statistics.
type UnpackResult struct {
	// Extracted is number of entries written to sinks.
	Extracted int `json:"extracted" yaml:"extracted"`
	// Skipped is number of entries rejected by filters or sink factory.
	Skipped int `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	// Failed is number of entries whose error was tolerated by OnEntryError.
	Failed int `json:"failed,omitempty" yaml:"failed,omitempty"`
	// Bytes is total uncompressed bytes written.
	Bytes int64 `json:"bytes" yaml:"bytes"`
}

// ExtractOptions configures Extract behavior.
type ExtractOptions struct {
	UnpackOptions `json:",inline" yaml:",inline"`
	// FileMode controls output file creation policy.
	FileMode ExtractFileMode `json:"file_mode,omitempty" yaml:"file_mode,omitempty"`
}

// ExtractFileMode controls output file open behavior during extraction.
type ExtractFileMode string

// Output file creation policies for extraction.
const (
	// ExtractFileModeSkipExisting leaves existing files untouched and skips the entry.
	ExtractFileModeSkipExisting ExtractFileMode = "skip_existing"
	// ExtractFileModeTruncate opens existing files with truncate and creates missing files.
	ExtractFileModeTruncate ExtractFileMode = "truncate"
	// ExtractFileModeCreateOnly creates files only when absent and fails on existing files.
	ExtractFileModeCreateOnly ExtractFileMode = "create_only"
)

// applyDefaults fills zero-valued pack options with defaults.
func (opts *PackOptions) applyDefaults() {
	if opts.ByteOrder == nil {
		opts.ByteOrder = binary.LittleEndian
	}

	if opts.Header == (Header{}) {
		opts.Header = NewHeader(DefaultVersion)
	}

	if opts.Header.Version == 0 {
		opts.Header.Version = DefaultVersion
	}

	opts.Header.fillStock()

	if opts.WriterBufferSize < 4096 {
		opts.WriterBufferSize = DefaultWriteBuffer
	}

	if opts.MaxCompressSize == 0 || opts.MaxCompressSize <= opts.MinCompressSize {
		opts.MaxCompressSize = DefaultMaxCompressSize
	}

	if opts.CompressMatcherOptions == (pathrules.MatcherOptions{}) {
		opts.CompressMatcherOptions = pathrules.MatcherOptions{
			CaseInsensitive: true,
			DefaultAction:   pathrules.ActionExclude,
		}
	}

	if opts.CompressMatcherOptions.DefaultAction == pathrules.ActionUnknown {
		opts.CompressMatcherOptions.DefaultAction = pathrules.ActionExclude
	}
}

// applyDefaults fills zero-valued reader options with defaults.
func (opts *ReaderOptions) applyDefaults() {
	if opts.ByteOrder == nil {
		opts.ByteOrder = binary.LittleEndian
	}
}

// applyDefaults fills zero-valued unpack options with defaults.
func (opts *UnpackOptions) applyDefaults() {
	if opts.FilterMatcherOptions == (pathrules.MatcherOptions{}) {
		opts.FilterMatcherOptions = pathrules.MatcherOptions{
			CaseInsensitive: true,
			DefaultAction:   pathrules.ActionInclude,
		}
	}

	if opts.FilterMatcherOptions.DefaultAction == pathrules.ActionUnknown {
		opts.FilterMatcherOptions.DefaultAction = pathrules.ActionInclude
	}
}

// applyDefaults fills zero-valued extract options with defaults.
func (opts *ExtractOptions) applyDefaults() {
	opts.UnpackOptions.applyDefaults()

	if opts.FileMode == "" {
		opts.FileMode = ExtractFileModeSkipExisting
	}
}
