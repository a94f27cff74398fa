// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pod

/*
Package pod provides read, extract, and pack operations for POD archives
(versions POD3, POD4, and POD5). Reading and extracting stream payloads
from the archive without loading it into memory; packing accepts
caller-provided streams (Input.Open).

Layout (summary):
  - fixed header (288 bytes, 368 for POD5) with the index location;
  - entry payloads, stored raw or as raw deflate streams;
  - index records followed by a NUL-terminated ASCII name block.

Integers are little-endian unless ReaderOptions.ByteOrder or
PackOptions.ByteOrder select otherwise. POD3 records carry no compression
fields, so every POD3 entry is stored raw.

# Reading

	r, err := pod.Open("data.pod")
	if err != nil {
	    return err
	}
	defer r.Close()
	for _, e := range r.Entries() {
	    data, _ := r.ReadEntry(e.Name)
	    // use data
	}

Metadata-only helpers do not keep the file open:

	h, err := pod.ReadHeader("data.pod")
	entries, err := pod.ListEntries("data.pod")

# Extracting

	res, err := r.Extract(ctx, "out/", pod.ExtractOptions{
	    FileMode: pod.ExtractFileModeTruncate,
	    UnpackOptions: pod.UnpackOptions{
	        Filter: pod.IncludeRules("textures/**"),
	        FilterMatcherOptions: pathrules.MatcherOptions{
	            CaseInsensitive: true,
	            DefaultAction:   pathrules.ActionExclude,
	        },
	    },
	})

Custom destinations use a SinkFactory with Reader.Unpack.

# Packing

Inputs are written in the given order:

	inputs := []pod.Input{
	    {Path: `scripts\main.txt`, Open: func() (io.ReadCloser, error) { return os.Open("src/main.txt") }},
	}
	h := pod.NewHeader(pod.V5)
	h.Author = "me"
	res, err := pod.PackFile(ctx, "data.pod", inputs, pod.PackOptions{
	    Header:   h,
	    Compress: pod.IncludeRules("*.txt"),
	})
	_ = res.CompressedEntries

A compression candidate is deflated at flate.BestCompression and kept only
when the result is smaller than its source.
*/
package pod
