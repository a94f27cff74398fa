// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pod

package pod

import (
	"bytes"
	"errors"
	"io"
	"math/rand"
	"testing"
)

func TestDeflatePayloadRoundTrip(t *testing.T) {
	t.Parallel()

	random := make([]byte, 8192)
	rng := rand.New(rand.NewSource(1))
	_, _ = rng.Read(random)

	testCases := []struct {
		name string
		data []byte
	}{
		{name: "repetitive", data: bytes.Repeat([]byte("pod archive "), 1000)},
		{name: "random", data: random},
		{name: "single byte", data: []byte{7}},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			compressed, err := deflatePayload(tc.data)
			if err != nil {
				t.Fatalf("deflatePayload: %v", err)
			}

			e := &Entry{
				CompressedSize:   uint32(len(compressed)), //nolint:gosec // small test data
				UncompressedSize: uint32(len(tc.data)),    //nolint:gosec // small test data
				CompressionLevel: deflateLevel,
			}

			var out bytes.Buffer
			n, err := copyEntryPayload(&out, bytes.NewReader(compressed), e, make([]byte, entryBlockSize))
			if err != nil {
				t.Fatalf("copyEntryPayload: %v", err)
			}
			if n != int64(len(tc.data)) || !bytes.Equal(out.Bytes(), tc.data) {
				t.Fatalf("round trip mismatch: n=%d", n)
			}
		})
	}
}

func TestCopyEntryPayload_Stored(t *testing.T) {
	t.Parallel()

	// Trailing bytes past CompressedSize must not leak into the output.
	src := bytes.NewReader([]byte("payloadNEXT"))
	e := &Entry{CompressedSize: 7, UncompressedSize: 7}

	var out bytes.Buffer
	n, err := copyEntryPayload(&out, src, e, nil)
	if err != nil {
		t.Fatalf("copyEntryPayload: %v", err)
	}
	if n != 7 || out.String() != "payload" {
		t.Fatalf("n=%d out=%q", n, out.String())
	}
}

func TestCopyEntryPayload_StoredShort(t *testing.T) {
	t.Parallel()

	e := &Entry{CompressedSize: 10, UncompressedSize: 10}
	_, err := copyEntryPayload(io.Discard, bytes.NewReader([]byte("abc")), e, nil)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("err=%v, want io.ErrUnexpectedEOF", err)
	}
}

func TestCopyEntryPayload_CorruptDeflate(t *testing.T) {
	t.Parallel()

	// 0xFF starts a block with reserved type 3.
	garbage := []byte{0xFF, 0xFF, 0xFF, 0xFF}
	e := &Entry{CompressedSize: 4, UncompressedSize: 100, CompressionLevel: deflateLevel}

	_, err := copyEntryPayload(io.Discard, bytes.NewReader(garbage), e, nil)
	if !errors.Is(err, ErrDecompress) {
		t.Fatalf("err=%v, want ErrDecompress", err)
	}
}

func TestCopyEntryPayload_ShortInflate(t *testing.T) {
	t.Parallel()

	compressed, err := deflatePayload([]byte("short"))
	if err != nil {
		t.Fatal(err)
	}

	e := &Entry{
		CompressedSize:   uint32(len(compressed)), //nolint:gosec // small test data
		UncompressedSize: 50,
		CompressionLevel: deflateLevel,
	}

	var out bytes.Buffer
	n, err := copyEntryPayload(&out, bytes.NewReader(compressed), e, nil)
	if !errors.Is(err, ErrDecompress) {
		t.Fatalf("err=%v, want ErrDecompress", err)
	}
	if n != 5 {
		t.Fatalf("n=%d, want 5", n)
	}
}

func TestAcquireInflater_Reuse(t *testing.T) {
	t.Parallel()

	for i := 0; i < 3; i++ {
		payload := bytes.Repeat([]byte{byte('a' + i)}, 100*(i+1))
		compressed, err := deflatePayload(payload)
		if err != nil {
			t.Fatal(err)
		}

		rc, release := acquireInflater(bytes.NewReader(compressed))
		got, err := io.ReadAll(rc)
		release()
		if err != nil {
			t.Fatalf("iteration %d: %v", i, err)
		}
		if !bytes.Equal(got, payload) {
			t.Fatalf("iteration %d: payload mismatch", i)
		}
	}
}
