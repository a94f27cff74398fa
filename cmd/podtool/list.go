// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pod

package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/woozymasta/pod"
)

func runList(_ context.Context, env *environment, args []string) error {
	var common commonFlags
	var long bool
	var prefix string
	flagSet := newFlagSet(env, "list", "[flags] input_pod", &common)
	flagSet.BoolVarP(&long, "long", "l", false, "show sizes and compression level")
	flagSet.StringVar(&prefix, "prefix", "", "only list entries under this path")

	if err := flagSet.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(common.configPath)
	if err != nil {
		return err
	}
	if !flagSet.Changed("big-endian") {
		common.bigEndian = cfg.BigEndian
	}

	if flagSet.NArg() != 1 {
		return usageError("expected input_pod")
	}

	entries, err := pod.ListEntriesWithOptions(flagSet.Arg(0), pod.ReaderOptions{ByteOrder: byteOrder(common.bigEndian)})
	if err != nil {
		return err
	}
	entries = pod.FilterEntriesByPrefix(entries, prefix)

	if !long {
		for _, e := range entries {
			fmt.Fprintln(env.stdout, e.Name)
		}
		return nil
	}

	tw := tabwriter.NewWriter(env.stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "SIZE\tSTORED\tLEVEL\tOFFSET\t")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t %s\n",
			humanize.IBytes(uint64(e.UncompressedSize)),
			humanize.IBytes(uint64(e.CompressedSize)),
			e.CompressionLevel,
			e.Offset,
			e.Name,
		)
	}

	return tw.Flush()
}

func runInfo(_ context.Context, env *environment, args []string) error {
	var common commonFlags
	flagSet := newFlagSet(env, "info", "[flags] input_pod", &common)

	if err := flagSet.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(common.configPath)
	if err != nil {
		return err
	}
	if !flagSet.Changed("big-endian") {
		common.bigEndian = cfg.BigEndian
	}

	if flagSet.NArg() != 1 {
		return usageError("expected input_pod")
	}

	r, err := pod.OpenWithOptions(flagSet.Arg(0), pod.ReaderOptions{ByteOrder: byteOrder(common.bigEndian)})
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	h := r.Header()
	var stored, size uint64
	compressed := 0
	for _, e := range r.Entries() {
		stored += uint64(e.CompressedSize)
		size += uint64(e.UncompressedSize)
		if e.IsCompressed() {
			compressed++
		}
	}

	tw := tabwriter.NewWriter(env.stdout, 0, 4, 1, ' ', 0)
	fmt.Fprintf(tw, "Version:\t%s\n", h.Version)
	fmt.Fprintf(tw, "Comment:\t%s\n", h.Comment)
	fmt.Fprintf(tw, "Author:\t%s\n", h.Author)
	fmt.Fprintf(tw, "Copyright:\t%s\n", h.Copyright)
	if h.Version == pod.V5 {
		fmt.Fprintf(tw, "Next:\t%s\n", h.NextName)
	}
	fmt.Fprintf(tw, "Checksum:\t%#08x\n", h.Checksum)
	fmt.Fprintf(tw, "Entries:\t%d (%d compressed)\n", len(r.Entries()), compressed)
	fmt.Fprintf(tw, "Data:\t%s stored, %s unpacked\n", humanize.IBytes(stored), humanize.IBytes(size))
	fmt.Fprintf(tw, "File size:\t%s\n", humanize.IBytes(uint64(r.Size()))) //nolint:gosec // non-negative

	return tw.Flush()
}
