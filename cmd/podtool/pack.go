// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pod

package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/woozymasta/pod"
)

// packFlags holds pack command flag values.
type packFlags struct {
	common           commonFlags
	version          int
	comment          string
	author           string
	copyright        string
	next             string
	compress         bool
	compressPatterns []string
	minCompressSize  uint32
	maxCompressSize  uint32
	modTime          bool
}

func runPack(ctx context.Context, env *environment, args []string) error {
	var flags packFlags
	flagSet := newFlagSet(env, "pack", "[flags] output_pod input_directory...", &flags.common)
	flagSet.BoolVarP(&flags.compress, "compress", "c", false, "deflate every file that shrinks")
	flagSet.StringSliceVar(&flags.compressPatterns, "compress-pattern", nil, "deflate files matching path rule (repeatable)")
	flagSet.IntVarP(&flags.version, "version", "w", int(pod.DefaultVersion), "POD version (3, 4 or 5)")
	flagSet.StringVarP(&flags.comment, "comment", "t", pod.DefaultComment, "comment text")
	flagSet.StringVarP(&flags.author, "author", "r", "", "author text")
	flagSet.StringVarP(&flags.copyright, "copyright", "y", "", "copyright text")
	flagSet.StringVarP(&flags.next, "next", "n", "", "next POD name (POD5 only)")
	flagSet.Uint32Var(&flags.minCompressSize, "min-compress", 0, "smallest file size considered for compression")
	flagSet.Uint32Var(&flags.maxCompressSize, "max-compress", pod.DefaultMaxCompressSize, "largest file size considered for compression")
	flagSet.BoolVar(&flags.modTime, "mtime", false, "store file modification times as entry timestamps")

	if err := flagSet.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(flags.common.configPath)
	if err != nil {
		return err
	}
	flags.mergeConfig(flagSet.Changed, cfg)

	positional := flagSet.Args()
	if len(positional) < 1 {
		return usageError("output_pod is required")
	}

	outputPath, inputDirs := packPaths(positional)
	version := pod.Version(flags.version) //nolint:gosec // validated below
	if flags.version < 0 || flags.version > 0xFF || !version.Valid() {
		return usageError("unsupported POD version %d", flags.version)
	}
	if flags.next != "" && version != pod.V5 {
		return usageError("--next requires POD version 5")
	}

	logger := newLogger(env.stderr, flags.common.verbose)
	logger.Debug("finding files", "inputs", inputDirs)

	files, err := discoverFiles(inputDirs, logger)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("%w: no files under %v", pod.ErrEmptyInputs, inputDirs)
	}

	header := pod.NewHeader(version)
	header.Comment = flags.comment
	header.Author = flags.author
	header.Copyright = flags.copyright
	header.NextName = flags.next

	opts := pod.PackOptions{
		Header:          header,
		ByteOrder:       byteOrder(flags.common.bigEndian),
		CompressAll:     flags.compress,
		Compress:        pod.IncludeRules(flags.compressPatterns...),
		MinCompressSize: flags.minCompressSize,
		MaxCompressSize: flags.maxCompressSize,
		OnEntryDone: func(p pod.PackEntryProgress) {
			logger.Debug("packed entry",
				"n", fmt.Sprintf("%d/%d", p.Index+1, p.Total),
				"name", p.Entry.Name,
				"size", p.Entry.UncompressedSize,
				"stored", p.Entry.CompressedSize,
			)
		},
	}

	res, err := pod.PackFile(ctx, outputPath, packInputs(files, flags.modTime), opts)
	if err != nil {
		return err
	}

	logger.Info("packed",
		"output", outputPath,
		"version", version.String(),
		"entries", res.WrittenEntries,
		"compressed", res.CompressedEntries,
		"data", humanize.IBytes(uint64(res.DataSize)), //nolint:gosec // non-negative
	)

	return nil
}

// mergeConfig replaces values of flags not set on the command line with cfg.
func (f *packFlags) mergeConfig(changed func(string) bool, cfg fileConfig) {
	if !changed("version") {
		f.version = cfg.Pack.Version
	}
	if !changed("comment") {
		f.comment = cfg.Pack.Comment
	}
	if !changed("author") {
		f.author = cfg.Pack.Author
	}
	if !changed("copyright") {
		f.copyright = cfg.Pack.Copyright
	}
	if !changed("next") {
		f.next = cfg.Pack.Next
	}
	if !changed("compress") {
		f.compress = cfg.Pack.Compress
	}
	if !changed("compress-pattern") {
		f.compressPatterns = cfg.Pack.CompressPatterns
	}
	if !changed("min-compress") {
		f.minCompressSize = cfg.Pack.MinCompressSize
	}
	if !changed("max-compress") {
		f.maxCompressSize = cfg.Pack.MaxCompressSize
	}
	if !changed("mtime") {
		f.modTime = cfg.Pack.ModTime
	}
	if !changed("big-endian") {
		f.common.bigEndian = cfg.BigEndian
	}
}

// packPaths splits positional arguments into output path and input directories.
// A single argument is both the input directory and the output name.
func packPaths(positional []string) (string, []string) {
	output := filepath.Clean(positional[0])
	if filepath.Ext(output) == "" {
		output += ".POD"
	}

	if len(positional) == 1 {
		return output, []string{positional[0]}
	}

	return output, positional[1:]
}

// byteOrder maps the --big-endian flag to a byte order.
func byteOrder(bigEndian bool) binary.ByteOrder {
	if bigEndian {
		return binary.BigEndian
	}

	return binary.LittleEndian
}
