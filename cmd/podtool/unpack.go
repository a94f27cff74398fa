// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pod

package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/woozymasta/pathrules"

	"github.com/woozymasta/pod"
)

// unpackFlags holds unpack command flag values.
type unpackFlags struct {
	common       commonFlags
	overwrite    bool
	filter       []string
	exclude      []string
	fileMode     string
	strictBounds bool
}

func runUnpack(ctx context.Context, env *environment, args []string) error {
	var flags unpackFlags
	flagSet := newFlagSet(env, "unpack", "[flags] input_pod [output_dir]", &flags.common)
	flagSet.BoolVarP(&flags.overwrite, "overwrite", "o", false, "overwrite existing files")
	flagSet.StringSliceVarP(&flags.filter, "filter", "f", nil, "only extract entries matching path rule (repeatable)")
	flagSet.StringSliceVar(&flags.exclude, "exclude", nil, "skip entries matching path rule (repeatable)")
	flagSet.StringVar(&flags.fileMode, "file-mode", string(pod.ExtractFileModeSkipExisting), "existing file policy: skip_existing, truncate or create_only")
	flagSet.BoolVar(&flags.strictBounds, "strict", false, "reject entries whose payload lies outside the file")

	if err := flagSet.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(flags.common.configPath)
	if err != nil {
		return err
	}
	flags.mergeConfig(flagSet.Changed, cfg)

	positional := flagSet.Args()
	if len(positional) < 1 || len(positional) > 2 {
		return usageError("expected input_pod and optional output_dir")
	}

	inputPath := positional[0]
	outputDir := strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + "_unpack"
	if len(positional) == 2 {
		outputDir = positional[1]
	}

	mode := pod.ExtractFileMode(flags.fileMode)
	if flags.overwrite {
		mode = pod.ExtractFileModeTruncate
	}

	logger := newLogger(env.stderr, flags.common.verbose)

	r, err := pod.OpenWithOptions(inputPath, pod.ReaderOptions{
		ByteOrder:    byteOrder(flags.common.bigEndian),
		StrictBounds: flags.strictBounds,
	})
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	h := r.Header()
	logger.Debug("opened archive",
		"version", h.Version.String(),
		"comment", h.Comment,
		"author", h.Author,
		"copyright", h.Copyright,
		"next", h.NextName,
	)

	total := len(r.Entries())
	current := 0
	rules, matcherOpts := extractRules(flags.filter, flags.exclude)
	res, err := r.Extract(ctx, outputDir, pod.ExtractOptions{
		FileMode: mode,
		UnpackOptions: pod.UnpackOptions{
			Filter:               rules,
			FilterMatcherOptions: matcherOpts,
			OnEntryDone: func(e pod.Entry, written int64) {
				current++
				logger.Debug("extracted entry", "n", fmt.Sprintf("%d/%d", current, total), "name", e.Name, "size", written)
			},
		},
	})
	if err != nil {
		return err
	}

	logger.Info("unpacked",
		"output", outputDir,
		"extracted", res.Extracted,
		"skipped", res.Skipped,
		"data", humanize.IBytes(uint64(res.Bytes)), //nolint:gosec // non-negative
	)

	return nil
}

// mergeConfig replaces values of flags not set on the command line with cfg.
func (f *unpackFlags) mergeConfig(changed func(string) bool, cfg fileConfig) {
	if !changed("filter") {
		f.filter = cfg.Unpack.Filter
	}
	if !changed("exclude") {
		f.exclude = cfg.Unpack.Exclude
	}
	if !changed("file-mode") && cfg.Unpack.FileMode != "" {
		f.fileMode = cfg.Unpack.FileMode
	}
	if !changed("strict") {
		f.strictBounds = cfg.Unpack.StrictBounds
	}
	if !changed("big-endian") {
		f.common.bigEndian = cfg.BigEndian
	}
}

// extractRules builds case-insensitive rules from include and exclude patterns.
// With include patterns present, unmatched entries are skipped.
func extractRules(include []string, exclude []string) ([]pathrules.Rule, pathrules.MatcherOptions) {
	includeRules := pod.IncludeRules(include...)
	opts := pathrules.MatcherOptions{
		CaseInsensitive: true,
		DefaultAction:   pathrules.ActionInclude,
	}
	if len(includeRules) > 0 {
		opts.DefaultAction = pathrules.ActionExclude
	}

	return append(includeRules, pod.ExcludeRules(exclude...)...), opts
}
