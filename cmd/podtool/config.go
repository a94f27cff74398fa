// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pod

package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/woozymasta/pod"
)

// fileConfig is the --config document.
type fileConfig struct {
	// Pack holds defaults for the pack command.
	Pack packConfig `yaml:"pack"`

	// Unpack holds defaults for the unpack command.
	Unpack unpackConfig `yaml:"unpack"`

	// BigEndian selects big-endian header and index fields for every command.
	BigEndian bool `yaml:"big_endian"`
}

// packConfig configures archive creation.
type packConfig struct {
	// Version is the POD layout version, 3 to 5.
	Version int `yaml:"version"`

	Comment   string `yaml:"comment"`
	Author    string `yaml:"author"`
	Copyright string `yaml:"copyright"`

	// Next names the following archive in a chain. POD5 only.
	Next string `yaml:"next"`

	// Compress makes every file a compression candidate.
	Compress bool `yaml:"compress"`

	// CompressPatterns selects compression candidates by path rule.
	CompressPatterns []string `yaml:"compress_patterns"`

	MinCompressSize uint32 `yaml:"min_compress_size"`
	MaxCompressSize uint32 `yaml:"max_compress_size"`

	// ModTime stores file modification times instead of the stock timestamp.
	ModTime bool `yaml:"mtime"`
}

// unpackConfig configures extraction.
type unpackConfig struct {
	// Filter keeps only entries matching one of these path rules.
	Filter []string `yaml:"filter"`

	// Exclude drops entries matching one of these path rules.
	Exclude []string `yaml:"exclude"`

	// FileMode is skip_existing, truncate or create_only.
	FileMode string `yaml:"file_mode"`

	// StrictBounds rejects archives with payloads outside the file.
	StrictBounds bool `yaml:"strict_bounds"`
}

// defaultConfig returns the values used without a config file.
func defaultConfig() fileConfig {
	return fileConfig{
		Pack: packConfig{
			Version:         int(pod.DefaultVersion),
			Comment:         pod.DefaultComment,
			MaxCompressSize: pod.DefaultMaxCompressSize,
		},
		Unpack: unpackConfig{
			FileMode: string(pod.ExtractFileModeSkipExisting),
		},
	}
}

// loadConfig reads path over the defaults. An empty path returns the defaults.
func loadConfig(path string) (fileConfig, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}
