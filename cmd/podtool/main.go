// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pod

// podtool packs, unpacks and inspects POD archives.
//
// Usage:
//
//	podtool pack [flags] output.pod input_dir...
//	podtool unpack [flags] input.pod [output_dir]
//	podtool list [flags] input.pod
//	podtool info [flags] input.pod
//
// Every subcommand accepts --config with a YAML file holding defaults;
// explicit flags win over the file.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/pflag"
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// errUsage marks argument errors that print usage and exit with exitUsage.
var errUsage = errors.New("usage error")

// command is one podtool subcommand.
type command struct {
	name    string
	summary string
	run     func(ctx context.Context, env *environment, args []string) error
}

// environment carries process-level streams shared by subcommands.
type environment struct {
	stdout io.Writer
	stderr io.Writer
}

var commands = []command{
	{name: "pack", summary: "pack input directories into a POD archive", run: runPack},
	{name: "unpack", summary: "extract entries of a POD archive", run: runUnpack},
	{name: "list", summary: "list entries of a POD archive", run: runList},
	{name: "info", summary: "print header fields of a POD archive", run: runInfo},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], &environment{stdout: os.Stdout, stderr: os.Stderr})
	stop()
	os.Exit(code)
}

// run dispatches args to a subcommand and maps its error to an exit code.
func run(ctx context.Context, args []string, env *environment) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printUsage(env.stderr)
		if len(args) == 0 {
			return exitUsage
		}
		return exitOK
	}

	for _, cmd := range commands {
		if cmd.name != args[0] {
			continue
		}

		err := cmd.run(ctx, env, args[1:])
		switch {
		case err == nil:
			return exitOK
		case errors.Is(err, pflag.ErrHelp):
			return exitOK
		case errors.Is(err, errUsage):
			fmt.Fprintf(env.stderr, "error: %v\n", err)
			fmt.Fprintf(env.stderr, "Try `podtool %s --help' for more information.\n", cmd.name)
			return exitUsage
		default:
			fmt.Fprintf(env.stderr, "error: %v\n", err)
			return exitError
		}
	}

	fmt.Fprintf(env.stderr, "error: unknown command %q\n", args[0])
	printUsage(env.stderr)
	return exitUsage
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "podtool packs, unpacks and inspects POD archives.\n\nUsage:\n  podtool <command> [flags] [args]\n\nCommands:\n")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-8s %s\n", cmd.name, cmd.summary)
	}
}

// commonFlags are accepted by every subcommand.
type commonFlags struct {
	configPath string
	verbose    bool
	bigEndian  bool
}

// newFlagSet returns a flag set with the common flags registered.
func newFlagSet(env *environment, name string, usage string, common *commonFlags) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flagSet.SetOutput(env.stderr)
	flagSet.StringVar(&common.configPath, "config", "", "YAML file with command defaults")
	flagSet.BoolVarP(&common.verbose, "verbose", "v", false, "show verbose messages")
	flagSet.BoolVar(&common.bigEndian, "big-endian", false, "read or write header and index fields as big-endian")
	flagSet.Usage = func() {
		fmt.Fprintf(env.stderr, "Usage: podtool %s %s\n\nFlags:\n", name, usage)
		flagSet.PrintDefaults()
	}

	return flagSet
}

// newLogger returns a text logger on stderr, at debug level when verbose.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// usageError wraps a message with errUsage.
func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}
