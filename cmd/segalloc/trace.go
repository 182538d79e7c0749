package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unsafe"

	"github.com/arbor-lang/segalloc/internal/allocator"
	"github.com/arbor-lang/segalloc/internal/cli"
	"github.com/arbor-lang/segalloc/internal/heapsrc"
	"github.com/arbor-lang/segalloc/internal/tuning"
)

// runTrace replays a scripted trace file against a fresh heap. Each
// non-blank, non-comment line is one operation:
//
//	a <tag> <size>          allocate, remember the result as <tag>
//	f <tag>                 free the pointer remembered as <tag>
//	r <tag> <size>          reallocate <tag> to <size>, tag still refers to it
//	z <tag> <count> <size>  zero-allocate, remember the result as <tag>
//
// letting a human replay an allocate/free/reallocate/zero-allocate
// session without writing Go.
func runTrace(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	arenaCap := fs.Int64("arena-cap", 64<<20, "heap source ceiling in bytes")
	verbose := fs.Bool("verbose", true, "log each operation")
	_ = fs.Parse(args)

	rest := fs.Args()
	if len(rest) != 1 {
		fmt.Fprintln(os.Stderr, "usage: segalloc run [--arena-cap N] <tracefile>")
		os.Exit(2)
	}

	f, err := os.Open(rest[0])
	if err != nil {
		cli.ExitWithError("failed to open trace file: %v", err)
	}
	defer f.Close()

	logger := cli.NewLogger(*verbose, false)

	src, err := heapsrc.NewDefault(uintptr(*arenaCap))
	if err != nil {
		cli.ExitWithError("failed to create heap source: %v", err)
	}

	h, err := allocator.NewHeap(src, tuning.Default(), logger)
	if err != nil {
		cli.ExitWithError("failed to construct heap: %v", err)
	}

	if !h.Init() {
		cli.ExitWithError("init failed")
	}

	tags := make(map[string]unsafe.Pointer)

	scanner := bufio.NewScanner(f)
	lineNo := 0

	for scanner.Scan() {
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)

		if err := execLine(h, tags, fields); err != nil {
			cli.ExitWithError("line %d: %v", lineNo, err)
		}

		if !h.CheckHeap(lineNo) {
			cli.ExitWithError("line %d: heap invariant violated after %q", lineNo, line)
		}

		logger.Info("line %d ok: %s", lineNo, line)
	}

	if err := scanner.Err(); err != nil {
		cli.ExitWithError("error reading trace file: %v", err)
	}

	stats := h.Stats()
	fmt.Printf("ok: %d lines, %d mallocs, %d frees, %d extends, %d live, arena %d bytes\n",
		lineNo, stats.Mallocs, stats.Frees, stats.Extends, stats.LiveObjects, stats.ArenaBytes)
}

func execLine(h *allocator.Heap, tags map[string]unsafe.Pointer, fields []string) error {
	if len(fields) == 0 {
		return fmt.Errorf("empty operation")
	}

	op, tag := fields[0], ""
	if len(fields) > 1 {
		tag = fields[1]
	}

	switch op {
	case "a":
		if len(fields) != 3 {
			return fmt.Errorf("usage: a <tag> <size>")
		}

		size, err := strconv.ParseUint(fields[2], 10, 64)
		if err != nil {
			return fmt.Errorf("bad size: %w", err)
		}

		tags[tag] = h.Allocate(uintptr(size))

		return nil
	case "f":
		if len(fields) != 2 {
			return fmt.Errorf("usage: f <tag>")
		}

		h.Free(tags[tag])
		delete(tags, tag)

		return nil
	case "r":
		if len(fields) != 3 {
			return fmt.Errorf("usage: r <tag> <size>")
		}

		size, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return fmt.Errorf("bad size: %w", err)
		}

		tags[tag] = h.Reallocate(tags[tag], int(size))

		return nil
	case "z":
		if len(fields) != 4 {
			return fmt.Errorf("usage: z <tag> <count> <size>")
		}

		count, err := strconv.ParseUint(fields[2], 10, 64)
		if err != nil {
			return fmt.Errorf("bad count: %w", err)
		}

		size, err := strconv.ParseUint(fields[3], 10, 64)
		if err != nil {
			return fmt.Errorf("bad size: %w", err)
		}

		tags[tag] = h.ZeroAllocate(uintptr(count), uintptr(size))

		return nil
	default:
		return fmt.Errorf("unknown operation %q", op)
	}
}
