// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/memfuse/memfuse/lib/memfs"
	"github.com/memfuse/memfuse/lib/memfs/fuseadapter"
)

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		mountpoint  string
		allowOther  bool
		debug       bool
		totalBlocks uint64
		totalInodes uint64
		showVersion bool
	)
	flag.StringVar(&mountpoint, "mountpoint", "", "directory to mount the filesystem at (required)")
	flag.BoolVar(&allowOther, "allow-other", false, "allow other users to access the mount (requires user_allow_other in /etc/fuse.conf)")
	flag.BoolVar(&debug, "debug", false, "log every FUSE request and reply")
	flag.Uint64Var(&totalBlocks, "total-blocks", 0, "reported block capacity, 0 for unlimited")
	flag.Uint64Var(&totalInodes, "total-inodes", 0, "reported inode capacity, 0 for unlimited")
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("memfuse-mount %s\n", version)
		return nil
	}
	if mountpoint == "" {
		return fmt.Errorf("--mountpoint is required")
	}

	logger := newLogger()

	fsys := memfs.New(memfs.Options{
		TotalBlocks: totalBlocks,
		TotalInodes: totalInodes,
		RootUid:     uint32(os.Getuid()),
		RootGid:     uint32(os.Getgid()),
	})

	server, err := fuseadapter.Mount(fuseadapter.Options{
		Mountpoint: mountpoint,
		Filesystem: fsys,
		AllowOther: allowOther,
		Debug:      debug,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("mounting filesystem: %w", err)
	}
	defer func() {
		if err := server.Unmount(); err != nil {
			logger.Error("failed to unmount filesystem", "error", err)
		} else {
			logger.Info("filesystem unmounted", "mountpoint", mountpoint)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("memfuse running", "mountpoint", mountpoint)
	<-ctx.Done()
	logger.Info("shutting down")

	return nil
}

// newLogger creates the standard JSON-to-stderr logger and installs it
// as the default slog logger.
func newLogger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)
	return logger
}
