// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package fuseadapter translates kernel FUSE requests, via
// github.com/hanwen/go-fuse/v2's high-level node-tree API, into calls
// against a memfs.Filesystem. It holds no filesystem state of its
// own beyond a cache mapping inode numbers to the node wrapper go-fuse
// requires to stay stable across repeated lookups of the same object
// — every other responsibility (inode allocation, nlookup, nlink,
// content) belongs to lib/memfs.
package fuseadapter

import (
	"log/slog"
	"sync"

	"github.com/memfuse/memfuse/lib/memfs"
)

// Bridge owns the node cache shared by every memNode. go-fuse requires
// the same InodeEmbedder be returned for a given manually-assigned
// Ino every time it's looked up again; a fresh wrapper per call would
// violate that and panic.
type Bridge struct {
	fsys   *memfs.Filesystem
	logger *slog.Logger

	mu    sync.Mutex
	nodes map[memfs.Ino]*memNode
}

func newBridge(fsys *memfs.Filesystem, logger *slog.Logger) *Bridge {
	return &Bridge{
		fsys:   fsys,
		logger: logger,
		nodes:  make(map[memfs.Ino]*memNode),
	}
}

// nodeFor returns the cached wrapper for ino, creating one on first
// reference.
func (b *Bridge) nodeFor(ino memfs.Ino) *memNode {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n, ok := b.nodes[ino]; ok {
		return n
	}
	n := &memNode{br: b, ino: ino}
	b.nodes[ino] = n
	return n
}

// drop removes ino's wrapper once the kernel will never reference it
// again — called from memNode.OnForget after it has passed the node's
// lookup tally to the core's Forget.
func (b *Bridge) drop(ino memfs.Ino) {
	b.mu.Lock()
	delete(b.nodes, ino)
	b.mu.Unlock()
}
