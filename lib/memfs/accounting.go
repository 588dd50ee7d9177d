// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package memfs

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// DefaultBlockSize is the filesystem's fixed accounting block size, in
// bytes. It matches neither a real disk sector nor a real page; it is
// purely a unit for block-count accounting.
const DefaultBlockSize = 512

// DefaultNameMax is the maximum filename length reported by statfs.
const DefaultNameMax = 1024

// Accounting tracks process-wide block and inode usage. All counters
// are atomic so that readers never need to take a lock to observe a
// consistent snapshot via Statfs.
type Accounting struct {
	blockSize   uint32
	totalBlocks uint64
	totalInodes uint64
	namemax     uint32
	fsid        uint64

	usedBlocks atomic.Uint64
	usedInodes atomic.Uint64
}

// NewAccounting creates an Accounting with the given block size and
// capacity. A totalBlocks or totalInodes of zero reports the maximum
// representable value, making the filesystem appear effectively
// unlimited — the same convention original_source/src/fuse_cpp_ramfs.hpp
// uses for kTotalBlocks/kTotalInodes.
func NewAccounting(blockSize uint32, totalBlocks, totalInodes uint64) *Accounting {
	if blockSize == 0 {
		blockSize = DefaultBlockSize
	}
	if totalBlocks == 0 {
		totalBlocks = ^uint64(0)
	}
	if totalInodes == 0 {
		totalInodes = ^uint64(0)
	}

	// The filesystem ID is process-lifetime identity for diagnostics;
	// it has no on-disk meaning since nothing here is durable.
	id := uuid.New()
	fsid := uint64(0)
	for _, b := range id[:8] {
		fsid = fsid<<8 | uint64(b)
	}

	return &Accounting{
		blockSize:   blockSize,
		totalBlocks: totalBlocks,
		totalInodes: totalInodes,
		namemax:     DefaultNameMax,
		fsid:        fsid,
	}
}

// AddBlocks adds delta (positive or negative) to the used-block count.
func (a *Accounting) AddBlocks(delta int64) {
	addSigned(&a.usedBlocks, delta)
}

// AddInodes adds delta (positive or negative) to the used-inode count.
func (a *Accounting) AddInodes(delta int64) {
	addSigned(&a.usedInodes, delta)
}

func addSigned(counter *atomic.Uint64, delta int64) {
	if delta >= 0 {
		counter.Add(uint64(delta))
		return
	}
	counter.Add(^uint64(-delta - 1)) // two's-complement subtraction
}

// UsedBlocks returns the current used-block count.
func (a *Accounting) UsedBlocks() uint64 { return a.usedBlocks.Load() }

// UsedInodes returns the current used-inode count.
func (a *Accounting) UsedInodes() uint64 { return a.usedInodes.Load() }

// StatfsResult mirrors the POSIX statvfs payload fields the dispatcher
// hands back to the bridge for a statfs request.
type StatfsResult struct {
	Bsize   uint32
	Frsize  uint32
	Blocks  uint64
	Bfree   uint64
	Bavail  uint64
	Files   uint64
	Ffree   uint64
	Favail  uint64
	Fsid    uint64
	Namemax uint32
}

// Statfs returns a snapshot of the current accounting state.
func (a *Accounting) Statfs() StatfsResult {
	used := a.usedBlocks.Load()
	usedInodes := a.usedInodes.Load()

	free := a.totalBlocks - used
	freeInodes := a.totalInodes - usedInodes

	return StatfsResult{
		Bsize:   a.blockSize,
		Frsize:  a.blockSize,
		Blocks:  a.totalBlocks,
		Bfree:   free,
		Bavail:  free,
		Files:   a.totalInodes,
		Ffree:   freeInodes,
		Favail:  freeInodes,
		Fsid:    a.fsid,
		Namemax: a.namemax,
	}
}

// BlocksForSize returns the number of accounting blocks needed to hold
// size bytes, rounding up.
func BlocksForSize(size uint64, blockSize uint32) uint64 {
	bs := uint64(blockSize)
	return (size + bs - 1) / bs
}
