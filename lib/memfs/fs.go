// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package memfs

import (
	"syscall"

	"github.com/memfuse/memfuse/lib/clock"
)

// Options configures a Filesystem at construction time. Zero values
// mean "unlimited" for the two capacity fields, matching
// NewAccounting's own zero-means-unlimited convention.
type Options struct {
	BlockSize   uint32
	TotalBlocks uint64
	TotalInodes uint64
	RootMode    uint32
	RootUid     uint32
	RootGid     uint32
	Clock       clock.Clock
}

// Filesystem is the bridge-agnostic core: it owns the inode slot
// table, the process-wide accounting counters, and every namespace
// operation in spec.md §4.7. A bridge package (fuseadapter) translates
// kernel requests into calls against this type and never reaches past
// it into individual Inode or content types.
type Filesystem struct {
	store *inodeStore
	acct  *Accounting
	clock clock.Clock

	blockSize uint32
	namemax   uint32
}

// New constructs a Filesystem with its root directory already
// registered at RootIno, self-referencing "." and "..". This mirrors
// FuseInit in original_source/src/fuse_cpp_ramfs.cpp, which reserves
// slot 0 as a no-block sentinel before any request is served. Root's
// nlink starts at 2, for its own "." and ".." entries; unlike a
// subdirectory it gains no further link from a parent's directory
// entry, since it has none.
func New(opts Options) *Filesystem {
	blockSize := opts.BlockSize
	if blockSize == 0 {
		blockSize = DefaultBlockSize
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}
	rootMode := opts.RootMode
	if rootMode == 0 {
		rootMode = 0o755
	}

	fs := &Filesystem{
		store:     newInodeStore(),
		acct:      NewAccounting(blockSize, opts.TotalBlocks, opts.TotalInodes),
		clock:     clk,
		blockSize: blockSize,
		namemax:   DefaultNameMax,
	}

	// Slot 0 is never dereferenced; it exists only so that real inode
	// numbers start at 1, matching RootIno.
	sentinel := newInode(NoBlockIno, KindNoBlock, 0, 0, 0, 0, blockSize, clk, fs.acct)
	fs.store.reserve(sentinel)

	root := newInode(RootIno, KindDirectory, syscall.S_IFDIR|rootMode, 2, opts.RootUid, opts.RootGid, blockSize, clk, fs.acct)
	root.dir = newDirectoryContent()
	fs.store.reserve(root)
	root.dir.addChild(".", RootIno)
	root.dir.addChild("..", RootIno)
	fs.acct.AddInodes(1)

	return fs
}

// RootInode returns RootIno so a bridge can answer the kernel's initial
// lookup of "/" without a round trip through Lookup.
func (fs *Filesystem) RootInode() Ino { return RootIno }

// Statfs reports filesystem-wide capacity and usage.
func (fs *Filesystem) Statfs() StatfsResult {
	result := fs.acct.Statfs()
	result.Namemax = fs.namemax
	return result
}

// get resolves ino to its live Inode, or ENOENT if the slot is empty
// or out of range. A name-removed-but-still-open inode (nlink reached
// zero while nlookup has not) still resolves here; it is only freed,
// and only then becomes unresolvable, once reclaim runs.
func (fs *Filesystem) get(ino Ino) (*Inode, syscall.Errno) {
	n := fs.store.get(ino)
	if n == nil {
		return nil, syscall.ENOENT
	}
	return n, 0
}

// getDir resolves ino and checks it is a directory.
func (fs *Filesystem) getDir(ino Ino) (*Inode, syscall.Errno) {
	n, errno := fs.get(ino)
	if errno != 0 {
		return nil, errno
	}
	if n.Kind() != KindDirectory {
		return nil, syscall.ENOTDIR
	}
	return n, 0
}

func (fs *Filesystem) checkNameLength(name string) syscall.Errno {
	if uint32(len(name)) > fs.namemax {
		return syscall.ENAMETOOLONG
	}
	return 0
}

// register allocates a slot for n, attaches n's content payload
// (already set by the caller), and updates inode accounting. The new
// inode starts with nlookup 1 for the entry reply its creator returns.
func (fs *Filesystem) register(n *Inode) Ino {
	ino := fs.store.reserve(n)
	n.incLookup()
	fs.acct.AddInodes(1)
	return ino
}

// reclaim frees ino's slot and the accounting it held, invoked once an
// inode's nlink and nlookup have both reached zero. The inode's blocks
// are still charged against used_blocks at this point — setSizeAndBlocks
// only tracks changes made through truncate/write, not the final
// release on destroy — so reclaim must subtract them itself, matching
// original_source/src/fuse_cpp_ramfs.cpp's Inode destructor freeing its
// block count back to the filesystem.
func (fs *Filesystem) reclaim(n *Inode) {
	if blocks := n.Attr().Blocks; blocks != 0 {
		fs.acct.AddBlocks(-int64(blocks))
	}
	fs.store.free(n.Ino())
	fs.acct.AddInodes(-1)
}
