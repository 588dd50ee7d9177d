// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package memfs

import (
	"sync"
	"syscall"
	"time"
)

// Kind tags which variant an Inode holds. The core uses this tag for
// cheap type checks instead of runtime downcasts.
type Kind uint8

const (
	KindNoBlock Kind = iota
	KindFile
	KindDirectory
	KindSymlink
	KindSpecial
)

// SpecialKind distinguishes the device/FIFO/socket variants that share
// the Special inode shape. mknod dispatches on this.
type SpecialKind uint8

const (
	SpecialFIFO SpecialKind = iota
	SpecialCharDevice
	SpecialBlockDevice
	SpecialSocket
)

// Attr is the common metadata every inode variant answers getattr and
// setattr with.
type Attr struct {
	Ino     Ino
	Mode    uint32
	Uid     uint32
	Gid     uint32
	Nlink   uint32
	Size    uint64
	Blocks  uint64
	Atime   time.Time
	Mtime   time.Time
	Ctime   time.Time
	Blksize uint32
	Rdev    uint32
}

// SetAttrRequest carries the optional fields a setattr call wants to
// change. A nil field means "leave unchanged".
type SetAttrRequest struct {
	Mode  *uint32
	Uid   *uint32
	Gid   *uint32
	Size  *uint64
	Atime *time.Time
	Mtime *time.Time
}

// Inode is the common record for every filesystem object. Exactly one
// of file, dir, symlink, or special is populated, selected by kind —
// this is the sum-type encoding spec.md's design notes call for in
// place of runtime downcasts.
type Inode struct {
	ino  Ino
	kind Kind

	mu      sync.RWMutex
	mode    uint32
	uid     uint32
	gid     uint32
	nlink   uint32
	nlookup uint64
	size    uint64
	blocks  uint64
	atime   time.Time
	mtime   time.Time
	ctime   time.Time
	xattrs  xattrMap

	file    *fileContent
	dir     *directoryContent
	symlink *symlinkContent
	special *specialContent

	blockSize uint32
	clock     clockLike
	acct      *Accounting
}

// clockLike is the minimal interface inode.go needs from lib/clock.
// It is defined locally so this package stays importable without
// forcing callers through lib/clock's exact type.
type clockLike interface {
	Now() time.Time
}

func newInode(ino Ino, kind Kind, mode uint32, nlink uint32, uid, gid uint32, blockSize uint32, clk clockLike, acct *Accounting) *Inode {
	now := clk.Now()
	return &Inode{
		ino:       ino,
		kind:      kind,
		mode:      mode,
		uid:       uid,
		gid:       gid,
		nlink:     nlink,
		nlookup:   0,
		atime:     now,
		mtime:     now,
		ctime:     now,
		blockSize: blockSize,
		clock:     clk,
		acct:      acct,
	}
}

// Kind returns the inode's variant tag.
func (n *Inode) Kind() Kind {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.kind
}

// Ino returns the inode's stable number.
func (n *Inode) Ino() Ino { return n.ino }

// incLookup increments the kernel-side lookup count. Every entry reply
// calls this exactly once.
func (n *Inode) incLookup() {
	n.mu.Lock()
	n.nlookup++
	n.mu.Unlock()
}

// forget decrements nlookup by count and reports whether the inode is
// now eligible for reclamation (both nlink and nlookup are zero).
func (n *Inode) forget(count uint64) (reclaimable bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if count >= n.nlookup {
		n.nlookup = 0
	} else {
		n.nlookup -= count
	}
	return n.nlink == 0 && n.nlookup == 0
}

// addLink increments nlink (hard link, or a subdirectory's ".." when
// this inode is the parent).
func (n *Inode) addLink() {
	n.mu.Lock()
	n.nlink++
	n.mu.Unlock()
}

// removeLink decrements nlink and reports whether the inode is now
// eligible for reclamation.
func (n *Inode) removeLink() (reclaimable bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.nlink > 0 {
		n.nlink--
	}
	return n.nlink == 0 && n.nlookup == 0
}

// zeroLinks drops nlink straight to zero, matching rmdir's treatment
// of the removed directory in original_source: a directory can't carry
// additional hard links, so forcing nlink to zero is equivalent to
// repeated decrements but doesn't depend on the count being exactly 2.
func (n *Inode) zeroLinks() (reclaimable bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nlink = 0
	return n.nlookup == 0
}

// hasNoLinks reports whether nlink has reached zero.
func (n *Inode) hasNoLinks() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.nlink == 0
}

// Attr returns a snapshot of the inode's common metadata.
func (n *Inode) Attr() Attr {
	n.mu.RLock()
	defer n.mu.RUnlock()
	var rdev uint32
	if n.kind == KindSpecial && n.special != nil {
		rdev = n.special.rdev
	}
	return Attr{
		Ino:     n.ino,
		Mode:    n.mode,
		Uid:     n.uid,
		Gid:     n.gid,
		Nlink:   n.nlink,
		Size:    n.size,
		Blocks:  n.blocks,
		Atime:   n.atime,
		Mtime:   n.mtime,
		Ctime:   n.ctime,
		Blksize: n.blockSize,
		Rdev:    rdev,
	}
}

// SetAttr applies the requested changes and returns the resulting
// attributes. Size changes on a file truncate or grow its content;
// size changes on other kinds are rejected with EINVAL.
func (n *Inode) SetAttr(req SetAttrRequest) (Attr, syscall.Errno) {
	if req.Size != nil {
		if n.Kind() != KindFile {
			return Attr{}, syscall.EINVAL
		}
		if errno := n.file.truncate(*req.Size, n); errno != 0 {
			return Attr{}, errno
		}
	}

	n.mu.Lock()
	if req.Mode != nil {
		// Preserve the type bits; only permission bits are settable.
		n.mode = (n.mode &^ 0o7777) | (*req.Mode & 0o7777)
	}
	if req.Uid != nil {
		n.uid = *req.Uid
	}
	if req.Gid != nil {
		n.gid = *req.Gid
	}
	if req.Atime != nil {
		n.atime = *req.Atime
	}
	if req.Mtime != nil {
		n.mtime = *req.Mtime
	}
	n.ctime = n.clock.Now()
	n.mu.Unlock()

	return n.Attr(), 0
}

// AccessReply implements the access callback's permission check.
// Enforcement beyond type checks is optional per spec.md's non-goals;
// this mirrors original_source/src/inode.cpp's ReplyAccess. Access is
// granted if the other bits allow it, or the group bits allow it and
// gid matches the file's group, or the owner bits allow it and uid
// matches the file's owner; supplementary groups are not consulted.
func (n *Inode) AccessReply(mask uint32, uid, gid uint32) syscall.Errno {
	const fOK = 0
	if mask == fOK {
		return 0
	}

	n.mu.RLock()
	mode := n.mode
	fileUid := n.uid
	fileGid := n.gid
	n.mu.RUnlock()

	check := mask & 0o7
	if mode&check == check {
		return 0
	}
	groupCheck := check << 3
	if mode&groupCheck == groupCheck && gid == fileGid {
		return 0
	}
	ownerCheck := check << 6
	if mode&ownerCheck == ownerCheck && uid == fileUid {
		return 0
	}
	return syscall.EACCES
}

// SetXAttr delegates to the inode's xattr map under its own lock.
func (n *Inode) SetXAttr(name string, value []byte, flags int, position uint32) syscall.Errno {
	n.mu.Lock()
	defer n.mu.Unlock()
	updated, errno := n.xattrs.set(name, value, flags, position)
	if errno != 0 {
		return errno
	}
	n.xattrs = updated
	n.ctime = n.clock.Now()
	return 0
}

// GetXAttr delegates to the inode's xattr map under its own lock.
func (n *Inode) GetXAttr(name string, size int, position uint32) ([]byte, int, syscall.Errno) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.xattrs.get(name, size, position)
}

// ListXAttr delegates to the inode's xattr map under its own lock.
func (n *Inode) ListXAttr(size int) ([]byte, int, syscall.Errno) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.xattrs.list(size)
}

// RemoveXAttr delegates to the inode's xattr map under its own lock.
func (n *Inode) RemoveXAttr(name string) syscall.Errno {
	n.mu.Lock()
	defer n.mu.Unlock()
	updated, errno := n.xattrs.remove(name)
	if errno != 0 {
		return errno
	}
	n.xattrs = updated
	n.ctime = n.clock.Now()
	return 0
}

// setSizeAndBlocks updates the cached size/blocks and bumps the
// process-wide block accountant by the delta. Callers hold no lock;
// this takes the inode's own lock.
func (n *Inode) setSizeAndBlocks(size uint64) {
	newBlocks := BlocksForSize(size, n.blockSize)

	n.mu.Lock()
	delta := int64(newBlocks) - int64(n.blocks)
	n.size = size
	n.blocks = newBlocks
	now := n.clock.Now()
	n.mtime = now
	n.ctime = now
	n.mu.Unlock()

	if delta != 0 {
		n.acct.AddBlocks(delta)
	}
}

func (n *Inode) touchAtime() {
	n.mu.Lock()
	n.atime = n.clock.Now()
	n.mu.Unlock()
}
