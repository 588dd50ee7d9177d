// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fuseadapter

import (
	"context"
	"sync/atomic"
	"syscall"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/memfuse/memfuse/lib/memfs"
)

// memNode is the single InodeEmbedder type for every object in the
// tree, mirroring lib/memfs's own single Inode type with a Kind tag:
// one wrapper handles files, directories, symlinks, and special nodes
// alike, and every method simply asks the core to perform the
// operation and translates its errno. lookups counts how many entry
// replies this wrapper has handed to the kernel, so OnForget can report
// the exact cumulative count back to the core — go-fuse's own internal
// lookup accounting is opaque, so the bridge keeps its own tally
// rather than guess at it.
type memNode struct {
	gofuse.Inode

	br      *Bridge
	ino     memfs.Ino
	lookups atomic.Uint64
}

var (
	_ gofuse.InodeEmbedder    = (*memNode)(nil)
	_ gofuse.NodeLookuper     = (*memNode)(nil)
	_ gofuse.NodeGetattrer    = (*memNode)(nil)
	_ gofuse.NodeSetattrer    = (*memNode)(nil)
	_ gofuse.NodeReadlinker   = (*memNode)(nil)
	_ gofuse.NodeMkdirer      = (*memNode)(nil)
	_ gofuse.NodeMknoder      = (*memNode)(nil)
	_ gofuse.NodeCreater      = (*memNode)(nil)
	_ gofuse.NodeUnlinker     = (*memNode)(nil)
	_ gofuse.NodeRmdirer      = (*memNode)(nil)
	_ gofuse.NodeRenamer      = (*memNode)(nil)
	_ gofuse.NodeLinker       = (*memNode)(nil)
	_ gofuse.NodeSymlinker    = (*memNode)(nil)
	_ gofuse.NodeOpener       = (*memNode)(nil)
	_ gofuse.NodeReader       = (*memNode)(nil)
	_ gofuse.NodeWriter       = (*memNode)(nil)
	_ gofuse.NodeFlusher      = (*memNode)(nil)
	_ gofuse.NodeReleaser     = (*memNode)(nil)
	_ gofuse.NodeFsyncer      = (*memNode)(nil)
	_ gofuse.NodeReaddirer    = (*memNode)(nil)
	_ gofuse.NodeGetxattrer   = (*memNode)(nil)
	_ gofuse.NodeSetxattrer   = (*memNode)(nil)
	_ gofuse.NodeListxattrer  = (*memNode)(nil)
	_ gofuse.NodeRemovexattrer = (*memNode)(nil)
	_ gofuse.NodeAccesser     = (*memNode)(nil)
	_ gofuse.NodeStatfser     = (*memNode)(nil)
	_ gofuse.NodeOnForgetter  = (*memNode)(nil)
	_ gofuse.NodeGetlker      = (*memNode)(nil)
)

// attach wraps a freshly returned child Ino as a go-fuse *Inode, fills
// out with its attributes, and bumps the child wrapper's lookup tally
// for the entry reply the kernel is about to receive. The core has
// already counted the same reply in its own nlookup.
func (n *memNode) attach(ctx context.Context, attr memfs.Attr, out *fuse.EntryOut) *gofuse.Inode {
	fillEntryOut(out, attr)
	child := n.br.nodeFor(attr.Ino)
	child.lookups.Add(1)
	mode := attr.Mode &^ 0o7777 // go-fuse wants only the type bits in StableAttr.Mode
	return n.NewInode(ctx, child, gofuse.StableAttr{Mode: mode, Ino: uint64(attr.Ino)})
}

func callerIDs(ctx context.Context) (uid, gid uint32) {
	caller, ok := fuse.FromContext(ctx)
	if !ok {
		return 0, 0
	}
	return caller.Uid, caller.Gid
}

func (n *memNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	attr, errno := n.br.fsys.Lookup(n.ino, name)
	if errno != 0 {
		return nil, errno
	}
	return n.attach(ctx, attr, out), 0
}

func (n *memNode) Getattr(ctx context.Context, f gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	attr, errno := n.br.fsys.GetAttr(n.ino)
	if errno != 0 {
		return errno
	}
	fillAttrOut(out, attr)
	return 0
}

func (n *memNode) Setattr(ctx context.Context, f gofuse.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	attr, errno := n.br.fsys.SetAttr(n.ino, setAttrRequestFromFuse(in))
	if errno != 0 {
		return errno
	}
	fillAttrOut(out, attr)
	return 0
}

func (n *memNode) Readlink(ctx context.Context) ([]byte, syscall.Errno) {
	target, errno := n.br.fsys.Readlink(n.ino)
	if errno != 0 {
		return nil, errno
	}
	return []byte(target), 0
}

func (n *memNode) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	uid, gid := callerIDs(ctx)
	attr, errno := n.br.fsys.Mkdir(n.ino, name, mode, uid, gid)
	if errno != 0 {
		return nil, errno
	}
	return n.attach(ctx, attr, out), 0
}

func (n *memNode) Mknod(ctx context.Context, name string, mode, dev uint32, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	uid, gid := callerIDs(ctx)
	attr, errno := n.br.fsys.Mknod(n.ino, name, mode, dev, uid, gid)
	if errno != 0 {
		return nil, errno
	}
	return n.attach(ctx, attr, out), 0
}

func (n *memNode) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*gofuse.Inode, gofuse.FileHandle, uint32, syscall.Errno) {
	uid, gid := callerIDs(ctx)
	attr, errno := n.br.fsys.Create(n.ino, name, mode, uid, gid)
	if errno != 0 {
		return nil, nil, 0, errno
	}
	return n.attach(ctx, attr, out), nil, 0, 0
}

func (n *memNode) Unlink(ctx context.Context, name string) syscall.Errno {
	return n.br.fsys.Unlink(n.ino, name)
}

func (n *memNode) Rmdir(ctx context.Context, name string) syscall.Errno {
	return n.br.fsys.Rmdir(n.ino, name)
}

func (n *memNode) Rename(ctx context.Context, name string, newParent gofuse.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	dst, ok := newParent.(*memNode)
	if !ok {
		return syscall.EINVAL
	}
	return n.br.fsys.Rename(n.ino, name, dst.ino, newName)
}

func (n *memNode) Link(ctx context.Context, target gofuse.InodeEmbedder, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	src, ok := target.(*memNode)
	if !ok {
		return nil, syscall.EINVAL
	}
	attr, errno := n.br.fsys.Link(src.ino, n.ino, name)
	if errno != 0 {
		return nil, errno
	}
	return n.attach(ctx, attr, out), 0
}

func (n *memNode) Symlink(ctx context.Context, target, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	uid, gid := callerIDs(ctx)
	attr, errno := n.br.fsys.Symlink(n.ino, name, target, uid, gid)
	if errno != 0 {
		return nil, errno
	}
	return n.attach(ctx, attr, out), 0
}

func (n *memNode) Open(ctx context.Context, flags uint32) (gofuse.FileHandle, uint32, syscall.Errno) {
	if errno := n.br.fsys.Open(n.ino); errno != 0 {
		return nil, 0, errno
	}
	return nil, 0, 0
}

func (n *memNode) Read(ctx context.Context, f gofuse.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	data, errno := n.br.fsys.Read(n.ino, len(dest), off)
	if errno != 0 {
		return nil, errno
	}
	return fuse.ReadResultData(data), 0
}

func (n *memNode) Write(ctx context.Context, f gofuse.FileHandle, data []byte, off int64) (uint32, syscall.Errno) {
	return n.br.fsys.Write(n.ino, data, off)
}

func (n *memNode) Flush(ctx context.Context, f gofuse.FileHandle) syscall.Errno {
	return n.br.fsys.Flush(n.ino)
}

func (n *memNode) Release(ctx context.Context, f gofuse.FileHandle) syscall.Errno {
	return n.br.fsys.Release(n.ino)
}

func (n *memNode) Fsync(ctx context.Context, f gofuse.FileHandle, flags uint32) syscall.Errno {
	return n.br.fsys.Fsync(n.ino)
}

// dirStream adapts a slice of memfs.DirEntry into gofuse.DirStream.
type dirStream struct {
	entries []memfs.DirEntry
	index   int
}

func (s *dirStream) HasNext() bool { return s.index < len(s.entries) }

func (s *dirStream) Next() (fuse.DirEntry, syscall.Errno) {
	if s.index >= len(s.entries) {
		return fuse.DirEntry{}, syscall.EINVAL
	}
	e := s.entries[s.index]
	s.index++
	return fuse.DirEntry{Name: e.Name, Ino: uint64(e.Ino), Mode: e.Mode}, 0
}

func (s *dirStream) Close() {}

func (n *memNode) Readdir(ctx context.Context) (gofuse.DirStream, syscall.Errno) {
	const pageSize = 4096
	var all []memfs.DirEntry
	var off uint64
	for {
		page, errno := n.br.fsys.Readdir(n.ino, off, pageSize)
		if errno != 0 {
			return nil, errno
		}
		all = append(all, page...)
		if len(page) < pageSize {
			break
		}
		off = page[len(page)-1].Next
	}
	return &dirStream{entries: all}, 0
}

func (n *memNode) Getxattr(ctx context.Context, attr string, dest []byte) (uint32, syscall.Errno) {
	value, size, errno := n.br.fsys.GetXAttr(n.ino, attr, len(dest), 0)
	if errno != 0 {
		return 0, errno
	}
	copy(dest, value)
	return uint32(size), 0
}

func (n *memNode) Setxattr(ctx context.Context, attr string, data []byte, flags uint32) syscall.Errno {
	return n.br.fsys.SetXAttr(n.ino, attr, data, int(flags), 0)
}

func (n *memNode) Listxattr(ctx context.Context, dest []byte) (uint32, syscall.Errno) {
	value, size, errno := n.br.fsys.ListXAttr(n.ino, len(dest))
	if errno != 0 {
		return 0, errno
	}
	copy(dest, value)
	return uint32(size), 0
}

func (n *memNode) Removexattr(ctx context.Context, attr string) syscall.Errno {
	return n.br.fsys.RemoveXAttr(n.ino, attr)
}

func (n *memNode) Access(ctx context.Context, mask uint32) syscall.Errno {
	uid, gid := callerIDs(ctx)
	return n.br.fsys.Access(n.ino, mask, uid, gid)
}

func (n *memNode) Statfs(ctx context.Context, out *fuse.StatfsOut) syscall.Errno {
	fillStatfsOut(out, n.br.fsys.Statfs())
	return 0
}

// Getlk always reports the requested range as grantable: see
// memfs.Filesystem.GetLk's doc comment for why a no-op lock is
// consistent with this filesystem's concurrency model.
func (n *memNode) Getlk(ctx context.Context, f gofuse.FileHandle, owner uint64, lk *fuse.FileLock, flags uint32, out *fuse.FileLock) syscall.Errno {
	if errno := n.br.fsys.GetLk(n.ino); errno != 0 {
		return errno
	}
	*out = *lk
	out.Typ = syscall.F_UNLCK
	return 0
}

// OnForget is called by go-fuse once its own lookup-count bookkeeping
// for this node reaches zero. The bridge has been counting the same
// entry replies independently, so it hands the core the exact
// cumulative count rather than guessing at per-call decrements.
func (n *memNode) OnForget() {
	n.br.fsys.Forget(n.ino, n.lookups.Load())
	n.br.drop(n.ino)
}
