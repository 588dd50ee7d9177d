// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fuseadapter

import (
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/memfuse/memfuse/lib/memfs"
)

// fillAttr copies a memfs.Attr snapshot onto a fuse.Attr, which
// fuse.EntryOut and fuse.AttrOut both embed.
func fillAttr(out *fuse.Attr, attr memfs.Attr) {
	out.Ino = uint64(attr.Ino)
	out.Size = attr.Size
	out.Blocks = attr.Blocks
	out.Mode = attr.Mode
	out.Nlink = attr.Nlink
	out.Owner = fuse.Owner{Uid: attr.Uid, Gid: attr.Gid}
	out.Rdev = attr.Rdev
	out.Blksize = attr.Blksize
	out.SetTimes(&attr.Atime, &attr.Mtime, &attr.Ctime)
}

func fillEntryOut(out *fuse.EntryOut, attr memfs.Attr) {
	fillAttr(&out.Attr, attr)
}

func fillAttrOut(out *fuse.AttrOut, attr memfs.Attr) {
	fillAttr(&out.Attr, attr)
}

// setAttrRequestFromFuse translates the kernel's FATTR_* validity mask
// into memfs's pointer-field SetAttrRequest, which leaves a nil field
// untouched instead of re-encoding the mask downstream.
func setAttrRequestFromFuse(in *fuse.SetAttrIn) memfs.SetAttrRequest {
	var req memfs.SetAttrRequest

	if mode, ok := in.GetMode(); ok {
		req.Mode = &mode
	}
	if uid, ok := in.GetUID(); ok {
		req.Uid = &uid
	}
	if gid, ok := in.GetGID(); ok {
		req.Gid = &gid
	}
	if size, ok := in.GetSize(); ok {
		req.Size = &size
	}
	if atime, ok := in.GetATime(); ok {
		req.Atime = &atime
	}
	if mtime, ok := in.GetMTime(); ok {
		req.Mtime = &mtime
	}

	return req
}

func fillStatfsOut(out *fuse.StatfsOut, stat memfs.StatfsResult) {
	out.Blocks = stat.Blocks
	out.Bfree = stat.Bfree
	out.Bavail = stat.Bavail
	out.Files = stat.Files
	out.Ffree = stat.Ffree
	out.Bsize = stat.Bsize
	out.NameLen = stat.Namemax
	out.Frsize = stat.Frsize
}
