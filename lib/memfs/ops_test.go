// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package memfs

import (
	"strconv"
	"syscall"
	"testing"
	"time"

	"github.com/memfuse/memfuse/lib/clock"
)

var testTimestamp = time.Unix(1735689600, 0) // 2025-01-01T00:00:00Z

func newTestFS(t *testing.T) *Filesystem {
	t.Helper()
	return New(Options{Clock: clock.Fake(testTimestamp)})
}

func TestRootDirectory(t *testing.T) {
	fs := newTestFS(t)

	attr, errno := fs.GetAttr(fs.RootInode())
	if errno != 0 {
		t.Fatalf("GetAttr(root): %v", errno)
	}
	if attr.Mode&syscall.S_IFMT != syscall.S_IFDIR {
		t.Fatalf("root is not a directory: mode=%o", attr.Mode)
	}
	if attr.Nlink != 2 {
		t.Fatalf("root nlink = %d, want 2", attr.Nlink)
	}

	entries, errno := fs.Readdir(fs.RootInode(), 0, 10)
	if errno != 0 {
		t.Fatalf("Readdir(root): %v", errno)
	}
	names := map[string]bool{}
	for _, e := range entries {
		names[e.Name] = true
	}
	if !names["."] || !names[".."] {
		t.Fatalf("root missing . or ..: %v", entries)
	}
}

func TestCreateWriteRead(t *testing.T) {
	fs := newTestFS(t)
	root := fs.RootInode()

	attr, errno := fs.Create(root, "hello.txt", 0o644, 1000, 1000)
	if errno != 0 {
		t.Fatalf("Create: %v", errno)
	}
	if attr.Mode&syscall.S_IFMT != syscall.S_IFREG {
		t.Fatalf("created file has wrong type bits: %o", attr.Mode)
	}

	n, errno := fs.Write(attr.Ino, []byte("hello world"), 0)
	if errno != 0 {
		t.Fatalf("Write: %v", errno)
	}
	if n != 11 {
		t.Fatalf("Write returned %d, want 11", n)
	}

	data, errno := fs.Read(attr.Ino, 100, 0)
	if errno != 0 {
		t.Fatalf("Read: %v", errno)
	}
	if string(data) != "hello world" {
		t.Fatalf("Read returned %q", data)
	}

	got, errno := fs.GetAttr(attr.Ino)
	if errno != 0 {
		t.Fatalf("GetAttr: %v", errno)
	}
	if got.Size != 11 {
		t.Fatalf("Size = %d, want 11", got.Size)
	}
}

func TestUnlinkDeferredUntilForget(t *testing.T) {
	fs := newTestFS(t)
	root := fs.RootInode()

	created, errno := fs.Create(root, "a.txt", 0o644, 0, 0)
	if errno != 0 {
		t.Fatalf("Create: %v", errno)
	}
	ino := created.Ino

	if _, errno := fs.Lookup(root, "a.txt"); errno != 0 {
		t.Fatalf("Lookup: %v", errno)
	}

	if errno := fs.Unlink(root, "a.txt"); errno != 0 {
		t.Fatalf("Unlink: %v", errno)
	}

	// nlookup is 2 (from the Create entry reply plus the explicit
	// Lookup above), so the inode must survive the unlink.
	if _, errno := fs.GetAttr(ino); errno != 0 {
		t.Fatalf("GetAttr after unlink, before forget: %v", errno)
	}

	fs.Forget(ino, 2)

	if _, errno := fs.GetAttr(ino); errno != syscall.ENOENT {
		t.Fatalf("GetAttr after forget = %v, want ENOENT", errno)
	}
}

func TestUnlinkForgetReleasesBlocks(t *testing.T) {
	fs := newTestFS(t)
	root := fs.RootInode()

	attr, errno := fs.Create(root, "big.txt", 0o644, 0, 0)
	if errno != 0 {
		t.Fatalf("Create: %v", errno)
	}
	if _, errno := fs.Write(attr.Ino, []byte("hello"), 0); errno != 0 {
		t.Fatalf("Write: %v", errno)
	}
	if got := fs.acct.UsedBlocks(); got == 0 {
		t.Fatalf("UsedBlocks after write = 0, want > 0")
	}

	if errno := fs.Unlink(root, "big.txt"); errno != 0 {
		t.Fatalf("Unlink: %v", errno)
	}
	fs.Forget(attr.Ino, 1)

	if got := fs.acct.UsedBlocks(); got != 0 {
		t.Fatalf("UsedBlocks after unlink+forget = %d, want 0", got)
	}
}

func TestRmdirRejectsNonEmpty(t *testing.T) {
	fs := newTestFS(t)
	root := fs.RootInode()

	dir, errno := fs.Mkdir(root, "a", 0o755, 0, 0)
	if errno != 0 {
		t.Fatalf("Mkdir: %v", errno)
	}
	if _, errno := fs.Create(dir.Ino, "f", 0o644, 0, 0); errno != 0 {
		t.Fatalf("Create: %v", errno)
	}

	if errno := fs.Rmdir(root, "a"); errno != syscall.ENOTEMPTY {
		t.Fatalf("Rmdir on non-empty dir = %v, want ENOTEMPTY", errno)
	}

	if errno := fs.Unlink(dir.Ino, "f"); errno != 0 {
		t.Fatalf("Unlink: %v", errno)
	}
	if errno := fs.Rmdir(root, "a"); errno != 0 {
		t.Fatalf("Rmdir on empty dir: %v", errno)
	}
	if _, errno := fs.Lookup(root, "a"); errno != syscall.ENOENT {
		t.Fatalf("Lookup removed dir = %v, want ENOENT", errno)
	}
}

func TestHardLink(t *testing.T) {
	fs := newTestFS(t)
	root := fs.RootInode()

	a, errno := fs.Create(root, "a.txt", 0o644, 0, 0)
	if errno != 0 {
		t.Fatalf("Create: %v", errno)
	}

	b, errno := fs.Link(a.Ino, root, "b.txt")
	if errno != 0 {
		t.Fatalf("Link: %v", errno)
	}
	if b.Ino != a.Ino {
		t.Fatalf("Link produced a different ino: %d != %d", b.Ino, a.Ino)
	}
	if b.Nlink != 2 {
		t.Fatalf("Nlink after Link = %d, want 2", b.Nlink)
	}

	if errno := fs.Unlink(root, "a.txt"); errno != 0 {
		t.Fatalf("Unlink a.txt: %v", errno)
	}

	attr, errno := fs.Lookup(root, "b.txt")
	if errno != 0 {
		t.Fatalf("Lookup b.txt: %v", errno)
	}
	if attr.Ino != a.Ino || attr.Nlink != 1 {
		t.Fatalf("unexpected attr after unlinking one name: %+v", attr)
	}
}

func TestRenameOverwrite(t *testing.T) {
	fs := newTestFS(t)
	root := fs.RootInode()

	oldFile, errno := fs.Create(root, "old.txt", 0o644, 0, 0)
	if errno != 0 {
		t.Fatalf("Create old.txt: %v", errno)
	}
	if _, errno := fs.Write(oldFile.Ino, []byte("payload"), 0); errno != 0 {
		t.Fatalf("Write: %v", errno)
	}
	newFile, errno := fs.Create(root, "new.txt", 0o644, 0, 0)
	if errno != 0 {
		t.Fatalf("Create new.txt: %v", errno)
	}

	if errno := fs.Rename(root, "old.txt", root, "new.txt"); errno != 0 {
		t.Fatalf("Rename: %v", errno)
	}

	if _, errno := fs.Lookup(root, "old.txt"); errno != syscall.ENOENT {
		t.Fatalf("Lookup old.txt after rename = %v, want ENOENT", errno)
	}
	attr, errno := fs.Lookup(root, "new.txt")
	if errno != 0 {
		t.Fatalf("Lookup new.txt: %v", errno)
	}
	if attr.Ino != oldFile.Ino {
		t.Fatalf("new.txt resolves to %d, want %d", attr.Ino, oldFile.Ino)
	}

	fs.Forget(newFile.Ino, 1)
	data, errno := fs.Read(attr.Ino, 100, 0)
	if errno != 0 {
		t.Fatalf("Read after rename: %v", errno)
	}
	if string(data) != "payload" {
		t.Fatalf("content after rename = %q", data)
	}
}

func TestRenameDirectoryAcrossParents(t *testing.T) {
	fs := newTestFS(t)
	root := fs.RootInode()

	srcParent, errno := fs.Mkdir(root, "src", 0o755, 0, 0)
	if errno != 0 {
		t.Fatalf("Mkdir src: %v", errno)
	}
	dstParent, errno := fs.Mkdir(root, "dst", 0o755, 0, 0)
	if errno != 0 {
		t.Fatalf("Mkdir dst: %v", errno)
	}
	moved, errno := fs.Mkdir(srcParent.Ino, "moved", 0o755, 0, 0)
	if errno != 0 {
		t.Fatalf("Mkdir moved: %v", errno)
	}

	srcBefore, _ := fs.GetAttr(srcParent.Ino)
	dstBefore, _ := fs.GetAttr(dstParent.Ino)

	if errno := fs.Rename(srcParent.Ino, "moved", dstParent.Ino, "moved"); errno != 0 {
		t.Fatalf("Rename: %v", errno)
	}

	srcAfter, _ := fs.GetAttr(srcParent.Ino)
	dstAfter, _ := fs.GetAttr(dstParent.Ino)
	if srcAfter.Nlink != srcBefore.Nlink-1 {
		t.Fatalf("src parent nlink = %d, want %d", srcAfter.Nlink, srcBefore.Nlink-1)
	}
	if dstAfter.Nlink != dstBefore.Nlink+1 {
		t.Fatalf("dst parent nlink = %d, want %d", dstAfter.Nlink, dstBefore.Nlink+1)
	}

	entries, errno := fs.Readdir(moved.Ino, 0, 10)
	if errno != 0 {
		t.Fatalf("Readdir moved: %v", errno)
	}
	for _, e := range entries {
		if e.Name == ".." && e.Ino != dstParent.Ino {
			t.Fatalf(".. still points at %d, want %d", e.Ino, dstParent.Ino)
		}
	}
}

func TestReaddirPaginationOverManyChildren(t *testing.T) {
	fs := newTestFS(t)
	root := fs.RootInode()

	dir, errno := fs.Mkdir(root, "big", 0o755, 0, 0)
	if errno != 0 {
		t.Fatalf("Mkdir: %v", errno)
	}

	const count = 2000
	for i := 0; i < count; i++ {
		name := "f" + strconv.Itoa(i)
		if _, errno := fs.Create(dir.Ino, name, 0o644, 0, 0); errno != 0 {
			t.Fatalf("Create %s: %v", name, errno)
		}
	}

	seen := map[string]bool{}
	var off uint64
	for {
		page, errno := fs.Readdir(dir.Ino, off, 128)
		if errno != 0 {
			t.Fatalf("Readdir: %v", errno)
		}
		if len(page) == 0 {
			break
		}
		for _, e := range page {
			if seen[e.Name] {
				t.Fatalf("duplicate entry %q", e.Name)
			}
			seen[e.Name] = true
		}
		off = page[len(page)-1].Next
		if len(page) < 128 {
			break
		}
	}

	if len(seen) != count+2 {
		t.Fatalf("saw %d entries, want %d", len(seen), count+2)
	}
}
