// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fuseadapter

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/memfuse/memfuse/lib/clock"
	"github.com/memfuse/memfuse/lib/memfs"
)

// fuseAvailable checks whether /dev/fuse is accessible. Tests that need a
// real kernel mount call this and skip if the device is absent.
func fuseAvailable(t *testing.T) {
	t.Helper()
	if _, err := os.Stat("/dev/fuse"); err != nil {
		t.Skip("skipping: /dev/fuse not available")
	}
}

var testTimestamp = time.Unix(1735689600, 0)

func testMount(t *testing.T) (mountpoint string, fsys *memfs.Filesystem) {
	t.Helper()
	fuseAvailable(t)

	fsys = memfs.New(memfs.Options{
		TotalBlocks: 1 << 20,
		TotalInodes: 1 << 16,
		RootMode:    0o755,
		Clock:       clock.Fake(testTimestamp),
	})

	mountpoint = filepath.Join(t.TempDir(), "mnt")

	server, err := Mount(Options{
		Mountpoint: mountpoint,
		Filesystem: fsys,
	})
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}

	t.Cleanup(func() {
		if err := server.Unmount(); err != nil {
			t.Errorf("Unmount: %v", err)
		}
	})

	return mountpoint, fsys
}

func TestMountRootIsEmptyDirectory(t *testing.T) {
	mountpoint, _ := testMount(t)

	entries, err := os.ReadDir(mountpoint)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty root, got %d entries", len(entries))
	}
}

func TestMountCreateWriteReadFile(t *testing.T) {
	mountpoint, _ := testMount(t)

	path := filepath.Join(mountpoint, "greeting")
	content := []byte("hello from the kernel")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("got %q, want %q", got, content)
	}
}

func TestMountMkdirAndNestedFile(t *testing.T) {
	mountpoint, _ := testMount(t)

	dir := filepath.Join(mountpoint, "sub")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}

	path := filepath.Join(dir, "nested")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "nested" {
		t.Errorf("ReadDir(sub) = %v, want [nested]", entries)
	}
}

func TestMountRenameAcrossDirectories(t *testing.T) {
	mountpoint, _ := testMount(t)

	for _, name := range []string{"a", "b"} {
		if err := os.Mkdir(filepath.Join(mountpoint, name), 0o755); err != nil {
			t.Fatalf("Mkdir %s: %v", name, err)
		}
	}

	src := filepath.Join(mountpoint, "a", "f")
	dst := filepath.Join(mountpoint, "b", "f")
	if err := os.WriteFile(src, []byte("moved"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.Rename(src, dst); err != nil {
		t.Fatalf("Rename: %v", err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("ReadFile(dst): %v", err)
	}
	if string(got) != "moved" {
		t.Errorf("content after rename = %q", got)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Errorf("source still exists after rename: %v", err)
	}
}

func TestMountSymlinkReadlink(t *testing.T) {
	mountpoint, _ := testMount(t)

	target := filepath.Join(mountpoint, "target")
	if err := os.WriteFile(target, []byte("data"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	link := filepath.Join(mountpoint, "link")
	if err := os.Symlink("target", link); err != nil {
		t.Fatalf("Symlink: %v", err)
	}

	got, err := os.Readlink(link)
	if err != nil {
		t.Fatalf("Readlink: %v", err)
	}
	if got != "target" {
		t.Errorf("Readlink = %q, want target", got)
	}
}

func TestMountUnlinkRemovesFile(t *testing.T) {
	mountpoint, _ := testMount(t)

	path := filepath.Join(mountpoint, "gone")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file still exists after Remove: %v", err)
	}
}
