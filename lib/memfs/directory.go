// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package memfs

import "sync"

// dirEntryOverhead approximates the per-entry cost of the name→ino
// table for directory size reporting. It has no bearing on block
// accounting — directories hold no blocks in this design — it only
// keeps getattr/readdir size fidelity with how
// original_source/src/directory.cpp's UpdateSize tracks child-map
// growth.
const dirEntryOverhead = 48

// dirEntry is one slot in a directory's ordered child list. Removed
// entries are tombstoned in place rather than erased, so that
// previously issued readdir cursors (plain slice indices) never point
// past a shifted element. This mirrors, at the directory-entry level,
// the same non-shifting-slot invariant spec.md states for the inode
// table itself.
type dirEntry struct {
	name string
	ino  Ino
	tomb bool
}

// directoryContent is the ordered name→ino mapping backing a
// directory, guarded by its own reader-writer lock per spec.md §5.
type directoryContent struct {
	mu      sync.RWMutex
	entries []dirEntry
	index   map[string]int // name -> index into entries, live entries only
	size    uint64
}

func newDirectoryContent() *directoryContent {
	return &directoryContent{index: make(map[string]int)}
}

// childInode returns the child's inode number, or NotFound.
func (d *directoryContent) childInode(name string) Ino {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if i, ok := d.index[name]; ok {
		return d.entries[i].ino
	}
	return NotFound
}

// hasName reports whether name currently resolves to a live entry.
func (d *directoryContent) hasName(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.index[name]
	return ok
}

// addChild inserts a new entry. Callers must check hasName first;
// adding a name that already exists is a programming error, matching
// spec.md §4.2's "undefined behaviour if name is already present".
func (d *directoryContent) addChild(name string, ino Ino) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.index[name]; ok {
		panic("memfs: addChild called with an existing name: " + name)
	}
	d.entries = append(d.entries, dirEntry{name: name, ino: ino})
	d.index[name] = len(d.entries) - 1
	d.size += dirEntryOverhead + uint64(len(name))
}

// updateChild inserts name if absent, or repoints it to ino if
// present — used by rename-overwrite and by ".." retargeting on a
// cross-directory directory move.
func (d *directoryContent) updateChild(name string, ino Ino) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i, ok := d.index[name]; ok {
		d.entries[i].ino = ino
		return
	}
	d.entries = append(d.entries, dirEntry{name: name, ino: ino})
	d.index[name] = len(d.entries) - 1
	d.size += dirEntryOverhead + uint64(len(name))
}

// removeChild tombstones the named entry. Returns the ino it pointed
// to and whether it was present.
func (d *directoryContent) removeChild(name string) (Ino, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	i, ok := d.index[name]
	if !ok {
		return NotFound, false
	}
	ino := d.entries[i].ino
	d.entries[i].tomb = true
	d.entries[i].ino = NotFound
	delete(d.index, name)
	if d.size >= dirEntryOverhead+uint64(len(name)) {
		d.size -= dirEntryOverhead + uint64(len(name))
	}
	return ino, true
}

// childCount returns the number of live entries, including "." and
// "..". rmdir uses this to detect a non-empty directory.
func (d *directoryContent) childCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.index)
}

func (d *directoryContent) reportedSize() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.size
}

// DirEntry is one readdir result, ready to hand to the bridge.
type DirEntry struct {
	Name string
	Ino  Ino
	Mode uint32
	Next uint64
}

// readdir implements the cursor contract of spec.md §4.3. off == 0
// starts from the beginning; any other value resumes immediately after
// the entry that produced it. Because removed entries are tombstoned
// rather than erased, a cursor issued before a concurrent mutation
// stays valid: previously emitted entries are never duplicated, and
// entries removed in the meantime are simply skipped. store is
// consulted so that an entry whose child inode was freed between
// calls is never emitted.
func (d *directoryContent) readdir(off uint64, maxEntries int, store *inodeStore) []DirEntry {
	d.mu.RLock()
	defer d.mu.RUnlock()

	// Next is index+1 of the emitted entry, so it is also the index of
	// the first entry still to visit; off == 0 is the start.
	start := int(off)

	var out []DirEntry
	for i := start; i < len(d.entries) && len(out) < maxEntries; i++ {
		e := d.entries[i]
		if e.tomb {
			continue
		}
		child := store.get(e.ino)
		if child == nil {
			continue
		}
		out = append(out, DirEntry{
			Name: e.name,
			Ino:  e.ino,
			Mode: child.Attr().Mode,
			Next: uint64(i + 1),
		})
	}
	return out
}
