// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package memfs

import "math"

// Ino identifies a slot in the inode table. Stable until the slot is
// freed and reused.
type Ino uint64

const (
	// NoBlockIno is the sentinel inode occupying slot 0. It is never
	// dereferenced for regular resolution.
	NoBlockIno Ino = 0

	// RootIno is the root directory's inode number. Slot 1 always
	// holds the root directory and is never tombstoned.
	RootIno Ino = 1
)

// NotFound signals absence from a directory lookup. It plays the role of
// INO_NOTFOUND in the original C++ implementation this package's
// semantics are drawn from, but is the maximum representable Ino rather
// than 0, since slot 0 holds NoBlockIno.
const NotFound Ino = Ino(math.MaxUint64)
