// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package memfs

// specialContent holds the device number for character/block device
// nodes created via mknod. FIFOs and sockets carry no payload beyond
// their SpecialKind. This variant, named in spec.md's data model but
// only implicitly covered by its operations section, is grounded on
// original_source/src/fuse_cpp_ramfs.cpp's do_create_node, which
// dispatches S_ISCHR/S_ISBLK/S_ISFIFO/S_ISSOCK in addition to regular
// files and directories.
type specialContent struct {
	kind SpecialKind
	rdev uint32
}

func newSpecialContent(kind SpecialKind, rdev uint32) *specialContent {
	return &specialContent{kind: kind, rdev: rdev}
}
