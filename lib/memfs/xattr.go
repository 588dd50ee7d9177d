// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package memfs

import (
	"sort"
	"syscall"
)

// XATTR_CREATE and XATTR_REPLACE mirror the Linux xattr(7) flags.
// setxattr callers pass one of these (or zero for "either").
const (
	XattrCreate  = 0x1
	XattrReplace = 0x2
)

// xattrMap holds the extended attributes of a single inode. It is not
// safe for concurrent use on its own; callers hold the owning inode's
// lock.
type xattrMap map[string][]byte

// set implements setxattr per spec.md §4.6: XATTR_CREATE fails EEXIST
// if present, XATTR_REPLACE fails ENODATA if absent. position inserts
// at a byte offset into the existing value; it must be zero unless the
// attribute already exists, otherwise EINVAL.
func (m xattrMap) set(name string, value []byte, flags int, position uint32) (xattrMap, syscall.Errno) {
	existing, present := m[name]

	if flags&XattrCreate != 0 && present {
		return m, syscall.EEXIST
	}
	if flags&XattrReplace != 0 && !present {
		return m, syscall.ENODATA
	}
	if position != 0 && !present {
		return m, syscall.EINVAL
	}

	newLen := int(position) + len(value)
	var buf []byte
	if newLen <= len(existing) {
		buf = append([]byte(nil), existing...)
	} else {
		buf = make([]byte, newLen)
		copy(buf, existing)
	}
	copy(buf[position:], value)

	if m == nil {
		m = make(xattrMap)
	}
	m[name] = buf
	return m, 0
}

// get implements getxattr per spec.md §4.6: size == 0 returns the
// attribute's total length via fullSize; otherwise returns the value
// bytes from position or ERANGE if the buffer is too small.
func (m xattrMap) get(name string, size int, position uint32) (data []byte, fullSize int, errno syscall.Errno) {
	value, present := m[name]
	if !present {
		return nil, 0, syscall.ENODATA
	}

	available := value
	if int(position) < len(value) {
		available = value[position:]
	} else {
		available = nil
	}

	if size == 0 {
		return nil, len(available), 0
	}
	if size < len(available) {
		return nil, 0, syscall.ERANGE
	}
	return available, len(available), 0
}

// list implements listxattr per spec.md §4.6: a NUL-separated list of
// attribute names. size == 0 returns the required buffer size.
func (m xattrMap) list(size int) (data []byte, fullSize int, errno syscall.Errno) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	total := 0
	for _, name := range names {
		total += len(name) + 1
	}

	if size == 0 {
		return nil, total, 0
	}
	if size < total {
		return nil, 0, syscall.ERANGE
	}

	buf := make([]byte, 0, total)
	for _, name := range names {
		buf = append(buf, name...)
		buf = append(buf, 0)
	}
	return buf, total, 0
}

// remove implements removexattr: ENODATA if the attribute is absent.
func (m xattrMap) remove(name string) (xattrMap, syscall.Errno) {
	if _, present := m[name]; !present {
		return m, syscall.ENODATA
	}
	delete(m, name)
	return m, 0
}
