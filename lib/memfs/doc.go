// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package memfs implements the inode store and namespace operations of
// an in-memory POSIX-compatible filesystem: stable inode-number
// allocation with slot reclamation, hard-link and kernel lookup-count
// lifetimes, directory and file content storage, extended attributes,
// and every namespace operation a userspace filesystem bridge forwards
// on behalf of user processes.
//
// The package has no dependency on any particular kernel bridge. It
// exposes a Filesystem whose methods return syscall.Errno, the same
// vocabulary a bridge adapter translates into protocol replies.
package memfs
