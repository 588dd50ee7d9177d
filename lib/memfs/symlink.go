// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package memfs

// symlinkContent holds a symlink's immutable target, captured at
// creation. size equals the byte length of the target per spec.md §4.5.
type symlinkContent struct {
	target string
}

func newSymlinkContent(target string) *symlinkContent {
	return &symlinkContent{target: target}
}
