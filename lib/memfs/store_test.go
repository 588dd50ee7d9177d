// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package memfs

import "testing"

func TestInodeStoreReusesFreedSlots(t *testing.T) {
	s := newInodeStore()

	a := &Inode{}
	inoA := s.reserve(a)

	b := &Inode{}
	inoB := s.reserve(b)
	if inoB <= inoA {
		t.Fatalf("second reservation %d did not come after first %d", inoB, inoA)
	}

	s.free(inoA)
	if s.get(inoA) != nil {
		t.Fatalf("get(inoA) after free should be nil")
	}

	c := &Inode{}
	inoC := s.reserve(c)
	if inoC != inoA {
		t.Fatalf("reserve after free = %d, want reused slot %d", inoC, inoA)
	}
	if s.get(inoC) != c {
		t.Fatalf("get(inoC) did not return the newly reserved inode")
	}
}

func TestInodeStoreGetOutOfRange(t *testing.T) {
	s := newInodeStore()
	if s.get(Ino(42)) != nil {
		t.Fatalf("get on an empty store should return nil")
	}
}
