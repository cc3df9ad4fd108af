/*
 * Copyright 2026 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package platform wraps the page-level memory operations the linker needs:
// reserving pages, changing their protection, releasing them and keeping the
// instruction cache coherent after code has been written.
package platform

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/klauspost/cpuid/v2"
)

// Mode is the access mode of a block of pages.
type Mode uint8

const (
	ModeReadWrite Mode = iota
	ModeReadOnly
	ModeReadExec
)

func (m Mode) String() string {
	switch m {
	case ModeReadWrite:
		return "rw-"
	case ModeReadOnly:
		return "r--"
	case ModeReadExec:
		return "r-x"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

// Memory is the capability the linker consumes to obtain and protect pages.
//
// Reserve always returns read-write, page-aligned memory whose length equals
// the requested size. Every slice handed to Protect, Release and
// FlushInstructionCache is exactly one previously returned by Reserve (or
// Extend).
type Memory interface {
	PageSize() int
	Reserve(size int) ([]byte, error)
	Protect(mem []byte, mode Mode) error
	Release(mem []byte) error
	FlushInstructionCache(mem []byte) error
}

// Extender is implemented by memories able to grow a block in place.
// Extend never moves the block; it reports false when the pages following
// the block are not available.
type Extender interface {
	Extend(mem []byte, size int) ([]byte, bool)
}

// ErrUnsupported is returned by the native memory on platforms without
// page-protection support.
var ErrUnsupported = fmt.Errorf("jitlink: native memory unsupported on %s/%s", runtime.GOOS, runtime.GOARCH)

var errZeroLength = errors.New("BUG: zero-length memory block")

// Native returns the memory backed by the operating system.
func Native() Memory {
	return nativeMemory{}
}

// AlignUp rounds n up to a multiple of a, which must be a power of two.
func AlignUp(n int, a int) int {
	return (n + a - 1) &^ (a - 1)
}

// IsPow2 reports whether v is a positive power of two.
func IsPow2(v int) bool {
	return v > 0 && v&(v-1) == 0
}

// CacheLine returns the L1 cache line size of the host, or 0 if unknown.
func CacheLine() int {
	return cpuid.CPU.CacheLine
}
