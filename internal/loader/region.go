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

package loader

import (
	`fmt`

	`github.com/google/uuid`

	`github.com/cloudwego/jitlink/internal/platform`
	`github.com/cloudwego/jitlink/internal/rt`
	`github.com/cloudwego/jitlink/internal/utils`
)

// Class is the permission class of a region.
type Class uint8

const (
	ClassReadOnly Class = iota
	ClassWritable
	ClassCode
	_ClassCount
)

func (c Class) String() string {
	switch c {
	case ClassReadOnly:
		return "rodata"
	case ClassWritable:
		return "data"
	case ClassCode:
		return "code"
	default:
		return fmt.Sprintf("Class(%d)", uint8(c))
	}
}

// FinalMode is the access mode a region of this class ends up in.
func (c Class) FinalMode() platform.Mode {
	switch c {
	case ClassReadOnly:
		return platform.ModeReadOnly
	case ClassCode:
		return platform.ModeReadExec
	default:
		return platform.ModeReadWrite
	}
}

// Region is a contiguous block of pages owned by a single build unit.
// Regions are writable until finalized and never writable again afterwards.
type Region struct {
	unit  uuid.UUID
	class Class
	mem   []byte
	used  int
	mode  platform.Mode
	final bool
}

func (self *Region) Base() uintptr {
	return rt.AddrOf(self.mem)
}

func (self *Region) Cap() int {
	return len(self.mem)
}

func (self *Region) Used() int {
	return self.used
}

func (self *Region) Class() Class {
	return self.class
}

func (self *Region) Mode() platform.Mode {
	return self.mode
}

func (self *Region) Finalized() bool {
	return self.final
}

func (self *Region) Contains(addr uintptr) bool {
	return addr >= self.Base() && addr < self.Base()+uintptr(len(self.mem))
}

func (self *Region) String() string {
	return fmt.Sprintf("%s[%#x+%#x/%#x %s]", self.class, self.Base(), self.used, len(self.mem), self.mode)
}

// Slice returns a writable view of n bytes at off. Writing into a finalized
// region is an invariant breach and panics with a PermissionError.
func (self *Region) Slice(off int, n int) []byte {
	if self.final {
		panic(utils.EPermission(self.unit, self.Base()+uintptr(off), self.mode))
	}
	if off < 0 || n < 0 || off+n > len(self.mem) {
		panic(fmt.Sprintf("loader: slice [%d:%d] out of region %s", off, off+n, self))
	}
	return self.mem[off : off+n : off+n]
}

// View returns a read-only view of the region.
func (self *Region) View(off int, n int) []byte {
	return self.mem[off : off+n : off+n]
}

// WriteAt implements io.WriterAt. It refuses to write into finalized regions.
func (self *Region) WriteAt(b []byte, off int64) (int, error) {
	if self.final {
		return 0, utils.EPermission(self.unit, self.Base()+uintptr(off), self.mode)
	}
	if off < 0 || int(off)+len(b) > len(self.mem) {
		return 0, fmt.Errorf("loader: write [%d:%d] out of region %s", off, int(off)+len(b), self)
	}
	return copy(self.mem[off:], b), nil
}
