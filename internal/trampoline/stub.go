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

// Package trampoline manages the indirect-jump stubs that stand in for call
// targets which are not defined yet.
//
// Every stub is 16 bytes long and ends with an 8-byte pointer cell:
//
//     amd64:  jmp qword ptr [rip+2] ; ud2 ; .quad target
//     arm64:  ldr x16, #8 ; br x16 ; .quad target
//
// Callers branch to the stub, the stub jumps through the cell. The cell holds
// zero until the target is defined.
package trampoline

import (
	`encoding/binary`
	`fmt`
	`runtime`
)

const (
	StubSize  = 16
	StubAlign = 16
	CellSize  = 8
)

// Arch describes the stub encoding of one instruction set.
type Arch struct {
	Name     string
	Template []byte
	Cell     int
}

var (
	AMD64 = &Arch {
		Name     : "amd64",
		Template : []byte { 0xff, 0x25, 0x02, 0x00, 0x00, 0x00, 0x0f, 0x0b },
		Cell     : 8,
	}
	ARM64 = &Arch {
		Name     : "arm64",
		Template : []byte { 0x50, 0x00, 0x00, 0x58, 0x00, 0x02, 0x1f, 0xd6 },
		Cell     : 8,
	}
)

var arches = map[string]*Arch {
	AMD64.Name: AMD64,
	ARM64.Name: ARM64,
}

// ForArch returns the stub encoding for the named GOARCH.
func ForArch(name string) (*Arch, error) {
	if arch, ok := arches[name]; ok {
		return arch, nil
	} else {
		return nil, fmt.Errorf("trampoline: no stub encoding for %s", name)
	}
}

// Host returns the stub encoding of the running process, or nil.
func Host() *Arch {
	return arches[runtime.GOARCH]
}

// Encode writes a stub jumping to target into buf, which must be StubSize
// bytes long.
func (self *Arch) Encode(buf []byte, target uintptr) {
	if len(buf) != StubSize {
		panic(fmt.Sprintf("trampoline: invalid stub buffer size %d", len(buf)))
	}
	copy(buf, self.Template)
	binary.LittleEndian.PutUint64(buf[self.Cell:], uint64(target))
}

// Matches reports whether buf holds a stub of this encoding.
func (self *Arch) Matches(buf []byte) bool {
	if len(buf) < StubSize {
		return false
	}
	for i, v := range self.Template {
		if buf[i] != v {
			return false
		}
	}
	return true
}

// Target returns the address currently stored in the cell of the stub in buf.
func (self *Arch) Target(buf []byte) uintptr {
	return uintptr(binary.LittleEndian.Uint64(buf[self.Cell:]))
}
