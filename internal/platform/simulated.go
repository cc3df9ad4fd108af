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

package platform

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/cloudwego/jitlink/internal/rt"
)

const (
	_DefaultSimulatedPageSize = 4096
)

// ErrDenied is returned by Simulated once its reservation budget is spent.
var ErrDenied = errors.New("simulated: reservation denied")

// Fault describes an access the simulated memory refused.
type Fault struct {
	Addr  uintptr
	Mode  Mode
	Write bool
}

func (self Fault) Error() string {
	if self.Write {
		return fmt.Sprintf("simulated: write fault at %#x (%s)", self.Addr, self.Mode)
	} else {
		return fmt.Sprintf("simulated: read fault at %#x (%s)", self.Addr, self.Mode)
	}
}

type simBlock struct {
	base    uintptr
	size    int
	mode    Mode
	backing []byte
}

// Simulated is a Memory backed by the Go heap. It keeps track of the
// protection of every block and enforces it on Load and Store, which stand in
// for CPU accesses. The memory is never executable.
type Simulated struct {
	Page     int // page size, defaults to 4096
	Headroom int // bytes every block may later be extended by
	Budget   int // number of reservations allowed, 0 means unlimited
	FlushErr error // returned by FlushInstructionCache when set

	mu      sync.Mutex
	count   int
	blocks  map[uintptr]*simBlock
	flushes [][2]uintptr
}

// NewSimulated creates a simulated memory with the default page size.
func NewSimulated() *Simulated {
	return &Simulated{Page: _DefaultSimulatedPageSize}
}

func (self *Simulated) PageSize() int {
	if self.Page == 0 {
		return _DefaultSimulatedPageSize
	} else {
		return self.Page
	}
}

func (self *Simulated) Reserve(size int) ([]byte, error) {
	ps := self.PageSize()
	if size <= 0 {
		panic(errZeroLength)
	}

	self.mu.Lock()
	defer self.mu.Unlock()

	/* check for the reservation budget */
	if self.Budget != 0 && self.count >= self.Budget {
		return nil, ErrDenied
	}

	/* over-allocate so the block can be page aligned and extended */
	extra := AlignUp(self.Headroom, ps)
	backing := make([]byte, size+extra+ps)
	off := AlignUp(int(rt.AddrOf(backing)), ps) - int(rt.AddrOf(backing))
	backing = backing[off : off+size+extra : off+size+extra]

	/* register the block */
	blk := &simBlock{
		base:    rt.AddrOf(backing),
		size:    size,
		backing: backing,
	}
	if self.blocks == nil {
		self.blocks = make(map[uintptr]*simBlock)
	}
	self.count++
	self.blocks[blk.base] = blk
	return backing[:size:size], nil
}

func (self *Simulated) block(mem []byte) *simBlock {
	blk := self.blocks[rt.AddrOf(mem)]
	if blk == nil || len(mem) != blk.size {
		panic(fmt.Sprintf("simulated: %#x+%d is not a reserved block", rt.AddrOf(mem), len(mem)))
	}
	return blk
}

func (self *Simulated) Protect(mem []byte, mode Mode) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.block(mem).mode = mode
	return nil
}

func (self *Simulated) Release(mem []byte) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	if blk := self.blocks[rt.AddrOf(mem)]; blk == nil {
		return fmt.Errorf("simulated: release of unknown block %#x", rt.AddrOf(mem))
	} else {
		delete(self.blocks, blk.base)
		return nil
	}
}

func (self *Simulated) FlushInstructionCache(mem []byte) error {
	if self.FlushErr != nil {
		return self.FlushErr
	}
	self.mu.Lock()
	self.flushes = append(self.flushes, [2]uintptr{rt.AddrOf(mem), uintptr(len(mem))})
	self.mu.Unlock()
	return nil
}

// Extend grows a block in place within its headroom.
func (self *Simulated) Extend(mem []byte, size int) ([]byte, bool) {
	self.mu.Lock()
	defer self.mu.Unlock()
	blk := self.block(mem)

	/* cannot grow beyond the headroom */
	if size > len(blk.backing) {
		return nil, false
	}

	/* the new pages inherit the protection of the block */
	blk.size = size
	return blk.backing[:size:size], true
}

func (self *Simulated) find(addr uintptr, n int) (*simBlock, bool) {
	for _, blk := range self.blocks {
		if addr >= blk.base && addr+uintptr(n) <= blk.base+uintptr(blk.size) {
			return blk, true
		}
	}
	return nil, false
}

// Store writes data at addr the way a CPU store would, faulting when the
// target is not mapped read-write.
func (self *Simulated) Store(addr uintptr, data []byte) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	if blk, ok := self.find(addr, len(data)); !ok {
		return Fault{Addr: addr, Write: true}
	} else if blk.mode != ModeReadWrite {
		return Fault{Addr: addr, Mode: blk.mode, Write: true}
	} else {
		copy(blk.backing[addr-blk.base:], data)
		return nil
	}
}

// Load reads n bytes at addr, faulting when the range is not mapped.
func (self *Simulated) Load(addr uintptr, n int) ([]byte, error) {
	self.mu.Lock()
	defer self.mu.Unlock()
	if blk, ok := self.find(addr, n); !ok {
		return nil, Fault{Addr: addr}
	} else {
		return append([]byte(nil), blk.backing[addr-blk.base:addr-blk.base+uintptr(n)]...), nil
	}
}

// ModeOf returns the protection of the block containing addr.
func (self *Simulated) ModeOf(addr uintptr) (Mode, bool) {
	self.mu.Lock()
	defer self.mu.Unlock()
	if blk, ok := self.find(addr, 1); !ok {
		return 0, false
	} else {
		return blk.mode, true
	}
}

// Live returns the number of reserved blocks not released yet.
func (self *Simulated) Live() int {
	self.mu.Lock()
	defer self.mu.Unlock()
	return len(self.blocks)
}

// Flushed returns every (address, length) passed to FlushInstructionCache,
// sorted by address.
func (self *Simulated) Flushed() [][2]uintptr {
	self.mu.Lock()
	ret := append([][2]uintptr(nil), self.flushes...)
	self.mu.Unlock()
	sort.Slice(ret, func(i int, j int) bool { return ret[i][0] < ret[j][0] })
	return ret
}
