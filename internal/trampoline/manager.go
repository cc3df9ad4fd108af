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

package trampoline

import (
	`fmt`
	`sort`
	`sync/atomic`
	`unsafe`

	`github.com/google/uuid`
	`go.uber.org/zap`
	uatomic `go.uber.org/atomic`

	`github.com/cloudwego/jitlink/internal/rt`
)

// StubCount is the number of stubs created in this process.
var StubCount = uatomic.NewInt64(0)

// Space hands out writable, executable-to-be memory for the stubs.
type Space interface {
	ReserveStub(size int, align int) ([]byte, error)
}

// Stub is a trampoline emitted for a single target name.
type Stub struct {
	Name    string
	Arch    *Arch
	mem     []byte
	patched bool
}

func (self *Stub) Addr() uintptr {
	return rt.AddrOf(self.mem)
}

func (self *Stub) Patched() bool {
	return self.patched
}

// Target reads the cell of the stub.
func (self *Stub) Target() uintptr {
	return uintptr(atomic.LoadUint64(self.cell()))
}

func (self *Stub) cell() *uint64 {
	return (*uint64)(unsafe.Pointer(&self.mem[self.Arch.Cell]))
}

func (self *Stub) String() string {
	return fmt.Sprintf("stub(%s) %q @%#x -> %#x", self.Arch.Name, self.Name, self.Addr(), self.Target())
}

type stubKey struct {
	name string
	arch *Arch
}

// Manager owns the stubs of one build unit. It is not safe for concurrent
// use.
type Manager struct {
	unit  uuid.UUID
	space Space
	log   *zap.Logger
	stubs map[stubKey]*Stub
	order []*Stub
}

func NewManager(unit uuid.UUID, space Space, log *zap.Logger) *Manager {
	return &Manager {
		unit  : unit,
		space : space,
		log   : log,
		stubs : make(map[stubKey]*Stub),
	}
}

// GetOrCreate returns the address of the stub for name, emitting it on first
// use. The address of a stub never changes.
func (self *Manager) GetOrCreate(name string, arch *Arch) (uintptr, error) {
	key := stubKey{name, arch}
	if st, ok := self.stubs[key]; ok {
		return st.Addr(), nil
	}

	/* allocate memory for the stub */
	mem, err := self.space.ReserveStub(StubSize, StubAlign)
	if err != nil {
		return 0, err
	}

	/* emit the stub with an empty cell */
	st := &Stub{Name: name, Arch: arch, mem: mem}
	arch.Encode(mem, 0)
	self.stubs[key] = st
	self.order = append(self.order, st)
	StubCount.Inc()
	self.log.Debug("create trampoline", zap.Stringer("unit", self.unit), zap.String("name", name), zap.Uintptr("addr", st.Addr()))
	return st.Addr(), nil
}

// Patch points every stub of name at addr. It reports whether any stub exists
// for name.
func (self *Manager) Patch(name string, addr uintptr) bool {
	found := false
	for _, st := range self.order {
		if st.Name == name {
			found = true
			st.patched = true
			atomic.StoreUint64(st.cell(), uint64(addr))
			self.log.Debug("patch trampoline", zap.Stringer("unit", self.unit), zap.Stringer("stub", st))
		}
	}
	return found
}

// Lookup returns the stub emitted for name and arch.
func (self *Manager) Lookup(name string, arch *Arch) (*Stub, bool) {
	st, ok := self.stubs[stubKey{name, arch}]
	return st, ok
}

// Pending returns the sorted, de-duplicated names of the stubs that have not
// been patched yet.
func (self *Manager) Pending() []string {
	var ret []string
	seen := make(map[string]bool)
	for _, st := range self.order {
		if !st.patched && !seen[st.Name] {
			seen[st.Name] = true
			ret = append(ret, st.Name)
		}
	}
	sort.Strings(ret)
	return ret
}

// Stubs returns every stub in creation order.
func (self *Manager) Stubs() []*Stub {
	return self.order
}
