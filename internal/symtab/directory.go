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

package symtab

import (
	`sync`
	`unsafe`

	`github.com/google/btree`
	`github.com/google/uuid`
	`github.com/launix-de/NonLockingReadMap`

	`github.com/cloudwego/jitlink/internal/utils`
)

const (
	_IndexDegree = 8
)

type published struct {
	Entry
}

func (self published) GetKey() string {
	return self.Name
}

func (self published) ComputeSize() uint {
	return uint(unsafe.Sizeof(self)) + uint(len(self.Name))
}

// Directory holds the names visible to every build unit of a module: the
// symbols of finalized units and the externally bound routines. Publishing is
// serialized by mu; readers share amu with the final store of a publish.
type Directory struct {
	mu    sync.Mutex
	amu   sync.RWMutex
	names NonLockingReadMap.NonLockingReadMap[published, string]
	addrs *btree.BTreeG[Entry]
}

func NewDirectory() *Directory {
	return &Directory {
		names : NonLockingReadMap.New[published, string](),
		addrs : newIndex(),
	}
}

func newIndex() *btree.BTreeG[Entry] {
	return btree.NewG[Entry](_IndexDegree, func(a Entry, b Entry) bool { return a.Addr < b.Addr })
}

func (self *Directory) Lookup(name string) (Entry, bool) {
	self.amu.RLock()
	defer self.amu.RUnlock()
	if p := self.names.Get(name); p == nil {
		return Entry{}, false
	} else {
		return p.Entry, true
	}
}

// BindExternal registers a routine provided outside of any build unit.
func (self *Directory) BindExternal(name string, kind Kind, addr uintptr) error {
	return self.Publish(uuid.Nil, []Entry{{Name: name, Kind: kind, State: External, Addr: addr}}, nil)
}

// Publish makes entries visible to everyone. No entry is published if any of
// the names already exists or commit fails; commit runs while the directory
// is locked, after the names were checked.
func (self *Directory) Publish(unit uuid.UUID, entries []Entry, commit func() error) error {
	self.mu.Lock()
	defer self.mu.Unlock()

	/* check for conflicts first, writers all hold mu */
	for _, e := range entries {
		if self.names.Get(e.Name) != nil {
			return utils.EDuplicate(unit, e.Name)
		}
	}

	/* commit the caller's side */
	if commit != nil {
		if err := commit(); err != nil {
			return err
		}
	}

	/* publish every entry */
	self.amu.Lock()
	defer self.amu.Unlock()
	for _, e := range entries {
		self.names.Set(&published{e})
		if e.State == Defined {
			self.addrs.ReplaceOrInsert(e)
		}
	}
	return nil
}

// Symbolize returns the published object containing addr and the offset of
// addr inside it.
func (self *Directory) Symbolize(addr uintptr) (name string, off uintptr, ok bool) {
	self.amu.RLock()
	defer self.amu.RUnlock()
	self.addrs.DescendLessOrEqual(Entry{Addr: addr}, func(e Entry) bool {
		if addr < e.Addr+uintptr(e.Size) || (e.Size == 0 && addr == e.Addr) {
			name, off, ok = e.Name, addr-e.Addr, true
		}
		return false
	})
	return
}

// Len returns the number of published names.
func (self *Directory) Len() int {
	self.amu.RLock()
	defer self.amu.RUnlock()
	return len(self.names.GetAll())
}

// Clear forgets every published name.
func (self *Directory) Clear() {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.amu.Lock()
	defer self.amu.Unlock()
	self.names = NonLockingReadMap.New[published, string]()
	self.addrs = newIndex()
}
