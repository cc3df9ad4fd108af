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

package jitlink

import (
	`errors`
	`fmt`
	`sync`

	`github.com/google/uuid`
	`go.uber.org/multierr`
	`go.uber.org/zap`

	`github.com/cloudwego/jitlink/internal/linker`
	`github.com/cloudwego/jitlink/internal/loader`
	`github.com/cloudwego/jitlink/internal/symtab`
	`github.com/cloudwego/jitlink/internal/trampoline`
)

type unitState uint8

const (
	unitOpen unitState = iota
	unitFinalized
	unitAborted
)

// Slot is a declared name inside a build unit.
type Slot struct {
	unit *Unit
	obj  *loader.Object
}

func (self *Slot) Name() string {
	return self.obj.Name
}

func (self *Slot) Kind() Kind {
	return self.obj.Kind
}

// Addr returns the address of the slot, or 0 while it is not defined.
func (self *Slot) Addr() uintptr {
	self.unit.mu.Lock()
	defer self.unit.mu.Unlock()
	return self.obj.Addr()
}

// Unit is a build unit: a batch of objects linked and finalized together.
// A unit is safe for concurrent use; its operations are serialized.
type Unit struct {
	id    uuid.UUID
	mod   *Module
	log   *zap.Logger
	mu    sync.Mutex
	state unitState
	alloc *loader.Allocator
	syms  *symtab.Table
	place *loader.Placer
	tramp *trampoline.Manager
	link  *linker.Linker
	addrs map[string]uintptr
}

func newUnit(mod *Module, id uuid.UUID) *Unit {
	ret := &Unit {
		id    : id,
		mod   : mod,
		log   : mod.log,
		alloc : loader.NewAllocator(id, mod.opts.Memory, mod.opts.MinRegionSize, mod.log),
		syms  : symtab.New(id, mod.dir),
	}
	ret.place = loader.NewPlacer(ret.alloc, ret.syms)
	ret.tramp = trampoline.NewManager(id, ret.place, mod.log)
	ret.link = linker.New(id, ret.syms, ret.tramp, mod.opts.DirectPatch, mod.log)
	return ret
}

func (self *Unit) ID() uuid.UUID {
	return self.id
}

// Declare reserves name in the unit without allocating memory for it.
// Declaring the same name twice with the same kind returns the same slot.
func (self *Unit) Declare(name string, kind Kind) (*Slot, error) {
	self.mu.Lock()
	defer self.mu.Unlock()

	/* check the unit state */
	if self.state != unitOpen {
		return nil, ErrUnitClosed
	} else if name == "" {
		return nil, errors.New("jitlink: empty symbol name")
	}

	/* declare the object */
	if obj, err := self.place.Declare(name, kind); err != nil {
		return nil, err
	} else {
		return &Slot{unit: self, obj: obj}, nil
	}
}

// Define places data into memory and resolves refs. An alignment of 0
// selects the default alignment of the slot kind.
//
// A DuplicateDefinitionError or an invalid argument leaves the unit as it
// was. An AllocationError or a RelocationOverflowError aborts the unit.
func (self *Unit) Define(slot *Slot, data []byte, align int, refs []Reference) error {
	self.mu.Lock()
	defer self.mu.Unlock()

	/* check the unit state */
	if self.state != unitOpen {
		return ErrUnitClosed
	} else if slot == nil || slot.unit != self {
		return errors.New("jitlink: slot does not belong to this build unit")
	}

	/* validate everything before placing anything */
	if align == 0 {
		align = self.mod.opts.Align(slot.obj.Kind == Function)
	}
	if err := linker.Check(len(data), refs); err != nil {
		return err
	}

	/* place the bytes, fixing the address of the object */
	if err := self.place.Define(slot.obj, data, align); err != nil {
		return self.fail(err)
	}

	/* patch everything waiting for this object, then the object itself */
	if err := self.link.Defined(slot.obj.Name, slot.obj.Addr()); err != nil {
		return self.fail(err)
	}
	if err := self.link.Resolve(slot.obj, refs); err != nil {
		return self.fail(err)
	}
	return nil
}

// DefineObject declares and defines obj in one step.
func (self *Unit) DefineObject(obj Object) (*Slot, error) {
	slot, err := self.Declare(obj.Name, obj.Kind)
	if err != nil {
		return nil, err
	}
	if err = self.Define(slot, obj.Bytes, obj.Align, obj.Relocs); err != nil {
		return nil, err
	}
	return slot, nil
}

// fail aborts the unit on errors that leave it in an unusable state.
func (self *Unit) fail(err error) error {
	if !errors.As(err, new(AllocationError)) && !errors.As(err, new(RelocationOverflowError)) {
		return err
	}
	self.log.Debug("abort build unit", zap.Stringer("unit", self.id), zap.Error(err))
	return multierr.Append(err, self.abort())
}

// Unresolved returns the names the unit is still waiting for: declared names
// without a definition and referenced names without an address.
func (self *Unit) Unresolved() []string {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.unresolved()
}

func (self *Unit) unresolved() []string {
	return mergeNames(self.syms.Unresolved(), self.link.Outstanding())
}

// Address returns the address of a name defined in this unit.
func (self *Unit) Address(name string) (uintptr, bool) {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.addrs != nil {
		addr, ok := self.addrs[name]
		return addr, ok
	}
	if e, ok := self.syms.Lookup(name); ok && e.State == symtab.Defined {
		return e.Addr, true
	}
	return 0, false
}

// Abort discards the unit and releases all of its memory.
func (self *Unit) Abort() error {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.state != unitOpen {
		return ErrUnitClosed
	}
	self.log.Debug("abort build unit", zap.Stringer("unit", self.id))
	return self.abort()
}

func (self *Unit) abort() error {
	self.state = unitAborted
	self.mod.forget(self)
	return self.alloc.Release()
}

func (self *Unit) String() string {
	return fmt.Sprintf("unit %s (%d objects, %d stubs)", self.id, len(self.place.Objects()), len(self.tramp.Stubs()))
}

// mergeNames merges two sorted name lists, dropping duplicates.
func mergeNames(a []string, b []string) []string {
	ret := make([]string, 0, len(a)+len(b))
	for len(a) != 0 || len(b) != 0 {
		switch {
			case len(b) == 0 || (len(a) != 0 && a[0] < b[0]) : ret, a = append(ret, a[0]), a[1:]
			case len(a) == 0 || b[0] < a[0]                  : ret, b = append(ret, b[0]), b[1:]
			default                                          : ret, a, b = append(ret, a[0]), a[1:], b[1:]
		}
	}
	return ret
}
