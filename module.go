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

// Package jitlink places machine code and data produced by a code generator
// into freshly mapped memory, links the references between them and turns
// the memory into immutable, executable code.
//
// Code is built in build units. A unit declares names, defines objects with
// their bytes and relocations, and is finalized as a whole:
//
//     mod := jitlink.New()
//     unit, _ := mod.OpenBuildUnit()
//     add, _ := unit.Declare("add", jitlink.Function)
//     _ = unit.Define(add, code, 0, nil)
//     addrs, err := unit.Finalize()
//
// References to names that are not defined yet are allowed at any time;
// calls go through trampolines, other references are patched once the target
// gets an address. Finalize fails with an UnresolvedSymbolError while any of
// them is still missing.
package jitlink

import (
	`sync`

	`github.com/google/uuid`
	`go.uber.org/multierr`
	`go.uber.org/zap`

	`github.com/cloudwego/jitlink/internal/loader`
	`github.com/cloudwego/jitlink/internal/opts`
	`github.com/cloudwego/jitlink/internal/reloc`
	`github.com/cloudwego/jitlink/internal/symtab`
)

type Kind = symtab.Kind

const (
	Function     = symtab.Function
	ReadOnlyData = symtab.ReadOnlyData
	WritableData = symtab.WritableData
)

type RelocKind = reloc.Kind

const (
	Abs4          = reloc.Abs4
	Abs8          = reloc.Abs8
	X86PCRel4     = reloc.X86PCRel4
	X86CallPCRel4 = reloc.X86CallPCRel4
	Arm64Call     = reloc.Arm64Call
)

// Reference is a patch site inside an object: Kind is applied at Offset with
// the address of Target and Addend.
type Reference = reloc.Reference

// Object is a function body or a data blob as produced by a code generator.
type Object struct {
	Name   string
	Kind   Kind
	Bytes  []byte
	Align  int
	Relocs []Reference
}

// Module is a set of build units sharing one namespace. Names published by a
// finalized unit or bound as externals are visible to every unit.
type Module struct {
	opts   opts.Options
	log    *zap.Logger
	dir    *symtab.Directory
	mu     sync.Mutex
	open   map[uuid.UUID]*Unit
	done   []*loader.Allocator
	closed bool
}

// New creates a module configured from the environment and options.
func New(options ...Option) *Module {
	o := opts.GetDefaultOptions()
	for _, fn := range options {
		fn(&o)
	}
	return &Module {
		opts : o,
		log  : o.Logger,
		dir  : symtab.NewDirectory(),
		open : make(map[uuid.UUID]*Unit),
	}
}

// OpenBuildUnit starts a new build unit.
func (self *Module) OpenBuildUnit() (*Unit, error) {
	self.mu.Lock()
	defer self.mu.Unlock()

	/* check for closed modules */
	if self.closed {
		return nil, ErrModuleClosed
	}

	/* register the new unit */
	unit := newUnit(self, uuid.New())
	self.open[unit.id] = unit
	self.log.Debug("open build unit", zap.Stringer("unit", unit.id))
	return unit, nil
}

// BindExternal makes a routine provided outside of the module callable by
// name. Binding a name that is already known is a DuplicateDefinitionError.
func (self *Module) BindExternal(name string, addr uintptr) error {
	return self.bind(name, Function, addr)
}

// BindExternalData is BindExternal for data objects.
func (self *Module) BindExternalData(name string, addr uintptr) error {
	return self.bind(name, ReadOnlyData, addr)
}

func (self *Module) bind(name string, kind Kind, addr uintptr) error {
	if self.isClosed() {
		return ErrModuleClosed
	}
	if err := self.dir.BindExternal(name, kind, addr); err != nil {
		return err
	}
	self.log.Debug("bind external", zap.String("name", name), zap.Uintptr("addr", addr))
	return nil
}

// Lookup returns the address of a published or external name.
func (self *Module) Lookup(name string) (uintptr, bool) {
	if e, ok := self.dir.Lookup(name); ok {
		return e.Addr, true
	} else {
		return 0, false
	}
}

// Symbolize returns the name of the published object containing addr and
// the offset of addr inside that object.
func (self *Module) Symbolize(addr uintptr) (string, uintptr, bool) {
	return self.dir.Symbolize(addr)
}

// Close aborts every open build unit and releases all the memory of the
// module. Published names are forgotten, and code obtained from the module
// must not run afterwards.
func (self *Module) Close() (err error) {
	self.mu.Lock()
	units := make([]*Unit, 0, len(self.open))
	for _, u := range self.open {
		units = append(units, u)
	}
	done := self.done
	self.done = nil
	self.closed = true
	self.dir.Clear()
	self.mu.Unlock()

	/* abort the units still under construction */
	for _, u := range units {
		if e := u.Abort(); e != ErrUnitClosed {
			err = multierr.Append(err, e)
		}
	}

	/* release the finalized ones */
	for _, alloc := range done {
		err = multierr.Append(err, alloc.Release())
	}
	self.log.Debug("close module", zap.Int("aborted", len(units)), zap.Int("released", len(done)), zap.Error(err))
	return
}

func (self *Module) isClosed() bool {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.closed
}

// publish locks the memory of u and makes its names visible, unless the
// module has been closed in the meantime.
func (self *Module) publish(u *Unit, entries []symtab.Entry) error {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.closed {
		return ErrModuleClosed
	}

	/* the memory now belongs to the module */
	if err := self.dir.Publish(u.id, entries, u.lock); err != nil {
		return err
	}
	delete(self.open, u.id)
	self.done = append(self.done, u.alloc)
	return nil
}

func (self *Module) forget(u *Unit) {
	self.mu.Lock()
	delete(self.open, u.id)
	self.mu.Unlock()
}
