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

// Package linker patches the references of placed objects, either right away
// when the target already has an address, or later through trampolines and
// deferred fixups.
package linker

import (
	`fmt`
	`sort`

	`github.com/google/uuid`
	`github.com/oleiade/lane`
	`go.uber.org/multierr`
	`go.uber.org/zap`

	`github.com/cloudwego/jitlink/internal/loader`
	`github.com/cloudwego/jitlink/internal/reloc`
	`github.com/cloudwego/jitlink/internal/symtab`
	`github.com/cloudwego/jitlink/internal/trampoline`
	`github.com/cloudwego/jitlink/internal/utils`
)

type fixup struct {
	obj  *loader.Object
	ref  reloc.Reference
	stub bool
}

func (self fixup) site() uintptr {
	return self.obj.Addr() + uintptr(self.ref.Offset)
}

// Linker resolves the references of one build unit. It is not safe for
// concurrent use.
type Linker struct {
	unit    uuid.UUID
	syms    *symtab.Table
	tramp   *trampoline.Manager
	direct  bool
	log     *zap.Logger
	pending map[string]*lane.Queue
	waiting map[*loader.Object]int
}

func New(unit uuid.UUID, syms *symtab.Table, tramp *trampoline.Manager, direct bool, log *zap.Logger) *Linker {
	return &Linker {
		unit    : unit,
		syms    : syms,
		tramp   : tramp,
		direct  : direct,
		log     : log,
		pending : make(map[string]*lane.Queue),
		waiting : make(map[*loader.Object]int),
	}
}

func archOf(kind reloc.Kind) *trampoline.Arch {
	switch kind {
		case reloc.X86CallPCRel4 : return trampoline.AMD64
		case reloc.Arm64Call     : return trampoline.ARM64
		default                  : panic("linker: not a call relocation: " + kind.String())
	}
}

// Check validates refs against an object of size bytes without touching any
// state.
func Check(size int, refs []reloc.Reference) error {
	for _, ref := range refs {
		if !ref.Kind.Valid() {
			return fmt.Errorf("linker: invalid relocation kind %d", ref.Kind)
		} else if ref.Offset < 0 || ref.Offset+ref.Kind.Size() > size {
			return fmt.Errorf("linker: relocation %s is out of bounds of a %d-byte object", ref, size)
		} else if ref.Target == "" {
			return fmt.Errorf("linker: relocation %s has no target", ref)
		}
	}
	return nil
}

// Resolve patches every reference of a freshly defined object. Targets with
// an address are patched in place, calls to undefined targets are routed
// through a trampoline, and anything else is deferred until the target gets
// defined. The object is left untouched when any patch overflows.
func (self *Linker) Resolve(obj *loader.Object, refs []reloc.Reference) error {
	if err := Check(obj.Size, refs); err != nil {
		return err
	}

	/* patch into a private copy first */
	buf := obj.Snapshot()
	plan := make([]fixup, 0, len(refs))

	/* compute every patch */
	for _, ref := range refs {
		fx := fixup{obj: obj, ref: ref}
		site := buf[ref.Offset:]

		/* the target is known, patch it right away */
		if addr, ok := self.syms.Resolved(ref.Target); ok {
			if v, err := ref.Kind.Encode(site, fx.site(), addr, ref.Addend); err != nil {
				return utils.EOverflow(self.unit, obj.Name, ref.Offset, ref.Target, ref.Kind, v)
			}
			continue
		}

		/* data references wait for the target */
		if !ref.Kind.IsCall() {
			plan = append(plan, fx)
			continue
		}

		/* calls go through the trampoline of the target */
		stub, err := self.tramp.GetOrCreate(ref.Target, archOf(ref.Kind))
		if err != nil {
			return err
		}

		/* the stub lives in the same unit, but may still be out of range */
		if v, err := ref.Kind.Encode(site, fx.site(), stub, ref.Addend); err != nil {
			return utils.EOverflow(self.unit, obj.Name, ref.Offset, ref.Target, ref.Kind, v)
		}

		/* remember the site for direct patching */
		if self.direct {
			fx.stub = true
			plan = append(plan, fx)
		}
	}

	/* commit the patched bytes */
	copy(obj.Bytes(), buf)
	for _, fx := range plan {
		self.wait(fx)
	}

	/* fully linked objects are relocated */
	if self.waiting[obj] == 0 {
		obj.State = loader.Relocated
	}
	return nil
}

func (self *Linker) wait(fx fixup) {
	q := self.pending[fx.ref.Target]
	if q == nil {
		q = lane.NewQueue()
		self.pending[fx.ref.Target] = q
	}
	if !fx.stub {
		self.waiting[fx.obj]++
	}
	q.Enqueue(fx)
}

// Defined is called once name has an address. It patches the trampoline of
// name and every site waiting for it.
func (self *Linker) Defined(name string, addr uintptr) (err error) {
	if self.tramp.Patch(name, addr) {
		self.log.Debug("resolved through trampoline", zap.Stringer("unit", self.unit), zap.String("name", name))
	}

	/* nothing is waiting for this name */
	q := self.pending[name]
	if q == nil {
		return nil
	}

	/* drain the deferred sites in the order they were recorded */
	delete(self.pending, name)
	for !q.Empty() {
		fx := q.Dequeue().(fixup)
		v, e := fx.ref.Kind.Encode(fx.obj.Bytes()[fx.ref.Offset:], fx.site(), addr, fx.ref.Addend)

		/* the trampoline still covers calls that are out of range */
		if fx.stub {
			if e != nil {
				self.log.Debug("direct patch out of range", zap.Stringer("unit", self.unit), zap.String("object", fx.obj.Name), zap.String("name", name))
			}
			continue
		}

		/* deferred data references must fit */
		if e != nil {
			err = multierr.Append(err, utils.EOverflow(self.unit, fx.obj.Name, fx.ref.Offset, name, fx.ref.Kind, v))
			continue
		}

		/* the object may be complete now */
		if self.waiting[fx.obj]--; self.waiting[fx.obj] == 0 {
			delete(self.waiting, fx.obj)
			fx.obj.State = loader.Relocated
		}
	}
	return
}

// Retry resolves every outstanding name that got an address from outside the
// unit, e.g. an external bound after the reference was recorded.
func (self *Linker) Retry() (err error) {
	for _, name := range self.Outstanding() {
		if addr, ok := self.syms.Resolved(name); ok {
			err = multierr.Append(err, self.Defined(name, addr))
		}
	}
	return
}

// Outstanding returns the sorted names that unpatched trampolines or deferred
// sites are still waiting for.
func (self *Linker) Outstanding() []string {
	seen := make(map[string]bool)
	for _, name := range self.tramp.Pending() {
		seen[name] = true
	}
	for name := range self.pending {
		seen[name] = true
	}

	/* sort the names */
	ret := make([]string, 0, len(seen))
	for name := range seen {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret
}
