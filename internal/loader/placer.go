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

	`github.com/bytedance/gopkg/lang/dirtmake`

	`github.com/cloudwego/jitlink/internal/platform`
	`github.com/cloudwego/jitlink/internal/symtab`
	`github.com/cloudwego/jitlink/internal/utils`
)

// State is the lifecycle state of an object.
type State uint8

const (
	Declared State = iota
	Defined
	Relocated
	Finalized
)

func (s State) String() string {
	switch s {
	case Declared:
		return "declared"
	case Defined:
		return "defined"
	case Relocated:
		return "relocated"
	case Finalized:
		return "finalized"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// ClassOf maps an object kind to the permission class of its region.
func ClassOf(kind symtab.Kind) Class {
	switch kind {
	case symtab.Function:
		return ClassCode
	case symtab.ReadOnlyData:
		return ClassReadOnly
	default:
		return ClassWritable
	}
}

// Object is one function body or data blob.
type Object struct {
	Name   string
	Kind   symtab.Kind
	State  State
	Region *Region
	Offset int
	Size   int
	Align  int
}

// Addr returns the final address of the object. It is stable once the object
// is defined.
func (self *Object) Addr() uintptr {
	if self.Region == nil {
		return 0
	} else {
		return self.Region.Base() + uintptr(self.Offset)
	}
}

// Bytes returns the writable bytes of a defined, not yet finalized object.
func (self *Object) Bytes() []byte {
	return self.Region.Slice(self.Offset, self.Size)
}

// Snapshot copies the current bytes of the object.
func (self *Object) Snapshot() []byte {
	buf := dirtmake.Bytes(self.Size, self.Size)
	copy(buf, self.Region.View(self.Offset, self.Size))
	return buf
}

func (self *Object) String() string {
	return fmt.Sprintf("%s %q (%s) @%#x+%d", self.Kind, self.Name, self.State, self.Addr(), self.Size)
}

// Placer lays objects out in the regions of one build unit.
type Placer struct {
	alloc *Allocator
	syms  *symtab.Table
	cur   [_ClassCount]*Region
	objs  map[string]*Object
	order []*Object
}

func NewPlacer(alloc *Allocator, syms *symtab.Table) *Placer {
	return &Placer{
		alloc: alloc,
		syms:  syms,
		objs:  make(map[string]*Object),
	}
}

// Declare reserves name without allocating memory for it.
func (self *Placer) Declare(name string, kind symtab.Kind) (*Object, error) {
	if _, err := self.syms.Declare(name, kind); err != nil {
		return nil, err
	}

	/* declaring twice returns the same object */
	if obj, ok := self.objs[name]; ok {
		return obj, nil
	}

	/* add a new object */
	obj := &Object{Name: name, Kind: kind}
	self.objs[name] = obj
	return obj, nil
}

// Define places data into a region of the matching class, honouring align,
// and resolves the name to the new address.
func (self *Placer) Define(obj *Object, data []byte, align int) error {
	if obj.State != Declared {
		return utils.EDuplicate(self.alloc.unit, obj.Name)
	}

	/* allocate space, zero-length objects still get a unique address */
	size := len(data)
	region, off, err := self.Reserve(ClassOf(obj.Kind), max(size, 1), align)
	if err != nil {
		return err
	}

	/* copy the bytes into place */
	copy(region.Slice(off, size), data)
	if err = self.syms.Define(obj.Name, region.Base()+uintptr(off), size); err != nil {
		return err
	}

	/* the address is fixed from now on */
	obj.Region = region
	obj.Offset = off
	obj.Size = size
	obj.Align = align
	obj.State = Defined
	self.order = append(self.order, obj)
	ObjectCount.Inc()
	return nil
}

// Reserve returns size bytes aligned to align inside the current region of
// class, growing it or opening a new region when it is full.
func (self *Placer) Reserve(class Class, size int, align int) (*Region, int, error) {
	if !platform.IsPow2(align) {
		return nil, 0, fmt.Errorf("loader: alignment %d is not a power of 2", align)
	} else if ps := self.alloc.PageSize(); align > ps {
		return nil, 0, fmt.Errorf("loader: alignment %d exceeds the page size %d", align, ps)
	}

	/* try the current region first */
	if r := self.cur[class]; r != nil {
		off := platform.AlignUp(r.used, align)
		if off+size <= r.Cap() || self.alloc.Grow(r, off+size-r.Cap()) {
			r.used = off + size
			return r, off, nil
		}
	}

	/* open a new region, the old one keeps its objects */
	r, err := self.alloc.Allocate(class, size)
	if err != nil {
		return nil, 0, err
	}

	/* new regions are page aligned, which satisfies align */
	r.used = size
	self.cur[class] = r
	return r, 0, nil
}

// Lookup returns the object declared as name.
func (self *Placer) Lookup(name string) (*Object, bool) {
	obj, ok := self.objs[name]
	return obj, ok
}

// Objects returns the defined objects in definition order.
func (self *Placer) Objects() []*Object {
	return self.order
}

// ReserveStub reserves room for a trampoline in the code regions.
func (self *Placer) ReserveStub(size int, align int) ([]byte, error) {
	if r, off, err := self.Reserve(ClassCode, size, align); err != nil {
		return nil, err
	} else {
		return r.Slice(off, size), nil
	}
}
