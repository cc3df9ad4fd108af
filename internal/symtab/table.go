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

// Package symtab tracks the resolution state of every name a build unit
// declares or references.
package symtab

import (
	`fmt`
	`sort`

	`github.com/google/uuid`

	`github.com/cloudwego/jitlink/internal/utils`
)

type Kind uint8

const (
	Function Kind = iota
	ReadOnlyData
	WritableData
)

func (k Kind) String() string {
	switch k {
		case Function     : return "function"
		case ReadOnlyData : return "rodata"
		case WritableData : return "data"
		default           : return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

type State uint8

const (
	Unresolved State = iota
	Defined
	External
)

func (s State) String() string {
	switch s {
		case Unresolved : return "unresolved"
		case Defined    : return "defined"
		case External   : return "external"
		default         : return fmt.Sprintf("State(%d)", uint8(s))
	}
}

type Entry struct {
	Name  string
	Kind  Kind
	State State
	Addr  uintptr
	Size  int
}

// Parent is consulted for names the table itself does not know about.
type Parent interface {
	Lookup(name string) (Entry, bool)
}

// Table is the symbol table of a single build unit. It is not safe for
// concurrent use; the build unit serializes access to it.
type Table struct {
	unit    uuid.UUID
	parent  Parent
	entries map[string]*Entry
}

func New(unit uuid.UUID, parent Parent) *Table {
	return &Table {
		unit    : unit,
		parent  : parent,
		entries : make(map[string]*Entry),
	}
}

// Declare reserves name in the table. Declaring an unresolved name again is
// a no-op, declaring a name that already resolves anywhere is an error.
func (self *Table) Declare(name string, kind Kind) (*Entry, error) {
	if e, ok := self.entries[name]; ok {
		if e.State != Unresolved {
			return nil, utils.EDuplicate(self.unit, name)
		} else if e.Kind != kind {
			return nil, fmt.Errorf("symtab: %q redeclared as %s, previously %s", name, kind, e.Kind)
		} else {
			return e, nil
		}
	}

	/* names published by other units cannot be shadowed */
	if self.parent != nil {
		if _, ok := self.parent.Lookup(name); ok {
			return nil, utils.EDuplicate(self.unit, name)
		}
	}

	/* add a new entry */
	e := &Entry{Name: name, Kind: kind}
	self.entries[name] = e
	return e, nil
}

// Define transitions a declared name to Defined. Transitions are monotonic.
func (self *Table) Define(name string, addr uintptr, size int) error {
	if e, ok := self.entries[name]; !ok {
		return fmt.Errorf("symtab: %q is not declared", name)
	} else if e.State != Unresolved {
		return utils.EDuplicate(self.unit, name)
	} else {
		e.Addr, e.Size, e.State = addr, size, Defined
		return nil
	}
}

// Lookup resolves name against this table first, then the parent. Unknown
// names are reported as Unresolved with ok set to false.
func (self *Table) Lookup(name string) (Entry, bool) {
	if e, ok := self.entries[name]; ok {
		return *e, true
	}
	if self.parent != nil {
		if e, ok := self.parent.Lookup(name); ok {
			return e, true
		}
	}
	return Entry{Name: name}, false
}

// Resolved reports whether name currently resolves to an address.
func (self *Table) Resolved(name string) (uintptr, bool) {
	if e, _ := self.Lookup(name); e.State == Unresolved {
		return 0, false
	} else {
		return e.Addr, true
	}
}

// Unresolved returns the sorted list of declared but undefined names.
func (self *Table) Unresolved() []string {
	var ret []string
	for name, e := range self.entries {
		if e.State == Unresolved {
			ret = append(ret, name)
		}
	}
	sort.Strings(ret)
	return ret
}

// Defined returns every defined entry, ordered by address.
func (self *Table) Defined() []Entry {
	var ret []Entry
	for _, e := range self.entries {
		if e.State == Defined {
			ret = append(ret, *e)
		}
	}
	sort.Slice(ret, func(i int, j int) bool { return ret[i].Addr < ret[j].Addr })
	return ret
}
