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

package utils

import (
	`errors`
	`fmt`
	`strings`

	`github.com/google/uuid`
)

// ErrUnitClosed is returned by operations on a build unit that has already
// been finalized or aborted.
var ErrUnitClosed = errors.New("jitlink: build unit is closed")

// ErrModuleClosed is returned by operations on a module after Close.
var ErrModuleClosed = errors.New("jitlink: module is closed")

// AllocationError occures when the platform refuses to provide memory.
type AllocationError struct {
	Unit  uuid.UUID
	Class string
	Size  int
	Err   error
}

func (self AllocationError) Error() string {
	return fmt.Sprintf("AllocationFailure(unit %s): cannot reserve %d bytes of %s memory: %v", self.Unit, self.Size, self.Class, self.Err)
}

func (self AllocationError) Unwrap() error {
	return self.Err
}

// DuplicateDefinitionError occures when a name is defined twice.
type DuplicateDefinitionError struct {
	Unit uuid.UUID
	Name string
}

func (self DuplicateDefinitionError) Error() string {
	return fmt.Sprintf("DuplicateDefinition(unit %s): %q is already defined", self.Unit, self.Name)
}

// UnresolvedSymbolError occures when finalizing a build unit that still
// references or declares undefined names.
type UnresolvedSymbolError struct {
	Unit  uuid.UUID
	Names []string
}

func (self UnresolvedSymbolError) Error() string {
	return fmt.Sprintf("UnresolvedSymbol(unit %s): %s", self.Unit, strings.Join(self.Names, ", "))
}

// RelocationOverflowError occures when a patch value does not fit the
// encoding of the relocation.
type RelocationOverflowError struct {
	Unit   uuid.UUID
	Object string
	Offset int
	Target string
	Kind   string
	Value  int64
}

func (self RelocationOverflowError) Error() string {
	return fmt.Sprintf(
		"RelocationOverflow(unit %s): %s relocation at %s+%#x to %q cannot encode %#x",
		self.Unit,
		self.Kind,
		self.Object,
		self.Offset,
		self.Target,
		self.Value,
	)
}

// PermissionError is an attempt to write into a finalized region.
type PermissionError struct {
	Unit uuid.UUID
	Addr uintptr
	Mode string
}

func (self PermissionError) Error() string {
	return fmt.Sprintf("PermissionViolation(unit %s): write to %#x in a %s region", self.Unit, self.Addr, self.Mode)
}

func EAlloc(unit uuid.UUID, class fmt.Stringer, size int, err error) AllocationError {
	return AllocationError {
		Unit  : unit,
		Class : class.String(),
		Size  : size,
		Err   : err,
	}
}

func EDuplicate(unit uuid.UUID, name string) DuplicateDefinitionError {
	return DuplicateDefinitionError {
		Unit: unit,
		Name: name,
	}
}

func EUnresolved(unit uuid.UUID, names []string) UnresolvedSymbolError {
	return UnresolvedSymbolError {
		Unit  : unit,
		Names : names,
	}
}

func EOverflow(unit uuid.UUID, obj string, off int, target string, kind fmt.Stringer, v int64) RelocationOverflowError {
	return RelocationOverflowError {
		Unit   : unit,
		Object : obj,
		Offset : off,
		Target : target,
		Kind   : kind.String(),
		Value  : v,
	}
}

func EPermission(unit uuid.UUID, addr uintptr, mode fmt.Stringer) PermissionError {
	return PermissionError {
		Unit : unit,
		Addr : addr,
		Mode : mode.String(),
	}
}
