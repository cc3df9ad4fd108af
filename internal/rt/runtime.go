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

package rt

import (
	`unsafe`
)

type GoSlice struct {
	Ptr unsafe.Pointer
	Len int
	Cap int
}

// Mkptr converts a raw machine address into a pointer.
func Mkptr(m uintptr) unsafe.Pointer {
	return *(*unsafe.Pointer)(unsafe.Pointer(&m))
}

// BytesFrom builds a byte slice over raw memory at p.
func BytesFrom(p unsafe.Pointer, n int, c int) (r []byte) {
	(*GoSlice)(unsafe.Pointer(&r)).Ptr = p
	(*GoSlice)(unsafe.Pointer(&r)).Len = n
	(*GoSlice)(unsafe.Pointer(&r)).Cap = c
	return
}

// BytesAt is BytesFrom for a raw address.
func BytesAt(addr uintptr, n int) []byte {
	return BytesFrom(Mkptr(addr), n, n)
}

// AddrOf returns the address of the first element of b, or 0 if b has no capacity.
func AddrOf(b []byte) uintptr {
	if cap(b) == 0 {
		return 0
	} else {
		return uintptr((*GoSlice)(unsafe.Pointer(&b)).Ptr)
	}
}

// FuncOf builds a Go func value whose entry point is the machine code at pc.
// The caller casts the result to the matching func type:
//
//	fn := *(*func(int, int) int)(rt.FuncOf(pc))
func FuncOf(pc uintptr) unsafe.Pointer {
	fp := new(uintptr)
	*fp = pc
	fv := unsafe.Pointer(fp)
	return unsafe.Pointer(&fv)
}
