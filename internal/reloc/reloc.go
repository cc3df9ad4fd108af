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

// Package reloc implements the arithmetic of every supported relocation kind.
//
// In the formulas below S is the address of the target symbol, A is the
// addend and P is the address of the patch site.
package reloc

import (
	`encoding/binary`
	`errors`
	`fmt`
	`math`
)

type Kind uint8

const (
	// Abs4 writes S + A as an unsigned 32-bit value.
	Abs4 Kind = iota + 1

	// Abs8 writes S + A as a 64-bit value.
	Abs8

	// X86PCRel4 writes S + A - P as a signed 32-bit value.
	X86PCRel4

	// X86CallPCRel4 is X86PCRel4 for the rel32 operand of a CALL or JMP.
	X86CallPCRel4

	// Arm64Call patches the imm26 field of a B or BL instruction with
	// (S + A - P) >> 2.
	Arm64Call
)

var kindNames = [...]string {
	Abs4          : "Abs4",
	Abs8          : "Abs8",
	X86PCRel4     : "X86PCRel4",
	X86CallPCRel4 : "X86CallPCRel4",
	Arm64Call     : "Arm64Call",
}

func (k Kind) String() string {
	if k != 0 && int(k) < len(kindNames) {
		return kindNames[k]
	} else {
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Valid reports whether k is a known relocation kind.
func (k Kind) Valid() bool {
	return k >= Abs4 && k <= Arm64Call
}

// Size returns the number of bytes a relocation of kind k patches.
func (k Kind) Size() int {
	switch k {
		case Abs8 : return 8
		default   : return 4
	}
}

// IsCall reports whether k encodes a branch, which may be redirected through
// a trampoline while its target is still undefined.
func (k Kind) IsCall() bool {
	return k == X86CallPCRel4 || k == Arm64Call
}

// Reference is a pending patch site inside an object.
type Reference struct {
	Offset int
	Target string
	Kind   Kind
	Addend int64
}

func (self Reference) String() string {
	return fmt.Sprintf("%s@%#x -> %s%+d", self.Kind, self.Offset, self.Target, self.Addend)
}

// ErrOverflow is returned when the value does not fit the encoding.
var ErrOverflow = errors.New("reloc: value out of range")

const (
	_Arm64BranchMask  = 0x03ffffff
	_Arm64BranchRange = 1 << 27
)

// Value computes the raw value of the relocation without encoding it.
func (k Kind) Value(p uintptr, s uintptr, a int64) int64 {
	switch k {
		case Abs4, Abs8 : return int64(s) + a
		default         : return int64(s) + a - int64(p)
	}
}

// Check reports whether v can be encoded by k.
func (k Kind) Check(v int64) error {
	switch k {
		case Abs4: {
			if v < 0 || v > math.MaxUint32 {
				return ErrOverflow
			}
		}
		case X86PCRel4, X86CallPCRel4: {
			if v < math.MinInt32 || v > math.MaxInt32 {
				return ErrOverflow
			}
		}
		case Arm64Call: {
			if v&3 != 0 || v < -_Arm64BranchRange || v >= _Arm64BranchRange {
				return ErrOverflow
			}
		}
	}
	return nil
}

// Encode computes the relocation for a site at p targeting s and writes it
// into site, which must be at least k.Size() bytes long. Nothing is written
// when the value does not fit.
func (k Kind) Encode(site []byte, p uintptr, s uintptr, a int64) (int64, error) {
	v := k.Value(p, s, a)
	if err := k.Check(v); err != nil {
		return v, err
	}

	/* write the value into the site */
	switch k {
		case Abs8                     : binary.LittleEndian.PutUint64(site, uint64(v))
		case Abs4                     : binary.LittleEndian.PutUint32(site, uint32(v))
		case X86PCRel4, X86CallPCRel4 : binary.LittleEndian.PutUint32(site, uint32(int32(v)))
		case Arm64Call                : k.patchArm64(site, v)
		default                       : panic("reloc: invalid relocation kind: " + k.String())
	}
	return v, nil
}

func (k Kind) patchArm64(site []byte, v int64) {
	ins := binary.LittleEndian.Uint32(site)
	ins = (ins &^ _Arm64BranchMask) | (uint32(v>>2) & _Arm64BranchMask)
	binary.LittleEndian.PutUint32(site, ins)
}

// Decode is the inverse of Encode: it returns the target address the site at
// p currently encodes, assuming addend a.
func (k Kind) Decode(site []byte, p uintptr, a int64) uintptr {
	var v int64
	switch k {
		case Abs8                     : v = int64(binary.LittleEndian.Uint64(site))
		case Abs4                     : v = int64(binary.LittleEndian.Uint32(site))
		case X86PCRel4, X86CallPCRel4 : v = int64(int32(binary.LittleEndian.Uint32(site)))
		case Arm64Call                : v = int64(int32(binary.LittleEndian.Uint32(site)<<6) >> 4)
		default                       : panic("reloc: invalid relocation kind: " + k.String())
	}

	/* undo the arithmetic */
	switch k {
		case Abs4, Abs8 : return uintptr(v - a)
		default         : return uintptr(int64(p) + v - a)
	}
}
