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

package reloc

import (
	`encoding/binary`
	`testing`

	`github.com/stretchr/testify/assert`
	`github.com/stretchr/testify/require`
)

func TestKind_Properties(t *testing.T) {
	assert.Equal(t, "X86CallPCRel4", X86CallPCRel4.String())
	assert.Equal(t, "Kind(0)", Kind(0).String())
	assert.False(t, Kind(0).Valid())
	assert.False(t, Kind(42).Valid())
	assert.Equal(t, 8, Abs8.Size())
	assert.Equal(t, 4, Arm64Call.Size())
	assert.True(t, X86CallPCRel4.IsCall())
	assert.True(t, Arm64Call.IsCall())
	assert.False(t, X86PCRel4.IsCall())
	assert.False(t, Abs8.IsCall())
}

func TestEncode_Abs(t *testing.T) {
	site := make([]byte, 8)
	v, err := Abs8.Encode(site, 0x1000, 0x7fff_0000_1000, 8)
	require.NoError(t, err)
	assert.Equal(t, int64(0x7fff_0000_1008), v)
	assert.Equal(t, uint64(0x7fff_0000_1008), binary.LittleEndian.Uint64(site))
	assert.Equal(t, uintptr(0x7fff_0000_1000), Abs8.Decode(site, 0x1000, 8))

	site = make([]byte, 4)
	_, err = Abs4.Encode(site, 0, 0x1234_5678, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x1234_5678), binary.LittleEndian.Uint32(site))

	/* addresses above 4G cannot be encoded in 32 bits, and nothing is written */
	_, err = Abs4.Encode(site, 0, 0x1_0000_0000, 0)
	assert.ErrorIs(t, err, ErrOverflow)
	assert.Equal(t, uint32(0x1234_5678), binary.LittleEndian.Uint32(site))
}

func TestEncode_X86CallPCRel4(t *testing.T) {
	code := []byte{0xe8, 0, 0, 0, 0, 0xc3}
	base := uintptr(0x10000)
	p := base + 1

	/* call to a target before the site, relative to the next instruction */
	v, err := X86CallPCRel4.Encode(code[1:], p, 0x8000, -4)
	require.NoError(t, err)
	assert.Equal(t, int64(0x8000-4-int64(p)), v)
	assert.Equal(t, uintptr(0x8000), X86CallPCRel4.Decode(code[1:], p, -4))
	assert.Equal(t, uint32(int32(0x8000)-int32(base)-5), binary.LittleEndian.Uint32(code[1:]))

	/* displacement too large for rel32 */
	_, err = X86CallPCRel4.Encode(code[1:], p, p+0x8000_0000+4, -4)
	assert.ErrorIs(t, err, ErrOverflow)
	_, err = X86PCRel4.Encode(code[1:], 0x1_0000_0000, 0x0_7fff_0000, 0)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestEncode_Arm64Call(t *testing.T) {
	site := make([]byte, 4)
	binary.LittleEndian.PutUint32(site, 0x94000000) // BL #0

	/* forward */
	_, err := Arm64Call.Encode(site, 0x1000, 0x2000, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x94000000|0x400), binary.LittleEndian.Uint32(site))
	assert.Equal(t, uintptr(0x2000), Arm64Call.Decode(site, 0x1000, 0))

	/* backward keeps the opcode bits */
	_, err = Arm64Call.Encode(site, 0x2000, 0x1000, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x94000000|0x03fffc00), binary.LittleEndian.Uint32(site))
	assert.Equal(t, uintptr(0x1000), Arm64Call.Decode(site, 0x2000, 0))

	/* limits */
	_, err = Arm64Call.Encode(site, 0x1000_0000, 0x1000_0000+(1<<27)-4, 0)
	assert.NoError(t, err)
	_, err = Arm64Call.Encode(site, 0x1000_0000, 0x1000_0000+(1<<27), 0)
	assert.ErrorIs(t, err, ErrOverflow)
	_, err = Arm64Call.Encode(site, 0x1000_0000, 0x1000_0002, 0)
	assert.ErrorIs(t, err, ErrOverflow, "misaligned target")
}

func TestReference_String(t *testing.T) {
	ref := Reference{Offset: 1, Target: "add", Kind: X86CallPCRel4, Addend: -4}
	assert.Equal(t, "X86CallPCRel4@0x1 -> add-4", ref.String())
}
