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

package trampoline

import (
	`errors`
	`testing`

	`github.com/davecgh/go-spew/spew`
	`github.com/google/uuid`
	`github.com/stretchr/testify/assert`
	`github.com/stretchr/testify/require`
	`go.uber.org/zap`
	`golang.org/x/arch/arm64/arm64asm`
	`golang.org/x/arch/x86/x86asm`

	`github.com/cloudwego/jitlink/internal/platform`
	`github.com/cloudwego/jitlink/internal/rt`
)

type heapSpace struct {
	buf  []byte
	used int
}

func newHeapSpace(n int) *heapSpace {
	return &heapSpace{buf: make([]byte, n)}
}

func (self *heapSpace) ReserveStub(size int, align int) ([]byte, error) {
	base := int(rt.AddrOf(self.buf))
	off := platform.AlignUp(base+self.used, align) - base
	if off+size > len(self.buf) {
		return nil, errors.New("out of space")
	}
	self.used = off + size
	return self.buf[off : off+size : off+size], nil
}

func TestStub_AMD64Encoding(t *testing.T) {
	buf := make([]byte, StubSize)
	AMD64.Encode(buf, 0x1122334455667788)
	require.True(t, AMD64.Matches(buf))
	assert.False(t, ARM64.Matches(buf))
	assert.Equal(t, uintptr(0x1122334455667788), AMD64.Target(buf))

	/* jmp qword ptr [rip+2] */
	ins, err := x86asm.Decode(buf, 64)
	require.NoError(t, err)
	require.Equal(t, x86asm.JMP, ins.Op, spew.Sdump(ins))
	require.Equal(t, 6, ins.Len)
	mem, ok := ins.Args[0].(x86asm.Mem)
	require.True(t, ok)
	assert.Equal(t, x86asm.RIP, mem.Base)
	assert.Equal(t, int64(2), mem.Disp)
	assert.Equal(t, AMD64.Cell, ins.Len+int(mem.Disp), "rip-relative operand addresses the cell")

	/* ud2 */
	ins, err = x86asm.Decode(buf[6:], 64)
	require.NoError(t, err)
	assert.Equal(t, x86asm.UD2, ins.Op)
}

func TestStub_ARM64Encoding(t *testing.T) {
	buf := make([]byte, StubSize)
	ARM64.Encode(buf, 0xdeadbeef)
	require.True(t, ARM64.Matches(buf))
	assert.Equal(t, uintptr(0xdeadbeef), ARM64.Target(buf))

	ldr, err := arm64asm.Decode(buf[0:4])
	require.NoError(t, err)
	assert.Equal(t, arm64asm.LDR, ldr.Op, ldr.String())
	br, err := arm64asm.Decode(buf[4:8])
	require.NoError(t, err)
	assert.Equal(t, arm64asm.BR, br.Op, br.String())
}

func TestStub_ForArch(t *testing.T) {
	arch, err := ForArch("arm64")
	require.NoError(t, err)
	assert.Same(t, ARM64, arch)
	_, err = ForArch("mips")
	assert.Error(t, err)
	assert.Panics(t, func() { AMD64.Encode(make([]byte, 8), 0) })
}

func TestManager_GetOrCreateIsIdempotent(t *testing.T) {
	m := NewManager(uuid.New(), newHeapSpace(1024), zap.NewNop())
	n := StubCount.Load()
	a, err := m.GetOrCreate("f", AMD64)
	require.NoError(t, err)
	b, err := m.GetOrCreate("f", AMD64)
	require.NoError(t, err)
	c, err := m.GetOrCreate("g", AMD64)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Zero(t, a%StubAlign)
	assert.Zero(t, c%StubAlign)
	assert.Equal(t, n+2, StubCount.Load())
	assert.Equal(t, []string{"f", "g"}, m.Pending())
}

func TestManager_Patch(t *testing.T) {
	m := NewManager(uuid.New(), newHeapSpace(1024), zap.NewNop())
	addr, err := m.GetOrCreate("f", AMD64)
	require.NoError(t, err)
	_, err = m.GetOrCreate("g", AMD64)
	require.NoError(t, err)

	st, ok := m.Lookup("f", AMD64)
	require.True(t, ok)
	assert.Equal(t, addr, st.Addr())
	assert.Zero(t, st.Target(), "unpatched cells hold zero")
	assert.False(t, st.Patched())

	require.True(t, m.Patch("f", 0x4000))
	assert.False(t, m.Patch("h", 0x4000))
	assert.True(t, st.Patched())
	assert.Equal(t, uintptr(0x4000), st.Target())
	assert.Equal(t, uintptr(0x4000), AMD64.Target(rt.BytesAt(addr, StubSize)))
	assert.Equal(t, []string{"g"}, m.Pending())

	/* the stub address is stable across patches */
	again, err := m.GetOrCreate("f", AMD64)
	require.NoError(t, err)
	assert.Equal(t, addr, again)
	assert.Len(t, m.Stubs(), 2)
}

func TestManager_SpaceExhausted(t *testing.T) {
	m := NewManager(uuid.New(), newHeapSpace(8), zap.NewNop())
	_, err := m.GetOrCreate("f", ARM64)
	assert.Error(t, err)
	assert.Empty(t, m.Pending())
}
