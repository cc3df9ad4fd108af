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

package platform

import (
	`testing`

	`github.com/stretchr/testify/assert`
	`github.com/stretchr/testify/require`
	`golang.org/x/sys/unix`

	`github.com/cloudwego/jitlink/internal/rt`
)

func TestNative_ExtendIntoFreePages(t *testing.T) {
	mem := Native()
	ps := mem.PageSize()
	b, err := mem.Reserve(4 * ps)
	require.NoError(t, err)

	/* shrink the block so the three pages after it are free */
	b, err = unix.Mremap(b, ps, 0)
	require.NoError(t, err)
	b[ps-1] = 42

	ext, ok := mem.(Extender).Extend(b, 4*ps)
	require.True(t, ok)
	assert.Len(t, ext, 4*ps)
	assert.Equal(t, rt.AddrOf(b), rt.AddrOf(ext))
	assert.Equal(t, byte(42), ext[ps-1])

	/* the new pages are zeroed, writable and protected together */
	assert.Equal(t, byte(0), ext[3*ps])
	assert.False(t, writeFaults(ext, 3*ps))
	require.NoError(t, mem.Protect(ext, ModeReadOnly))
	assert.True(t, writeFaults(ext, 3*ps))
	require.NoError(t, mem.Release(ext))
}

func TestNative_ExtendKeepsBlock(t *testing.T) {
	mem := Native()
	ps := mem.PageSize()
	b, err := mem.Reserve(2 * ps)
	require.NoError(t, err)
	b[0] = 7

	/* shrinking never moves anything */
	same, ok := mem.(Extender).Extend(b, ps)
	require.True(t, ok)
	assert.Equal(t, rt.AddrOf(b), rt.AddrOf(same))
	assert.Len(t, same, 2*ps)

	/* growing either stays in place or leaves the block alone */
	ext, ok := mem.(Extender).Extend(b, 64*ps)
	if ok {
		assert.Equal(t, rt.AddrOf(b), rt.AddrOf(ext))
		assert.Len(t, ext, 64*ps)
		b = ext
	}
	assert.Equal(t, byte(7), b[0])
	assert.False(t, writeFaults(b, len(b)-1))
	require.NoError(t, mem.Release(b))

	/* only blocks handed out by Reserve or Extend can grow */
	c, err := mem.Reserve(2 * ps)
	require.NoError(t, err)
	_, ok = mem.(Extender).Extend(c[:ps:ps], 2*ps)
	assert.False(t, ok)
	require.NoError(t, mem.Release(c))
}
