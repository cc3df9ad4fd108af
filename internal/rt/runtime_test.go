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
	`testing`

	`github.com/stretchr/testify/assert`
)

func TestBytesAt_AliasesMemory(t *testing.T) {
	buf := []byte{1, 2, 3, 4}
	view := BytesAt(AddrOf(buf)+1, 2)
	view[0] = 9
	assert.Equal(t, []byte{1, 9, 3, 4}, buf)
	assert.Equal(t, 2, cap(view))
}

func TestAddrOf_Empty(t *testing.T) {
	assert.Equal(t, uintptr(0), AddrOf(nil))
}
