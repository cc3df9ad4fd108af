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
	"golang.org/x/sys/unix"

	"github.com/cloudwego/jitlink/internal/rt"
)

// Extend grows mem in place. Without MREMAP_MAYMOVE the kernel either
// extends the mapping at the same address or fails with ENOMEM, which is the
// common case since fresh mappings are usually placed right below older ones.
// mem must be a whole block returned by Reserve or an earlier Extend.
func (nativeMemory) Extend(mem []byte, size int) ([]byte, bool) {
	if size <= len(mem) {
		return mem, true
	}
	ext, err := unix.Mremap(mem, size, 0)
	if err != nil {
		return nil, false
	}
	if rt.AddrOf(ext) != rt.AddrOf(mem) {
		panic("platform: mremap moved a block without MREMAP_MAYMOVE")
	}
	return ext, true
}
