//go:build unix

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
	"os"

	"golang.org/x/sys/unix"

	"github.com/cloudwego/jitlink/internal/rt"
)

const (
	_AP = unix.MAP_ANON | unix.MAP_PRIVATE
	_RW = unix.PROT_READ | unix.PROT_WRITE
	_RX = unix.PROT_READ | unix.PROT_EXEC
	_RO = unix.PROT_READ
)

type nativeMemory struct{}

func (nativeMemory) PageSize() int {
	return unix.Getpagesize()
}

func (nativeMemory) Reserve(size int) ([]byte, error) {
	if size <= 0 {
		panic(errZeroLength)
	}

	/* anonymous private pages, never executable at this point */
	mem, err := unix.Mmap(-1, 0, size, _RW, _AP)
	if err != nil {
		return nil, os.NewSyscallError("mmap", err)
	}
	return mem, nil
}

func (nativeMemory) Protect(mem []byte, mode Mode) error {
	var prot int
	switch mode {
	case ModeReadWrite:
		prot = _RW
	case ModeReadOnly:
		prot = _RO
	case ModeReadExec:
		prot = _RX
	default:
		panic("platform: invalid protection mode: " + mode.String())
	}
	if err := unix.Mprotect(mem, prot); err != nil {
		return os.NewSyscallError("mprotect", err)
	}
	return nil
}

func (nativeMemory) Release(mem []byte) error {
	if len(mem) == 0 {
		panic(errZeroLength)
	}
	if err := unix.Munmap(mem); err != nil {
		return os.NewSyscallError("munmap", err)
	}
	return nil
}

func (nativeMemory) FlushInstructionCache(mem []byte) error {
	if len(mem) != 0 {
		flushICache(rt.AddrOf(mem), uintptr(len(mem)))
	}
	return nil
}
