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

	"golang.org/x/sys/windows"

	"github.com/cloudwego/jitlink/internal/rt"
)

var (
	libKernel32                       = windows.NewLazySystemDLL("kernel32.dll")
	libKernel32_FlushInstructionCache = libKernel32.NewProc("FlushInstructionCache")
)

type nativeMemory struct{}

func (nativeMemory) PageSize() int {
	return os.Getpagesize()
}

func (nativeMemory) Reserve(size int) ([]byte, error) {
	if size <= 0 {
		panic(errZeroLength)
	}
	mm, err := windows.VirtualAlloc(0, uintptr(size), windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return nil, os.NewSyscallError("VirtualAlloc", err)
	}
	return rt.BytesAt(mm, size), nil
}

func (nativeMemory) Protect(mem []byte, mode Mode) error {
	var old uint32
	var prot uint32

	/* translate the protection */
	switch mode {
	case ModeReadWrite:
		prot = windows.PAGE_READWRITE
	case ModeReadOnly:
		prot = windows.PAGE_READONLY
	case ModeReadExec:
		prot = windows.PAGE_EXECUTE_READ
	default:
		panic("platform: invalid protection mode: " + mode.String())
	}

	/* change the protection */
	if err := windows.VirtualProtect(rt.AddrOf(mem), uintptr(len(mem)), prot, &old); err != nil {
		return os.NewSyscallError("VirtualProtect", err)
	}
	return nil
}

func (nativeMemory) Release(mem []byte) error {
	if len(mem) == 0 {
		panic(errZeroLength)
	}
	if err := windows.VirtualFree(rt.AddrOf(mem), 0, windows.MEM_RELEASE); err != nil {
		return os.NewSyscallError("VirtualFree", err)
	}
	return nil
}

func (nativeMemory) FlushInstructionCache(mem []byte) error {
	if len(mem) == 0 {
		return nil
	}
	if err := libKernel32_FlushInstructionCache.Find(); err != nil {
		return err
	}

	/* the call returns zero on failure with the reason in err */
	ok, _, err := libKernel32_FlushInstructionCache.Call(uintptr(windows.CurrentProcess()), rt.AddrOf(mem), uintptr(len(mem)))
	if ok == 0 {
		return os.NewSyscallError("FlushInstructionCache", err)
	}
	return nil
}
