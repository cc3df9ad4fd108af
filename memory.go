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

package jitlink

import (
	`github.com/cloudwego/jitlink/internal/platform`
)

type (
	// Memory is the capability the module uses to obtain pages, change
	// their protection and release them.
	Memory = platform.Memory

	// Mode is the access mode of a block of pages.
	Mode = platform.Mode

	// SimulatedMemory is a Memory backed by the Go heap which enforces page
	// protection in software. Its memory is never executable.
	SimulatedMemory = platform.Simulated
)

const (
	ModeReadWrite = platform.ModeReadWrite
	ModeReadOnly  = platform.ModeReadOnly
	ModeReadExec  = platform.ModeReadExec
)

// NativeMemory returns the memory of the operating system.
func NativeMemory() Memory {
	return platform.Native()
}

// NewSimulatedMemory creates a simulated memory with 4KiB pages.
func NewSimulatedMemory() *SimulatedMemory {
	return platform.NewSimulated()
}
