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
	`github.com/cloudwego/jitlink/internal/utils`
)

type (
	// AllocationError occures when the platform refuses to provide memory.
	AllocationError = utils.AllocationError

	// DuplicateDefinitionError occures when a name is defined, declared or
	// bound more than once across a module.
	DuplicateDefinitionError = utils.DuplicateDefinitionError

	// UnresolvedSymbolError occures when finalizing a build unit that still
	// has names without an address. The unit stays open.
	UnresolvedSymbolError = utils.UnresolvedSymbolError

	// RelocationOverflowError occures when a patch value does not fit its
	// encoding. The build unit is aborted.
	RelocationOverflowError = utils.RelocationOverflowError

	// PermissionError is the value of the panic raised when finalized memory
	// is about to be written.
	PermissionError = utils.PermissionError
)

var (
	ErrUnitClosed   = utils.ErrUnitClosed
	ErrModuleClosed = utils.ErrModuleClosed
	ErrUnsupported  = platform.ErrUnsupported
)
