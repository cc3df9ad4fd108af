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
	`fmt`

	`go.uber.org/zap`

	`github.com/cloudwego/jitlink/internal/opts`
	`github.com/cloudwego/jitlink/internal/platform`
)

// Option is the property setter function for opts.Options.
type Option func(*opts.Options)

// WithMinRegionSize sets the minimum size of every region reserved by the
// module. It is rounded up to whole pages.
//
// Larger regions mean fewer system calls and fewer regions to protect when
// finalizing, at the cost of more reserved but unused memory per build unit.
//
// The default value of this option is "64KiB".
func WithMinRegionSize(size int) Option {
	if size <= 0 {
		panic(fmt.Sprintf("jitlink: invalid minimum region size: %d", size))
	} else {
		return func(o *opts.Options) { o.MinRegionSize = size }
	}
}

// WithCodeAlign sets the alignment of functions defined without an explicit
// alignment.
//
// The default value "0" picks the L1 cache line size of the CPU, or 16 when
// it cannot be determined.
func WithCodeAlign(align int) Option {
	if align != 0 && !platform.IsPow2(align) {
		panic(fmt.Sprintf("jitlink: invalid code alignment: %d", align))
	} else {
		return func(o *opts.Options) { o.CodeAlign = align }
	}
}

// WithDirectPatch controls whether call sites that were routed through a
// trampoline are also patched to branch to the target directly once it is
// defined. The trampoline is patched either way.
//
// The default value of this option is "true".
func WithDirectPatch(enable bool) Option {
	return func(o *opts.Options) { o.DirectPatch = enable }
}

// WithLogger sets the logger of the module. A nil logger disables logging.
func WithLogger(log *zap.Logger) Option {
	if log == nil {
		log = zap.NewNop()
	}
	return func(o *opts.Options) { o.Logger = log }
}

// WithMemory replaces the memory of the operating system with mem.
func WithMemory(mem Memory) Option {
	if mem == nil {
		panic("jitlink: nil memory")
	} else {
		return func(o *opts.Options) { o.Memory = mem }
	}
}

// SetMinRegionSize sets the default minimum region size for all modules
// created from now on.
//
// This value can also be configured with the `JITLINK_MIN_REGION_SIZE`
// environment variable, e.g. "256KiB".
//
// Returns the old opts.MinRegionSize value.
func SetMinRegionSize(size int) int {
	size, opts.MinRegionSize = opts.MinRegionSize, size
	return size
}

// SetDirectPatch sets the default direct patching behavior for all modules
// created from now on.
//
// This value can also be configured with the `JITLINK_DIRECT_PATCH`
// environment variable.
//
// Returns the old opts.DirectPatch value.
func SetDirectPatch(enable bool) bool {
	enable, opts.DirectPatch = opts.DirectPatch, enable
	return enable
}
