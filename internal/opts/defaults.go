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

package opts

import (
	"os"
	"strconv"

	"github.com/docker/go-units"
)

const (
	_DefaultMinRegionSize = 64 * 1024 // open regions 64k at a time
	_DefaultCodeAlign     = 0         // derive from the cache line size
	_MinRegionSize        = 4096
)

var (
	MinRegionSize = parseSizeOrDefault("JITLINK_MIN_REGION_SIZE", _DefaultMinRegionSize, _MinRegionSize)
	CodeAlign     = parseOrDefault("JITLINK_CODE_ALIGN", _DefaultCodeAlign, 0)
	DirectPatch   = parseBoolOrDefault("JITLINK_DIRECT_PATCH", true)
	Debug         = parseBoolOrDefault("JITLINK_DEBUG", false)
)

func parseOrDefault(key string, def int, min int) int {
	if env := os.Getenv(key); env == "" {
		return def
	} else if val, err := strconv.ParseUint(env, 0, 64); err != nil {
		panic("jitlink: invalid value for " + key)
	} else if ret := int(val); ret < min {
		panic("jitlink: value too small for " + key)
	} else {
		return ret
	}
}

func parseSizeOrDefault(key string, def int, min int) int {
	if env := os.Getenv(key); env == "" {
		return def
	} else if val, err := units.RAMInBytes(env); err != nil {
		panic("jitlink: invalid size for " + key)
	} else if ret := int(val); ret < min {
		panic("jitlink: size too small for " + key)
	} else {
		return ret
	}
}

func parseBoolOrDefault(key string, def bool) bool {
	if env := os.Getenv(key); env == "" {
		return def
	} else if val, err := strconv.ParseBool(env); err != nil {
		panic("jitlink: invalid value for " + key)
	} else {
		return val
	}
}
