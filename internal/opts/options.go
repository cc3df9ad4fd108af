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
	"go.uber.org/zap"

	"github.com/cloudwego/jitlink/internal/platform"
)

const (
	_FallbackCodeAlign = 16
	_MaxCodeAlign      = 64
	_DataAlign         = 8
)

type Options struct {
	MinRegionSize int
	CodeAlign     int
	DirectPatch   bool
	Logger        *zap.Logger
	Memory        platform.Memory
}

// Align returns the alignment used when an object is defined without one.
func (self *Options) Align(code bool) int {
	if !code {
		return _DataAlign
	} else if self.CodeAlign != 0 {
		return self.CodeAlign
	} else if cl := platform.CacheLine(); platform.IsPow2(cl) && cl <= _MaxCodeAlign {
		return cl
	} else {
		return _FallbackCodeAlign
	}
}

func GetDefaultOptions() Options {
	return Options{
		MinRegionSize: MinRegionSize,
		CodeAlign:     CodeAlign,
		DirectPatch:   DirectPatch,
		Logger:        defaultLogger(),
		Memory:        platform.Native(),
	}
}

func defaultLogger() *zap.Logger {
	if !Debug {
		return zap.NewNop()
	} else if l, err := zap.NewDevelopment(); err != nil {
		panic("jitlink: cannot create debug logger: " + err.Error())
	} else {
		return l.Named("jitlink")
	}
}
