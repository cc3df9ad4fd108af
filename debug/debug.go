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

package debug

import (
	"fmt"

	"github.com/docker/go-units"

	"github.com/cloudwego/jitlink/internal/loader"
	"github.com/cloudwego/jitlink/internal/trampoline"
)

// A Stats records statistics about the linker.
type Stats struct {
	Memory MemStats
}

// A MemStats records statistics about the memory used for generated code and
// data, across every module of the process.
type MemStats struct {
	Regions     int
	Reserved    int
	Objects     int
	Trampolines int
}

func (self MemStats) String() string {
	return fmt.Sprintf(
		"%d regions (%s reserved), %d objects, %d trampolines",
		self.Regions,
		units.BytesSize(float64(self.Reserved)),
		self.Objects,
		self.Trampolines,
	)
}

// GetStats returns statistics of the linker.
func GetStats() Stats {
	return Stats{
		Memory: MemStats{
			Regions:     int(loader.RegionCount.Load()),
			Reserved:    int(loader.ReservedSize.Load()),
			Objects:     int(loader.ObjectCount.Load()),
			Trampolines: int(trampoline.StubCount.Load()),
		},
	}
}
