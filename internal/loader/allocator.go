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

package loader

import (
	`github.com/google/uuid`
	`go.uber.org/atomic`
	`go.uber.org/multierr`
	`go.uber.org/zap`

	`github.com/cloudwego/jitlink/internal/platform`
	`github.com/cloudwego/jitlink/internal/utils`
)

var (
	RegionCount  = atomic.NewInt64(0) // live regions in this process
	ReservedSize = atomic.NewInt64(0) // bytes reserved by live regions
	ObjectCount  = atomic.NewInt64(0) // objects defined so far
)

// Allocator reserves, grows, protects and releases the regions of one build
// unit.
type Allocator struct {
	unit    uuid.UUID
	mem     platform.Memory
	min     int
	log     *zap.Logger
	regions []*Region
}

func NewAllocator(unit uuid.UUID, mem platform.Memory, min int, log *zap.Logger) *Allocator {
	return &Allocator{
		unit: unit,
		mem:  mem,
		min:  min,
		log:  log,
	}
}

func (self *Allocator) PageSize() int {
	return self.mem.PageSize()
}

// Allocate reserves a new read-write region of at least size bytes. The size
// is raised to the minimum region size and rounded up to whole pages.
func (self *Allocator) Allocate(class Class, size int) (*Region, error) {
	nb := size
	if nb < self.min {
		nb = self.min
	}

	/* align the size to pages */
	nb = platform.AlignUp(nb, self.mem.PageSize())
	mm, err := self.mem.Reserve(nb)
	if err != nil {
		return nil, utils.EAlloc(self.unit, class, nb, err)
	}

	/* record the region */
	r := &Region{
		unit:  self.unit,
		class: class,
		mem:   mm,
		mode:  platform.ModeReadWrite,
	}
	self.regions = append(self.regions, r)

	/* record statistics */
	RegionCount.Inc()
	ReservedSize.Add(int64(nb))
	self.log.Debug("reserve region",
		zap.Stringer("unit", self.unit),
		zap.Stringer("class", class),
		zap.Uintptr("base", r.Base()),
		zap.Int("size", nb),
	)
	return r, nil
}

// Grow tries to extend r in place by at least additional bytes.
func (self *Allocator) Grow(r *Region, additional int) bool {
	if r.final {
		return false
	}

	/* the memory must support in-place extension */
	ext, ok := self.mem.(platform.Extender)
	if !ok {
		return false
	}

	/* extend by whole pages */
	nb := platform.AlignUp(len(r.mem)+additional, self.mem.PageSize())
	mm, ok := ext.Extend(r.mem, nb)
	if !ok {
		return false
	}

	/* update the region */
	ReservedSize.Add(int64(nb - len(r.mem)))
	self.log.Debug("grow region",
		zap.Stringer("unit", self.unit),
		zap.Stringer("region", r),
		zap.Int("size", nb),
	)
	r.mem = mm
	return true
}

// Lock moves r into its final access mode, flushing the instruction cache of
// code regions. A locked region is never written again.
func (self *Allocator) Lock(r *Region) error {
	mode := r.class.FinalMode()
	if r.final {
		return nil
	}

	/* writable data keeps its protection */
	if mode != r.mode {
		if err := self.mem.Protect(r.mem, mode); err != nil {
			return utils.EAlloc(self.unit, r.class, len(r.mem), err)
		}
	}

	/* make the new code visible to instruction fetch */
	if r.class == ClassCode {
		if err := self.mem.FlushInstructionCache(r.mem); err != nil {
			return utils.EAlloc(self.unit, r.class, len(r.mem), err)
		}
	}

	/* never writable again */
	r.mode = mode
	r.final = true
	self.log.Debug("lock region", zap.Stringer("unit", self.unit), zap.Stringer("region", r))
	return nil
}

// Release gives every region back to the platform.
func (self *Allocator) Release() (err error) {
	for _, r := range self.regions {
		if e := self.mem.Release(r.mem); e != nil {
			err = multierr.Append(err, e)
			continue
		}
		RegionCount.Dec()
		ReservedSize.Sub(int64(len(r.mem)))
	}

	/* the regions are gone, even if some of them failed to unmap */
	self.log.Debug("release regions", zap.Stringer("unit", self.unit), zap.Int("count", len(self.regions)), zap.Error(err))
	self.regions = nil
	return
}

func (self *Allocator) Regions() []*Region {
	return self.regions
}
