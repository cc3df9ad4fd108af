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
	`go.uber.org/multierr`
	`go.uber.org/zap`

	`github.com/cloudwego/jitlink/internal/loader`
	`github.com/cloudwego/jitlink/internal/utils`
)

// Finalize locks the unit down and returns the address of every object it
// defines.
//
// Code regions become read-execute with their instruction cache flushed,
// read-only data becomes read-only, writable data stays writable. On success
// the names of the unit are published to the module, and the unit accepts no
// further definitions.
//
// Finalize fails with an UnresolvedSymbolError listing every name that still
// has no address, or with a DuplicateDefinitionError when another unit
// published one of the names first. In both cases the unit stays open and
// Finalize may be retried. It fails with ErrModuleClosed once the module is
// closed.
func (self *Unit) Finalize() (map[string]uintptr, error) {
	self.mu.Lock()
	defer self.mu.Unlock()

	/* check the unit state */
	if self.state != unitOpen {
		return nil, ErrUnitClosed
	}

	/* pick up names that got an address from outside the unit */
	if err := self.link.Retry(); err != nil {
		return nil, self.fail(err)
	}

	/* every name must be resolved by now */
	if names := self.unresolved(); len(names) != 0 {
		return nil, utils.EUnresolved(self.id, names)
	}

	/* lock the memory and publish the names at once */
	entries := self.syms.Defined()
	if err := self.mod.publish(self, entries); err == ErrModuleClosed {
		return nil, err
	} else if err != nil {
		return nil, self.fail(err)
	}

	/* no more writes from here on */
	self.addrs = make(map[string]uintptr, len(entries))
	for _, e := range entries {
		self.addrs[e.Name] = e.Addr
	}
	for _, obj := range self.place.Objects() {
		obj.State = loader.Finalized
	}

	self.state = unitFinalized
	self.log.Debug("finalize build unit",
		zap.Stringer("unit", self.id),
		zap.Int("objects", len(entries)),
		zap.Int("regions", len(self.alloc.Regions())),
		zap.Int("stubs", len(self.tramp.Stubs())),
	)

	/* hand out a copy of the addresses */
	ret := make(map[string]uintptr, len(self.addrs))
	for k, v := range self.addrs {
		ret[k] = v
	}
	return ret, nil
}

// lock moves every region into its final access mode.
func (self *Unit) lock() (err error) {
	for _, r := range self.alloc.Regions() {
		err = multierr.Append(err, self.alloc.Lock(r))
	}
	return
}
