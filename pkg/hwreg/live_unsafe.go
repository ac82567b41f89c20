// Copyright 2024 The Pagewalk Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package hwreg

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// Live is register storage backed by a memory location the hardware
// (or another agent) can change underneath us. Every Get and Set is
// a real atomic load or store, so the compiler can neither elide nor
// reorder accesses relative to hardware state changes. The atomics
// are relaxed: they order nothing across cores, they only make each
// access genuine.
//
// Live supports 32- and 64-bit registers only; sync/atomic has no
// narrower operations.
type Live struct {
	reg  *Register
	addr unsafe.Pointer
}

// LiveAt returns Live storage over the register word at addr. The
// location must be naturally aligned and must outlive the returned
// storage; it is borrowed, never owned. LiveAt panics if the
// register is narrower than 32 bits.
func (r *Register) LiveAt(addr unsafe.Pointer) Live {
	if r.width != 32 && r.width != 64 {
		panic(fmt.Sprintf("register %s: live storage requires width 32 or 64, have %d", r.name, r.width))
	}
	return Live{reg: r, addr: addr}
}

// Register implements Storage.Register.
func (l Live) Register() *Register {
	return l.reg
}

// Get implements Storage.Get.
//
//go:nosplit
func (l Live) Get() uint64 {
	if l.reg.width == 32 {
		return uint64(atomic.LoadUint32((*uint32)(l.addr)))
	}
	return atomic.LoadUint64((*uint64)(l.addr))
}

// Set implements Storage.Set.
//
//go:nosplit
func (l Live) Set(val uint64) {
	if l.reg.width == 32 {
		atomic.StoreUint32((*uint32)(l.addr), uint32(val))
		return
	}
	atomic.StoreUint64((*uint64)(l.addr), val)
}
