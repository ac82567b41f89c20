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

package pagetables

import (
	"fmt"
	"unsafe"
)

// RuntimeAllocator hands out descriptor tables backed by ordinary Go
// heap memory. It is intended for tests and tooling; a real VM
// manager brings its own physical-page allocator.
type RuntimeAllocator struct {
	granule uintptr

	// blocks pins each table's backing slice against the garbage
	// collector, keyed by the aligned table address.
	blocks map[uintptr][]byte
}

// NewRuntimeAllocator returns an allocator producing tables of
// g.GranuleSize() bytes.
func NewRuntimeAllocator(g *Geometry) *RuntimeAllocator {
	return &RuntimeAllocator{
		granule: uintptr(g.GranuleSize()),
		blocks:  make(map[uintptr][]byte),
	}
}

// NewTable implements Allocator.NewTable. Go's allocator gives no
// alignment control, so each table over-allocates and aligns up
// within its block.
func (a *RuntimeAllocator) NewTable() (uintptr, error) {
	block := make([]byte, 2*a.granule)
	addr := uintptr(unsafe.Pointer(&block[0]))
	if off := addr & (a.granule - 1); off != 0 {
		addr += a.granule - off
	}
	a.blocks[addr] = block
	return addr, nil
}

// FreeTable implements Allocator.FreeTable.
func (a *RuntimeAllocator) FreeTable(table uintptr) {
	if _, ok := a.blocks[table]; !ok {
		panic(fmt.Sprintf("freeing unknown table %#x", table))
	}
	delete(a.blocks, table)
}

// Size returns the number of live tables.
func (a *RuntimeAllocator) Size() int {
	return len(a.blocks)
}
