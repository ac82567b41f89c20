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

// VMMap describes one mapped region found in the tables. It is a
// transient result value, not owned engine state: Descriptor refers
// back into table memory owned by the VM manager and is only valid
// while that table is.
type VMMap struct {
	// PhysicalAddress is the physical base of the region.
	PhysicalAddress uint64

	// Length is the region length: the coverage of the descriptor's
	// level.
	Length uint64

	// VirtualAddress is the virtual base of the region.
	VirtualAddress uint64

	// Descriptor is the address of the raw descriptor this mapping
	// came from.
	Descriptor uintptr
}

// Translate returns the physical address vaddr maps to within this
// region: the output address with the low in-region offset bits of
// vaddr merged in.
func (m VMMap) Translate(vaddr uint64) uint64 {
	return m.PhysicalAddress | (vaddr & (m.Length - 1))
}
