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

import "errors"

var (
	// ErrNoMapping indicates an address that hit an invalid descriptor
	// before reaching a leaf.
	ErrNoMapping = errors.New("address not mapped")

	// ErrNonCanonical indicates an address whose ignored high bits are
	// not uniform.
	ErrNonCanonical = errors.New("non-canonical address")
)

// Virt2Phy resolves one virtual address against the tables rooted at
// root and returns the mapping that covers it. The walk reads exactly
// one descriptor per level and never allocates.
func (g *Geometry) Virt2Phy(root uintptr, vaddr uint64) (VMMap, error) {
	if !g.IsCanonical(vaddr) {
		return VMMap{}, ErrNonCanonical
	}

	table := root
	for level := uint(0); level < g.numLevels; level++ {
		index := g.IndexOf(vaddr, level)
		raw := entryStorage(table, index).Get()

		typ, err := g.Classify(raw, level)
		if err != nil {
			return VMMap{}, err
		}
		switch typ {
		case DescriptorInvalid:
			return VMMap{}, ErrNoMapping
		case DescriptorTable:
			table = g.NextTable(raw)
		default:
			return g.vmMap(raw, level, vaddr, entryPointer(table, index)), nil
		}
	}
	// Unreachable: the last level never classifies as a table.
	return VMMap{}, ErrCorruptedTable
}

// vmMap builds the result record for a leaf descriptor found at the
// given level while resolving vaddr.
//
//go:nosplit
func (g *Geometry) vmMap(raw uint64, level uint, vaddr uint64, desc uintptr) VMMap {
	length := g.coverage[level]
	return VMMap{
		PhysicalAddress: g.outputAddress(raw, level),
		Length:          length,
		VirtualAddress:  vaddr &^ (length - 1),
		Descriptor:      desc,
	}
}
