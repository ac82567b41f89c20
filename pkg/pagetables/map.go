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
	"errors"
	"fmt"
)

// Allocator provides descriptor tables for map construction. Tables
// must be one granule in size, granule-aligned and zeroed.
type Allocator interface {
	// NewTable returns the address of a fresh table.
	NewTable() (uintptr, error)

	// FreeTable releases a table obtained from NewTable.
	FreeTable(table uintptr)
}

var (
	// ErrMappingExists indicates a map request that collides with an
	// existing mapping.
	ErrMappingExists = errors.New("mapping already exists")

	// ErrMisaligned indicates an address not aligned to the requested
	// mapping size.
	ErrMisaligned = errors.New("misaligned address")
)

// MapAt installs a single leaf descriptor mapping vaddr to paddr at
// the given level, allocating intermediate tables as needed. level
// must be the last level or one where blocks are legal; vaddr and
// paddr must be aligned to the level's coverage. An existing mapping
// or intermediate leaf in the way returns ErrMappingExists.
func (g *Geometry) MapAt(alloc Allocator, root uintptr, level uint, vaddr, paddr uint64, perms AccessPermissions, kind MemoryKind) error {
	if level != g.lastLevel() && !g.blockAllowedAt(level) {
		return fmt.Errorf("no leaf descriptor is legal at level %d", level)
	}
	if !g.IsCanonical(vaddr) {
		return ErrNonCanonical
	}
	size := g.coverage[level]
	if vaddr&(size-1) != 0 || paddr&(size-1) != 0 {
		return ErrMisaligned
	}

	table := root
	for l := uint(0); l < level; l++ {
		index := g.IndexOf(vaddr, l)
		st := entryStorage(table, index)
		raw := st.Get()

		typ, err := g.Classify(raw, l)
		if err != nil {
			return err
		}
		switch typ {
		case DescriptorInvalid:
			next, err := alloc.NewTable()
			if err != nil {
				return err
			}
			st.Set(g.TableDescriptor(next))
			table = next
		case DescriptorTable:
			table = g.NextTable(raw)
		default:
			// A larger mapping already covers vaddr.
			return ErrMappingExists
		}
	}

	st := entryStorage(table, g.IndexOf(vaddr, level))
	typ, err := g.Classify(st.Get(), level)
	if err != nil {
		return err
	}
	if typ != DescriptorInvalid {
		return ErrMappingExists
	}
	st.Set(g.LeafDescriptor(level, paddr, perms, kind))
	return nil
}

// Map installs last-level page mappings covering [vaddr, vaddr+length)
// onto [paddr, paddr+length). length must be a whole number of
// granules and both bases granule-aligned. On error part of the range
// may remain mapped.
func (g *Geometry) Map(alloc Allocator, root uintptr, vaddr, paddr, length uint64, perms AccessPermissions, kind MemoryKind) error {
	granule := g.GranuleSize()
	if vaddr&(granule-1) != 0 || paddr&(granule-1) != 0 || length&(granule-1) != 0 {
		return ErrMisaligned
	}
	last := g.lastLevel()
	for off := uint64(0); off < length; off += granule {
		if err := g.MapAt(alloc, root, last, vaddr+off, paddr+off, perms, kind); err != nil {
			return fmt.Errorf("mapping %#x: %w", vaddr+off, err)
		}
	}
	return nil
}

// Unmap clears the leaf descriptor covering vaddr and returns the
// mapping it removed. Intermediate tables are left in place; a
// subsequent collecting traversal finds the ones that became empty.
func (g *Geometry) Unmap(root uintptr, vaddr uint64) (VMMap, error) {
	m, err := g.Virt2Phy(root, vaddr)
	if err != nil {
		return VMMap{}, err
	}
	descReg.LiveAt(pointerAt(m.Descriptor)).Set(0)
	return m, nil
}
