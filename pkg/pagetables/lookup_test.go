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
	"testing"
)

// twoLevel translates a 1 GiB space with 4K granules.
var twoLevel = Config{
	VABits:          64,
	VASpaceBits:     30,
	GranuleBits:     12,
	MaxBitsPerLevel: 9,
}

var rwNormal = AccessPermissions{PrivilegedRead: true, PrivilegedWrite: true}

func TestVirt2Phy(t *testing.T) {
	g := MustGeometry(twoLevel)
	alloc := NewRuntimeAllocator(g)
	root, err := alloc.NewTable()
	if err != nil {
		t.Fatal(err)
	}

	const (
		vaddr = uint64(0x0040_0000)
		paddr = uint64(0x1234_5000)
	)
	if err := g.Map(alloc, root, vaddr, paddr, 0x1000, rwNormal, MemoryNormal); err != nil {
		t.Fatalf("Map failed: %v", err)
	}

	m, err := g.Virt2Phy(root, vaddr+0x123)
	if err != nil {
		t.Fatalf("Virt2Phy failed: %v", err)
	}
	if m.PhysicalAddress != paddr || m.Length != 0x1000 || m.VirtualAddress != vaddr {
		t.Errorf("Virt2Phy = %+v, want pa %#x len %#x va %#x", m, paddr, uint64(0x1000), vaddr)
	}
	if got := m.Translate(vaddr + 0x123); got != paddr+0x123 {
		t.Errorf("Translate = %#x, want %#x", got, paddr+0x123)
	}
}

func TestVirt2PhyErrors(t *testing.T) {
	g := MustGeometry(twoLevel)
	alloc := NewRuntimeAllocator(g)
	root, err := alloc.NewTable()
	if err != nil {
		t.Fatal(err)
	}
	if err := g.Map(alloc, root, 0x0040_0000, 0x1000_0000, 0x1000, rwNormal, MemoryNormal); err != nil {
		t.Fatalf("Map failed: %v", err)
	}

	// A hole in a table the walk does reach.
	if _, err := g.Virt2Phy(root, 0x0040_1000); !errors.Is(err, ErrNoMapping) {
		t.Errorf("hole in mapped table: err = %v, want ErrNoMapping", err)
	}
	// A subtree that does not exist at all.
	if _, err := g.Virt2Phy(root, 0x2000_0000); !errors.Is(err, ErrNoMapping) {
		t.Errorf("absent subtree: err = %v, want ErrNoMapping", err)
	}
	if _, err := g.Virt2Phy(root, uint64(1)<<32); !errors.Is(err, ErrNonCanonical) {
		t.Errorf("non-canonical: err = %v, want ErrNonCanonical", err)
	}

	// A valid non-table descriptor at the root is corruption in a
	// geometry where root blocks are illegal.
	bad := g.LeafDescriptor(1, 0, rwNormal, MemoryNormal)
	entryStorage(root, g.IndexOf(0x1000_0000, 0)).Set(bad &^ (1 << 1))
	if _, err := g.Virt2Phy(root, 0x1000_0000); !errors.Is(err, ErrCorruptedTable) {
		t.Errorf("root block: err = %v, want ErrCorruptedTable", err)
	}
}

func TestVirt2PhyBlock(t *testing.T) {
	g := MustGeometry(threeLevel)
	alloc := NewRuntimeAllocator(g)
	root, err := alloc.NewTable()
	if err != nil {
		t.Fatal(err)
	}

	blockSize := g.CoveragePerEntry(1)
	const (
		vaddr = uint64(0x4000_0000)
		paddr = uint64(0x8_0000_0000)
	)
	if err := g.MapAt(alloc, root, 1, vaddr, paddr, rwNormal, MemoryNormal); err != nil {
		t.Fatalf("MapAt failed: %v", err)
	}

	m, err := g.Virt2Phy(root, vaddr+blockSize/2)
	if err != nil {
		t.Fatalf("Virt2Phy failed: %v", err)
	}
	if m.PhysicalAddress != paddr || m.Length != blockSize || m.VirtualAddress != vaddr {
		t.Errorf("Virt2Phy = %+v, want pa %#x len %#x va %#x", m, paddr, blockSize, vaddr)
	}

	// A page cannot be installed under the block.
	err = g.MapAt(alloc, root, 2, vaddr+0x1000, 0x9000, rwNormal, MemoryNormal)
	if !errors.Is(err, ErrMappingExists) {
		t.Errorf("page under block: err = %v, want ErrMappingExists", err)
	}
}

func TestMapErrors(t *testing.T) {
	g := MustGeometry(twoLevel)
	alloc := NewRuntimeAllocator(g)
	root, err := alloc.NewTable()
	if err != nil {
		t.Fatal(err)
	}

	if err := g.Map(alloc, root, 0x0040_0000, 0x1000_0000, 0x1000, rwNormal, MemoryNormal); err != nil {
		t.Fatalf("Map failed: %v", err)
	}
	if err := g.Map(alloc, root, 0x0040_0000, 0x2000_0000, 0x1000, rwNormal, MemoryNormal); !errors.Is(err, ErrMappingExists) {
		t.Errorf("remap: err = %v, want ErrMappingExists", err)
	}
	if err := g.Map(alloc, root, 0x0040_0100, 0x1000_0000, 0x1000, rwNormal, MemoryNormal); !errors.Is(err, ErrMisaligned) {
		t.Errorf("misaligned va: err = %v, want ErrMisaligned", err)
	}
	if err := g.MapAt(alloc, root, 0, 0, 0, rwNormal, MemoryNormal); err == nil {
		t.Error("MapAt at the root level succeeded, want error")
	}
}

func TestUnmap(t *testing.T) {
	g := MustGeometry(twoLevel)
	alloc := NewRuntimeAllocator(g)
	root, err := alloc.NewTable()
	if err != nil {
		t.Fatal(err)
	}

	const vaddr = uint64(0x0040_0000)
	if err := g.Map(alloc, root, vaddr, 0x1000_0000, 0x1000, rwNormal, MemoryNormal); err != nil {
		t.Fatalf("Map failed: %v", err)
	}
	m, err := g.Unmap(root, vaddr)
	if err != nil {
		t.Fatalf("Unmap failed: %v", err)
	}
	if m.PhysicalAddress != 0x1000_0000 {
		t.Errorf("Unmap returned pa %#x, want %#x", m.PhysicalAddress, uint64(0x1000_0000))
	}
	if _, err := g.Virt2Phy(root, vaddr); !errors.Is(err, ErrNoMapping) {
		t.Errorf("after Unmap: err = %v, want ErrNoMapping", err)
	}
}
