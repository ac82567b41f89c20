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

	"pagewalk.dev/pagewalk/pkg/hwreg"
)

// Stage-1 descriptor attribute layout. The offsets and widths are
// hardware-defined and must not change: bit 0 valid, bit 1 type, low
// bits attributes, high bits execute-never and software use. The
// output-address and next-level-pointer fields are level-dependent
// and live on the per-level registers derived in NewGeometry.
//
// ATTR_INDEX and SW_USE are not interpreted by any operation here;
// they are declared to pin the layout and reserve their bit ranges,
// so a colliding field addition fails at init.
var (
	descReg = hwreg.MustNew("STAGE1_DESCRIPTOR", 64)

	descValid     = descReg.MustField("VALID", 0, 1)
	descType      = descReg.MustField("TYPE", 1, 1)
	descAttrIndex = descReg.MustField("ATTR_INDEX", 2, 3)
	descAP        = descReg.MustEnumField("AP", 6, 2, map[uint64]string{
		apRWEL1:    "RW_EL1",
		apRWEL1EL0: "RW_EL1_EL0",
		apROEL1:    "RO_EL1",
		apROEL1EL0: "RO_EL1_EL0",
	})
	descSH = descReg.MustEnumField("SH", 8, 2, map[uint64]string{
		shOuterShareable: "OuterShareable",
		shInnerShareable: "InnerShareable",
	})
	descAF    = descReg.MustField("AF", 10, 1)
	descPXN   = descReg.MustField("PXN", 53, 1)
	descUXN   = descReg.MustField("UXN", 54, 1)
	descSWUse = descReg.MustField("SW_USE", 55, 4)
)

const (
	// Access-permission encodings. One canonical mapping is used for
	// both the read-only and read-write paths.
	apRWEL1    = 0b00
	apRWEL1EL0 = 0b01
	apROEL1    = 0b10
	apROEL1EL0 = 0b11

	shOuterShareable = 0b10
	shInnerShareable = 0b11
)

// DescriptorType classifies one raw table entry.
type DescriptorType int

const (
	// DescriptorInvalid is an entry with the valid bit clear.
	DescriptorInvalid DescriptorType = iota

	// DescriptorTable points to a next-level table.
	DescriptorTable

	// DescriptorBlock maps a large region, terminating the walk at
	// an intermediate level.
	DescriptorBlock

	// DescriptorPage maps one granule at the last level.
	DescriptorPage
)

// String implements fmt.Stringer.String.
func (t DescriptorType) String() string {
	switch t {
	case DescriptorInvalid:
		return "invalid"
	case DescriptorTable:
		return "table"
	case DescriptorBlock:
		return "block"
	case DescriptorPage:
		return "page"
	default:
		return "unknown"
	}
}

// ErrCorruptedTable indicates a descriptor that is illegal at the
// level it was found: a block at the root or last level, or a walk
// that would recurse past the last level. It is a recoverable data
// error; the caller decides the consequence.
var ErrCorruptedTable = errors.New("corrupted translation table")

// Classify tags a raw descriptor found at the given level. Block
// descriptors are legal only strictly between the root and the last
// level; anywhere else they are corruption.
//
//go:nosplit
func (g *Geometry) Classify(raw uint64, level uint) (DescriptorType, error) {
	if descValid.Extract(raw) == 0 {
		return DescriptorInvalid, nil
	}
	if descType.Extract(raw) != 0 {
		if level == g.lastLevel() {
			return DescriptorPage, nil
		}
		return DescriptorTable, nil
	}
	if !g.blockAllowedAt(level) {
		return DescriptorBlock, ErrCorruptedTable
	}
	return DescriptorBlock, nil
}

func (g *Geometry) blockAllowedAt(level uint) bool {
	// A block also needs an output-address field at its level; start
	// bits at or above the output width leave no room for one.
	return level > 0 && level < g.lastLevel() && g.outFields[level] != nil
}

// outputAddress returns the physical base a leaf descriptor at the
// given level maps. The field sits at the level's start bit, so the
// in-place bits are the address.
//
//go:nosplit
func (g *Geometry) outputAddress(raw uint64, level uint) uint64 {
	f := g.outFields[level]
	return f.Extract(raw) << g.startBit[level]
}

// NextTable returns the table a table descriptor points to.
//
//go:nosplit
func (g *Geometry) NextTable(raw uint64) uintptr {
	return uintptr(g.nextField.Extract(raw) << g.cfg.GranuleBits)
}

// TableDescriptor builds a raw table descriptor pointing at next.
// next must be granule-aligned.
func (g *Geometry) TableDescriptor(next uintptr) uint64 {
	st := descReg.Snapshot(0)
	hwreg.ModifyNoRead(st, hwreg.NewFieldSet(descValid.Value(1), descType.Value(1)))

	ast := g.nextField.Register().Snapshot(st.Get())
	hwreg.Modify(ast, hwreg.NewFieldSet(g.nextField.Value(uint64(next)>>g.cfg.GranuleBits)))
	return ast.Get()
}

// LeafDescriptor builds a raw block or page descriptor mapping paddr
// at the given level with the given attributes. paddr must be
// aligned to the level's coverage.
func (g *Geometry) LeafDescriptor(level uint, paddr uint64, perms AccessPermissions, kind MemoryKind) uint64 {
	typ := uint64(0) // block
	if level == g.lastLevel() {
		typ = 1 // page
	}

	st := descReg.Snapshot(EncodeAttributes(perms, kind))
	hwreg.Modify(st, hwreg.NewFieldSet(
		descValid.Value(1),
		descType.Value(typ),
		descAF.Value(1),
	))

	f := g.outFields[level]
	ast := f.Register().Snapshot(st.Get())
	hwreg.Modify(ast, hwreg.NewFieldSet(f.Value(paddr>>g.startBit[level])))
	return ast.Get()
}
