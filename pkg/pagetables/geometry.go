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

	"pagewalk.dev/pagewalk/pkg/bits"
	"pagewalk.dev/pagewalk/pkg/hwreg"
)

// outputAddrCap caps the output-address width of a descriptor. The
// stage-1 format carries at most 48 output-address bits; the high
// descriptor bits above that hold attributes.
const outputAddrCap = 48

// Geometry is the page-table shape derived from a Config: the number
// of levels and, per level, the index width, start bit, entry count
// and output coverage. A Geometry is immutable once derived and
// stateless across operations; all traversal state lives in the
// caller's TraverseContext.
type Geometry struct {
	cfg Config

	numLevels uint
	bits      [maxLevels]uint
	startBit  [maxLevels]uint
	entries   [maxLevels]uint
	coverage  [maxLevels]uint64

	// outBits is the width of output addresses and next-level
	// pointers carried by descriptors, fixed at outputAddrCap.
	outBits uint

	// outFields[l] is the output-address field of a leaf descriptor
	// at level l; nil where no leaf can exist.
	outFields [maxLevels]*hwreg.Field

	// nextField is the next-level pointer field of a table
	// descriptor.
	nextField *hwreg.Field
}

// NewGeometry derives the table geometry for the given translation
// control. The per-level bit budget is filled greedily from
// MaxBitsPerLevel with any smaller remainder placed last, then the
// first and last entries are swapped: the root level absorbs the
// leftover remainder, never the leaf level.
func NewGeometry(cfg Config) (*Geometry, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid translation control: %w", err)
	}

	g := &Geometry{cfg: cfg}
	budget := cfg.VASpaceBits - cfg.GranuleBits
	g.numLevels = (budget + cfg.MaxBitsPerLevel - 1) / cfg.MaxBitsPerLevel

	rem := budget
	for i := uint(0); i < g.numLevels; i++ {
		cur := cfg.MaxBitsPerLevel
		if rem < cur {
			cur = rem
		}
		g.bits[i] = cur
		rem -= cur
	}
	if rem != 0 {
		panic("translation bit budget not consumed by level derivation")
	}
	g.bits[0], g.bits[g.numLevels-1] = g.bits[g.numLevels-1], g.bits[0]

	g.startBit[0] = cfg.VASpaceBits - g.bits[0]
	for i := uint(1); i < g.numLevels; i++ {
		g.startBit[i] = g.startBit[i-1] - g.bits[i]
	}
	for i := uint(0); i < g.numLevels; i++ {
		g.entries[i] = uint(1) << g.bits[i]
		g.coverage[i] = uint64(1) << g.startBit[i]
	}

	// Output addresses are physical and carry the full 48-bit field
	// regardless of the virtual address space width.
	g.outBits = outputAddrCap
	for l := uint(0); l < g.numLevels; l++ {
		if g.startBit[l] >= g.outBits {
			continue
		}
		r := hwreg.MustNew(fmt.Sprintf("STAGE1_L%d_ADDR", l), 64)
		g.outFields[l] = r.MustField("OUTPUT_ADDR", g.startBit[l], g.outBits-g.startBit[l])
	}
	tableReg := hwreg.MustNew("STAGE1_TABLE_ADDR", 64)
	g.nextField = tableReg.MustField("NEXT_LEVEL_TABLE_ADDR", cfg.GranuleBits, g.outBits-cfg.GranuleBits)

	return g, nil
}

// MustGeometry is like NewGeometry but panics on an invalid Config.
func MustGeometry(cfg Config) *Geometry {
	g, err := NewGeometry(cfg)
	if err != nil {
		panic(err)
	}
	return g
}

// Config returns the translation control this geometry was derived
// from.
func (g *Geometry) Config() Config {
	return g.cfg
}

// NumLevels returns the number of translation levels. Level 0 is the
// root.
func (g *Geometry) NumLevels() uint {
	return g.numLevels
}

// BitsPerLevel returns how many address bits the given level
// resolves.
func (g *Geometry) BitsPerLevel(level uint) uint {
	return g.bits[level]
}

// StartBit returns the lowest virtual-address bit indexed by the
// given level.
func (g *Geometry) StartBit(level uint) uint {
	return g.startBit[level]
}

// EntriesPerLevel returns the number of descriptors in a table at
// the given level.
func (g *Geometry) EntriesPerLevel(level uint) uint {
	return g.entries[level]
}

// CoveragePerEntry returns the span of virtual address space one
// entry at the given level represents.
func (g *Geometry) CoveragePerEntry(level uint) uint64 {
	return g.coverage[level]
}

// GranuleSize returns the granule in bytes.
func (g *Geometry) GranuleSize() uint64 {
	return uint64(1) << g.cfg.GranuleBits
}

// IndexOf extracts the table index the given level uses from a
// virtual address.
//
//go:nosplit
func (g *Geometry) IndexOf(vaddr uint64, level uint) uint {
	return uint(bits.Extract64(vaddr, g.startBit[level], g.bits[level]))
}

func (g *Geometry) lastLevel() uint {
	return g.numLevels - 1
}

// unusedMSB is the number of ignored high address bits, excluding
// the top byte when it is ignored wholesale.
func (g *Geometry) unusedMSB() uint {
	n := g.cfg.VABits - g.cfg.VASpaceBits
	if g.cfg.TopByteIgnore {
		n -= 8
	}
	return n
}

// IgnoredBits extracts the ignored high bits of an address, the ones
// a canonical address keeps uniform.
func (g *Geometry) IgnoredBits(vaddr uint64) uint64 {
	return bits.Extract64(vaddr, g.cfg.VASpaceBits, g.unusedMSB())
}

// TopByte extracts the top byte of an address.
func (g *Geometry) TopByte(vaddr uint64) uint64 {
	return bits.Extract64(vaddr, g.cfg.VABits-8, 8)
}

// IsCanonical reports whether the ignored high bits of vaddr are
// uniform (all zero or all one). Under TopByteIgnore the top byte is
// exempt.
func (g *Geometry) IsCanonical(vaddr uint64) bool {
	n := g.unusedMSB()
	if n == 0 {
		return true
	}
	hb := g.IgnoredBits(vaddr)
	return hb == 0 || hb == bits.MaskRange64(0, n)
}

// moveRight aligns vaddr down to the given level's coverage and
// advances it by one entry.
//
//go:nosplit
func (g *Geometry) moveRight(vaddr uint64, level uint) uint64 {
	return bits.Clear64(vaddr, 0, g.startBit[level]) + g.coverage[level]
}
