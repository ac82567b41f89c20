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

// Package pagetables implements a multi-level hardware page-table
// geometry, the stage-1 descriptor codec, and a traversal/lookup
// engine over descriptor tables owned by an external VM manager.
//
// The engine never allocates: point lookup walks at most one
// descriptor per level, and ranged traversal suspends into a small
// fixed cursor array inside the caller-provided TraverseContext.
// Descriptor-table memory is only ever borrowed by address; every
// raw entry access goes through a relaxed-atomic register backend so
// hardware-visible loads and stores are genuine.
package pagetables

import "fmt"

const (
	// maxLevels bounds the depth of any supported geometry, and with
	// it the size of a suspended walker.
	maxLevels = 8

	// descriptorBytes is the size of one raw table entry.
	descriptorBytes = 8
)

// Config holds the five translation-control parameters a geometry is
// derived from. All fields are fixed for the lifetime of a geometry.
type Config struct {
	// VABits is the virtual address width: 32 or 64.
	VABits uint

	// VASpaceBits is the number of translated low bits of a virtual
	// address.
	VASpaceBits uint

	// TopByteIgnore excludes the top byte of an address from
	// canonicality checks.
	TopByteIgnore bool

	// GranuleBits is log2 of the granule: the page size, the table
	// size, and the alignment of every table.
	GranuleBits uint

	// MaxBitsPerLevel caps how many address bits one level resolves.
	MaxBitsPerLevel uint
}

// validate rejects malformed translation controls. This runs before
// any geometry is derived; a Config that passes can never fail at
// translation time.
func (c Config) validate() error {
	if c.VABits != 32 && c.VABits != 64 {
		return fmt.Errorf("VABits must be 32 or 64, have %d", c.VABits)
	}
	if c.VASpaceBits == 0 || c.VASpaceBits+9 > c.VABits {
		return fmt.Errorf("VASpaceBits %d leaves fewer than 9 unused bits of a %d-bit address", c.VASpaceBits, c.VABits)
	}
	if c.TopByteIgnore && c.VASpaceBits+16 > c.VABits {
		return fmt.Errorf("VASpaceBits %d leaves no ignored bits above the top byte", c.VASpaceBits)
	}
	if c.GranuleBits == 0 || c.GranuleBits > 32 {
		return fmt.Errorf("GranuleBits %d out of range", c.GranuleBits)
	}
	if c.GranuleBits >= c.VASpaceBits {
		return fmt.Errorf("GranuleBits %d consumes the whole %d-bit address space", c.GranuleBits, c.VASpaceBits)
	}
	if c.MaxBitsPerLevel == 0 || c.MaxBitsPerLevel >= c.VASpaceBits {
		return fmt.Errorf("MaxBitsPerLevel %d out of range for a %d-bit address space", c.MaxBitsPerLevel, c.VASpaceBits)
	}
	// A table must fit in one granule: 1<<bits descriptors of 8 bytes
	// each. No level resolves more than MaxBitsPerLevel bits, so this
	// bounds every table, the root included.
	if c.MaxBitsPerLevel+3 > c.GranuleBits {
		return fmt.Errorf("a table of %d-bit indexes does not fit in a %d-bit granule", c.MaxBitsPerLevel, c.GranuleBits)
	}
	budget := c.VASpaceBits - c.GranuleBits
	if levels := (budget + c.MaxBitsPerLevel - 1) / c.MaxBitsPerLevel; levels > maxLevels {
		return fmt.Errorf("%d translation levels exceed the supported maximum %d", levels, maxLevels)
	}
	return nil
}
