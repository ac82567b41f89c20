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

// Package bits provides the bit primitives the register and
// translation layers are built on. All operations work on uint64
// words; narrower registers are held in the low bits of a word.
package bits

// MaskRange64 returns a mask of count contiguous bits starting at
// offset. count == 64 with offset == 0 yields an all-ones mask.
func MaskRange64(offset, count uint) uint64 {
	return ^(^uint64(0) << count) << offset
}

// MaskOf64 returns a mask with only bit i set.
func MaskOf64(i uint) uint64 {
	return uint64(1) << i
}

// Get64 returns the bits of val in [offset, offset+count), kept in
// place (not shifted down).
func Get64(val uint64, offset, count uint) uint64 {
	return val & MaskRange64(offset, count)
}

// Extract64 returns the bits of val in [offset, offset+count),
// shifted down to bit 0.
func Extract64(val uint64, offset, count uint) uint64 {
	return (val >> offset) & MaskRange64(0, count)
}

// Clear64 returns val with the bits in [offset, offset+count)
// cleared.
func Clear64(val uint64, offset, count uint) uint64 {
	return val &^ MaskRange64(offset, count)
}

// Set64 returns old with the bits in [offset, offset+count) replaced
// by the corresponding bits of update.
func Set64(old, update uint64, offset, count uint) uint64 {
	return Clear64(old, offset, count) | Get64(update, offset, count)
}

// IsOn64 returns true if *all* bits set in 'bits' are set in 'mask'.
func IsOn64(mask, bits uint64) bool {
	return mask&bits == bits
}

// IsAnyOn64 returns true if *any* bit set in 'bits' is set in 'mask'.
func IsAnyOn64(mask, bits uint64) bool {
	return mask&bits != 0
}
