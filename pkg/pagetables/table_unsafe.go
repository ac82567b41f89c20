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
	"unsafe"

	"pagewalk.dev/pagewalk/pkg/hwreg"
)

// Descriptor tables are owned by the external VM manager; the engine
// only ever borrows them by address. These helpers are the single
// place that turns a borrowed table address into real memory
// accesses, always through the relaxed-atomic Live backend.

// entryPointer returns the address of entry index in the table.
//
//go:nosplit
func entryPointer(table uintptr, index uint) uintptr {
	return table + uintptr(index)*descriptorBytes
}

// entryStorage returns Live register storage over one table entry.
// Every Get/Set on it is a genuine atomic load/store.
//
//go:nosplit
func entryStorage(table uintptr, index uint) hwreg.Live {
	return descReg.LiveAt(unsafe.Pointer(entryPointer(table, index)))
}

// LoadEntry returns the raw descriptor at index in the table.
//
//go:nosplit
func LoadEntry(table uintptr, index uint) uint64 {
	return entryStorage(table, index).Get()
}

// StoreEntry replaces the raw descriptor at index in the table.
//
//go:nosplit
func StoreEntry(table uintptr, index uint, raw uint64) {
	entryStorage(table, index).Set(raw)
}

// pointerAt converts a borrowed descriptor address back to a pointer
// for register storage. Kept here so the unsafe conversion has one
// home.
//
//go:nosplit
func pointerAt(addr uintptr) unsafe.Pointer {
	return unsafe.Pointer(addr)
}
