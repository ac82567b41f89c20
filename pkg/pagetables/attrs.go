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

import "pagewalk.dev/pagewalk/pkg/hwreg"

// AccessPermissions describes what privileged (EL1) and unprivileged
// (EL0) code may do with a mapping. Execute permission is derived
// from the absence of the matching execute-never descriptor bit; it
// is never stored directly.
type AccessPermissions struct {
	PrivilegedRead  bool
	PrivilegedWrite bool
	// PrivilegedExecute is true when PXN is clear.
	PrivilegedExecute bool

	UnprivilegedRead  bool
	UnprivilegedWrite bool
	// UnprivilegedExecute is true when UXN is clear.
	UnprivilegedExecute bool
}

// MemoryKind is the kind of memory behind a mapping.
type MemoryKind uint8

const (
	// MemoryNormal is cacheable normal memory.
	MemoryNormal MemoryKind = iota

	// MemoryDevice is device memory, marked outer-shareable in the
	// descriptor.
	MemoryDevice
)

// String implements fmt.Stringer.String.
func (k MemoryKind) String() string {
	if k == MemoryDevice {
		return "device"
	}
	return "normal"
}

// DecodeAttributes reads the access permissions and memory kind out
// of a raw leaf descriptor. The inverse of EncodeAttributes.
func DecodeAttributes(raw uint64) (AccessPermissions, MemoryKind) {
	st := descReg.Snapshot(raw)

	var p AccessPermissions
	switch hwreg.Read(descAP, st) {
	case apRWEL1:
		p.PrivilegedRead = true
		p.PrivilegedWrite = true
	case apRWEL1EL0:
		p.PrivilegedRead = true
		p.PrivilegedWrite = true
		p.UnprivilegedRead = true
		p.UnprivilegedWrite = true
	case apROEL1:
		p.PrivilegedRead = true
	case apROEL1EL0:
		p.PrivilegedRead = true
		p.UnprivilegedRead = true
	}
	p.PrivilegedExecute = hwreg.Read(descPXN, st) == 0
	p.UnprivilegedExecute = hwreg.Read(descUXN, st) == 0

	kind := MemoryNormal
	if hwreg.MatchesAll(st, descSH.EnumValue("OuterShareable")) {
		kind = MemoryDevice
	}
	return p, kind
}

// EncodeAttributes builds the attribute bits of a leaf descriptor.
// DecodeAttributes(EncodeAttributes(p, k)) returns (p, k) for every
// encoder-reachable pair.
func EncodeAttributes(p AccessPermissions, kind MemoryKind) uint64 {
	var ap uint64
	switch {
	case p.PrivilegedWrite && p.UnprivilegedWrite:
		ap = apRWEL1EL0
	case p.PrivilegedWrite:
		ap = apRWEL1
	case p.UnprivilegedRead:
		ap = apROEL1EL0
	default:
		ap = apROEL1
	}

	sh := descSH.EnumValue("InnerShareable")
	if kind == MemoryDevice {
		sh = descSH.EnumValue("OuterShareable")
	}

	fs := hwreg.NewFieldSet(
		descAP.Value(ap),
		sh,
		descPXN.Value(boolBit(!p.PrivilegedExecute)),
		descUXN.Value(boolBit(!p.UnprivilegedExecute)),
	)

	st := descReg.Snapshot(0)
	hwreg.ModifyNoRead(st, fs)
	return st.Get()
}

func boolBit(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
