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

// Package hwreg models hardware and software registers as static
// descriptions of named bit-fields, with range-checked field values
// and composable modification sets.
//
// Register and field declarations are validated when they are
// constructed. The intended idiom is package-level variables built
// with MustNew/MustField, so a malformed declaration (a field
// exceeding the register width, or two fields with intersecting bit
// ranges) aborts the program at init, before any code that could
// read or write the register has run. New/NewField are the
// error-returning forms.
package hwreg

import (
	"fmt"

	"pagewalk.dev/pagewalk/pkg/bits"
)

// Register is a static description of a register: a name, a bit
// width, and a set of pairwise disjoint fields. A Register never
// holds register contents; see Storage.
type Register struct {
	name  string
	width uint

	// fieldMask is the union of all declared field masks, used to
	// reject overlapping declarations.
	fieldMask uint64
}

// New returns a new register description. width must be one of 8,
// 16, 32 or 64.
func New(name string, width uint) (*Register, error) {
	switch width {
	case 8, 16, 32, 64:
	default:
		return nil, fmt.Errorf("register %s: unsupported width %d", name, width)
	}
	return &Register{name: name, width: width}, nil
}

// MustNew is like New but panics on a malformed declaration. It is
// intended for package-level register declarations.
func MustNew(name string, width uint) *Register {
	r, err := New(name, width)
	if err != nil {
		panic(err)
	}
	return r
}

// Name returns the register's name.
func (r *Register) Name() string {
	return r.name
}

// Width returns the register's width in bits.
func (r *Register) Width() uint {
	return r.width
}

// Field is a named bit range [Offset, Offset+NumBits) of one
// register, optionally carrying an enum mapping for its values.
type Field struct {
	reg     *Register
	name    string
	offset  uint
	numBits uint

	// enums maps field values to tags; nil for plain fields.
	enums map[uint64]string
}

// NewField declares a field on r. The field must lie within the
// register width and must not intersect any previously declared
// field.
func (r *Register) NewField(name string, offset, numBits uint) (*Field, error) {
	if numBits == 0 {
		return nil, fmt.Errorf("register %s: field %s has zero width", r.name, name)
	}
	if offset+numBits > r.width {
		return nil, fmt.Errorf("register %s: field %s [%d, %d) exceeds register width %d",
			r.name, name, offset, offset+numBits, r.width)
	}
	mask := bits.MaskRange64(offset, numBits)
	if bits.IsAnyOn64(r.fieldMask, mask) {
		return nil, fmt.Errorf("register %s: field %s [%d, %d) overlaps an existing field",
			r.name, name, offset, offset+numBits)
	}
	r.fieldMask |= mask
	return &Field{reg: r, name: name, offset: offset, numBits: numBits}, nil
}

// MustField is like NewField but panics on a malformed declaration.
func (r *Register) MustField(name string, offset, numBits uint) *Field {
	f, err := r.NewField(name, offset, numBits)
	if err != nil {
		panic(err)
	}
	return f
}

// MustEnumField declares a field whose values carry tags. Values not
// present in the mapping read back as "no tag" from ReadEnum.
func (r *Register) MustEnumField(name string, offset, numBits uint, enums map[uint64]string) *Field {
	f := r.MustField(name, offset, numBits)
	f.enums = make(map[uint64]string, len(enums))
	for v, tag := range enums {
		if numBits < 64 && v >= bits.MaskOf64(numBits) {
			panic(fmt.Sprintf("register %s: field %s: enum %s value %#x exceeds %d bits",
				r.name, name, tag, v, numBits))
		}
		f.enums[v] = tag
	}
	return f
}

// Register returns the register this field belongs to.
func (f *Field) Register() *Register {
	return f.reg
}

// Name returns the field's name.
func (f *Field) Name() string {
	return f.name
}

// Offset returns the field's bit offset within the register.
func (f *Field) Offset() uint {
	return f.offset
}

// NumBits returns the field's width in bits.
func (f *Field) NumBits() uint {
	return f.numBits
}

// Mask returns the field's positioned bit mask.
func (f *Field) Mask() uint64 {
	return bits.MaskRange64(f.offset, f.numBits)
}

// Extract returns the field's natural value from a raw register
// word, without going through a Storage. This is the hot-path form:
// it performs no load and cannot allocate.
//
//go:nosplit
func (f *Field) Extract(word uint64) uint64 {
	return bits.Extract64(word, f.offset, f.numBits)
}
