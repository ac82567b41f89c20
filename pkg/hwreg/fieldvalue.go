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

package hwreg

import (
	"fmt"

	"pagewalk.dev/pagewalk/pkg/bits"
)

// FieldValue pairs a field with an in-range natural value.
type FieldValue struct {
	field *Field
	value uint64
}

// Value returns a FieldValue holding v. It panics if v does not fit
// in the field: an out-of-range value is a programming bug, not an
// environment condition, and must never be silently truncated.
func (f *Field) Value(v uint64) FieldValue {
	if f.numBits < 64 && v >= bits.MaskOf64(f.numBits) {
		panic(fmt.Sprintf("register %s: field %s: value %#x exceeds %d bits",
			f.reg.name, f.name, v, f.numBits))
	}
	return FieldValue{field: f, value: v}
}

// EnumValue returns the FieldValue for the named enum tag. It panics
// if the field has no such tag declared.
func (f *Field) EnumValue(tag string) FieldValue {
	for v, t := range f.enums {
		if t == tag {
			return FieldValue{field: f, value: v}
		}
	}
	panic(fmt.Sprintf("register %s: field %s: no enum tag %q", f.reg.name, f.name, tag))
}

// Field returns the field this value belongs to.
func (fv FieldValue) Field() *Field {
	return fv.field
}

// Natural returns the unshifted value.
func (fv FieldValue) Natural() uint64 {
	return fv.value
}

// Shifted returns the value positioned at the field's offset.
func (fv FieldValue) Shifted() uint64 {
	return fv.value << fv.field.offset
}

// FieldSet accumulates a clear mask and an or-value from field
// values of a single register. Applying it to register contents
// computes (old &^ clear) | update.
type FieldSet struct {
	reg    *Register
	clear  uint64
	update uint64
}

// NewFieldSet returns a FieldSet combining the given field values.
// All values must belong to the same register.
func NewFieldSet(fvs ...FieldValue) FieldSet {
	var s FieldSet
	for _, fv := range fvs {
		s.Add(fv)
	}
	return s
}

// Add merges a field value into the set.
func (s *FieldSet) Add(fv FieldValue) {
	if s.reg == nil {
		s.reg = fv.field.reg
	} else if s.reg != fv.field.reg {
		panic(fmt.Sprintf("field set for register %s: cannot add field %s of register %s",
			s.reg.name, fv.field.name, fv.field.reg.name))
	}
	s.clear |= fv.field.Mask()
	s.update |= fv.Shifted()
}

// Remove drops a field from the set. The value carried by fv is
// ignored; only the field's bit range matters.
func (s *FieldSet) Remove(fv FieldValue) {
	mask := fv.field.Mask()
	s.clear &^= mask
	s.update &^= mask
}

// Merge adds every field of rhs into the set.
func (s *FieldSet) Merge(rhs FieldSet) {
	if s.reg == nil {
		s.reg = rhs.reg
	} else if rhs.reg != nil && s.reg != rhs.reg {
		panic(fmt.Sprintf("field set for register %s: cannot merge set for register %s",
			s.reg.name, rhs.reg.name))
	}
	s.clear |= rhs.clear
	s.update |= rhs.update
}

// Apply returns old with the set's fields replaced.
func (s FieldSet) Apply(old uint64) uint64 {
	return (old &^ s.clear) | s.update
}
