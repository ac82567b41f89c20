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

import "fmt"

func checkSame(f *Field, s Storage) {
	if f.reg != s.Register() {
		panic(fmt.Sprintf("field %s belongs to register %s, storage holds %s",
			f.name, f.reg.name, s.Register().name))
	}
}

// Read returns the field's bits from the current storage contents,
// shifted down to their natural value.
func Read(f *Field, s Storage) uint64 {
	checkSame(f, s)
	return (s.Get() & f.Mask()) >> f.offset
}

// ReadEnum returns the tag for the field's current value, or
// ok=false when the bits match no declared enum case.
func ReadEnum(f *Field, s Storage) (tag string, ok bool) {
	tag, ok = f.enums[Read(f, s)]
	return tag, ok
}

// Modify does a read-modify-write of the storage: fields in the set
// are replaced, all other bits are preserved.
func Modify(s Storage, fs FieldSet) {
	if fs.reg != nil && fs.reg != s.Register() {
		panic(fmt.Sprintf("field set for register %s applied to storage holding %s",
			fs.reg.name, s.Register().name))
	}
	s.Set(fs.Apply(s.Get()))
}

// ModifyNoRead writes the set as if the old contents were zero. This
// is the first-initialization path: it never loads the register.
func ModifyNoRead(s Storage, fs FieldSet) {
	if fs.reg != nil && fs.reg != s.Register() {
		panic(fmt.Sprintf("field set for register %s applied to storage holding %s",
			fs.reg.name, s.Register().name))
	}
	s.Set(fs.Apply(0))
}

// MatchesAll returns true if every given field currently holds its
// given value. This is containment, not equality: bits outside the
// given fields are ignored.
func MatchesAll(s Storage, fvs ...FieldValue) bool {
	cur := s.Get()
	for _, fv := range fvs {
		checkSame(fv.field, s)
		if cur&fv.field.Mask() != fv.Shifted() {
			return false
		}
	}
	return true
}

// MatchesAny returns true if at least one given field currently
// holds its given value.
func MatchesAny(s Storage, fvs ...FieldValue) bool {
	cur := s.Get()
	for _, fv := range fvs {
		checkSame(fv.field, s)
		if cur&fv.field.Mask() == fv.Shifted() {
			return true
		}
	}
	return false
}
