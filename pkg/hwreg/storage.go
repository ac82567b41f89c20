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

// Storage is one place register contents live. Get and Set move the
// whole word; field-granular access goes through Read/Modify and
// friends.
type Storage interface {
	// Register returns the register this storage holds.
	Register() *Register

	// Get returns the current contents.
	Get() uint64

	// Set replaces the contents. Bits above the register width are
	// discarded.
	Set(val uint64)
}

// Value is an owned local snapshot of register contents. Accessing a
// Value never touches hardware.
type Value struct {
	reg *Register
	val uint64
}

// Snapshot returns a Value holding val.
func (r *Register) Snapshot(val uint64) *Value {
	return &Value{reg: r, val: val & widthMask(r.width)}
}

// Register implements Storage.Register.
func (v *Value) Register() *Register {
	return v.reg
}

// Get implements Storage.Get.
func (v *Value) Get() uint64 {
	return v.val
}

// Set implements Storage.Set.
func (v *Value) Set(val uint64) {
	v.val = val & widthMask(v.reg.width)
}

func widthMask(width uint) uint64 {
	return ^(^uint64(0) << width)
}
