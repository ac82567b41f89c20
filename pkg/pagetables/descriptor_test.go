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
	"testing"

	"github.com/google/go-cmp/cmp"
)

// threeLevel has blocks legal at level 1 only.
var threeLevel = Config{
	VABits:          64,
	VASpaceBits:     39,
	GranuleBits:     12,
	MaxBitsPerLevel: 9,
}

func TestAttributesRoundTrip(t *testing.T) {
	// The encoder reaches exactly the permission shapes the AP field
	// can express, crossed with the execute-never bits.
	apShapes := []AccessPermissions{
		{PrivilegedRead: true, PrivilegedWrite: true},
		{PrivilegedRead: true, PrivilegedWrite: true, UnprivilegedRead: true, UnprivilegedWrite: true},
		{PrivilegedRead: true},
		{PrivilegedRead: true, UnprivilegedRead: true},
	}
	for _, shape := range apShapes {
		for _, px := range []bool{false, true} {
			for _, ux := range []bool{false, true} {
				for _, kind := range []MemoryKind{MemoryNormal, MemoryDevice} {
					perms := shape
					perms.PrivilegedExecute = px
					perms.UnprivilegedExecute = ux

					raw := EncodeAttributes(perms, kind)
					gotPerms, gotKind := DecodeAttributes(raw)
					if diff := cmp.Diff(perms, gotPerms); diff != "" {
						t.Errorf("permissions did not survive %#x (-want +got):\n%s", raw, diff)
					}
					if gotKind != kind {
						t.Errorf("kind did not survive %#x: got %v, want %v", raw, gotKind, kind)
					}
				}
			}
		}
	}
}

func TestClassify(t *testing.T) {
	g := MustGeometry(threeLevel)

	table := g.TableDescriptor(0x5000)
	page := g.LeafDescriptor(2, 0x4000, AccessPermissions{PrivilegedRead: true}, MemoryNormal)
	block := g.LeafDescriptor(1, 0x200000, AccessPermissions{PrivilegedRead: true}, MemoryNormal)

	for _, tc := range []struct {
		name    string
		raw     uint64
		level   uint
		want    DescriptorType
		wantErr bool
	}{
		{"invalid", 0, 0, DescriptorInvalid, false},
		// The valid bit alone decides validity; junk elsewhere is
		// still invalid.
		{"invalidJunk", 0xdead_0000, 1, DescriptorInvalid, false},
		{"tableAtRoot", table, 0, DescriptorTable, false},
		{"tableAtMiddle", table, 1, DescriptorTable, false},
		{"pageAtLast", page, 2, DescriptorPage, false},
		{"blockAtMiddle", block, 1, DescriptorBlock, false},
		{"blockAtRoot", block, 0, DescriptorBlock, true},
		{"blockAtLast", block, 2, DescriptorBlock, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := g.Classify(tc.raw, tc.level)
			if got != tc.want {
				t.Errorf("Classify(%#x, %d) = %v, want %v", tc.raw, tc.level, got, tc.want)
			}
			if tc.wantErr != (err != nil) {
				t.Errorf("Classify(%#x, %d) error = %v, wantErr %t", tc.raw, tc.level, err, tc.wantErr)
			}
			if err != nil && !errors.Is(err, ErrCorruptedTable) {
				t.Errorf("Classify error = %v, want ErrCorruptedTable", err)
			}
		})
	}
}

func TestTableDescriptor(t *testing.T) {
	g := MustGeometry(threeLevel)

	const next = uintptr(0xc000_7000)
	raw := g.TableDescriptor(next)
	if typ, err := g.Classify(raw, 0); typ != DescriptorTable || err != nil {
		t.Fatalf("Classify = %v, %v, want table", typ, err)
	}
	if got := g.NextTable(raw); got != next {
		t.Errorf("NextTable(%#x) = %#x, want %#x", raw, got, next)
	}
}

func TestLeafDescriptor(t *testing.T) {
	g := MustGeometry(threeLevel)

	for _, tc := range []struct {
		name  string
		level uint
		paddr uint64
		want  DescriptorType
	}{
		{"page", 2, 0x0000_0123_4000, DescriptorPage},
		{"block", 1, 0x0000_4560_0000, DescriptorBlock},
	} {
		t.Run(tc.name, func(t *testing.T) {
			perms := AccessPermissions{PrivilegedRead: true, PrivilegedWrite: true}
			raw := g.LeafDescriptor(tc.level, tc.paddr, perms, MemoryNormal)

			typ, err := g.Classify(raw, tc.level)
			if typ != tc.want || err != nil {
				t.Fatalf("Classify = %v, %v, want %v", typ, err, tc.want)
			}
			if got := g.outputAddress(raw, tc.level); got != tc.paddr {
				t.Errorf("outputAddress = %#x, want %#x", got, tc.paddr)
			}
			if descAF.Extract(raw) != 1 {
				t.Error("leaf descriptor missing access flag")
			}
			gotPerms, gotKind := DecodeAttributes(raw)
			if diff := cmp.Diff(perms, gotPerms); diff != "" {
				t.Errorf("attributes did not survive (-want +got):\n%s", diff)
			}
			if gotKind != MemoryNormal {
				t.Errorf("kind = %v, want normal", gotKind)
			}
		})
	}
}
