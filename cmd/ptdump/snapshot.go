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

package main

import (
	"fmt"
	"os"
	"unsafe"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"pagewalk.dev/pagewalk/pkg/pagetables"
)

// snapshot is a mapped image of the physical region holding the
// tables. The image's table descriptors carry physical pointers;
// openSnapshot rewrites them in the private mapping to point into the
// image so the engine can walk it directly.
type snapshot struct {
	data []byte
	base uintptr

	physBase uint64
	root     uintptr
}

// openSnapshot maps the snapshot file copy-on-write and relocates its
// next-level table pointers.
func openSnapshot(path string, conf *config, g *pagetables.Geometry) (*snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(fi.Size()), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("mapping %s: %w", path, err)
	}

	s := &snapshot{
		data:     data,
		base:     uintptr(unsafe.Pointer(&data[0])),
		physBase: conf.PhysBase,
	}
	root, err := s.tableAt(conf.PhysBase+conf.RootOffset, g)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("root table: %w", err)
	}
	s.root = root
	logrus.WithFields(logrus.Fields{
		"size": len(data),
		"root": fmt.Sprintf("%#x", conf.PhysBase+conf.RootOffset),
	}).Debug("snapshot mapped")

	if err := s.relocate(g, root, 0); err != nil {
		s.close()
		return nil, fmt.Errorf("relocating table pointers: %w", err)
	}
	return s, nil
}

func (s *snapshot) close() {
	if err := unix.Munmap(s.data); err != nil {
		logrus.WithError(err).Warn("unmapping snapshot")
	}
}

// tableAt converts a physical table address inside the image to its
// mapped address.
func (s *snapshot) tableAt(phys uint64, g *pagetables.Geometry) (uintptr, error) {
	granule := g.GranuleSize()
	if phys%granule != 0 {
		return 0, fmt.Errorf("table %#x is not granule aligned", phys)
	}
	off := phys - s.physBase
	if phys < s.physBase || off+granule > uint64(len(s.data)) {
		return 0, fmt.Errorf("table %#x outside the imaged region", phys)
	}
	addr := s.base + uintptr(off)
	if addr%uintptr(granule) != 0 {
		return 0, fmt.Errorf("mapping base breaks the %d-byte table alignment", granule)
	}
	return addr, nil
}

// relocate rewrites every table descriptor under table to carry the
// mapped address of its target instead of the physical one, depth
// first.
func (s *snapshot) relocate(g *pagetables.Geometry, table uintptr, level uint) error {
	for i := uint(0); i < g.EntriesPerLevel(level); i++ {
		raw := pagetables.LoadEntry(table, i)
		typ, err := g.Classify(raw, level)
		if err != nil {
			return fmt.Errorf("level %d entry %d: %w", level, i, err)
		}
		if typ != pagetables.DescriptorTable {
			continue
		}
		next, err := s.tableAt(uint64(g.NextTable(raw)), g)
		if err != nil {
			return fmt.Errorf("level %d entry %d: %w", level, i, err)
		}
		pagetables.StoreEntry(table, i, g.TableDescriptor(next))
		if err := s.relocate(g, next, level+1); err != nil {
			return err
		}
	}
	return nil
}
