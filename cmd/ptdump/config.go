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
	"github.com/BurntSushi/toml"

	"pagewalk.dev/pagewalk/pkg/pagetables"
)

// config is the translation control plus the physical placement of a
// snapshot: where the imaged region starts and where the root table
// sits inside it.
type config struct {
	VABits          uint `toml:"va_bits"`
	VASpaceBits     uint `toml:"va_space_bits"`
	TopByteIgnore   bool `toml:"top_byte_ignore"`
	GranuleBits     uint `toml:"granule_bits"`
	MaxBitsPerLevel uint `toml:"max_bits_per_level"`

	// PhysBase is the physical address of the first byte of the
	// snapshot file.
	PhysBase uint64 `toml:"phys_base"`

	// RootOffset is the offset of the root table within the snapshot.
	RootOffset uint64 `toml:"root_offset"`
}

// loadConfig reads a translation control file.
func loadConfig(path string) (*config, error) {
	var c config
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// geometry derives the table geometry this config describes.
func (c *config) geometry() (*pagetables.Geometry, error) {
	return pagetables.NewGeometry(pagetables.Config{
		VABits:          c.VABits,
		VASpaceBits:     c.VASpaceBits,
		TopByteIgnore:   c.TopByteIgnore,
		GranuleBits:     c.GranuleBits,
		MaxBitsPerLevel: c.MaxBitsPerLevel,
	})
}
