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
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
)

// Geometry implements subcommands.Command for the "geometry" command.
type Geometry struct{}

// Name implements subcommands.Command.Name.
func (*Geometry) Name() string {
	return "geometry"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Geometry) Synopsis() string {
	return "print the table geometry derived from the translation control"
}

// Usage implements subcommands.Command.Usage.
func (*Geometry) Usage() string {
	return `geometry

Prints the number of levels and, per level, the index bits, start bit,
entry count and per-entry coverage.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (*Geometry) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (*Geometry) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	conf := args[0].(*config)
	g, err := conf.geometry()
	if err != nil {
		logrus.WithError(err).Error("deriving geometry")
		return subcommands.ExitFailure
	}

	fmt.Printf("levels:  %d\n", g.NumLevels())
	fmt.Printf("granule: %d bytes\n", g.GranuleSize())
	fmt.Println("level  bits  start  entries  coverage")
	for l := uint(0); l < g.NumLevels(); l++ {
		fmt.Printf("%5d  %4d  %5d  %7d  %#x\n",
			l, g.BitsPerLevel(l), g.StartBit(l), g.EntriesPerLevel(l), g.CoveragePerEntry(l))
	}
	return subcommands.ExitSuccess
}
