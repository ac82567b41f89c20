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
	"strconv"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"

	"pagewalk.dev/pagewalk/pkg/pagetables"
)

// Lookup implements subcommands.Command for the "lookup" command.
type Lookup struct{}

// Name implements subcommands.Command.Name.
func (*Lookup) Name() string {
	return "lookup"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Lookup) Synopsis() string {
	return "resolve one virtual address against a table snapshot"
}

// Usage implements subcommands.Command.Usage.
func (*Lookup) Usage() string {
	return `lookup <snapshot> <vaddr>

Resolves "<vaddr>" (decimal, or hex with an 0x prefix) and prints the
mapping that covers it.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (*Lookup) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (*Lookup) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 2 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	vaddr, err := strconv.ParseUint(f.Arg(1), 0, 64)
	if err != nil {
		logrus.WithError(err).Errorf("parsing address %q", f.Arg(1))
		return subcommands.ExitUsageError
	}

	conf := args[0].(*config)
	g, err := conf.geometry()
	if err != nil {
		logrus.WithError(err).Error("deriving geometry")
		return subcommands.ExitFailure
	}
	s, err := openSnapshot(f.Arg(0), conf, g)
	if err != nil {
		logrus.WithError(err).Errorf("opening %s", f.Arg(0))
		return subcommands.ExitFailure
	}
	defer s.close()

	m, err := g.Virt2Phy(s.root, vaddr)
	if err != nil {
		logrus.WithError(err).Errorf("resolving %#x", vaddr)
		return subcommands.ExitFailure
	}
	perms, kind := pagetables.DecodeAttributes(pagetables.LoadEntry(m.Descriptor, 0))
	fmt.Printf("%#x -> %#x\n", vaddr, m.Translate(vaddr))
	fmt.Printf("region: %#x-%#x -> %#x %s %s\n",
		m.VirtualAddress, m.VirtualAddress+m.Length, m.PhysicalAddress,
		permString(perms), kind)
	return subcommands.ExitSuccess
}
