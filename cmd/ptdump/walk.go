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

	"pagewalk.dev/pagewalk/pkg/pagetables"
)

// Walk implements subcommands.Command for the "walk" command.
type Walk struct {
	start        uint64
	end          uint64
	collectEmpty bool
}

// Name implements subcommands.Command.Name.
func (*Walk) Name() string {
	return "walk"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Walk) Synopsis() string {
	return "list the mappings in a table snapshot"
}

// Usage implements subcommands.Command.Usage.
func (*Walk) Usage() string {
	return `walk [flags] <snapshot>

Where "<snapshot>" is a file imaging the physical region that holds
the tables. Prints one line per mapped region, in ascending virtual
address order.

OPTIONS:
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (w *Walk) SetFlags(f *flag.FlagSet) {
	f.Uint64Var(&w.start, "start", 0, "first virtual address of the walked range")
	f.Uint64Var(&w.end, "end", 0, "end of the walked range, exclusive (0 means the whole space)")
	f.BoolVar(&w.collectEmpty, "collect-empty", false, "also report tables that contain no valid descriptor")
}

// Execute implements subcommands.Command.Execute.
func (w *Walk) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
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

	end := w.end
	if end == 0 {
		end = uint64(1) << conf.VASpaceBits
	}
	ctx := &pagetables.TraverseContext{
		Root:         s.root,
		Start:        w.start,
		End:          end,
		CollectEmpty: w.collectEmpty,
		EmptyTables:  make([]uintptr, 256),
	}
	g.BeginTraversal(ctx)
	defer g.EndTraversal(ctx)

	for {
		m, ok := g.NextMapping(ctx)
		if !ok {
			break
		}
		raw := pagetables.LoadEntry(m.Descriptor, 0)
		perms, kind := pagetables.DecodeAttributes(raw)
		fmt.Printf("%#014x-%#014x -> %#014x %s %s\n",
			m.VirtualAddress, m.VirtualAddress+m.Length, m.PhysicalAddress,
			permString(perms), kind)
	}
	if ctx.HasError {
		logrus.Error("walk stopped on a corrupted descriptor")
		return subcommands.ExitFailure
	}
	for i := 0; i < ctx.NumEmpty; i++ {
		fmt.Printf("empty table at image offset %#x\n", ctx.EmptyTables[i]-s.base)
	}
	return subcommands.ExitSuccess
}

// permString renders permissions as privileged/unprivileged rwx
// triples.
func permString(p pagetables.AccessPermissions) string {
	rwx := func(r, w, x bool) string {
		b := []byte("---")
		if r {
			b[0] = 'r'
		}
		if w {
			b[1] = 'w'
		}
		if x {
			b[2] = 'x'
		}
		return string(b)
	}
	return rwx(p.PrivilegedRead, p.PrivilegedWrite, p.PrivilegedExecute) +
		"/" + rwx(p.UnprivilegedRead, p.UnprivilegedWrite, p.UnprivilegedExecute)
}
