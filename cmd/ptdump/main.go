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

// ptdump inspects translation-table snapshots: it derives the table
// geometry from a translation-control file, walks a memory image of
// the tables, and resolves individual addresses.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
)

var (
	configPath = flag.String("config", "", "translation control file (TOML)")
	debug      = flag.Bool("debug", false, "enable debug logging")
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(new(Geometry), "")
	subcommands.Register(new(Walk), "")
	subcommands.Register(new(Lookup), "")

	flag.Parse()
	if *debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	if *configPath == "" {
		logrus.Fatal("a -config file is required")
	}
	conf, err := loadConfig(*configPath)
	if err != nil {
		logrus.WithError(err).Fatalf("loading %s", *configPath)
	}

	os.Exit(int(subcommands.Execute(context.Background(), conf)))
}
