// Copyright 2024 github.com/ucirello
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command proctor is a local development process supervisor: given a
// declarative manifest listing named commands with dependencies, watch
// patterns, readiness probes, and signalling policies, it starts each
// command in dependency order, multiplexes their output, and reacts to
// file changes, crashes, and interruption.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"cirello.io/proctor/internal/manifest"
	"cirello.io/proctor/internal/supervisor"
)

// DefaultManifest is the file proctor reads when no path is given.
const DefaultManifest = "Procfile"

func main() {
	log.SetFlags(0)
	log.SetPrefix("proctor: ")

	app := &cli.App{
		Name:      "proctor",
		Usage:     "local development process supervisor",
		ArgsUsage: "[manifest]",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "check",
				Usage: "validate the manifest and exit, without running anything",
			},
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"d"},
				Usage:   "echo each shell command before it runs",
			},
			&cli.BoolFlag{
				Name:    "timestamp",
				Aliases: []string{"t"},
				Usage:   "prefix every line with an elapsed-time column",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Value: true,
				Usage: "reload processes on matching file changes",
			},
			&cli.BoolFlag{
				Name:  "gitignore",
				Value: true,
				Usage: "skip files excluded by .gitignore when watching",
			},
			&cli.StringFlag{
				Name:  "html-log",
				Usage: "render the full captured session to this HTML file on exit",
			},
		},
		Action: run,
	}

	err := app.Run(os.Args)
	if err == nil {
		return
	}
	if ec, ok := err.(cli.ExitCoder); ok {
		if msg := ec.Error(); msg != "" {
			log.Println(msg)
		}
		os.Exit(ec.ExitCode())
	}
	log.Println(err)
	os.Exit(1)
}

func run(c *cli.Context) error {
	path := DefaultManifest
	if c.Args().Present() {
		path = c.Args().First()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cli.Exit(fmt.Sprintf("%s: %v", path, err), 1)
	}

	man, err := manifest.Parse(string(raw))
	if err != nil {
		return cli.Exit(fmt.Sprintf("%s: %v", path, err), 1)
	}

	n := len(man.Processes)
	if c.Bool("check") {
		plural := "es"
		if n == 1 {
			plural = ""
		}
		fmt.Printf("%s is valid (%d process%s)\n", path, n, plural)
		return nil
	}

	baseDir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	s := supervisor.New(man, supervisor.Options{
		BaseDir:      baseDir,
		Debug:        c.Bool("debug"),
		Timestamp:    c.Bool("timestamp"),
		Watch:        c.Bool("watch"),
		UseGitignore: c.Bool("gitignore"),
		HTMLLog:      c.String("html-log"),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	code := s.Run(ctx)
	if code != 0 {
		return cli.Exit("", code)
	}
	return nil
}
