// curtainfire generates bullet-pattern models and motions from Lua scripts.
package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "run":
		os.Exit(cmdRun(args))
	case "types":
		cmdTypes(args)
	case "inspect":
		cmdInspect(args)
	case "init":
		cmdInit(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`curtainfire - bullet pattern generator

Usage:
  curtainfire <command> [options]

Commands:
  run [flags]                 Simulate a pattern script and export PMX/VMD
  types [-catalog file.toml]  List available shot types
  inspect [-at n] <dump>      Summarize a run dump, sampling poses at frame n
  init [path]                 Write a default config file (default: user config dir)

Run flags:
  -config file   Config file (default ./config.yaml)
  -script file   Pattern script (.lua)
  -scene file    Collision scene (.yaml)
  -out dir       Output directory
  -frames n      Number of frames to simulate
  -debug         Enable debug logging

Examples:
  curtainfire run -script spiral.lua -frames 600 -out build
  curtainfire types -catalog shots.toml
  curtainfire inspect build/curtainfire.msgpack`)
}
