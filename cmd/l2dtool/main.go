// l2dtool is a CLI utility for inspecting and converting character models.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// errUsage makes main print the command's usage line.
var errUsage = errors.New("usage")

type command struct {
	usage string
	run   func(args []string, w io.Writer) error
}

var commands = map[string]command{
	"info":    {"info <model.json|file.moc>", cmdInfo},
	"params":  {"params <model.json|file.moc>", cmdParams},
	"motion":  {"motion <file.mtn>", cmdMotion},
	"plot":    {"plot [-param ID] [-ms N] [-motion group:no] <model.json>", cmdPlot},
	"snap":    {"snap [-o out.png] [-t ms] [-w N] [-h N] <model.json>", cmdSnap},
	"convert": {"convert -o out.moc [-le] [-version N] <in.moc>", cmdConvert},
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	name := os.Args[1]
	if name == "help" || name == "-h" || name == "--help" {
		printUsage()
		return
	}
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", name)
		printUsage()
		os.Exit(1)
	}
	if err := cmd.run(os.Args[2:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "Usage: l2dtool %s\n", cmd.usage)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`l2dtool - character model utility

Usage:
  l2dtool <command> [options]

Commands:
  info <model.json|file.moc>      Show model structure and load statistics
  params <model.json|file.moc>    List parameters with range and default
  motion <file.mtn>               Show keyframe motion curves
  plot <model.json>               Chart a parameter over time
  snap <model.json>               Render one frame to PNG or WebP
  convert <in.moc>                Re-encode a model file

Examples:
  l2dtool info haru/haru.model.json
  l2dtool motion haru/motions/idle_00.mtn
  l2dtool plot -param PARAM_HAIR_FRONT -ms 3000 -motion tap_body:0 haru/haru.model.json
  l2dtool snap -o haru.webp -t 1500 haru/haru.model.json
  l2dtool convert -o haru_le.moc -le haru/haru.moc`)
}
