// Command taskd is the local task-supervision agent: a daemon subcommand
// runs the router/supervisor/tracker/bus core behind an HTTP façade, and
// submit/list/cancel subcommands talk to a running daemon over that
// façade. google/subcommands gives it a multi-verb CLI shape.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"

	"github.com/cordio/taskd/internal/subprocess"
)

func main() {
	// A self-reexec'd isolation init never reaches flag parsing or
	// subcommand dispatch: it reads its payload from fd 3 and execs the
	// real target or exits. See internal/subprocess/reexec.go.
	if subprocess.IsReexecInit() {
		subprocess.RunReexecInit()
		return
	}

	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&daemonCmd{}, "")
	subcommands.Register(&submitCmd{}, "")
	subcommands.Register(&listCmd{}, "")
	subcommands.Register(&cancelCmd{}, "")

	flag.Parse()
	os.Exit(int(subcommands.Execute(context.Background())))
}
