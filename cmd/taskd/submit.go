package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"
)

type submitCmd struct {
	addr      string
	slot      string
	command   string
	args      string
	timeoutMS uint64
	restart   string
	admission string
}

func (*submitCmd) Name() string     { return "submit" }
func (*submitCmd) Synopsis() string { return "submit a subprocess task to a running daemon" }
func (*submitCmd) Usage() string {
	return "submit -slot NAME -command PATH [-args \"a b c\"] -timeout-ms N [-restart never|on_failure|always] [-admission drop_if_running|replace|queue]\n"
}

func (c *submitCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", "127.0.0.1:7420", "daemon HTTP API address")
	f.StringVar(&c.slot, "slot", "", "slot name")
	f.StringVar(&c.command, "command", "", "command to run")
	f.StringVar(&c.args, "args", "", "space-separated command arguments")
	f.Uint64Var(&c.timeoutMS, "timeout-ms", 0, "per-attempt timeout in milliseconds")
	f.StringVar(&c.restart, "restart", "never", "restart policy")
	f.StringVar(&c.admission, "admission", "drop_if_running", "admission policy")
}

func (c *submitCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if c.slot == "" || c.command == "" || c.timeoutMS == 0 {
		fmt.Fprintln(os.Stderr, "submit requires -slot, -command, and -timeout-ms")
		return subcommands.ExitUsageError
	}
	var args []string
	if c.args != "" {
		args = strings.Fields(c.args)
	}
	body := clientSpec{
		Slot:      c.slot,
		Command:   c.command,
		Args:      args,
		TimeoutMS: c.timeoutMS,
		RestartKind: c.restart,
		Admission:   c.admission,
	}
	out, status, err := postJSON(c.addr, "/api/v1/tasks", body)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	printResponse(out, status)
	if status >= 300 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
