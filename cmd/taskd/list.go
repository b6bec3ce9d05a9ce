package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type listCmd struct {
	addr   string
	slot   string
	status string
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "list tasks known to a running daemon" }
func (*listCmd) Usage() string {
	return "list [-slot NAME | -status STATUS]\n"
}

func (c *listCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", "127.0.0.1:7420", "daemon HTTP API address")
	f.StringVar(&c.slot, "slot", "", "filter by slot")
	f.StringVar(&c.status, "status", "", "filter by status")
}

func (c *listCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	path := "/api/v1/tasks"
	switch {
	case c.slot != "":
		path += "?slot=" + c.slot
	case c.status != "":
		path += "?status=" + c.status
	}
	out, status, err := getJSON(c.addr, path)
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
