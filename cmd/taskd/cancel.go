package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type cancelCmd struct {
	addr string
	id   string
}

func (*cancelCmd) Name() string     { return "cancel" }
func (*cancelCmd) Synopsis() string { return "cancel a task by id" }
func (*cancelCmd) Usage() string {
	return "cancel -id TASK_ID\n"
}

func (c *cancelCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", "127.0.0.1:7420", "daemon HTTP API address")
	f.StringVar(&c.id, "id", "", "task id")
}

func (c *cancelCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if c.id == "" {
		fmt.Fprintln(os.Stderr, "cancel requires -id")
		return subcommands.ExitUsageError
	}
	out, status, err := postJSON(c.addr, "/api/v1/tasks/"+c.id+"/cancel", struct{}{})
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
