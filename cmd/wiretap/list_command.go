package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"wiretap/internal/wiretap"
)

type listResult struct {
	Kind  string   `json:"kind"`
	Names []string `json:"names"`
}

func newListCommand(ctx *commandContext) *cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List projects, users, or volumes on the host",
	}

	listCmd.AddCommand(newListKindCommand(ctx, "projects", "List projects", (*wiretap.Handler).Projects))
	listCmd.AddCommand(newListKindCommand(ctx, "users", "List users", (*wiretap.Handler).Users))
	listCmd.AddCommand(newListKindCommand(ctx, "volumes", "List volumes", (*wiretap.Handler).Volumes))
	return listCmd
}

type listFunc func(*wiretap.Handler, context.Context) ([]string, error)

func newListKindCommand(ctx *commandContext, kind, short string, list listFunc) *cobra.Command {
	return &cobra.Command{
		Use:   kind,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHandler(cmd, func(runCtx context.Context, handler *wiretap.Handler) error {
				names, err := list(handler, runCtx)
				if err != nil {
					return err
				}
				if names == nil {
					names = []string{}
				}
				return ctx.printResult(cmd, listResult{Kind: kind, Names: names}, func(out io.Writer) error {
					if len(names) == 0 {
						fmt.Fprintf(out, "No %s on %s\n", kind, handler.Hostname())
						return nil
					}
					table := renderTable([]string{"#", "Name"}, nameRows(names), []columnAlignment{alignRight, alignLeft})
					fmt.Fprintln(out, table)
					return nil
				})
			})
		},
	}
}
