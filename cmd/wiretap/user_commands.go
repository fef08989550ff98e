package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"wiretap/internal/wiretap"
)

type userResult struct {
	User       string `json:"user"`
	Path       string `json:"path,omitempty"`
	Categories int    `json:"categories,omitempty"`
	Deleted    bool   `json:"deleted,omitempty"`
}

func newCreateUserCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "create-user <name>",
		Short: "Create a Wiretap user",
		Long:  "Create a Flame user with its full set of tool category nodes.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			return ctx.withHandler(cmd, func(runCtx context.Context, handler *wiretap.Handler) error {
				user, err := handler.CreateUser(runCtx, name)
				if err != nil {
					return err
				}
				result := userResult{
					User:       name,
					Path:       user.Path(),
					Categories: len(wiretap.UserCategoryNodes()),
				}
				return ctx.printResult(cmd, result, func(out io.Writer) error {
					_, err := fmt.Fprintf(out, "Created user %s (%s, %d category nodes)\n", name, result.Path, result.Categories)
					return err
				})
			})
		},
	}
}

func newDeleteUserCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-user <name>",
		Short: "Delete a Wiretap user",
		Long:  "Delete a Flame user and every node below it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			return ctx.withHandler(cmd, func(runCtx context.Context, handler *wiretap.Handler) error {
				if err := handler.DeleteUser(runCtx, name); err != nil {
					return err
				}
				return ctx.printResult(cmd, userResult{User: name, Deleted: true}, func(out io.Writer) error {
					_, err := fmt.Fprintf(out, "Deleted user %s\n", name)
					return err
				})
			})
		},
	}
}
