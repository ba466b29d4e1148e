package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/shaneholloman/worktrunk/internal/handlers"
	"github.com/shaneholloman/worktrunk/internal/model"
	"github.com/shaneholloman/worktrunk/internal/render"
)

func switchCommand() *cli.Command {
	return &cli.Command{
		Name:      "switch",
		Usage:     "switch to (optionally creating) a workspace",
		ArgsUsage: "[name]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "create", Usage: "create the workspace if it doesn't exist"},
			&cli.StringFlag{Name: "base", Usage: "base ref for --create"},
			&cli.BoolFlag{Name: "clobber", Usage: "reuse an occupied path, discarding what's registered there"},
			&cli.StringFlag{Name: "execute", Usage: "after switching, expand and exec this command in the new workspace"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			env, err := buildEnv(ctx, cmd)
			if err != nil {
				return err
			}
			name := "@"
			if cmd.Args().Len() > 0 {
				name = cmd.Args().Get(0)
			}
			_, err = env.Switch(ctx, handlers.SwitchOptions{
				Name:        name,
				Create:      cmd.Bool("create"),
				Base:        cmd.String("base"),
				Clobber:     cmd.Bool("clobber"),
				Execute:     cmd.String("execute"),
				ExecuteArgs: cmd.Args().Slice(),
			})
			return err
		},
	}
}

func mergeCommand() *cli.Command {
	return &cli.Command{
		Name:  "merge",
		Usage: "rebase the current workspace onto its target and fast-forward it in",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "target", Usage: "branch to merge into (default: repository default branch)"},
			&cli.BoolFlag{Name: "squash", Usage: "squash the feature branch into one commit before rebasing"},
			&cli.BoolFlag{Name: "no-squash", Usage: "never squash, even if configured on by default"},
			&cli.BoolFlag{Name: "keep", Usage: "keep the feature workspace after merging"},
			&cli.StringFlag{Name: "message", Usage: "commit/squash message (default: generated or a fixed fallback)"},
			&cli.BoolFlag{Name: "no-hooks", Usage: "skip pre-merge/post-merge hooks"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			env, err := buildEnv(ctx, cmd)
			if err != nil {
				return err
			}
			var squash *bool
			if cmd.Bool("squash") {
				v := true
				squash = &v
			} else if cmd.Bool("no-squash") {
				v := false
				squash = &v
			}
			_, err = env.Merge(ctx, handlers.MergeOptions{
				Target:  cmd.String("target"),
				Squash:  squash,
				Keep:    cmd.Bool("keep"),
				Message: cmd.String("message"),
				NoHooks: cmd.Bool("no-hooks"),
			})
			return err
		},
	}
}

func removeCommand() *cli.Command {
	return &cli.Command{
		Name:      "remove",
		Usage:     "remove a workspace",
		ArgsUsage: "[name]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "no-hooks", Usage: "skip pre-remove/post-remove hooks"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			env, err := buildEnv(ctx, cmd)
			if err != nil {
				return err
			}
			name := "@"
			if cmd.Args().Len() > 0 {
				name = cmd.Args().Get(0)
			}
			_, err = env.Remove(ctx, handlers.RemoveOptions{
				Name:    name,
				Force:   cmd.Bool("force"),
				NoHooks: cmd.Bool("no-hooks"),
			})
			return err
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "list workspaces with their status",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Usage: "text or json", Value: "text"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			env, err := buildEnv(ctx, cmd)
			if err != nil {
				return err
			}
			mode := render.ModeText
			if cmd.String("format") == "json" {
				mode = render.ModeJSON
			}
			out, err := env.List(ctx, handlers.ListOptions{Mode: mode, Colored: !noColor()})
			if err != nil {
				return err
			}
			fmt.Fprintln(env.Stdout, out)
			return nil
		},
	}
}

func hookCommand() *cli.Command {
	return &cli.Command{
		Name:      "hook",
		Usage:     "run or manage the commands attached to a lifecycle phase",
		ArgsUsage: "<phase>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Usage: "restrict to the command with this name"},
			&cli.BoolFlag{Name: "approve", Usage: "approve the phase's commands instead of running them"},
			&cli.BoolFlag{Name: "revoke", Usage: "revoke the phase's commands instead of running them"},
			&cli.BoolFlag{Name: "revoke-project", Usage: "revoke every approval for the current project"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			env, err := buildEnv(ctx, cmd)
			if err != nil {
				return err
			}
			if cmd.Args().Len() == 0 && !cmd.Bool("revoke-project") {
				return fmt.Errorf("usage: wt hook <phase>")
			}
			phase := ""
			if cmd.Args().Len() > 0 {
				phase = cmd.Args().Get(0)
			}
			return env.Hook(ctx, handlers.HookOptions{
				Phase:         hookPhase(phase),
				Name:          cmd.String("name"),
				Approve:       cmd.Bool("approve"),
				Revoke:        cmd.Bool("revoke"),
				RevokeProject: cmd.Bool("revoke-project"),
			})
		},
	}
}

func statuslineCommand() *cli.Command {
	return &cli.Command{
		Name:  "statusline",
		Usage: "print a one-line status for the current (or editor-reported) workspace",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "claude-code", Usage: "read the workspace directory from a JSON payload on stdin"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			env, err := buildEnv(ctx, cmd)
			if err != nil {
				// §6: statusline always exits 0; empty output stands in for
				// any failure to resolve a row, including "not in a repo".
				return nil
			}
			line := env.Statusline(ctx, handlers.StatuslineOptions{
				ClaudeCode: cmd.Bool("claude-code"),
				Stdin:      os.Stdin,
			})
			if line != "" {
				fmt.Fprintln(env.Stdout, line)
			}
			return nil
		},
	}
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "inspect configuration",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "print the effective merged config for the current project",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					env, err := buildEnv(ctx, cmd)
					if err != nil {
						return err
					}
					result, err := env.ConfigShow(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintf(env.Stdout, "# %s\n%s", result.ConfigPath, result.Effective)
					if result.BriefWarning != "" {
						fmt.Fprintln(env.Stderr, result.BriefWarning)
					}
					return nil
				},
			},
		},
	}
}

// hookPhase converts name to a model.HookPhase without validating it
// against the closed set of lifecycle phases; userconfig.HookCommands looks
// up an unknown phase as simply having no configured commands.
func hookPhase(name string) model.HookPhase {
	return model.HookPhase(name)
}

func noColor() bool {
	return !term.IsTerminal(int(os.Stdout.Fd()))
}
