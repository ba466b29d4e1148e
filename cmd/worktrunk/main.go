// Package main is the entry point for the worktrunk CLI.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/shaneholloman/worktrunk/internal/approval"
	"github.com/shaneholloman/worktrunk/internal/directive"
	"github.com/shaneholloman/worktrunk/internal/handlers"
	"github.com/shaneholloman/worktrunk/internal/model"
	"github.com/shaneholloman/worktrunk/internal/tmplengine"
	"github.com/shaneholloman/worktrunk/internal/userconfig"
	"github.com/shaneholloman/worktrunk/internal/vcsadapter"
	"github.com/shaneholloman/worktrunk/internal/wtlog"
)

var version = "dev"

func main() {
	cliApp := &cli.Command{
		Name:                  "wt",
		Usage:                 "manage git/jj worktrees with hook-driven workflows",
		Version:               version,
		EnableShellCompletion: true,
		Flags:                 globalFlags(),
		Commands: []*cli.Command{
			switchCommand(),
			mergeCommand(),
			removeCommand(),
			listCommand(),
			hookCommand(),
			statuslineCommand(),
			configCommand(),
		},
	}

	if err := cliApp.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(model.ExitCode(err))
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "config-file",
			Usage: "path to config.toml (overrides WORKTRUNK_CONFIG_PATH)",
		},
		&cli.StringFlag{
			Name:  "worktree-dir",
			Usage: "override the configured worktree-path template",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "write debug tracing to stderr",
		},
		&cli.BoolFlag{
			Name:  "force",
			Usage: "approve pending hook commands for this run without persisting; skip the remove integration check",
		},
	}
}

// buildEnv assembles the per-invocation handlers.Env from global flags and
// the environment, the way the teacher's loadCLIConfig/newCLIGitService pair
// assembles a *config.AppConfig and *git.Service per command.
func buildEnv(ctx context.Context, cmd *cli.Command) (*handlers.Env, error) {
	if cmd.Bool("verbose") {
		_ = wtlog.SetFile(os.Stderr.Name())
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	adapter, err := vcsadapter.New(cwd, vcsadapter.DefaultConcurrency())
	if err != nil {
		return nil, &model.Error{Kind: model.ErrNotInWorkspace, Message: "not inside a git or jj repository", Wrapped: err}
	}

	projectID, err := vcsadapter.ProjectID(ctx, adapter)
	if err != nil {
		return nil, err
	}

	configPath := cmd.String("config-file")
	if configPath == "" {
		configPath = userconfig.DefaultPath()
	}
	cfg, err := userconfig.Load(configPath)
	if err != nil {
		return nil, err
	}
	if wtd := cmd.String("worktree-dir"); wtd != "" {
		cfg.OverridableConfig.WorktreePath = wtd
	}

	repoRoot, err := adapter.RepoRoot(ctx)
	if err != nil {
		return nil, err
	}
	vcsDir := ".git"
	if adapter.Kind() == vcsadapter.Jj {
		vcsDir = ".jj"
	}

	approvalsPath := approvalsPathFor(configPath)
	store := approval.NewStore(approvalsPath)

	engine := tmplengine.New(func(name string) (string, bool) {
		path, ok, _ := adapter.WorkspaceForBranch(ctx, name)
		return path, ok
	})

	interactive := term.IsTerminal(int(os.Stdin.Fd()))

	env := &handlers.Env{
		Adapter:     adapter,
		Config:      cfg,
		Engine:      engine,
		Store:       store,
		Directive:   directive.New(os.Stdout),
		ProjectID:   projectID,
		RepoRoot:    repoRoot,
		VCSDir:      vcsDir,
		ConfigPath:  configPath,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		Interactive: interactive,
		Force:       cmd.Bool("force"),
		Prompt:      promptApproval,
	}
	return env, nil
}

// approvalsPathFor returns configPath's sibling approvals.toml (§4.C).
func approvalsPathFor(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), "approvals.toml")
}

// promptApproval asks the user, on stderr, to approve the given command
// lines, reading the answer from stdin.
func promptApproval(lines []string) (bool, error) {
	fmt.Fprintln(os.Stderr, "The following commands want to run:")
	for _, l := range lines {
		fmt.Fprintf(os.Stderr, "  %s\n", l)
	}
	fmt.Fprint(os.Stderr, "Approve? [y/N] ")
	reader := bufio.NewReader(os.Stdin)
	answer, _ := reader.ReadString('\n')
	switch answer {
	case "y\n", "Y\n", "yes\n":
		return true, nil
	default:
		return false, nil
	}
}
