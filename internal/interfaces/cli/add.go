package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"strand.sh/cli/internal/core/domain"
)

// NewAddCommand groups the subcommands that append a plugin to the config
// file and then run the usual full reinstall.
func NewAddCommand(container *CLIContainer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a plugin to the config file and reinstall everything",
	}

	cmd.AddCommand(newAddGitCommand(container))
	cmd.AddCommand(newAddTarCommand(container))

	return cmd
}

// newAddGitCommand adds a Git-hosted plugin.
func newAddGitCommand(container *CLIContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "git [provider@]owner/repo[:ref]",
		Short: "Add a plugin hosted on GitHub or Bitbucket",
		Long: `Add a Git-hosted plugin to the config file, then reinstall everything.

The provider prefix defaults to github and the ref suffix to the provider's
default branch.

Examples:
  strand add git tpope/vim-surround
  strand add git neoclide/coc.nvim:release
  strand add git bitbucket@owner/some-plugin`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := domain.ParseGitSpec(args[0])
			if err != nil {
				return err
			}
			return appendAndInstall(cmd, container, domain.PluginDeclaration{Git: &repo})
		},
	}
}

// newAddTarCommand adds a plugin distributed as a direct tar.gz link.
func newAddTarCommand(container *CLIContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "tar <url>",
		Short: "Add a plugin distributed as a tar.gz archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			decl := domain.PluginDeclaration{Archive: &domain.ArchiveSource{URL: args[0]}}
			if err := decl.Validate(); err != nil {
				return err
			}
			return appendAndInstall(cmd, container, decl)
		},
	}
}

// appendAndInstall persists the new declaration before installing so a
// failed run still leaves the plugin declared for the next one.
func appendAndInstall(cmd *cobra.Command, container *CLIContainer, decl domain.PluginDeclaration) error {
	cfg, err := container.ConfigRepo.Load()
	if err != nil {
		return err
	}

	cfg.Plugins = append(cfg.Plugins, decl)

	// Resolve up front so a duplicate target name rejects the addition
	// instead of being written to the config file.
	if _, err := domain.ResolveAll(cfg.Plugins); err != nil {
		return err
	}

	if err := container.ConfigRepo.Save(cfg); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added %s to %s\n", decl, container.ConfigRepo.Location())

	return runInstall(cmd, container)
}
