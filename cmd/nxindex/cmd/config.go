package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nxindex/core/internal/config"
	nxerrors "github.com/nxindex/core/internal/errors"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and manage nxindex configuration",
		Long: `Load, print, and manage the layered nxindex configuration:
hardcoded defaults, the user/global config (~/.config/nxindex/config.yaml
or $XDG_CONFIG_HOME), a project-local .nxindex.yaml, and NXINDEX_*
environment overrides, in increasing order of precedence.`,
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())
	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigBackupsCmd())
	cmd.AddCommand(newConfigRestoreCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var (
		dir     string
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration for a directory",
		Long: `Resolve and print the layered configuration that a nxindex
subcommand run from --dir would see, after merging the user config,
project .nxindex.yaml, and environment overrides.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dir == "" {
				dir = "."
			}
			cfg, err := config.Load(dir)
			if err != nil {
				return err
			}
			return printConfig(cmd, cfg, jsonOut)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "Project directory to resolve .nxindex.yaml from")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")

	return cmd
}

func printConfig(cmd *cobra.Command, cfg *config.Config, jsonOut bool) error {
	out := cmd.OutOrStdout()
	if jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	}

	fmt.Fprintf(out, "version:                    %d\n", cfg.Version)
	fmt.Fprintf(out, "index.max_index_chunks:     %d\n", cfg.Index.MaxIndexChunks)
	fmt.Fprintf(out, "index.create_checksums:     %t\n", cfg.Index.CreateChecksumFiles)
	fmt.Fprintf(out, "index.create_incremental:   %t\n", cfg.Index.CreateIncrementalChunks)
	fmt.Fprintf(out, "index.reclaim_index:        %t\n", cfg.Index.ReclaimIndex)
	fmt.Fprintf(out, "performance.workers:        %d\n", cfg.Performance.Workers)
	fmt.Fprintf(out, "performance.max_file_size:  %s\n", humanizedSize(cfg.Performance.MaxFileSize))
	fmt.Fprintf(out, "server.transport:           %s\n", cfg.Server.Transport)
	fmt.Fprintf(out, "server.log_level:           %s\n", cfg.Server.LogLevel)
	for _, r := range cfg.Repositories {
		fmt.Fprintf(out, "repository:                 %s (%s -> %s)\n", r.ID, r.Path, r.IndexDir)
	}
	return nil
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the path to the user/global config file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			return nil
		},
	}
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default user config file",
		Long: `Write a fresh default configuration to the user/global config
path. If a config file already exists there, init refuses to run
unless --force is given, so an existing file is never lost silently;
with --force the existing file is backed up first (internal/config's
timestamped rotation, keeping the newest few) and then overwritten.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := config.GetUserConfigPath()
			if config.UserConfigExists() {
				if !force {
					return nxerrors.New(nxerrors.ErrCodeConfigInvalid,
						fmt.Sprintf("%s already exists, rerun with --force to overwrite", path), nil)
				}
				backupPath, err := config.BackupUserConfig()
				if err != nil {
					return nxerrors.ConfigError("backing up existing config before init", err)
				}
				if backupPath != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "backed up existing config to %s\n", backupPath)
				}
			}

			if err := config.NewConfig().WriteYAML(path); err != nil {
				return nxerrors.ConfigError("writing default config", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote default config to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing user config, backing it up first")

	return cmd
}

func newConfigBackupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backups",
		Short: "List timestamped backups of the user config",
		RunE: func(cmd *cobra.Command, _ []string) error {
			backups, err := config.ListUserConfigBackups()
			if err != nil {
				return nxerrors.ConfigError("listing config backups", err)
			}
			out := cmd.OutOrStdout()
			if len(backups) == 0 {
				fmt.Fprintln(out, "no backups found")
				return nil
			}
			for _, b := range backups {
				fmt.Fprintln(out, b)
			}
			return nil
		},
	}
}

func newConfigRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <backup-path>",
		Short: "Restore the user config from a backup file",
		Long: `Restore the user/global config from one of the paths printed by
"nxindex config backups". The config in place before the restore (if
any) is itself backed up first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.RestoreUserConfig(args[0]); err != nil {
				return nxerrors.ConfigError("restoring config from backup", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restored config from %s\n", args[0])
			return nil
		},
	}
	return cmd
}
