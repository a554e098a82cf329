// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hdr-community/hdr-installer/internal/config"
	"github.com/hdr-community/hdr-installer/internal/issue"
)

// Output formats accepted by `config show`.
const (
	formatCUE  = "cue"
	formatTOML = "toml"
	formatJSON = "json"
)

// newConfigCommand creates the `hdr-installer config` command tree.
// Subcommands that read configuration use the App's config provider.
func newConfigCommand(app *App, flags *rootFlags) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage hdr-installer configuration",
		Long: `Manage hdr-installer configuration.

Configuration is stored in:
  - Linux: ~/.config/hdr-installer/config.cue
  - macOS: ~/Library/Application Support/hdr-installer/config.cue
  - Windows: %APPDATA%\hdr-installer\config.cue

Every key can also be set through HDR_INSTALLER_<KEY>, for example
HDR_INSTALLER_INSTALL_ROOT or HDR_INSTALLER_UI_VERBOSE.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	var format string
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return showConfig(cmd.Context(), app, flags, cmd.OutOrStdout(), cmd.ErrOrStderr(), format)
		},
	}
	showCmd.Flags().StringVarP(&format, "format", "f", formatCUE, "output format (cue, toml, json)")

	cfgCmd.AddCommand(
		showCmd,
		&cobra.Command{
			Use:   "init",
			Short: "Create the default configuration file",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return initConfig(cmd.OutOrStdout())
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Show configuration paths",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return showConfigPath(cmd.Context(), flags, cmd.OutOrStdout())
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Set a configuration value",
			Long: `Set a configuration value and save the configuration file.

Supported keys: install_root, token_file, root_title, api.base_url,
verify.minisign_public_key, verify.require_checksums, ui.verbose,
ui.color_scheme, ui.progress_interval_ms`,
			Args: cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return setConfigValue(cmd.Context(), app, flags, cmd.OutOrStdout(), args[0], args[1])
			},
		},
	)
	return cfgCmd
}

func showConfig(ctx context.Context, app *App, flags *rootFlags, stdout, stderr io.Writer, format string) error {
	cfg, _, err := app.loadConfig(ctx, flags)
	if err != nil {
		if rendered, renderErr := issue.Get(issue.ConfigLoadFailedId).Render("dark"); renderErr == nil {
			fmt.Fprint(stderr, rendered)
		}
		return reportError(stderr, ExitUsage, err, flags.verbose)
	}

	switch format {
	case formatCUE:
		fmt.Fprint(stdout, config.GenerateCUE(cfg))
	case formatTOML:
		data, err := config.MarshalTOML(cfg)
		if err != nil {
			return err
		}
		fmt.Fprint(stdout, string(data))
	case formatJSON:
		data, err := config.MarshalJSON(cfg)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, string(data))
	default:
		return &ExitError{Code: ExitUsage, Err: fmt.Errorf("unknown format %q (want cue, toml or json)", format)}
	}
	return nil
}

func initConfig(stdout io.Writer) error {
	cfgPath, created, err := config.CreateDefaultConfig()
	if err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}
	if !created {
		fmt.Fprintf(stdout, "%s Configuration already exists at %s\n", WarningStyle.Render("!"), cfgPath)
		return nil
	}
	fmt.Fprintf(stdout, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), cfgPath)
	return nil
}

func showConfigPath(ctx context.Context, flags *rootFlags, stdout io.Writer) error {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	cfgPath, err := config.ConfigFilePath()
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Config directory: %s\n", cfgDir)
	fmt.Fprintf(stdout, "Config file: %s\n", cfgPath)

	_, source, err := config.LoadWithSource(ctx, config.LoadOptions{ConfigFilePath: flags.configPath})
	switch {
	case err != nil:
		fmt.Fprintf(stdout, "Loaded from: %s\n", WarningStyle.Render("(invalid configuration)"))
	case source == "":
		fmt.Fprintf(stdout, "Loaded from: %s\n", SubtitleStyle.Render("(using defaults)"))
	default:
		fmt.Fprintf(stdout, "Loaded from: %s\n", source)
	}
	return nil
}

func setConfigValue(ctx context.Context, app *App, flags *rootFlags, stdout io.Writer, key, value string) error {
	cfg, err := app.Config.Load(ctx, config.LoadOptions{ConfigFilePath: flags.configPath})
	if err != nil {
		return err
	}

	switch key {
	case "install_root":
		cfg.InstallRoot = value
	case "token_file":
		cfg.TokenFile = value
	case "root_title":
		cfg.RootTitle = value
	case "api.base_url":
		cfg.API.BaseURL = value
	case "verify.minisign_public_key":
		cfg.Verify.MinisignPublicKey = value
	case "verify.require_checksums":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for verify.require_checksums: %s (expected true or false)", value)
		}
		cfg.Verify.RequireChecksums = b
	case "ui.verbose":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for ui.verbose: %s (expected true or false)", value)
		}
		cfg.UI.Verbose = b
	case "ui.color_scheme":
		cfg.UI.ColorScheme = config.ColorScheme(value)
	case "ui.progress_interval_ms":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for ui.progress_interval_ms: %s (expected milliseconds)", value)
		}
		cfg.UI.ProgressIntervalMS = n
	default:
		return &ExitError{Code: ExitUsage, Err: fmt.Errorf("unknown configuration key: %s", key)}
	}

	if err := config.Validate(cfg); err != nil {
		return &ExitError{Code: ExitUsage, Err: err}
	}
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Fprintf(stdout, "%s Set %s = %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(key), value)
	return nil
}
