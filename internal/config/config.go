// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/hdr-community/hdr-installer/internal/issue"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"mvdan.cc/sh/v3/shell"
)

const (
	// AppName is the application name.
	AppName = "hdr-installer"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides, e.g. HDR_INSTALLER_INSTALL_ROOT.
	EnvPrefix = "HDR_INSTALLER"
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the configuration directory: %APPDATA% on Windows,
// ~/Library/Application Support on macOS and $XDG_CONFIG_HOME (defaulting
// to ~/.config) elsewhere.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// ConfigFilePath returns the path of the config file in the config directory.
// The file may not exist.
func ConfigFilePath() (string, error) {
	cfgDir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt), nil
}

// loadWithOptions layers defaults, the CUE file and HDR_INSTALLER_* variables,
// then expands paths and validates. It returns the file that was read, or ""
// when only defaults applied.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultConfig()
	v.SetDefault("install_root", defaults.InstallRoot)
	v.SetDefault("token_file", defaults.TokenFile)
	v.SetDefault("root_title", defaults.RootTitle)
	v.SetDefault("api.base_url", defaults.API.BaseURL)
	v.SetDefault("api.user_agent", defaults.API.UserAgent)
	v.SetDefault("channels", channelMaps(defaults))
	v.SetDefault("verify.minisign_public_key", defaults.Verify.MinisignPublicKey)
	v.SetDefault("verify.require_checksums", defaults.Verify.RequireChecksums)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)
	v.SetDefault("ui.color_scheme", string(defaults.UI.ColorScheme))
	v.SetDefault("ui.progress_interval_ms", defaults.UI.ProgressIntervalMS)
	v.SetDefault("app.repository", defaults.App.Repository)

	cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
	if err != nil {
		return nil, "", err
	}

	resolvedPath := ""
	if opts.ConfigFilePath != "" {
		// An explicit --config is used exclusively.
		if !fileExists(opts.ConfigFilePath) {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'hdr-installer config show' to see the default configuration").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		resolvedPath = opts.ConfigFilePath
	} else {
		for _, candidate := range []string{
			filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt),
			ConfigFileName + "." + ConfigFileExt,
		} {
			if fileExists(candidate) {
				resolvedPath = candidate
				break
			}
		}
	}

	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the values match the schema, see 'hdr-installer config init'").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	if err := resolvePaths(&cfg, cfgDir); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("expand configuration paths").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}

	if err := Validate(&cfg); err != nil {
		source := resolvedPath
		if source == "" {
			source = "defaults and environment"
		}
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(source).
			WithSuggestion("Check " + EnvPrefix + "_* environment variables").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}
	return ConfigDir()
}

// channelMaps renders the default channels the way a decoded CUE file
// presents them, so a file-provided list replaces the default one wholesale.
func channelMaps(cfg *Config) []map[string]any {
	out := make([]map[string]any, 0, len(cfg.Channels))
	for _, ch := range cfg.Channels {
		out = append(out, map[string]any{
			"title":         ch.Title,
			"repository":    ch.Repository,
			"empty_message": ch.EmptyMessage,
		})
	}
	return out
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper.
//
// Validation uses Concrete(false) because every field is optional.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := checkFileSize(data, path); err != nil {
		return err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return formatCUEError(userValue.Err(), path)
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return formatCUEError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return formatCUEError(err, path)
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// resolvePaths expands $VARS and a leading ~ in the path settings and
// places a default token file in the config directory.
func resolvePaths(cfg *Config, cfgDir string) error {
	root, err := expandPath(cfg.InstallRoot)
	if err != nil {
		return fmt.Errorf("install_root: %w", err)
	}
	cfg.InstallRoot = root

	if cfg.TokenFile == "" {
		cfg.TokenFile = filepath.Join(cfgDir, TokenFileName)
		return nil
	}
	tokenFile, err := expandPath(cfg.TokenFile)
	if err != nil {
		return fmt.Errorf("token_file: %w", err)
	}
	cfg.TokenFile = tokenFile
	return nil
}

// expandPath performs shell parameter expansion and resolves a leading "~"
// to the home directory. Unset variables expand to the empty string.
func expandPath(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	expanded, err := shell.Expand(p, os.Getenv)
	if err != nil {
		return "", err
	}
	if expanded == "~" || strings.HasPrefix(expanded, "~/") || strings.HasPrefix(expanded, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		expanded = filepath.Join(home, expanded[1:])
	}
	return filepath.Clean(expanded), nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes a default config file unless one exists. It
// returns the file path and whether it was created.
func CreateDefaultConfig() (string, bool, error) {
	cfgPath, err := ConfigFilePath()
	if err != nil {
		return "", false, err
	}

	if _, err := os.Stat(cfgPath); err == nil {
		return cfgPath, false, nil
	}

	if err := writeConfig(cfgPath, DefaultConfig()); err != nil {
		return "", false, err
	}
	return cfgPath, true, nil
}

// Save writes cfg to the config directory, replacing any existing file.
func Save(cfg *Config) error {
	cfgPath, err := ConfigFilePath()
	if err != nil {
		return err
	}
	return writeConfig(cfgPath, cfg)
}

func writeConfig(cfgPath string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(cfg)), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateCUE generates a CUE representation of the configuration that
// loads back to the same values.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// hdr-installer configuration file\n")
	sb.WriteString("// Unset fields use built-in defaults. Environment variables named\n")
	sb.WriteString("// " + EnvPrefix + "_<FIELD> (e.g. " + EnvPrefix + "_INSTALL_ROOT) override this file.\n\n")

	fmt.Fprintf(&sb, "install_root: %q\n", cfg.InstallRoot)
	if cfg.TokenFile != "" {
		fmt.Fprintf(&sb, "token_file: %q\n", cfg.TokenFile)
	}
	fmt.Fprintf(&sb, "root_title: %q\n", cfg.RootTitle)

	sb.WriteString("\napi: {\n")
	fmt.Fprintf(&sb, "\tbase_url: %q\n", cfg.API.BaseURL)
	if cfg.API.UserAgent != "" {
		fmt.Fprintf(&sb, "\tuser_agent: %q\n", cfg.API.UserAgent)
	}
	sb.WriteString("}\n")

	sb.WriteString("\nchannels: [\n")
	for _, ch := range cfg.Channels {
		fmt.Fprintf(&sb, "\t{\n\t\ttitle:      %q\n\t\trepository: %q\n", ch.Title, ch.Repository)
		if ch.EmptyMessage != "" {
			fmt.Fprintf(&sb, "\t\tempty_message: %q\n", ch.EmptyMessage)
		}
		sb.WriteString("\t},\n")
	}
	sb.WriteString("]\n")

	sb.WriteString("\nverify: {\n")
	if cfg.Verify.MinisignPublicKey != "" {
		fmt.Fprintf(&sb, "\tminisign_public_key: %q\n", cfg.Verify.MinisignPublicKey)
	}
	fmt.Fprintf(&sb, "\trequire_checksums: %v\n", cfg.Verify.RequireChecksums)
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	fmt.Fprintf(&sb, "\tcolor_scheme: %q\n", cfg.UI.ColorScheme)
	fmt.Fprintf(&sb, "\tprogress_interval_ms: %d\n", cfg.UI.ProgressIntervalMS)
	sb.WriteString("}\n")

	if cfg.App.Repository != "" {
		sb.WriteString("\napp: {\n")
		fmt.Fprintf(&sb, "\trepository: %q\n", cfg.App.Repository)
		sb.WriteString("}\n")
	}

	return sb.String()
}

// MarshalTOML renders cfg as TOML for 'config show --format toml'.
func MarshalTOML(cfg *Config) ([]byte, error) {
	return toml.Marshal(cfg)
}

// MarshalJSON renders cfg as indented JSON for 'config show --format json'.
func MarshalJSON(cfg *Config) ([]byte, error) {
	return json.MarshalIndent(cfg, "", "  ")
}
