// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/hdr-community/hdr-installer/internal/catalog"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	// DefaultBaseURL is the public GitHub REST endpoint.
	DefaultBaseURL = "https://api.github.com"
	// DefaultAppRepository publishes the installer's own releases.
	DefaultAppRepository = "FaultyPine/HDR-Installer-Homebrew"
	// DefaultRootTitle heads the channel menu.
	DefaultRootTitle = "HDR Installer"
	// DefaultInstallRoot is where releases are unpacked unless configured.
	DefaultInstallRoot = "~/hdr-installer/sdroot"
	// TokenFileName is the token file looked up in the config directory.
	TokenFileName = "oauth.txt"

	minProgressIntervalMS = 10
)

var (
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidChannel is the sentinel error wrapped by InvalidChannelError.
	ErrInvalidChannel = errors.New("invalid channel")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")

	repositoryPattern = regexp.MustCompile(`^[^/\s]+/[^/\s]+$`)
)

type (
	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	// It wraps ErrInvalidColorScheme for errors.Is() compatibility.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// InvalidChannelError is returned when a channel entry is unusable.
	InvalidChannelError struct {
		Index  int
		Reason string
	}

	// InvalidConfigError collects field-level validation errors. It wraps
	// ErrInvalidConfig for errors.Is() compatibility.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config is the complete application configuration.
	Config struct {
		// InstallRoot is the directory releases are installed into.
		InstallRoot string `json:"install_root" toml:"install_root" mapstructure:"install_root"`
		// TokenFile holds a GitHub personal access token. Empty means
		// oauth.txt in the config directory.
		TokenFile string `json:"token_file" toml:"token_file" mapstructure:"token_file"`
		// RootTitle heads the channel menu.
		RootTitle string            `json:"root_title" toml:"root_title" mapstructure:"root_title"`
		API       APIConfig         `json:"api" toml:"api" mapstructure:"api"`
		Channels  []catalog.Channel `json:"channels" toml:"channels" mapstructure:"channels"`
		Verify    VerifyConfig      `json:"verify" toml:"verify" mapstructure:"verify"`
		UI        UIConfig          `json:"ui" toml:"ui" mapstructure:"ui"`
		App       AppConfig         `json:"app" toml:"app" mapstructure:"app"`
	}

	// APIConfig points the release client at a GitHub-compatible API.
	APIConfig struct {
		BaseURL   string `json:"base_url" toml:"base_url" mapstructure:"base_url"`
		UserAgent string `json:"user_agent,omitempty" toml:"user_agent,omitempty" mapstructure:"user_agent"`
	}

	// VerifyConfig controls post-download verification.
	VerifyConfig struct {
		// MinisignPublicKey enables signature checks for assets that publish a
		// ".minisig" companion.
		MinisignPublicKey string `json:"minisign_public_key,omitempty" toml:"minisign_public_key,omitempty" mapstructure:"minisign_public_key"`
		// RequireChecksums fails assets missing from a published manifest.
		RequireChecksums bool `json:"require_checksums" toml:"require_checksums" mapstructure:"require_checksums"`
	}

	// UIConfig contains UI preferences.
	UIConfig struct {
		Verbose            bool        `json:"verbose" toml:"verbose" mapstructure:"verbose"`
		ColorScheme        ColorScheme `json:"color_scheme" toml:"color_scheme" mapstructure:"color_scheme"`
		ProgressIntervalMS int         `json:"progress_interval_ms" toml:"progress_interval_ms" mapstructure:"progress_interval_ms"`
	}

	// AppConfig describes the installer itself.
	AppConfig struct {
		// Repository publishes installer releases for check-update.
		Repository string `json:"repository" toml:"repository" mapstructure:"repository"`
	}
)

// DefaultChannels are the three HDR release streams.
func DefaultChannels() []catalog.Channel {
	return []catalog.Channel{
		{Title: "Install HDR", Repository: "blu-dev/HDR-Release-Builds", EmptyMessage: "No current release builds are available."},
		{Title: "Install HDR-Beta", Repository: "blu-dev/HDR-Beta-Builds", EmptyMessage: "No current beta builds are available."},
		{Title: "Install HDR-Dev", Repository: "blu-dev/HDR-Dev-Builds", EmptyMessage: "No current developer builds are available."},
	}
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		InstallRoot: DefaultInstallRoot,
		TokenFile:   "",
		RootTitle:   DefaultRootTitle,
		API: APIConfig{
			BaseURL: DefaultBaseURL,
		},
		Channels: DefaultChannels(),
		Verify: VerifyConfig{
			RequireChecksums: false,
		},
		UI: UIConfig{
			Verbose:            false,
			ColorScheme:        ColorSchemeAuto,
			ProgressIntervalMS: 100,
		},
		App: AppConfig{
			Repository: DefaultAppRepository,
		},
	}
}

// ProgressInterval returns the progress throttle as a duration.
func (c UIConfig) ProgressInterval() time.Duration {
	return time.Duration(c.ProgressIntervalMS) * time.Millisecond
}

// String returns the string representation of the ColorScheme.
func (cs ColorScheme) String() string { return string(cs) }

// IsValid returns whether the ColorScheme is one of the defined color schemes.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: cs}}
	}
}

// Error implements the error interface.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns ErrInvalidColorScheme for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

func (e *InvalidChannelError) Error() string {
	return fmt.Sprintf("channels[%d]: %s", e.Index, e.Reason)
}

// Unwrap returns ErrInvalidChannel for errors.Is() compatibility.
func (e *InvalidChannelError) Unwrap() error { return ErrInvalidChannel }

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, fe := range e.FieldErrors {
		msgs = append(msgs, fe.Error())
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap exposes ErrInvalidConfig and every field error to errors.Is.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// IsValid checks the constraints that must hold after defaults, file and
// environment have been merged. Environment overrides bypass the CUE schema,
// so the schema's rules are repeated here.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if strings.TrimSpace(c.InstallRoot) == "" {
		errs = append(errs, errors.New("install_root must not be empty"))
	}
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		errs = append(errs, fmt.Errorf("api.base_url %q must be an http(s) URL", c.API.BaseURL))
	}
	for i, ch := range c.Channels {
		switch {
		case strings.TrimSpace(ch.Title) == "":
			errs = append(errs, &InvalidChannelError{Index: i, Reason: "title must not be empty"})
		case !repositoryPattern.MatchString(ch.Repository):
			errs = append(errs, &InvalidChannelError{Index: i, Reason: fmt.Sprintf("repository %q must be owner/name", ch.Repository)})
		}
	}
	if valid, fieldErrs := c.UI.ColorScheme.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if c.UI.ProgressIntervalMS < minProgressIntervalMS {
		errs = append(errs, fmt.Errorf("ui.progress_interval_ms must be at least %d", minProgressIntervalMS))
	}
	if c.App.Repository != "" && !repositoryPattern.MatchString(c.App.Repository) {
		errs = append(errs, fmt.Errorf("app.repository %q must be owner/name", c.App.Repository))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Validate returns the first validation error of cfg, or nil.
func Validate(cfg *Config) error {
	if valid, errs := cfg.IsValid(); !valid {
		return errs[0]
	}
	return nil
}
