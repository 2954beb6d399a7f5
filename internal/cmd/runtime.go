package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/salmonumbrella/planview/internal/config"
	"github.com/salmonumbrella/planview/internal/plan"
	"github.com/salmonumbrella/planview/internal/source"
)

// loadConfigFromFlag loads config from --config if provided, otherwise from default path.
func loadConfigFromFlag() (*config.Config, error) {
	if strings.TrimSpace(configFile) != "" {
		return config.Load(configFile)
	}
	return config.ReadConfig()
}

func flagChanged(cmd *cobra.Command, name string) bool {
	if cmd == nil {
		return false
	}
	if cmd.Flags().Changed(name) {
		return true
	}
	return cmd.InheritedFlags().Changed(name)
}

// resolveParseSettings fills depthStyle, indentWidth and renderOpts with
// precedence: flags > config > defaults.
func resolveParseSettings(cmd *cobra.Command, cfg *config.Config) error {
	styleStr := strings.TrimSpace(styleFlag)
	if !flagChanged(cmd, "style") && cfg != nil {
		styleStr = strings.TrimSpace(cfg.DepthStyle)
	}
	style, err := plan.ParseStyle(styleStr)
	if err != nil {
		return err
	}
	depthStyle = style

	width := plan.DefaultIndentWidth
	switch {
	case flagChanged(cmd, "indent"):
		if indentFlag < 1 {
			return fmt.Errorf("invalid --indent %d (must be at least 1)", indentFlag)
		}
		width = indentFlag
	case cfg != nil && cfg.IndentWidth > 0:
		width = cfg.IndentWidth
	}
	indentWidth = width

	mode := strings.ToLower(strings.TrimSpace(colorFlag))
	if !flagChanged(cmd, "color") && cfg != nil {
		mode = strings.ToLower(strings.TrimSpace(cfg.Color))
	}
	useColor, err := resolveColor(mode, isTerminal(cmd.OutOrStdout()))
	if err != nil {
		return err
	}
	renderOpts = plan.RenderOptions{Unicode: unicodeFlag, Color: useColor, Details: true}
	return nil
}

// resolveColor decides whether tree output is colored. NO_COLOR disables
// auto mode only.
func resolveColor(mode string, tty bool) (bool, error) {
	switch mode {
	case "", "auto":
		return tty && strings.TrimSpace(envGet("NO_COLOR")) == "", nil
	case "always":
		return true, nil
	case "never":
		return false, nil
	default:
		return false, fmt.Errorf("invalid --color %q (expected auto|always|never)", mode)
	}
}

// dsnSource names where resolveDSN found the data source name.
type dsnSource string

const (
	dsnFromFlag    dsnSource = "flag"
	dsnFromEnv     dsnSource = "env"
	dsnFromProfile dsnSource = "profile"
	dsnFromConfig  dsnSource = "config"
	dsnFromDefault dsnSource = "default"
)

// resolveDSN resolves the SQLite DSN with precedence:
// flags > env > keyring profile > config > in-memory database.
// A named profile that cannot be loaded is an error rather than a fallthrough.
func resolveDSN(cmd *cobra.Command, cfg *config.Config) (string, dsnSource, error) {
	if flagChanged(cmd, "dsn") {
		if v := strings.TrimSpace(dsnFlag); v != "" {
			return v, dsnFromFlag, nil
		}
	}
	if v := strings.TrimSpace(envGet("PLANVIEW_DSN")); v != "" {
		return v, dsnFromEnv, nil
	}

	name := ""
	if flagChanged(cmd, "profile") {
		name = strings.TrimSpace(profileName)
	}
	if name == "" {
		name = strings.TrimSpace(envGet("PLANVIEW_PROFILE"))
	}
	if name == "" && cfg != nil {
		name = strings.TrimSpace(cfg.Profile)
	}
	if name != "" {
		store, err := openSecretsStore()
		if err != nil {
			return "", "", fmt.Errorf("open keyring: %w", err)
		}
		p, err := store.GetProfile(name)
		if err != nil {
			return "", "", err
		}
		return p.DSN, dsnFromProfile, nil
	}

	if cfg != nil {
		if v := strings.TrimSpace(cfg.DSN); v != "" {
			return v, dsnFromConfig, nil
		}
	}
	return source.DefaultDSN, dsnFromDefault, nil
}

func formatConfigLoadError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("load config: %w", err)
}
