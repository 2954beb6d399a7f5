package cmd

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/salmonumbrella/planview/internal/config"
	"github.com/salmonumbrella/planview/internal/output"
	"github.com/salmonumbrella/planview/internal/plan"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long: `Manage CLI configuration stored in ~/.config/planview/config.yaml.

Keys cover the default database (dsn, profile), the keyring backend, the
output format, and how plan text is read (depth_style, indent_width) and
drawn (color).`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfigFromFlag()
		if err != nil {
			return formatConfigLoadError(err)
		}
		if structuredOutputRequested() {
			return printStructured(configOutput(cfg))
		}

		w := stdoutFromContext(cmd.Context())
		fmt.Fprintln(w, "Config:")
		fmt.Fprintf(w, "  dsn: %s\n", maskDSN(cfg.DSN))
		fmt.Fprintf(w, "  profile: %s\n", cfg.Profile)
		fmt.Fprintf(w, "  keyring_backend: %s\n", cfg.KeyringBackend)
		fmt.Fprintf(w, "  output_format: %s\n", cfg.OutputFormat)
		fmt.Fprintf(w, "  depth_style: %s\n", cfg.DepthStyle)
		fmt.Fprintf(w, "  indent_width: %s\n", indentWidthString(cfg.IndentWidth))
		fmt.Fprintf(w, "  color: %s\n", cfg.Color)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Unset a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigUnset,
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List supported configuration keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		keys := supportedConfigKeys()
		sort.Strings(keys)

		if structuredOutputRequested() {
			return printStructured(keys)
		}

		w := stdoutFromContext(cmd.Context())
		fmt.Fprintln(w, "Supported keys:")
		for _, key := range keys {
			fmt.Fprintf(w, "  %s\n", key)
		}
		return nil
	},
}

func configPath() (string, error) {
	if strings.TrimSpace(configFile) != "" {
		return configFile, nil
	}
	return config.DefaultConfigPath()
}

func supportedConfigKeys() []string {
	return []string{
		"dsn",
		"profile",
		"keyring_backend",
		"output_format",
		"depth_style",
		"indent_width",
		"color",
	}
}

// applyConfigValue validates value before storing it so a bad config never
// reaches PersistentPreRunE.
func applyConfigValue(cfg *config.Config, key, value string) error {
	switch key {
	case "dsn":
		cfg.DSN = value
	case "profile":
		cfg.Profile = value
	case "keyring_backend":
		switch strings.ToLower(value) {
		case "auto", "keychain", "secret-service", "wincred", "file":
			cfg.KeyringBackend = strings.ToLower(value)
		default:
			return fmt.Errorf("invalid keyring_backend %q (expected auto|keychain|secret-service|wincred|file)", value)
		}
	case "output_format":
		format, err := output.ParseFormat(value)
		if err != nil {
			return err
		}
		cfg.OutputFormat = string(format)
	case "depth_style":
		style, err := plan.ParseStyle(value)
		if err != nil {
			return err
		}
		cfg.DepthStyle = string(style)
	case "indent_width":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("invalid indent_width %q (expected a positive integer)", value)
		}
		cfg.IndentWidth = n
	case "color":
		if _, err := resolveColor(strings.ToLower(value), false); err != nil {
			return err
		}
		cfg.Color = strings.ToLower(value)
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

func clearConfigValue(cfg *config.Config, key string) error {
	switch key {
	case "dsn":
		cfg.DSN = ""
	case "profile":
		cfg.Profile = ""
	case "keyring_backend":
		cfg.KeyringBackend = ""
	case "output_format":
		cfg.OutputFormat = ""
	case "depth_style":
		cfg.DepthStyle = ""
	case "indent_width":
		cfg.IndentWidth = 0
	case "color":
		cfg.Color = ""
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
	configCmd.AddCommand(configKeysCmd)

	rootCmd.AddCommand(configCmd)
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := strings.ToLower(strings.TrimSpace(args[0]))
	value := strings.TrimSpace(args[1])

	cfg, err := loadConfigFromFlag()
	if err != nil {
		return formatConfigLoadError(err)
	}

	if err := applyConfigValue(cfg, key, value); err != nil {
		return err
	}

	path, err := configPath()
	if err != nil {
		return err
	}
	if err := cfg.Save(path); err != nil {
		return err
	}

	if structuredOutputRequested() {
		if key == "dsn" {
			value = maskDSN(value)
		}
		return printStructured(map[string]string{
			"status": "updated",
			"key":    key,
			"value":  value,
		})
	}

	_, err = fmt.Fprintf(stdoutFromContext(cmd.Context()), "Updated %s\n", key)
	return err
}

func runConfigUnset(cmd *cobra.Command, args []string) error {
	key := strings.ToLower(strings.TrimSpace(args[0]))

	cfg, err := loadConfigFromFlag()
	if err != nil {
		return formatConfigLoadError(err)
	}

	if err := clearConfigValue(cfg, key); err != nil {
		return err
	}

	path, err := configPath()
	if err != nil {
		return err
	}
	if err := cfg.Save(path); err != nil {
		return err
	}

	if structuredOutputRequested() {
		return printStructured(map[string]string{
			"status": "unset",
			"key":    key,
		})
	}

	_, err = fmt.Fprintf(stdoutFromContext(cmd.Context()), "Unset %s\n", key)
	return err
}

func configOutput(cfg *config.Config) map[string]interface{} {
	return map[string]interface{}{
		"dsn":             maskDSN(cfg.DSN),
		"dsn_set":         cfg.DSN != "",
		"profile":         cfg.Profile,
		"keyring_backend": cfg.KeyringBackend,
		"output_format":   cfg.OutputFormat,
		"depth_style":     cfg.DepthStyle,
		"indent_width":    cfg.IndentWidth,
		"color":           cfg.Color,
	}
}

func indentWidthString(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}
