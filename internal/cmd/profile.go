package cmd

import (
	"bufio"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/salmonumbrella/planview/internal/output"
	"github.com/salmonumbrella/planview/internal/secrets"
)

var profileReveal bool

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage stored connection profiles",
	Long: `Manage named SQLite connection profiles kept in the system keyring.

DSNs can carry encryption keys or credentials, so they are stored in the
keyring rather than in config.yaml. Select a profile with --profile,
PLANVIEW_PROFILE, or "planview config set profile <name>".

Environment Variables:
  PLANVIEW_KEYRING_BACKEND    auto|keychain|secret-service|wincred|file
  PLANVIEW_KEYRING_PASSWORD   Password for the file backend`,
}

var profileSetCmd = &cobra.Command{
	Use:   "set <name> <dsn>",
	Short: "Create or replace a profile",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openSecretsStore()
		if err != nil {
			return err
		}
		p := secrets.Profile{Name: args[0], DSN: strings.TrimSpace(args[1]), CreatedAt: time.Now().UTC()}
		if err := store.SetProfile(p); err != nil {
			return err
		}

		if structuredOutputRequested() {
			return printStructured(map[string]string{
				"status": "saved",
				"name":   strings.TrimSpace(p.Name),
				"dsn":    maskDSN(p.DSN),
			})
		}
		_, err = fmt.Fprintf(stdoutFromContext(cmd.Context()), "Saved profile %s\n", strings.TrimSpace(p.Name))
		return err
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openSecretsStore()
		if err != nil {
			return err
		}
		p, err := store.GetProfile(args[0])
		if err != nil {
			return err
		}
		return printStructured(profileOutput(p))
	},
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openSecretsStore()
		if err != nil {
			return err
		}
		profiles, err := store.ListProfiles()
		if err != nil {
			return err
		}

		rows := make([]profileRow, 0, len(profiles))
		for _, p := range profiles {
			rows = append(rows, profileOutput(p))
		}
		if GetOutputFormat() == output.FormatText {
			if len(rows) == 0 {
				printNotice(cmd.Context(), "No profiles stored")
				return nil
			}
			ctx := cmd.Context()
			return output.NewPrinter(stdoutFromContext(ctx), output.FormatTable).Print(ctx, rows)
		}
		return printStructured(rows)
	},
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		name := strings.TrimSpace(args[0])
		if !output.YesFromContext(ctx) {
			ok, err := confirm(cmd, fmt.Sprintf("Delete profile %s?", name))
			if err != nil {
				return err
			}
			if !ok {
				printNotice(ctx, "Cancelled")
				return nil
			}
		}

		store, err := openSecretsStore()
		if err != nil {
			return err
		}
		if err := store.DeleteProfile(name); err != nil {
			return err
		}

		if structuredOutputRequested() {
			return printStructured(map[string]string{"status": "deleted", "name": name})
		}
		_, err = fmt.Fprintf(stdoutFromContext(ctx), "Deleted profile %s\n", name)
		return err
	},
}

func init() {
	profileShowCmd.Flags().BoolVar(&profileReveal, "reveal", false, "Print the DSN without masking")

	profileCmd.AddCommand(profileSetCmd)
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileDeleteCmd)

	rootCmd.AddCommand(profileCmd)
}

type profileRow struct {
	Name      string `json:"name" yaml:"name"`
	DSN       string `json:"dsn" yaml:"dsn"`
	CreatedAt string `json:"created_at" yaml:"created_at"`
}

func profileOutput(p secrets.Profile) profileRow {
	dsn := maskDSN(p.DSN)
	if profileReveal {
		dsn = p.DSN
	}
	created := ""
	if !p.CreatedAt.IsZero() {
		created = p.CreatedAt.Format(time.RFC3339)
	}
	return profileRow{Name: p.Name, DSN: dsn, CreatedAt: created}
}

// confirm asks a yes/no question on stderr and reads the answer from stdin.
// Without a terminal it refuses instead of blocking.
func confirm(cmd *cobra.Command, prompt string) (bool, error) {
	ctx := cmd.Context()
	in := stdinFromContext(ctx)
	if !inputHasData(in) && !isTerminal(stderrFromContext(ctx)) {
		return false, fmt.Errorf("confirmation required: rerun with --yes")
	}
	_, _ = fmt.Fprintf(stderrFromContext(ctx), "%s [y/N]: ", prompt)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		return false, nil
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// maskDSN hides credentials and key material. Query parameters are dropped
// and URL passwords replaced; plain file paths are shown as-is.
func maskDSN(dsn string) string {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return ""
	}
	base, query, hasQuery := strings.Cut(dsn, "?")
	if u, err := url.Parse(base); err == nil && u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "xxxxx")
			base = u.String()
		}
	}
	if hasQuery && query != "" {
		return base + "?..."
	}
	return base
}
