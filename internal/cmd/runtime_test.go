package cmd

import (
	"errors"
	"testing"

	"github.com/spf13/cobra"

	"github.com/salmonumbrella/planview/internal/config"
	"github.com/salmonumbrella/planview/internal/plan"
	"github.com/salmonumbrella/planview/internal/secrets"
	"github.com/salmonumbrella/planview/internal/source"
)

// newFlagCommand returns a command carrying the root's persistent flags so
// flagChanged can be exercised without executing the tree.
func newFlagCommand(t *testing.T) *cobra.Command {
	t.Helper()
	restore := snapshotCLIState()
	t.Cleanup(restore)

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().AddFlagSet(rootCmd.PersistentFlags())
	return cmd
}

func TestResolveDSNPrecedence(t *testing.T) {
	store := newFakeStore()
	store.profiles["cfgprof"] = secrets.Profile{Name: "cfgprof", DSN: "profile.db"}

	tests := []struct {
		name     string
		flags    map[string]string
		env      map[string]string
		cfg      *config.Config
		wantDSN  string
		wantFrom dsnSource
	}{
		{"default", nil, nil, &config.Config{}, source.DefaultDSN, dsnFromDefault},
		{"config", nil, nil, &config.Config{DSN: "cfg.db"}, "cfg.db", dsnFromConfig},
		{"profile beats config", nil, nil, &config.Config{DSN: "cfg.db", Profile: "cfgprof"}, "profile.db", dsnFromProfile},
		{"env beats profile", nil, map[string]string{"PLANVIEW_DSN": "env.db"}, &config.Config{Profile: "cfgprof"}, "env.db", dsnFromEnv},
		{"flag beats env", map[string]string{"dsn": "flag.db"}, map[string]string{"PLANVIEW_DSN": "env.db"}, nil, "flag.db", dsnFromFlag},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newFlagCommand(t)
			stubSecretsStore(t, store)
			envGet = func(key string) string { return tt.env[key] }
			for k, v := range tt.flags {
				if err := cmd.Flags().Set(k, v); err != nil {
					t.Fatalf("set flag: %v", err)
				}
			}

			dsn, from, err := resolveDSN(cmd, tt.cfg)
			if err != nil {
				t.Fatalf("resolveDSN: %v", err)
			}
			if dsn != tt.wantDSN || from != tt.wantFrom {
				t.Fatalf("got (%q, %s), want (%q, %s)", dsn, from, tt.wantDSN, tt.wantFrom)
			}
		})
	}
}

func TestResolveDSNStoreFailure(t *testing.T) {
	cmd := newFlagCommand(t)
	envGet = func(string) string { return "" }
	openSecretsStore = func() (secrets.Store, error) { return nil, errors.New("no keyring") }

	if _, _, err := resolveDSN(cmd, &config.Config{Profile: "x"}); err == nil {
		t.Fatal("expected error when a named profile cannot be read")
	}
	if _, from, err := resolveDSN(cmd, &config.Config{}); err != nil || from != dsnFromDefault {
		t.Fatalf("keyring must not be opened without a profile: from=%s err=%v", from, err)
	}
}

func TestResolveParseSettings(t *testing.T) {
	cmd := newFlagCommand(t)
	envGet = func(string) string { return "" }

	cfg := &config.Config{DepthStyle: "arrow", IndentWidth: 3, Color: "always"}
	if err := resolveParseSettings(cmd, cfg); err != nil {
		t.Fatalf("resolveParseSettings: %v", err)
	}
	if depthStyle != plan.StyleArrow || indentWidth != 3 || !renderOpts.Color {
		t.Fatalf("config not applied: style=%s indent=%d color=%v", depthStyle, indentWidth, renderOpts.Color)
	}

	for k, v := range map[string]string{"style": "tree", "indent": "8", "color": "never", "unicode": "true"} {
		if err := cmd.Flags().Set(k, v); err != nil {
			t.Fatalf("set %s: %v", k, err)
		}
	}
	if err := resolveParseSettings(cmd, cfg); err != nil {
		t.Fatalf("resolveParseSettings: %v", err)
	}
	if depthStyle != plan.StyleTree || indentWidth != 8 || renderOpts.Color || !renderOpts.Unicode {
		t.Fatalf("flags not applied: style=%s indent=%d opts=%+v", depthStyle, indentWidth, renderOpts)
	}
}

func TestResolveColor(t *testing.T) {
	tests := []struct {
		mode    string
		tty     bool
		noColor string
		want    bool
		wantErr bool
	}{
		{"", true, "", true, false},
		{"auto", false, "", false, false},
		{"auto", true, "1", false, false},
		{"always", false, "1", true, false},
		{"never", true, "", false, false},
		{"rainbow", true, "", false, true},
	}
	prev := envGet
	defer func() { envGet = prev }()
	for _, tt := range tests {
		noColor := tt.noColor
		envGet = func(key string) string {
			if key == "NO_COLOR" {
				return noColor
			}
			return ""
		}
		got, err := resolveColor(tt.mode, tt.tty)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("resolveColor(%q, %v) NO_COLOR=%q = %v, %v", tt.mode, tt.tty, tt.noColor, got, err)
		}
	}
}
