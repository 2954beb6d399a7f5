// Package secrets keeps connection profiles in the system keyring. DSNs may
// carry passwords or encryption keys, so they are not written to the config
// file.
package secrets

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/99designs/keyring"
	"golang.org/x/term"

	"github.com/salmonumbrella/planview/internal/config"
)

const (
	profileKeyPrefix   = "profile:"
	keyringOpenTimeout = 5 * time.Second

	envKeyringBackend  = "PLANVIEW_KEYRING_BACKEND"
	envKeyringPassword = "PLANVIEW_KEYRING_PASSWORD"
)

// Profile is a named connection.
type Profile struct {
	Name      string    `json:"name" yaml:"name"`
	DSN       string    `json:"dsn" yaml:"dsn"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Store persists profiles.
type Store interface {
	Keys() ([]string, error)
	SetProfile(p Profile) error
	GetProfile(name string) (Profile, error)
	DeleteProfile(name string) error
	ListProfiles() ([]Profile, error)
}

// ErrProfileNotFound is returned when no profile has the requested name.
var ErrProfileNotFound = errors.New("profile not found")

var errKeyringTimeout = errors.New("keyring connection timed out")

var keyringOpenFunc = keyring.Open

// KeyringStore is a Store backed by 99designs/keyring.
type KeyringStore struct {
	ring keyring.Keyring
}

// NewKeyringStore wraps an open keyring.
func NewKeyringStore(ring keyring.Keyring) *KeyringStore {
	return &KeyringStore{ring: ring}
}

// KeyringBackendInfo records which backend was requested and where the
// choice came from.
type KeyringBackendInfo struct {
	Value  string
	Source string
}

// ResolveKeyringBackend picks the backend: env > config > auto.
func ResolveKeyringBackend() KeyringBackendInfo {
	if v := strings.ToLower(strings.TrimSpace(os.Getenv(envKeyringBackend))); v != "" {
		return KeyringBackendInfo{Value: v, Source: "env"}
	}
	if cfg, err := config.ReadConfig(); err == nil && strings.TrimSpace(cfg.KeyringBackend) != "" {
		return KeyringBackendInfo{Value: strings.ToLower(strings.TrimSpace(cfg.KeyringBackend)), Source: "config"}
	}
	return KeyringBackendInfo{Value: "auto", Source: "default"}
}

// Without a D-Bus session the Secret Service backend hangs or fails, so the
// encrypted file backend is used instead.
func shouldForceFileBackend(goos string, info KeyringBackendInfo, dbusAddr string) bool {
	return goos == "linux" && info.Value == "auto" && dbusAddr == ""
}

func shouldUseKeyringTimeout(goos string, info KeyringBackendInfo, dbusAddr string) bool {
	return goos == "linux" && info.Value == "auto" && dbusAddr != ""
}

func allowedBackends(info KeyringBackendInfo) ([]keyring.BackendType, error) {
	switch info.Value {
	case "", "auto":
		return nil, nil
	case "keychain":
		return []keyring.BackendType{keyring.KeychainBackend}, nil
	case "secret-service":
		return []keyring.BackendType{keyring.SecretServiceBackend}, nil
	case "wincred":
		return []keyring.BackendType{keyring.WinCredBackend}, nil
	case "file":
		return []keyring.BackendType{keyring.FileBackend}, nil
	default:
		return nil, fmt.Errorf("invalid keyring backend %q (expected auto|keychain|secret-service|wincred|file)", info.Value)
	}
}

// OpenDefault opens the platform keyring.
func OpenDefault() (Store, error) {
	info := ResolveKeyringBackend()
	backends, err := allowedBackends(info)
	if err != nil {
		return nil, err
	}

	dbusAddr := os.Getenv("DBUS_SESSION_BUS_ADDRESS")
	if shouldForceFileBackend(runtime.GOOS, info, dbusAddr) {
		backends = []keyring.BackendType{keyring.FileBackend}
	}

	dir, err := config.EnsureKeyringDir()
	if err != nil {
		return nil, err
	}

	cfg := keyring.Config{
		ServiceName:              config.AppName,
		AllowedBackends:          backends,
		KeychainTrustApplication: true,
		FileDir:                  dir,
		FilePasswordFunc:         filePassword,
	}

	var ring keyring.Keyring
	if shouldUseKeyringTimeout(runtime.GOOS, info, dbusAddr) {
		ring, err = openKeyringWithTimeout(cfg, keyringOpenTimeout)
	} else {
		ring, err = keyringOpenFunc(cfg)
	}
	if err != nil {
		return nil, wrapKeychainError(fmt.Errorf("opening keyring: %w", err))
	}
	return NewKeyringStore(ring), nil
}

func filePassword(prompt string) (string, error) {
	if pw := os.Getenv(envKeyringPassword); pw != "" {
		return pw, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("keyring password required: set %s", envKeyringPassword)
	}
	fmt.Fprintf(os.Stderr, "%s: ", prompt)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading keyring password: %w", err)
	}
	return string(pw), nil
}

func openKeyringWithTimeout(cfg keyring.Config, timeout time.Duration) (keyring.Keyring, error) {
	type result struct {
		ring keyring.Keyring
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		ring, err := keyringOpenFunc(cfg)
		ch <- result{ring: ring, err: err}
	}()

	select {
	case r := <-ch:
		return r.ring, r.err
	case <-time.After(timeout):
		return nil, fmt.Errorf("%w after %s; set %s=file to use the encrypted file backend", errKeyringTimeout, timeout, envKeyringBackend)
	}
}

// IsKeychainLockedError reports whether a keyring error message means the
// macOS keychain is locked.
func IsKeychainLockedError(msg string) bool {
	return strings.Contains(msg, "errSecInteractionNotAllowed") || strings.Contains(msg, "-25308")
}

func wrapKeychainError(err error) error {
	if err == nil {
		return nil
	}
	if IsKeychainLockedError(err.Error()) {
		return fmt.Errorf("%w\n\nThe keychain is locked. Unlock it with:\n  security unlock-keychain ~/Library/Keychains/login.keychain-db", err)
	}
	return err
}

func profileKey(name string) string {
	return profileKeyPrefix + name
}

func normalizeProfileName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("profile name required")
	}
	if strings.ContainsAny(name, " \t\n/") {
		return "", fmt.Errorf("invalid profile name %q", name)
	}
	return name, nil
}

// Keys lists raw keyring keys.
func (s *KeyringStore) Keys() ([]string, error) {
	keys, err := s.ring.Keys()
	if err != nil {
		return nil, wrapKeychainError(err)
	}
	return keys, nil
}

// SetProfile stores or replaces a profile.
func (s *KeyringStore) SetProfile(p Profile) error {
	name, err := normalizeProfileName(p.Name)
	if err != nil {
		return err
	}
	if strings.TrimSpace(p.DSN) == "" {
		return fmt.Errorf("dsn required")
	}
	p.Name = name
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	if err := s.ring.Set(keyring.Item{
		Key:   profileKey(name),
		Data:  data,
		Label: config.AppName + " " + name,
	}); err != nil {
		return wrapKeychainError(fmt.Errorf("storing profile: %w", err))
	}
	return nil
}

// GetProfile loads a profile by name.
func (s *KeyringStore) GetProfile(name string) (Profile, error) {
	name, err := normalizeProfileName(name)
	if err != nil {
		return Profile{}, err
	}
	item, err := s.ring.Get(profileKey(name))
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return Profile{}, fmt.Errorf("%w: %s", ErrProfileNotFound, name)
		}
		return Profile{}, wrapKeychainError(fmt.Errorf("reading profile: %w", err))
	}

	var p Profile
	if err := json.Unmarshal(item.Data, &p); err != nil {
		return Profile{}, fmt.Errorf("decoding profile %s: %w", name, err)
	}
	return p, nil
}

// DeleteProfile removes a profile.
func (s *KeyringStore) DeleteProfile(name string) error {
	name, err := normalizeProfileName(name)
	if err != nil {
		return err
	}
	if err := s.ring.Remove(profileKey(name)); err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrProfileNotFound, name)
		}
		return wrapKeychainError(fmt.Errorf("deleting profile: %w", err))
	}
	return nil
}

// ListProfiles returns all profiles sorted by name.
func (s *KeyringStore) ListProfiles() ([]Profile, error) {
	keys, err := s.Keys()
	if err != nil {
		return nil, err
	}
	var profiles []Profile
	for _, key := range keys {
		if !strings.HasPrefix(key, profileKeyPrefix) {
			continue
		}
		p, err := s.GetProfile(strings.TrimPrefix(key, profileKeyPrefix))
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].Name < profiles[j].Name })
	return profiles, nil
}
