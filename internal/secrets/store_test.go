package secrets

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/99designs/keyring"
)

func TestWrapKeychainError_IncludesRecoveryInstructions(t *testing.T) {
	lockedErr := fmt.Errorf("operation failed: errSecInteractionNotAllowed -25308")
	wrapped := wrapKeychainError(lockedErr)

	errStr := wrapped.Error()
	if !strings.Contains(errStr, "security unlock-keychain") {
		t.Errorf("wrapKeychainError() should include unlock instructions, got: %s", errStr)
	}
	if !errors.Is(wrapped, lockedErr) {
		t.Error("wrapKeychainError() should wrap the original error")
	}
}

func TestWrapKeychainError_NilError(t *testing.T) {
	wrapped := wrapKeychainError(nil)
	if wrapped != nil {
		t.Errorf("wrapKeychainError(nil) should return nil, got: %v", wrapped)
	}
}

func TestWrapKeychainError_NonLockedError(t *testing.T) {
	originalErr := fmt.Errorf("some other error")
	wrapped := wrapKeychainError(originalErr)

	if wrapped != originalErr {
		t.Errorf("wrapKeychainError() should return original error unchanged for non-locked errors, got: %v", wrapped)
	}
}

func TestKeyringTimeoutError_IncludesRecoveryInstructions(t *testing.T) {
	originalOpen := keyringOpenFunc

	mockDone := make(chan struct{})

	keyringOpenFunc = func(_ keyring.Config) (keyring.Keyring, error) {
		defer close(mockDone)
		time.Sleep(200 * time.Millisecond)
		return newFakeKeyring(), nil
	}

	_, err := openKeyringWithTimeout(keyring.Config{}, 50*time.Millisecond)

	<-mockDone
	keyringOpenFunc = originalOpen

	if err == nil {
		t.Fatal("openKeyringWithTimeout() expected error, got nil")
	}

	errStr := err.Error()
	if !strings.Contains(errStr, "PLANVIEW_KEYRING_BACKEND=file") {
		t.Errorf("timeout error should mention file backend, got: %s", errStr)
	}
}

func TestProfileRoundTrip(t *testing.T) {
	store := NewKeyringStore(newFakeKeyring())

	if err := store.SetProfile(Profile{Name: " prod ", DSN: "file:prod.db?mode=ro"}); err != nil {
		t.Fatalf("SetProfile() error = %v", err)
	}
	if err := store.SetProfile(Profile{Name: "dev", DSN: ":memory:"}); err != nil {
		t.Fatalf("SetProfile() error = %v", err)
	}

	got, err := store.GetProfile("prod")
	if err != nil {
		t.Fatalf("GetProfile() error = %v", err)
	}
	if got.Name != "prod" || got.DSN != "file:prod.db?mode=ro" {
		t.Fatalf("GetProfile() = %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}

	list, err := store.ListProfiles()
	if err != nil {
		t.Fatalf("ListProfiles() error = %v", err)
	}
	if len(list) != 2 || list[0].Name != "dev" || list[1].Name != "prod" {
		t.Fatalf("ListProfiles() = %+v", list)
	}

	if err := store.DeleteProfile("prod"); err != nil {
		t.Fatalf("DeleteProfile() error = %v", err)
	}
	if _, err := store.GetProfile("prod"); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("GetProfile() after delete error = %v, want ErrProfileNotFound", err)
	}
	if err := store.DeleteProfile("prod"); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("DeleteProfile() twice error = %v, want ErrProfileNotFound", err)
	}
}

func TestSetProfileValidation(t *testing.T) {
	store := NewKeyringStore(newFakeKeyring())
	tests := []Profile{
		{Name: "", DSN: "x"},
		{Name: "has space", DSN: "x"},
		{Name: "ok", DSN: "  "},
	}
	for _, p := range tests {
		if err := store.SetProfile(p); err == nil {
			t.Errorf("SetProfile(%+v) expected error", p)
		}
	}
}

func TestListProfilesIgnoresForeignKeys(t *testing.T) {
	ring := newFakeKeyring()
	ring.items["other"] = keyring.Item{Key: "other", Data: []byte("x")}
	store := NewKeyringStore(ring)
	if err := store.SetProfile(Profile{Name: "a", DSN: "file:a.db"}); err != nil {
		t.Fatalf("SetProfile() error = %v", err)
	}
	list, err := store.ListProfiles()
	if err != nil {
		t.Fatalf("ListProfiles() error = %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 profile, got %d", len(list))
	}
}

func TestAllowedBackends(t *testing.T) {
	tests := []struct {
		value   string
		want    []keyring.BackendType
		wantErr bool
	}{
		{"auto", nil, false},
		{"", nil, false},
		{"file", []keyring.BackendType{keyring.FileBackend}, false},
		{"keychain", []keyring.BackendType{keyring.KeychainBackend}, false},
		{"bogus", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := allowedBackends(KeyringBackendInfo{Value: tt.value})
			if (err != nil) != tt.wantErr {
				t.Fatalf("allowedBackends() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != len(tt.want) || (len(got) > 0 && got[0] != tt.want[0]) {
				t.Fatalf("allowedBackends() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolveKeyringBackendFromEnv(t *testing.T) {
	t.Setenv("PLANVIEW_KEYRING_BACKEND", " FILE ")
	info := ResolveKeyringBackend()
	if info.Value != "file" || info.Source != "env" {
		t.Fatalf("ResolveKeyringBackend() = %+v", info)
	}
}
