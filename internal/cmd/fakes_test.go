package cmd

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/salmonumbrella/planview/internal/secrets"
	"github.com/salmonumbrella/planview/internal/source"
)

type fakeSource struct {
	planText string
	fetchErr error
	execErr  error

	gotQuery string
	gotExec  string
	closed   bool
}

func (f *fakeSource) FetchPlanText(ctx context.Context, query string) (string, error) {
	f.gotQuery = query
	if f.fetchErr != nil {
		return "", f.fetchErr
	}
	return f.planText, nil
}

func (f *fakeSource) Exec(ctx context.Context, statements string) error {
	f.gotExec = statements
	return f.execErr
}

func (f *fakeSource) Close() error {
	f.closed = true
	return nil
}

// stubPlanSource makes explain use src and records the DSN it was opened
// with.
func stubPlanSource(t *testing.T, src *fakeSource) *string {
	t.Helper()
	prev := openPlanSource
	t.Cleanup(func() { openPlanSource = prev })

	var gotDSN string
	openPlanSource = func(ctx context.Context, dsn string) (source.PlanSource, error) {
		gotDSN = dsn
		return src, nil
	}
	return &gotDSN
}

type fakeStore struct {
	profiles map[string]secrets.Profile
}

func newFakeStore() *fakeStore {
	return &fakeStore{profiles: map[string]secrets.Profile{}}
}

func (s *fakeStore) Keys() ([]string, error) {
	keys := make([]string, 0, len(s.profiles))
	for name := range s.profiles {
		keys = append(keys, "profile:"+name)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *fakeStore) SetProfile(p secrets.Profile) error {
	s.profiles[p.Name] = p
	return nil
}

func (s *fakeStore) GetProfile(name string) (secrets.Profile, error) {
	p, ok := s.profiles[name]
	if !ok {
		return secrets.Profile{}, fmt.Errorf("%w: %s", secrets.ErrProfileNotFound, name)
	}
	return p, nil
}

func (s *fakeStore) DeleteProfile(name string) error {
	if _, ok := s.profiles[name]; !ok {
		return fmt.Errorf("%w: %s", secrets.ErrProfileNotFound, name)
	}
	delete(s.profiles, name)
	return nil
}

func (s *fakeStore) ListProfiles() ([]secrets.Profile, error) {
	var out []secrets.Profile
	for _, p := range s.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func stubSecretsStore(t *testing.T, store secrets.Store) {
	t.Helper()
	prev := openSecretsStore
	t.Cleanup(func() { openSecretsStore = prev })
	openSecretsStore = func() (secrets.Store, error) { return store, nil }
}
