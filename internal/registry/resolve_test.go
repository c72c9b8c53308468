package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/oppnys/oppnys/pkg/clierr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRegistry struct {
	versions []string
	err      error
	calls    int
}

func (f *fakeRegistry) Versions(_ context.Context, _ string) ([]string, error) {
	f.calls++
	return f.versions, f.err
}

var published = []string{"1.0.0", "1.0.5", "1.1.0", "2.0.0"}

func TestResolveLatestPicksMaximum(t *testing.T) {
	r := NewResolver(&fakeRegistry{versions: published})

	got, err := r.Resolve(context.Background(), "@oppnys/init", Latest)
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", got)
}

func TestResolveEmptyConstraintMeansLatest(t *testing.T) {
	r := NewResolver(&fakeRegistry{versions: published})

	got, err := r.Resolve(context.Background(), "@oppnys/init", "")
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", got)
}

func TestResolveCompatiblePicksMaximumInMajor(t *testing.T) {
	r := NewResolver(&fakeRegistry{versions: published})

	got, err := r.Resolve(context.Background(), "@oppnys/init", "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, "1.1.0", got)
}

func TestResolveUsesSemverNotLexicalOrder(t *testing.T) {
	r := NewResolver(&fakeRegistry{versions: []string{"1.2.0", "1.10.0", "1.9.3"}})

	got, err := r.Resolve(context.Background(), "pkg", Latest)
	require.NoError(t, err)
	assert.Equal(t, "1.10.0", got)

	got, err = r.Resolve(context.Background(), "pkg", "1.2.0")
	require.NoError(t, err)
	assert.Equal(t, "1.10.0", got)
}

func TestResolveSkipsInvalidVersionKeys(t *testing.T) {
	r := NewResolver(&fakeRegistry{versions: []string{"not-a-version", "1.0.0", "latest"}})

	got, err := r.Resolve(context.Background(), "pkg", Latest)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", got)
}

func TestResolveNoCompatibleVersion(t *testing.T) {
	r := NewResolver(&fakeRegistry{versions: published})

	got, err := r.Resolve(context.Background(), "pkg", "3.0.0")
	assert.Empty(t, got)
	assert.ErrorIs(t, err, clierr.ErrResolution)
	assert.ErrorIs(t, err, ErrNoMatchingVersion)
}

func TestResolveNoVersions(t *testing.T) {
	r := NewResolver(&fakeRegistry{})

	_, err := r.Resolve(context.Background(), "pkg", Latest)
	assert.ErrorIs(t, err, clierr.ErrResolution)
	assert.ErrorIs(t, err, ErrNoVersions)

	_, err = r.Resolve(context.Background(), "pkg", "1.0.0")
	assert.ErrorIs(t, err, clierr.ErrResolution)
}

func TestResolveRegistryUnreachable(t *testing.T) {
	boom := errors.New("dial tcp: connection refused")
	r := NewResolver(&fakeRegistry{err: boom})

	_, err := r.Resolve(context.Background(), "pkg", Latest)
	assert.ErrorIs(t, err, clierr.ErrResolution)
	assert.ErrorIs(t, err, boom)
}

func TestResolveInvalidConstraint(t *testing.T) {
	r := NewResolver(&fakeRegistry{versions: published})

	_, err := r.Resolve(context.Background(), "pkg", "banana")
	assert.ErrorIs(t, err, clierr.ErrConfiguration)
}

func TestNewer(t *testing.T) {
	tests := []struct {
		name    string
		current string
		want    string
	}{
		{"update in major", "1.0.0", "1.1.0"},
		{"up to date", "1.1.0", ""},
		{"ahead of registry", "1.2.0", ""},
		{"major not published", "3.0.0", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(&fakeRegistry{versions: published})
			got, err := r.Newer(context.Background(), "@oppnys/cli", tt.current)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMaxVersionPrerelease(t *testing.T) {
	got, err := MaxVersion([]string{"1.0.0-beta.1", "1.0.0-alpha"})
	require.NoError(t, err)
	assert.Equal(t, "1.0.0-beta.1", got)
}

func TestIsLatest(t *testing.T) {
	assert.True(t, IsLatest("latest"))
	assert.True(t, IsLatest(" "))
	assert.False(t, IsLatest("1.0.0"))
}
