package updater

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type fakeChecker struct {
	newer string
	err   error
	calls int
	name  string
}

func (f *fakeChecker) Newer(_ context.Context, name, _ string) (string, error) {
	f.calls++
	f.name = name
	return f.newer, f.err
}

func TestRefreshWritesCache(t *testing.T) {
	dir := t.TempDir()
	checker := &fakeChecker{newer: "1.4.0"}
	u := New("1.2.0", checker, WithPackageName("@oppnys/cli"))

	if err := u.Refresh(context.Background(), dir); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if checker.name != "@oppnys/cli" {
		t.Errorf("checked package %q", checker.name)
	}
	cache, err := LoadCache(dir)
	if err != nil || cache == nil {
		t.Fatalf("LoadCache = %v, %v", cache, err)
	}
	if !cache.UpdateAvailable || cache.LatestVersion != "1.4.0" || cache.CurrentVersion != "1.2.0" {
		t.Errorf("cache = %+v", cache)
	}
}

func TestRefreshUpToDate(t *testing.T) {
	dir := t.TempDir()
	u := New("1.2.0", &fakeChecker{})
	if err := u.Refresh(context.Background(), dir); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	cache, _ := LoadCache(dir)
	if cache == nil || cache.UpdateAvailable {
		t.Errorf("cache = %+v, want no update", cache)
	}
}

func TestCheckRejectsDevBuild(t *testing.T) {
	checker := &fakeChecker{newer: "9.9.9"}
	u := New("dev", checker)
	if _, err := u.Check(context.Background()); err == nil {
		t.Fatal("expected error for non-release version")
	}
	if checker.calls != 0 {
		t.Error("registry must not be queried for a dev build")
	}
}

func TestRefreshError(t *testing.T) {
	dir := t.TempDir()
	u := New("1.0.0", &fakeChecker{err: errors.New("offline")})
	if err := u.Refresh(context.Background(), dir); err == nil {
		t.Fatal("expected error")
	}
	if cache, _ := LoadCache(dir); cache != nil {
		t.Error("failed check must not write the cache")
	}
}

func TestCheckAndPrintBanner(t *testing.T) {
	tests := []struct {
		name        string
		cache       *VersionCache
		current     string
		wantBanner  bool
		wantRefresh bool
	}{
		{
			name:        "first run",
			cache:       nil,
			current:     "1.0.0",
			wantBanner:  false,
			wantRefresh: true,
		},
		{
			name:        "fresh cache with update",
			cache:       &VersionCache{PackageName: "@oppnys/cli", LatestVersion: "1.1.0", CurrentVersion: "1.0.0", CheckedAt: time.Now(), UpdateAvailable: true},
			current:     "1.0.0",
			wantBanner:  true,
			wantRefresh: false,
		},
		{
			name:        "fresh cache without update",
			cache:       &VersionCache{PackageName: "@oppnys/cli", CurrentVersion: "1.0.0", CheckedAt: time.Now()},
			current:     "1.0.0",
			wantBanner:  false,
			wantRefresh: false,
		},
		{
			name:        "already upgraded past cached latest",
			cache:       &VersionCache{PackageName: "@oppnys/cli", LatestVersion: "1.1.0", CurrentVersion: "1.0.0", CheckedAt: time.Now(), UpdateAvailable: true},
			current:     "1.1.0",
			wantBanner:  false,
			wantRefresh: true,
		},
		{
			name:        "stale cache",
			cache:       &VersionCache{PackageName: "@oppnys/cli", LatestVersion: "1.1.0", CurrentVersion: "1.0.0", CheckedAt: time.Now().Add(-48 * time.Hour), UpdateAvailable: true},
			current:     "1.0.0",
			wantBanner:  true,
			wantRefresh: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.cache != nil {
				if err := SaveCache(dir, tt.cache); err != nil {
					t.Fatal(err)
				}
			}
			checker := &fakeChecker{}
			u := New(tt.current, checker, WithPackageName("@oppnys/cli"))

			var out bytes.Buffer
			refresh := u.CheckAndPrintBanner(context.Background(), &out, dir)
			refresh()

			if got := strings.Contains(out.String(), "Update available"); got != tt.wantBanner {
				t.Errorf("banner printed = %v, want %v (output %q)", got, tt.wantBanner, out.String())
			}
			if got := checker.calls > 0; got != tt.wantRefresh {
				t.Errorf("refreshed = %v, want %v", got, tt.wantRefresh)
			}
		})
	}
}

func TestPrintUpdateBanner(t *testing.T) {
	var out bytes.Buffer
	PrintUpdateBanner(&out, "@oppnys/cli", "1.0.0", "1.1.0")
	for _, want := range []string{"1.0.0", "1.1.0", "npm install -g @oppnys/cli"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("banner missing %q: %q", want, out.String())
		}
	}
}
