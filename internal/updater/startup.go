package updater

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	bannerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("3")).
			Padding(0, 2)
	versionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)

// CheckAndPrintBanner prints an update banner from the cached check result
// and returns a function that refreshes a stale cache. The banner never
// waits on the network; callers run the refresh in the background and may
// drop it at exit.
func (u *Updater) CheckAndPrintBanner(ctx context.Context, w io.Writer, cacheDir string) (refresh func()) {
	cache, err := LoadCache(cacheDir)
	if err != nil {
		u.logger.Debug("ignoring version cache", "err", err)
		cache = nil
	}

	if latest := u.pending(cache); latest != "" {
		PrintUpdateBanner(w, u.packageName, u.currentVersion, latest)
	}

	if IsCacheStale(cache, DefaultCacheMaxAge) || (cache != nil && cache.CurrentVersion != u.currentVersion) {
		return func() {
			if err := u.Refresh(ctx, cacheDir); err != nil {
				u.logger.Debug("update check failed", "err", err)
			}
		}
	}
	return func() {}
}

// pending returns the cached newer version, if it is still newer than the
// running binary.
func (u *Updater) pending(cache *VersionCache) string {
	if cache == nil || !cache.UpdateAvailable || cache.PackageName != u.packageName {
		return ""
	}
	newer, err := IsUpdateAvailable(u.currentVersion, cache.LatestVersion)
	if err != nil || !newer {
		return ""
	}
	return cache.LatestVersion
}

// Refresh checks the registry now and rewrites the cache.
func (u *Updater) Refresh(ctx context.Context, cacheDir string) error {
	latest, err := u.Check(ctx)
	if err != nil {
		return err
	}
	return SaveCache(cacheDir, &VersionCache{
		PackageName:     u.packageName,
		LatestVersion:   latest,
		CurrentVersion:  u.currentVersion,
		CheckedAt:       u.now(),
		UpdateAvailable: latest != "",
	})
}

// PrintUpdateBanner prints the update notification to w.
func PrintUpdateBanner(w io.Writer, pkg, current, latest string) {
	body := fmt.Sprintf("Update available: %s -> %s\nRun %s to upgrade",
		current, versionStyle.Render(latest),
		hintStyle.Render("npm install -g "+pkg))
	fmt.Fprintln(w, bannerStyle.Render(body))
}
