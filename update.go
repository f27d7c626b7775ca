package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/blang/semver"
	"github.com/rhysd/go-github-selfupdate/selfupdate"
)

const (
	updateSlug         = "Hopesy/Cade"
	updateCheckTimeout = 5 * time.Second
	installCommand     = "go install github.com/Hopesy/Cade@latest"
)

// releaseDetector looks up the newest release of a GitHub repository.
type releaseDetector func(slug string) (*selfupdate.Release, bool, error)

// parseVersion parses a version string, handling "v" prefix
func parseVersion(v string) (semver.Version, error) {
	return semver.Parse(strings.TrimPrefix(v, "v"))
}

// checkForUpdates reports the newest stable release when it is newer than
// current. Development builds are never checked.
func checkForUpdates(ctx context.Context, current string, detect releaseDetector) (semver.Version, bool, error) {
	if current == "" || current == "dev" {
		return semver.Version{}, false, nil
	}
	cur, err := parseVersion(current)
	if err != nil {
		return semver.Version{}, false, fmt.Errorf("invalid current version: %w", err)
	}

	type result struct {
		release *selfupdate.Release
		found   bool
		err     error
	}
	done := make(chan result, 1)
	go func() {
		release, found, err := detect(updateSlug)
		done <- result{release, found, err}
	}()

	ctx, cancel := context.WithTimeout(ctx, updateCheckTimeout)
	defer cancel()
	select {
	case <-ctx.Done():
		return semver.Version{}, false, fmt.Errorf("update check: %w", ctx.Err())
	case r := <-done:
		if r.err != nil {
			return semver.Version{}, false, fmt.Errorf("failed to detect latest version: %w", r.err)
		}
		if !r.found || r.release == nil {
			return semver.Version{}, false, nil
		}
		latest := r.release.Version
		if len(latest.Pre) > 0 || latest.LTE(cur) {
			slog.Debug("current version is up to date", "current", current, "latest", latest)
			return latest, false, nil
		}
		return latest, true, nil
	}
}

func updateNotice(latest semver.Version, current string) string {
	return fmt.Sprintf("⬆ new version v%s available (current v%s)\n  run %s to update",
		latest, strings.TrimPrefix(current, "v"), installCommand)
}
