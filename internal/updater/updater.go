// Package updater handles self-update logic for the sosparser binary.
package updater

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/blang/semver/v4"
)

const defaultAPIURL = "https://api.github.com/repos/samatild/sosparser/releases/latest"

// UpdateInfo holds the result of a version check.
type UpdateInfo struct {
	HasUpdate      bool
	CurrentVersion string
	LatestVersion  string
	DownloadURL    string
}

// Client talks to the GitHub releases API for one installed version.
// The zero value is not usable; construct with NewClient.
type Client struct {
	version string
	apiURL  string
	http    *http.Client
}

// NewClient returns a Client for the given installed version. apiURL
// overrides the releases endpoint when non-empty (tests point it at a
// local server).
func NewClient(version, apiURL string) *Client {
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	return &Client{
		version: version,
		apiURL:  apiURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Check queries the releases endpoint and reports whether a newer
// release exists, along with the download URL for this platform's asset.
func (c *Client) Check() (*UpdateInfo, error) {
	var release struct {
		TagName string `json:"tag_name"`
		Assets  []struct {
			Name               string `json:"name"`
			BrowserDownloadURL string `json:"browser_download_url"`
		} `json:"assets"`
	}
	if err := c.getJSON(c.apiURL, &release); err != nil {
		return nil, err
	}

	info := &UpdateInfo{
		CurrentVersion: c.version,
		LatestVersion:  release.TagName,
		HasUpdate:      isNewer(c.version, release.TagName),
	}
	if !info.HasUpdate {
		return info, nil
	}

	want := AssetName(runtime.GOOS, runtime.GOARCH)
	for _, a := range release.Assets {
		if a.Name == want {
			info.DownloadURL = a.BrowserDownloadURL
			break
		}
	}
	return info, nil
}

// Download fetches url into destPath, created executable.
func (c *Client) Download(url, destPath string) error {
	resp, err := c.http.Get(url)
	if err != nil {
		return fmt.Errorf("updater: download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("updater: download returned %d", resp.StatusCode)
	}

	f, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
	if err != nil {
		return fmt.Errorf("updater: create dest file: %w", err)
	}
	_, err = io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("updater: write download: %w", err)
	}
	return nil
}

func (c *Client) getJSON(url string, v any) error {
	resp, err := c.http.Get(url)
	if err != nil {
		return fmt.Errorf("updater: fetch releases: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("updater: GitHub API returned %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("updater: parse response: %w", err)
	}
	return nil
}

// AssetName returns the expected release asset filename for the given OS/arch.
func AssetName(goos, goarch string) string {
	name := "sosparser-" + goos + "-" + goarch
	if goos == "windows" {
		name += ".exe"
	}
	return name
}

// SelfReplace swaps exePath for newBinary. os.Rename is atomic on the
// same filesystem; Windows cannot rename over a running exe, so the old
// one is parked as .bak first.
func SelfReplace(exePath, newBinary string) error {
	if err := os.Chmod(newBinary, 0o755); err != nil {
		return fmt.Errorf("updater: chmod new binary: %w", err)
	}

	if runtime.GOOS == "windows" {
		bakPath := exePath + ".bak"
		_ = os.Remove(bakPath)
		if err := os.Rename(exePath, bakPath); err != nil {
			return fmt.Errorf("updater: rename current exe: %w", err)
		}
	}

	if err := os.Rename(newBinary, exePath); err != nil {
		return fmt.Errorf("updater: replace exe: %w", err)
	}
	return nil
}

// isNewer returns true if latest > current. Dev builds always update.
func isNewer(current, latest string) bool {
	latest = strings.TrimPrefix(latest, "v")
	current = strings.TrimPrefix(current, "v")
	if current == "dev" || current == "" || current == "none" {
		return latest != ""
	}
	cv, err := semver.ParseTolerant(current)
	if err != nil {
		return latest != ""
	}
	lv, err := semver.ParseTolerant(latest)
	if err != nil {
		return false
	}
	return cv.LT(lv)
}
