// Package updater keeps a running promptops binary current against the
// project's GitHub releases. Check is best-effort and safe to call from a
// background goroutine; Apply swaps the executable in place via an atomic
// rename so a crash mid-update never leaves a half-written binary.
package updater

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"
)

const defaultEndpoint = "https://api.github.com/repos/shippopotamus/promptops/releases/latest"

// execPath resolves the running binary. Tests point it at a scratch file.
var execPath = os.Executable

// Client talks to a GitHub-style releases endpoint.
type Client struct {
	// Endpoint is the "latest release" API URL.
	Endpoint string
	// HTTP is the client used for all requests.
	HTTP *http.Client
	// Version is the running version, as baked in at build time.
	Version string
}

// NewClient returns a Client against the project's GitHub repository.
func NewClient(version string) *Client {
	return &Client{
		Endpoint: defaultEndpoint,
		HTTP:     &http.Client{Timeout: 10 * time.Second},
		Version:  version,
	}
}

// Release is the subset of the GitHub release payload we consume.
type Release struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
	Assets  []struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
	} `json:"assets"`
}

// Version returns the release's version without the tag's "v" prefix.
func (r *Release) Version() string {
	return strings.TrimPrefix(r.TagName, "v")
}

// downloadURL finds the asset matching name, or "" when absent.
func (r *Release) downloadURL(name string) string {
	for _, a := range r.Assets {
		if a.Name == name {
			return a.BrowserDownloadURL
		}
	}
	return ""
}

// Status describes the outcome of a version check.
type Status struct {
	// CurrentVersion is the running version, "v" prefix stripped.
	CurrentVersion string
	// LatestVersion is the newest published release, if the check reached it.
	LatestVersion string
	// UpdateAvailable is true when the latest release is strictly newer.
	UpdateAvailable bool
	// ReleaseURL is the release's web page.
	ReleaseURL string
}

// Check compares the running version against the latest release. It never
// fails: on network or API trouble the Status simply reports no update,
// since a broken check must not disturb a serving process.
func (c *Client) Check() Status {
	status := Status{CurrentVersion: strings.TrimPrefix(c.Version, "v")}

	release, err := c.latestRelease()
	if err != nil {
		return status
	}

	status.LatestVersion = release.Version()
	status.ReleaseURL = release.HTMLURL
	status.UpdateAvailable = newerAvailable(status.CurrentVersion, status.LatestVersion)
	return status
}

// Apply downloads the newest release and replaces the running executable.
// The caller is expected to restart afterwards.
func (c *Client) Apply() error {
	release, err := c.latestRelease()
	if err != nil {
		return err
	}

	current := strings.TrimPrefix(c.Version, "v")
	latest := release.Version()
	if !newerAvailable(current, latest) {
		return fmt.Errorf("updater: already at latest version (%s)", current)
	}

	name, err := assetName(latest)
	if err != nil {
		return err
	}
	url := release.downloadURL(name)
	if url == "" {
		return fmt.Errorf("updater: release %s has no asset %s", latest, name)
	}

	resp, err := c.HTTP.Get(url)
	if err != nil {
		return fmt.Errorf("updater: downloading %s: %w", name, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("updater: downloading %s: status %d", name, resp.StatusCode)
	}

	binary, err := extractBinary(resp.Body)
	if err != nil {
		return err
	}

	path, err := execPath()
	if err != nil {
		return fmt.Errorf("updater: locating executable: %w", err)
	}
	if path, err = filepath.EvalSymlinks(path); err != nil {
		return fmt.Errorf("updater: resolving executable path: %w", err)
	}
	return replaceBinary(path, binary)
}

// latestRelease fetches and decodes the latest-release payload.
func (c *Client) latestRelease() (*Release, error) {
	req, err := http.NewRequest(http.MethodGet, c.Endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("updater: building request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "promptops/"+c.Version)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("updater: fetching latest release: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("updater: release API returned %d", resp.StatusCode)
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("updater: decoding release: %w", err)
	}
	return &release, nil
}

// assetName is the archive filename goreleaser publishes for this platform.
// Only tar.gz platforms can self-update; Windows builds ship as zip and
// must be replaced manually.
func assetName(version string) (string, error) {
	if runtime.GOOS == "windows" {
		return "", fmt.Errorf("updater: self-update is not supported on windows, download from the releases page instead")
	}
	return fmt.Sprintf("promptops_%s_%s_%s.tar.gz", version, runtime.GOOS, runtime.GOARCH), nil
}

// replaceBinary writes data next to path and renames it into place, so the
// swap is atomic on the same filesystem.
func replaceBinary(path string, data []byte) error {
	staging := path + ".new"
	if err := os.WriteFile(staging, data, 0o755); err != nil {
		return fmt.Errorf("updater: staging new binary: %w", err)
	}
	if err := os.Rename(staging, path); err != nil {
		_ = os.Remove(staging)
		return fmt.Errorf("updater: installing new binary: %w", err)
	}
	return nil
}

// parseVersion splits "major.minor.patch" into numeric parts. Missing
// trailing parts default to zero; anything non-numeric rejects the string.
func parseVersion(v string) ([3]int, bool) {
	var parts [3]int
	if v == "" {
		return parts, false
	}
	fields := strings.Split(v, ".")
	if len(fields) > 3 {
		return parts, false
	}
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 {
			return parts, false
		}
		parts[i] = n
	}
	return parts, true
}

// newerAvailable reports whether latest is a strictly higher semver than
// current. Unparseable versions (dev builds, empty tags) never trigger an
// update prompt.
func newerAvailable(current, latest string) bool {
	cur, ok := parseVersion(current)
	if !ok {
		return false
	}
	lat, ok := parseVersion(latest)
	if !ok {
		return false
	}
	for i := 0; i < 3; i++ {
		if lat[i] != cur[i] {
			return lat[i] > cur[i]
		}
	}
	return false
}

// CheckVersion is the package-level convenience used by the CLI.
func CheckVersion(version string) Status {
	return NewClient(version).Check()
}

// SelfUpdate replaces the running binary with the latest release.
func SelfUpdate(version string) error {
	return NewClient(version).Apply()
}
