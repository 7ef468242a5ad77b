package updater

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// ─── Version comparison ───

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in    string
		want  [3]int
		valid bool
	}{
		{"1.2.3", [3]int{1, 2, 3}, true},
		{"0.4", [3]int{0, 4, 0}, true},
		{"2", [3]int{2, 0, 0}, true},
		{"", [3]int{}, false},
		{"dev", [3]int{}, false},
		{"1.2.3.4", [3]int{}, false},
		{"1.-2.0", [3]int{}, false},
		{"1.2.3-rc1", [3]int{}, false},
	}
	for _, tt := range tests {
		got, ok := parseVersion(tt.in)
		if ok != tt.valid {
			t.Errorf("parseVersion(%q) ok = %v, want %v", tt.in, ok, tt.valid)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("parseVersion(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewerAvailable(t *testing.T) {
	tests := []struct {
		current, latest string
		want            bool
	}{
		{"0.1.0", "0.2.0", true},
		{"0.2.0", "0.2.0", false},
		{"0.3.0", "0.2.9", false},
		{"1.9.9", "2.0.0", true},
		{"0.2", "0.2.1", true},
		{"dev", "0.2.0", false},
		{"0.2.0", "", false},
		{"", "0.2.0", false},
	}
	for _, tt := range tests {
		if got := newerAvailable(tt.current, tt.latest); got != tt.want {
			t.Errorf("newerAvailable(%q, %q) = %v, want %v", tt.current, tt.latest, got, tt.want)
		}
	}
}

// ─── Release checks ───

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient("0.1.0")
	c.Endpoint = srv.URL
	c.HTTP = srv.Client()
	return c
}

func TestCheck_UpdateAvailable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "application/vnd.github.v3+json" {
			t.Errorf("Accept header = %q", got)
		}
		fmt.Fprint(w, `{"tag_name": "v0.2.0", "html_url": "https://example.com/rel/v0.2.0"}`)
	})

	status := c.Check()
	if !status.UpdateAvailable {
		t.Fatalf("status = %+v, want update available", status)
	}
	if status.CurrentVersion != "0.1.0" || status.LatestVersion != "0.2.0" {
		t.Errorf("versions = %q -> %q", status.CurrentVersion, status.LatestVersion)
	}
	if status.ReleaseURL != "https://example.com/rel/v0.2.0" {
		t.Errorf("release URL = %q", status.ReleaseURL)
	}
}

func TestCheck_AlreadyCurrent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"tag_name": "v0.1.0"}`)
	})
	if status := c.Check(); status.UpdateAvailable {
		t.Errorf("status = %+v, want no update", status)
	}
}

func TestCheck_APIFailureIsQuiet(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusForbidden)
	})

	status := c.Check()
	if status.UpdateAvailable || status.LatestVersion != "" {
		t.Errorf("status = %+v, want empty result on API failure", status)
	}
	if status.CurrentVersion != "0.1.0" {
		t.Errorf("current version = %q", status.CurrentVersion)
	}
}

// ─── Archive extraction ───

// makeTarGz builds an in-memory gzipped tarball from name/content pairs.
func makeTarGz(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		if err := tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0o755,
			Size:     int64(len(content)),
			Typeflag: tar.TypeReg,
		}); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestExtractBinary(t *testing.T) {
	archive := makeTarGz(t, map[string]string{
		"README.md": "docs",
		"promptops": "binary-bytes",
	})

	data, err := extractBinary(bytes.NewReader(archive))
	if err != nil {
		t.Fatalf("extractBinary failed: %v", err)
	}
	if string(data) != "binary-bytes" {
		t.Errorf("extracted %q", data)
	}
}

func TestExtractBinary_MissingEntry(t *testing.T) {
	archive := makeTarGz(t, map[string]string{"LICENSE": "MIT"})
	if _, err := extractBinary(bytes.NewReader(archive)); err == nil {
		t.Fatal("expected error for archive without binary")
	}
}

func TestExtractBinary_NotGzip(t *testing.T) {
	if _, err := extractBinary(strings.NewReader("plain text")); err == nil {
		t.Fatal("expected error for non-gzip input")
	}
}

// ─── Binary replacement ───

func TestReplaceBinary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "promptops")
	if err := os.WriteFile(path, []byte("old"), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := replaceBinary(path, []byte("new")); err != nil {
		t.Fatalf("replaceBinary failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "new" {
		t.Errorf("binary content = %q", data)
	}
	if _, err := os.Stat(path + ".new"); !os.IsNotExist(err) {
		t.Error("staging file left behind")
	}
}

// ─── Self update ───

func TestApply_ReplacesExecutable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("self-update unsupported on windows")
	}

	dir := t.TempDir()
	binPath := filepath.Join(dir, "promptops")
	if err := os.WriteFile(binPath, []byte("v0.1.0"), 0o755); err != nil {
		t.Fatal(err)
	}
	origExecPath := execPath
	execPath = func() (string, error) { return binPath, nil }
	t.Cleanup(func() { execPath = origExecPath })

	archive := makeTarGz(t, map[string]string{"promptops": "v0.2.0"})
	name, err := assetName("0.2.0")
	if err != nil {
		t.Fatal(err)
	}

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/latest":
			fmt.Fprintf(w, `{"tag_name": "v0.2.0", "assets": [{"name": %q, "browser_download_url": %q}]}`,
				name, srv.URL+"/download")
		case "/download":
			_, _ = w.Write(archive)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	c := NewClient("0.1.0")
	c.Endpoint = srv.URL + "/latest"
	c.HTTP = srv.Client()

	if err := c.Apply(); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	data, err := os.ReadFile(binPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "v0.2.0" {
		t.Errorf("binary content = %q", data)
	}
}

func TestApply_AlreadyLatest(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"tag_name": "v0.1.0"}`)
	})
	err := c.Apply()
	if err == nil || !strings.Contains(err.Error(), "already at latest") {
		t.Fatalf("err = %v, want already-at-latest", err)
	}
}
