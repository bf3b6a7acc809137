package updater_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/samatild/sosparser/internal/updater"
)

// fakeRelease builds a minimal GitHub releases/latest JSON response.
func fakeRelease(tag string, assets []string) []byte {
	type asset struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
	}
	type release struct {
		TagName string  `json:"tag_name"`
		Assets  []asset `json:"assets"`
	}
	r := release{TagName: tag}
	for _, name := range assets {
		r.Assets = append(r.Assets, asset{
			Name:               name,
			BrowserDownloadURL: "http://example.com/" + name,
		})
	}
	b, _ := json.Marshal(r)
	return b
}

func TestCheck_NewerAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(fakeRelease("v0.2.0", []string{
			"sosparser-linux-amd64",
			"sosparser-windows-amd64.exe",
		}))
	}))
	defer srv.Close()

	info, err := updater.NewClient("v0.1.0", srv.URL+"/latest").Check()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !info.HasUpdate {
		t.Error("expected HasUpdate=true")
	}
	if info.LatestVersion != "v0.2.0" {
		t.Errorf("LatestVersion = %q, want v0.2.0", info.LatestVersion)
	}
}

func TestCheck_AlreadyLatest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(fakeRelease("v0.2.0", nil))
	}))
	defer srv.Close()

	info, err := updater.NewClient("v0.2.0", srv.URL+"/latest").Check()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.HasUpdate {
		t.Error("expected HasUpdate=false when already on latest")
	}
}

func TestCheck_DevVersion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(fakeRelease("v0.2.0", nil))
	}))
	defer srv.Close()

	info, err := updater.NewClient("dev", srv.URL+"/latest").Check()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !info.HasUpdate {
		t.Error("dev build should always report update available")
	}
}

func TestCheck_PrereleaseOrdering(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(fakeRelease("v1.2.0", nil))
	}))
	defer srv.Close()

	info, err := updater.NewClient("v1.2.0-rc.1", srv.URL+"/latest").Check()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !info.HasUpdate {
		t.Error("release candidate should update to the final release")
	}
}

func TestDownload_WritesExecutable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("binary payload"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "sosparser.new")
	if err := updater.NewClient("v1.0.0", srv.URL).Download(srv.URL+"/asset", dest); err != nil {
		t.Fatalf("Download: %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "binary payload" {
		t.Errorf("downloaded content = %q", got)
	}
	if runtime.GOOS != "windows" {
		info, _ := os.Stat(dest)
		if info.Mode()&0o111 == 0 {
			t.Error("downloaded binary should be executable")
		}
	}
}

func TestAssetName(t *testing.T) {
	tests := []struct {
		goos   string
		goarch string
		want   string
	}{
		{"linux", "amd64", "sosparser-linux-amd64"},
		{"linux", "arm64", "sosparser-linux-arm64"},
		{"darwin", "amd64", "sosparser-darwin-amd64"},
		{"darwin", "arm64", "sosparser-darwin-arm64"},
		{"windows", "amd64", "sosparser-windows-amd64.exe"},
	}
	for _, tt := range tests {
		got := updater.AssetName(tt.goos, tt.goarch)
		if got != tt.want {
			t.Errorf("AssetName(%q,%q) = %q, want %q", tt.goos, tt.goarch, got, tt.want)
		}
	}
}

func TestSelfReplace_BasicRoundtrip(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skip in-place replace test on Windows CI")
	}

	dir := t.TempDir()
	exePath := filepath.Join(dir, "sosparser")
	if err := os.WriteFile(exePath, []byte("old"), 0o755); err != nil {
		t.Fatal(err)
	}

	newPath := filepath.Join(dir, "sosparser.new")
	if err := os.WriteFile(newPath, []byte("new"), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := updater.SelfReplace(exePath, newPath); err != nil {
		t.Fatalf("SelfReplace: %v", err)
	}

	got, _ := os.ReadFile(exePath)
	if string(got) != "new" {
		t.Errorf("exe content = %q, want new", got)
	}
}
