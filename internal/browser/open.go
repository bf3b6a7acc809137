// Package browser opens the served report in the user's browser.
package browser

import (
	"os"
	"os/exec"
	"runtime"
)

// Open launches the system default browser at url. A BROWSER environment
// variable overrides the platform launcher. Returns an error only when a
// launcher exists but fails to start; analysis output never depends on it.
func Open(url string) error {
	if b := os.Getenv("BROWSER"); b != "" {
		return exec.Command(b, url).Start()
	}
	switch runtime.GOOS {
	case "windows":
		return exec.Command("cmd", "/c", "start", url).Start()
	case "darwin":
		return exec.Command("open", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
