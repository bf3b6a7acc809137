package report

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ArchiveManifest describes an exported report package.
type ArchiveManifest struct {
	Version     string        `json:"version"`
	BundleName  string        `json:"bundle_name"`
	Hostname    string        `json:"hostname"`
	CreatedAt   time.Time     `json:"created_at"`
	ToolVersion string        `json:"tool_version"`
	Files       []PackageFile `json:"files"`
}

// PackageFile records a file included in the exported package.
type PackageFile struct {
	Name   string `json:"name"`
	SHA256 string `json:"sha256"`
	Size   int64  `json:"size"`
}

// ExportArchive zips the output directory so the report and its JSON can
// be attached to a support case in one piece. Each file is hashed into
// the manifest so the recipient can verify nothing was altered in
// transit. Returns the path to the created ZIP file.
func ExportArchive(outputDir, bundleName, hostname, toolVersion string) (string, error) {
	zipPath := outputDir + ".zip"

	zipFile, err := os.Create(zipPath)
	if err != nil {
		return "", fmt.Errorf("create zip: %w", err)
	}
	defer zipFile.Close()

	w := zip.NewWriter(zipFile)
	defer w.Close()

	var files []PackageFile
	dirBase := filepath.Base(outputDir)

	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return "", fmt.Errorf("read output dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		content, err := os.ReadFile(filepath.Join(outputDir, entry.Name()))
		if err != nil {
			continue
		}

		zf, err := w.Create(dirBase + "/" + entry.Name())
		if err != nil {
			return "", fmt.Errorf("zip create %s: %w", entry.Name(), err)
		}
		if _, err := zf.Write(content); err != nil {
			return "", fmt.Errorf("zip write %s: %w", entry.Name(), err)
		}

		h := sha256.Sum256(content)
		files = append(files, PackageFile{
			Name:   entry.Name(),
			SHA256: hex.EncodeToString(h[:]),
			Size:   info.Size(),
		})
	}

	manifest := ArchiveManifest{
		Version:     "1.0",
		BundleName:  bundleName,
		Hostname:    hostname,
		CreatedAt:   time.Now().UTC(),
		ToolVersion: toolVersion,
		Files:       files,
	}
	manifestJSON, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal manifest: %w", err)
	}

	zf, err := w.Create(dirBase + "/package_info.json")
	if err != nil {
		return "", fmt.Errorf("zip create package_info: %w", err)
	}
	if _, err := zf.Write(manifestJSON); err != nil {
		return "", fmt.Errorf("zip write package_info: %w", err)
	}

	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close zip writer: %w", err)
	}
	if err := zipFile.Close(); err != nil {
		return "", fmt.Errorf("close zip file: %w", err)
	}

	return zipPath, nil
}
