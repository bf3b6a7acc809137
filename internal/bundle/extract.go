// Package bundle handles diagnostic archive intake: unpacking sosreport
// and supportconfig tarballs, locating the report root inside the
// extracted tree, and identifying which collector produced it.
package bundle

import (
	"archive/tar"
	"compress/bzip2"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"

	"github.com/samatild/sosparser/internal/rules"
)

// maxFileSize caps a single extracted member. Diagnostic bundles carry
// logs, not disk images; anything larger is treated as hostile input.
const maxFileSize = 2 << 30

// Extract unpacks a diagnostic tarball into destDir and returns the
// resolved report root. Supported compressions: gzip, bzip2, xz, none.
func Extract(archivePath, destDir string) (string, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return "", fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	r, closeFn, err := decompress(f, archivePath)
	if err != nil {
		return "", err
	}
	if closeFn != nil {
		defer closeFn()
	}

	if err := untar(tar.NewReader(r), destDir); err != nil {
		return "", err
	}
	return ResolveRoot(destDir)
}

// decompress wraps the archive stream with the decompressor its file
// extension calls for.
func decompress(f *os.File, path string) (io.Reader, func() error, error) {
	name := strings.ToLower(path)
	switch {
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, nil, fmt.Errorf("gzip reader: %w", err)
		}
		return gz, gz.Close, nil
	case strings.HasSuffix(name, ".tar.bz2"), strings.HasSuffix(name, ".tbz"), strings.HasSuffix(name, ".tbz2"):
		return bzip2.NewReader(f), nil, nil
	case strings.HasSuffix(name, ".tar.xz"), strings.HasSuffix(name, ".txz"):
		xr, err := xz.NewReader(f)
		if err != nil {
			return nil, nil, fmt.Errorf("xz reader: %w", err)
		}
		return xr, nil, nil
	case strings.HasSuffix(name, ".tar"):
		return f, nil, nil
	}
	return nil, nil, fmt.Errorf("unsupported archive format: %s", filepath.Base(path))
}

func untar(tr *tar.Reader, destDir string) error {
	cleanDest := filepath.Clean(destDir)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar: %w", err)
		}

		target := filepath.Join(cleanDest, filepath.FromSlash(hdr.Name))
		if filepath.Clean(target) == cleanDest {
			// "./" head entry from tar-ing a directory in place. It is the
			// destination itself, nothing to create.
			continue
		}
		if !strings.HasPrefix(filepath.Clean(target), cleanDest+string(os.PathSeparator)) {
			return fmt.Errorf("archive member escapes destination: %s", hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create dir: %w", err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create dir: %w", err)
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
			if err != nil {
				return fmt.Errorf("create file: %w", err)
			}
			_, err = io.Copy(out, io.LimitReader(tr, maxFileSize))
			if cerr := out.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return fmt.Errorf("write %s: %w", hdr.Name, err)
			}
		default:
			// Symlinks and special files are not needed for analysis
			// and are a traversal vector, so they are dropped.
		}
	}
}

// ResolveRoot descends through single-directory wrappers until it finds
// the directory that actually holds the report tree. sosreport tarballs
// wrap everything in sosreport-<host>-<date>/, supportconfig in nts_*/.
func ResolveRoot(dir string) (string, error) {
	cur := dir
	for i := 0; i < 3; i++ {
		if DetectFormat(cur) != rules.FormatUnknown {
			return cur, nil
		}
		entries, err := os.ReadDir(cur)
		if err != nil {
			return "", fmt.Errorf("read extracted tree: %w", err)
		}
		var dirs []string
		for _, e := range entries {
			if e.IsDir() {
				dirs = append(dirs, e.Name())
			}
		}
		if len(dirs) != 1 {
			break
		}
		cur = filepath.Join(cur, dirs[0])
	}
	if DetectFormat(cur) != rules.FormatUnknown {
		return cur, nil
	}
	return cur, fmt.Errorf("no sosreport or supportconfig tree found under %s", dir)
}
