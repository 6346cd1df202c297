package binary

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Extractor handles archive extraction
type Extractor struct{}

// NewExtractor creates a new extractor
func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractTarGz extracts a .tar.gz archive into destDir, dropping the first
// strip path components of every entry (like tar --strip-components).
// Entries that would land outside destDir are rejected.
func (e *Extractor) ExtractTarGz(archivePath, destDir string, strip int) error {
	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer archiveFile.Close()

	gzipReader, err := gzip.NewReader(archiveFile)
	if err != nil {
		return fmt.Errorf("create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	tarReader := tar.NewReader(gzipReader)

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}

	cleanDest := filepath.Clean(destDir)
	extracted := 0

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		name, ok := stripComponents(header.Name, strip)
		if !ok {
			continue
		}

		target := filepath.Join(cleanDest, name)

		// Security check: prevent path traversal
		if !strings.HasPrefix(target, cleanDest+string(os.PathSeparator)) {
			return fmt.Errorf("illegal file path: %s", header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}

		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("create parent dir for %s: %w", target, err)
			}

			outFile, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(header.Mode).Perm())
			if err != nil {
				return fmt.Errorf("create file %s: %w", target, err)
			}

			if _, err := io.Copy(outFile, tarReader); err != nil {
				outFile.Close()
				return fmt.Errorf("write file %s: %w", target, err)
			}

			if err := outFile.Close(); err != nil {
				return fmt.Errorf("close file %s: %w", target, err)
			}

		case tar.TypeSymlink:
			linkTarget := header.Linkname
			if !filepath.IsAbs(linkTarget) {
				linkTarget = filepath.Join(filepath.Dir(target), linkTarget)
			}
			if filepath.IsAbs(header.Linkname) || !strings.HasPrefix(linkTarget, cleanDest+string(os.PathSeparator)) {
				return fmt.Errorf("illegal symlink %s -> %s", header.Name, header.Linkname)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("create parent dir for %s: %w", target, err)
			}
			if err := os.Symlink(header.Linkname, target); err != nil {
				return fmt.Errorf("create symlink %s: %w", target, err)
			}

		default:
			// Skip other types (char devices, block devices, etc.)
			continue
		}

		extracted++
	}

	if extracted == 0 {
		return fmt.Errorf("archive %s contained no files", filepath.Base(archivePath))
	}

	return nil
}

// stripComponents removes the first n slash-separated elements of a tar
// entry name. ok is false when nothing remains.
func stripComponents(name string, n int) (string, bool) {
	name = strings.TrimPrefix(filepath.ToSlash(name), "./")
	parts := strings.Split(strings.Trim(name, "/"), "/")
	if len(parts) <= n {
		return "", false
	}
	rest := strings.Join(parts[n:], "/")
	if rest == "" {
		return "", false
	}
	return filepath.FromSlash(rest), true
}

// SetExecutable sets executable permissions on a file
func SetExecutable(path string) error {
	// Set permissions to 0755 (rwxr-xr-x)
	if err := os.Chmod(path, 0755); err != nil {
		return fmt.Errorf("set executable: %w", err)
	}
	return nil
}
