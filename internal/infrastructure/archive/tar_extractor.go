package archive

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// TarGzExtractor unpacks gzip-compressed tar streams. Provider tarballs wrap
// their contents in exactly one top-level directory named after the ref, so
// the first path component of every entry is stripped and plugin files land
// directly under the target directory.
type TarGzExtractor struct{}

// NewTarGzExtractor creates a new streaming extractor.
func NewTarGzExtractor() *TarGzExtractor {
	return &TarGzExtractor{}
}

// Extract decompresses and unpacks the stream into targetDir. Extraction is
// incremental; on failure whatever was already written stays on disk and the
// next run's directory reset cleans it up.
func (e *TarGzExtractor) Extract(r io.Reader, targetDir string) error {
	gzReader, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("failed to read gzip stream: %w", err)
	}
	defer gzReader.Close()

	tarReader := tar.NewReader(gzReader)

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read tar header: %w", err)
		}

		name := stripLeadingComponent(header.Name)
		if name == "" {
			// The wrapper directory itself, or an entry with no path left.
			continue
		}

		target := filepath.Join(targetDir, filepath.Clean(name))
		if !strings.HasPrefix(target, filepath.Clean(targetDir)+string(os.PathSeparator)) {
			return fmt.Errorf("unsafe path in archive: %s", header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}

			file, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(header.Mode))
			if err != nil {
				return fmt.Errorf("failed to create file: %w", err)
			}

			if _, err := io.Copy(file, tarReader); err != nil {
				file.Close()
				return fmt.Errorf("failed to extract %s: %w", name, err)
			}
			file.Close()
		}
		// Symlinks and other entry types are skipped; plugin archives from
		// the supported providers only carry directories and regular files.
	}

	return nil
}

// stripLeadingComponent removes the first path segment of a tar entry name.
// Every entry in a provider tarball shares the same top-level segment, so
// stripping per entry is equivalent to stripping the wrapper directory.
func stripLeadingComponent(name string) string {
	name = strings.TrimPrefix(name, "./")
	if i := strings.Index(name, "/"); i >= 0 {
		return strings.Trim(name[i+1:], "/")
	}
	return ""
}
