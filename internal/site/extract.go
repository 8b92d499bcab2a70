package site

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrPathTraversal indicates an archive entry resolves outside the destination directory.
	ErrPathTraversal = errors.New("archive entry escapes the destination directory")
	// ErrArchiveCorrupt indicates the archive stream could not be read.
	ErrArchiveCorrupt = errors.New("archive is invalid or corrupted")
	// ErrStorageWriteFailed indicates extracted content could not be written to disk.
	ErrStorageWriteFailed = errors.New("failed to write extracted content")
)

const (
	dirPerm  os.FileMode = 0o755
	filePerm os.FileMode = 0o644
)

// Extract unpacks a zip archive into dest. dest must already exist. The caller discards dest on
// any error, so entries written before a failure are left in place.
func Extract(r io.ReaderAt, size int64, dest string) error {
	archive, err := zip.NewReader(r, size)
	if err != nil && !(errors.Is(err, zip.ErrInsecurePath) && archive != nil) {
		return fmt.Errorf("%w: %v", ErrArchiveCorrupt, err)
	}

	base, err := filepath.Abs(dest)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageWriteFailed, err)
	}

	for _, entry := range archive.File {
		if isBookkeeping(entry.Name) {
			continue
		}

		target, err := resolveEntry(base, entry.Name)
		if err != nil {
			return err
		}

		if entry.FileInfo().IsDir() {
			if target == base {
				continue
			}
			if err := os.MkdirAll(target, dirPerm); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrStorageWriteFailed, entry.Name, err)
			}
			continue
		}

		if target == base {
			return fmt.Errorf("%w: %s", ErrPathTraversal, entry.Name)
		}

		if err := extractFile(entry, target); err != nil {
			return err
		}
	}

	return nil
}

func resolveEntry(base, name string) (string, error) {
	target := filepath.Join(base, name)
	if target == base {
		return target, nil
	}
	if !strings.HasPrefix(target, base+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", ErrPathTraversal, name)
	}
	return target, nil
}

func extractFile(entry *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), dirPerm); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrStorageWriteFailed, entry.Name, err)
	}

	src, err := entry.Open()
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrArchiveCorrupt, entry.Name, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrStorageWriteFailed, entry.Name, err)
	}

	copyErr := copyEntry(dst, src, entry.Name)
	closeErr := dst.Close()
	if copyErr != nil {
		return copyErr
	}
	if closeErr != nil {
		return fmt.Errorf("%w: %s: %v", ErrStorageWriteFailed, entry.Name, closeErr)
	}

	return nil
}

// copyEntry copies bytes verbatim while telling read failures (corrupt archive) apart from
// write failures (destination storage).
func copyEntry(dst io.Writer, src io.Reader, name string) error {
	buf := make([]byte, 32*1024)
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrStorageWriteFailed, name, err)
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("%w: %s: %v", ErrArchiveCorrupt, name, readErr)
		}
	}
}

// isBookkeeping matches metadata that desktop archivers add next to the real content.
func isBookkeeping(name string) bool {
	normalized := strings.ReplaceAll(name, "\\", "/")
	if strings.HasPrefix(normalized, "__MACOSX/") || strings.Contains(normalized, "/__MACOSX/") || normalized == "__MACOSX" {
		return true
	}

	trimmed := strings.TrimSuffix(normalized, "/")
	return trimmed == ".DS_Store" || strings.HasSuffix(trimmed, "/.DS_Store")
}
