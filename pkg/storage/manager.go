package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"syscall"

	scrapeerrors "listingscraper/pkg/errors"
	"listingscraper/pkg/metadata"
)

const (
	PageFile     = "page.html"
	ImagesSubdir = "images"
)

// Manager owns the on-disk layout of one scrape run:
//
//	<output>/<name>/page.html
//	<output>/<name>/info.txt|info.json|info.yaml
//	<output>/<name>/images/<name>-<n>.<ext>
type Manager struct {
	name      string
	dir       string
	imagesDir string
	existing  int
}

// NewManager creates the run directory and its images subdirectory.
// Pre-existing directories are left as they are.
func NewManager(outputDir, name string) (*Manager, error) {
	if name == "" || name == "." || name == ".." || name != filepath.Base(name) {
		return nil, scrapeerrors.New(scrapeerrors.KindPageWrite, "create directory", name,
			fmt.Errorf("name must be a single path element"))
	}

	dir := filepath.Join(outputDir, name)
	imagesDir := filepath.Join(dir, ImagesSubdir)
	if err := os.MkdirAll(imagesDir, 0755); err != nil {
		return nil, scrapeerrors.New(scrapeerrors.KindPageWrite, "create directory", imagesDir, err)
	}

	manager := &Manager{
		name:      name,
		dir:       dir,
		imagesDir: imagesDir,
	}

	if err := manager.scanExistingFiles(); err != nil {
		return nil, scrapeerrors.New(scrapeerrors.KindPageWrite, "scan directory", imagesDir, err)
	}

	return manager, nil
}

// scanExistingFiles counts images left by an earlier run with the same name
func (m *Manager) scanExistingFiles() error {
	entries, err := os.ReadDir(m.imagesDir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	prefix := m.name + "-"
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), prefix) && !strings.HasSuffix(entry.Name(), ".tmp") {
			m.existing++
		}
	}

	return nil
}

// PersistPage writes the page content to page.html, replacing any earlier copy
func (m *Manager) PersistPage(content string) (string, error) {
	dest := filepath.Join(m.dir, PageFile)
	if err := writeAtomic(dest, strings.NewReader(content)); err != nil {
		return "", scrapeerrors.New(scrapeerrors.KindPageWrite, "write page", dest, err)
	}
	return dest, nil
}

// AdoptPage moves a local source file to page.html instead of copying it.
// The source path no longer exists afterwards.
func (m *Manager) AdoptPage(source string) (string, error) {
	dest := filepath.Join(m.dir, PageFile)

	err := os.Rename(source, dest)
	if err != nil && errors.Is(err, syscall.EXDEV) {
		err = moveAcrossDevices(source, dest)
	}
	if err != nil {
		return "", scrapeerrors.New(scrapeerrors.KindPageWrite, "relocate page", source, err)
	}
	return dest, nil
}

func moveAcrossDevices(source, dest string) error {
	in, err := os.Open(source)
	if err != nil {
		return err
	}
	err = writeAtomic(dest, in)
	in.Close()
	if err != nil {
		return err
	}
	return os.Remove(source)
}

// PersistMetadata writes the record in the given format and returns the file path
func (m *Manager) PersistMetadata(rec *metadata.Record, format metadata.Format) (string, error) {
	dest := filepath.Join(m.dir, format.FileName())

	data, err := rec.Encode(format)
	if err != nil {
		return "", scrapeerrors.New(scrapeerrors.KindMetadataWrite, "encode metadata", dest, err)
	}

	if err := writeAtomic(dest, bytes.NewReader(data)); err != nil {
		return "", scrapeerrors.New(scrapeerrors.KindMetadataWrite, "write metadata", dest, err)
	}
	return dest, nil
}

// PersistImage writes data to dest unless a file is already there.
// It reports whether the file was written.
func (m *Manager) PersistImage(data []byte, dest string) (bool, error) {
	if Exists(dest) {
		return false, nil
	}

	if err := writeAtomic(dest, bytes.NewReader(data)); err != nil {
		return false, scrapeerrors.New(scrapeerrors.KindImageDownload, "write image", dest, err)
	}
	return true, nil
}

// ImagePath returns the destination of the n-th (1-based) image
func (m *Manager) ImagePath(n int, ext string) string {
	return filepath.Join(m.imagesDir, fmt.Sprintf("%s-%d.%s", m.name, n, ext))
}

// ImageExists reports whether an image is already stored at dest
func (m *Manager) ImageExists(dest string) bool {
	return Exists(dest)
}

// Exists reports whether a file is present at path
func Exists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

// ImageExt returns the extension of the URL path without the dot, or fallback
func ImageExt(rawURL, fallback string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fallback
	}

	ext := strings.TrimPrefix(path.Ext(u.Path), ".")
	if ext == "" || len(ext) > 5 || strings.ContainsAny(ext, `/\`) {
		return fallback
	}
	return strings.ToLower(ext)
}

// Dir returns the run directory
func (m *Manager) Dir() string {
	return m.dir
}

// ImagesDir returns the images directory
func (m *Manager) ImagesDir() string {
	return m.imagesDir
}

// ExistingImages returns how many images were already present when the manager was created
func (m *Manager) ExistingImages() int {
	return m.existing
}

// writeAtomic writes r to a temporary file next to dest and renames it into place
func writeAtomic(dest string, r io.Reader) error {
	tempFile := dest + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, err = io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to write data: %w", err)
	}

	if closeErr != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, dest); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}
