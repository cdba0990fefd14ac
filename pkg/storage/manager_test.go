package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scrapeerrors "listingscraper/pkg/errors"
	"listingscraper/pkg/metadata"
)

func TestManager(t *testing.T) {
	tempDir := t.TempDir()

	manager, err := NewManager(tempDir, "house")
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	if _, err := os.Stat(filepath.Join(tempDir, "house", "images")); err != nil {
		t.Fatalf("Expected images directory to exist: %v", err)
	}

	if manager.ExistingImages() != 0 {
		t.Error("Expected no existing images")
	}

	dest := manager.ImagePath(1, "webp")
	if dest != filepath.Join(tempDir, "house", "images", "house-1.webp") {
		t.Errorf("Unexpected image path %s", dest)
	}

	written, err := manager.PersistImage([]byte("first"), dest)
	if err != nil {
		t.Fatalf("Failed to save image: %v", err)
	}
	if !written {
		t.Error("Expected image to be written")
	}

	// second write to the same destination is skipped and leaves content untouched
	written, err = manager.PersistImage([]byte("second"), dest)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if written {
		t.Error("Expected existing image to be skipped")
	}

	content, _ := os.ReadFile(dest)
	if string(content) != "first" {
		t.Errorf("Expected original content, got %q", content)
	}

	if _, err := os.Stat(dest + ".tmp"); !os.IsNotExist(err) {
		t.Error("Expected temporary file to be cleaned up")
	}

	// A second manager over the same directory sees the earlier image
	manager2, err := NewManager(tempDir, "house")
	if err != nil {
		t.Fatalf("Failed to create second manager: %v", err)
	}
	if manager2.ExistingImages() != 1 {
		t.Errorf("Expected 1 existing image, got %d", manager2.ExistingImages())
	}
}

func TestNewManagerRejectsPathNames(t *testing.T) {
	for _, name := range []string{"", "a/b", "../escape"} {
		_, err := NewManager(t.TempDir(), name)
		assert.Error(t, err, name)
	}
}

func TestPersistPage(t *testing.T) {
	manager, err := NewManager(t.TempDir(), "p")
	require.NoError(t, err)

	path, err := manager.PersistPage("<html>one</html>")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(manager.Dir(), "page.html"), path)

	_, err = manager.PersistPage("<html>two</html>")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<html>two</html>", string(data))
}

func TestAdoptPage(t *testing.T) {
	tempDir := t.TempDir()
	source := filepath.Join(tempDir, "cached.html")
	require.NoError(t, os.WriteFile(source, []byte("<html>cached</html>"), 0644))

	manager, err := NewManager(filepath.Join(tempDir, "out"), "p")
	require.NoError(t, err)

	path, err := manager.AdoptPage(source)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<html>cached</html>", string(data))
	assert.False(t, Exists(source))
}

func TestAdoptPageMissingSource(t *testing.T) {
	manager, err := NewManager(t.TempDir(), "p")
	require.NoError(t, err)

	_, err = manager.AdoptPage(filepath.Join(t.TempDir(), "missing.html"))
	require.Error(t, err)
	assert.True(t, scrapeerrors.Is(err, scrapeerrors.KindPageWrite))
}

func TestPersistMetadata(t *testing.T) {
	manager, err := NewManager(t.TempDir(), "p")
	require.NoError(t, err)

	rec := metadata.NewRecord("https://example.com", "generic", 2)

	path, err := manager.PersistMetadata(rec, metadata.FormatText)
	require.NoError(t, err)
	assert.Equal(t, "info.txt", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "URL: https://example.com\n\nNumber of unique images found: 2", string(data))

	path, err = manager.PersistMetadata(rec, metadata.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "info.json", filepath.Base(path))
}

func TestPersistMetadataUnwritable(t *testing.T) {
	manager, err := NewManager(t.TempDir(), "p")
	require.NoError(t, err)

	// a directory squatting on the target name makes the rename fail
	require.NoError(t, os.Mkdir(filepath.Join(manager.Dir(), "info.txt"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(manager.Dir(), "info.txt", "x"), []byte("x"), 0644))

	_, err = manager.PersistMetadata(metadata.NewRecord("u", "generic", 0), metadata.FormatText)
	require.Error(t, err)
	assert.True(t, scrapeerrors.Is(err, scrapeerrors.KindMetadataWrite))
}

func TestImageExt(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.compass.com/m/abc/origin.jpg", "jpg"},
		{"https://cdn.example.com/a/origin.webp", "webp"},
		{"https://photos.zillowstatic.com/fp/a-cc_ft_768.JPG?x=1", "jpg"},
		{"https://cdn.example.com/a/noext", "webp"},
		{"https://cdn.example.com/a/file.toolongext", "webp"},
		{"::bad url", "webp"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ImageExt(tt.url, "webp"), tt.url)
	}
}
