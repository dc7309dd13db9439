package helpers

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/labstack/gommon/random"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TempDirWithFiles creates a temporary directory (removed automatically when the
// test completes) and creates an empty file inside of it for each of the
// names provided. The directory path and the paths of the created files are returned.
func TempDirWithFiles(t *testing.T, files []string) (string, []string) {
	dirPath := t.TempDir()
	filePaths := make([]string, 0, len(files))
	for _, filename := range files {
		path := filepath.Join(dirPath, filename)
		require.NoError(t, os.WriteFile(path, []byte{}, 0o644), "failed to create temporary file in temporary dir")
		filePaths = append(filePaths, path)
	}

	assert.Len(t, filePaths, len(files), "Expected file paths recorded to match length of requested files")
	return dirPath, filePaths
}

// RandomFileName returns a random, alphanumeric file name with the extension provided.
func RandomFileName(ext string) string {
	return random.String(12, random.Alphanumeric) + ext
}

// AgeFile rewinds the modification time of the file at the path provided by
// the duration given, making it appear to have been written in the past.
func AgeFile(t *testing.T, path string, age time.Duration) {
	past := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, past, past), "failed to age file %s", path)
}

// FileExists reports whether a file exists at the path provided.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
