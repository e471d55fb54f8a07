package chroma

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// SQLiteFile is the catalogue database inside a Chroma persistent directory.
const SQLiteFile = "chroma.sqlite3"

// MarkerFiles are the files whose presence identifies a Chroma directory.
var MarkerFiles = []string{SQLiteFile, "header.bin"}

var (
	// ErrPathNotExist is returned when the store path does not exist.
	ErrPathNotExist = errors.New("path does not exist")

	// ErrNotDirectory is returned when the store path is not a directory.
	ErrNotDirectory = errors.New("not a directory")

	// ErrNoMarkers is returned when a directory holds none of the MarkerFiles.
	ErrNoMarkers = errors.New("no Chroma database files found")

	// ErrNoSQLiteFile is returned by Open when chroma.sqlite3 is missing.
	ErrNoSQLiteFile = errors.New("chroma.sqlite3 not found")
)

// ValidatePath checks that path exists and is a directory.
func ValidatePath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrPathNotExist, path)
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDirectory, path)
	}
	return nil
}

// HasMarkers reports whether dir contains at least one of the MarkerFiles.
func HasMarkers(dir string) bool {
	for _, name := range MarkerFiles {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}
