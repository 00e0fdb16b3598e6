package store

import (
	"crypto/sha256"
	"fmt"
	"io/fs"
	"sort"
)

// ContentHash returns the hex SHA-256 of content. Files whose stored hash
// matches are skipped on reindex.
func ContentHash(content []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(content))
}

// TreeHash hashes every file under fsys whose name matches keep, in path
// order, path and content together. It identifies a set of extraction
// scripts so a database built by different scripts can be detected.
func TreeHash(fsys fs.FS, keep func(path string) bool) (string, error) {
	var paths []string
	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && keep(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("walk: %w", err)
	}
	sort.Strings(paths)

	h := sha256.New()
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", p, err)
		}
		fmt.Fprintf(h, "%s\n", p)
		h.Write(data)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
