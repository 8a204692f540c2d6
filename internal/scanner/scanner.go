// Package scanner finds statement files in a directory tree organized as
// {root}/{importer-type}/{account-number}/file.ext. Both directory levels are
// optional.
package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rumor-ml/commons.systems/ledgerimport/internal/parser"
)

// Scanner walks directory tree and finds statement files
type Scanner struct {
	rootDir string
	now     func() time.Time
}

// New creates a new scanner for the given root directory
func New(rootDir string) *Scanner {
	return &Scanner{rootDir: rootDir, now: time.Now}
}

// ScanResult represents a found file with metadata
type ScanResult struct {
	Path     string
	Metadata *parser.Metadata
}

// Scan walks the directory tree and finds all statement files, sorted by path.
func (s *Scanner) Scan() ([]ScanResult, error) {
	var results []ScanResult

	rootDir, err := s.expandHome(s.rootDir)
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	err = filepath.WalkDir(rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !s.isStatementFile(path) {
			return nil
		}

		metadata, err := s.extractMetadata(path, rootDir)
		if err != nil {
			return fmt.Errorf("invalid metadata for %s (processed %d files so far): %w", path, len(results), err)
		}
		results = append(results, ScanResult{
			Path:     path,
			Metadata: metadata,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	return results, nil
}

// isStatementFile checks if file is a known statement format
func (s *Scanner) isStatementFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".qfx" || ext == ".ofx" || ext == ".csv"
}

// extractMetadata reads the importer type and account number from the
// directories between rootDir and the file.
func (s *Scanner) extractMetadata(filePath, rootDir string) (*parser.Metadata, error) {
	meta, err := parser.NewMetadata(filePath, s.now())
	if err != nil {
		return nil, err
	}

	relPath, err := filepath.Rel(rootDir, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to make %s relative to %s: %w", filePath, rootDir, err)
	}
	parts := strings.Split(filepath.ToSlash(relPath), "/")

	if len(parts) >= 2 {
		meta.SetImporterType(normalizeImporterType(parts[0]))
	}
	if len(parts) >= 3 {
		meta.SetAccountNumber(parts[1])
	}
	return meta, nil
}

// normalizeImporterType converts a directory name to an importer type
// "Rogers_CC" -> "rogers-cc"
func normalizeImporterType(dirName string) string {
	return strings.ToLower(strings.ReplaceAll(dirName, "_", "-"))
}

// expandHome expands ~ to home directory
func (s *Scanner) expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to expand home directory: %w", err)
	}
	return filepath.Join(home, path[2:]), nil
}
