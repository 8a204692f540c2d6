package parser

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Metadata contains context about the file being parsed.
// Extracted from directory structure: {root}/{importer-type}/{account-number}/file.ext
//
// Create instances using NewMetadata(filePath, detectedAt). Optional fields
// (importer type, account number) can be set after construction. Empty values
// mean the file was not organized by importer or account, which is not an error:
// account resolution then falls back to settings or asks the user.
type Metadata struct {
	filePath      string
	importerType  string // Inferred from directory (e.g., "simplii")
	accountNumber string // Inferred from directory (e.g., "12345")
	detectedAt    time.Time
}

// NewMetadata creates a new Metadata instance with validated required fields.
func NewMetadata(filePath string, detectedAt time.Time) (*Metadata, error) {
	if filePath == "" {
		return nil, fmt.Errorf("file path cannot be empty")
	}
	if detectedAt.IsZero() {
		return nil, fmt.Errorf("detected time cannot be zero")
	}
	return &Metadata{
		filePath:   filePath,
		detectedAt: detectedAt,
	}, nil
}

// FilePath returns the file path
func (m *Metadata) FilePath() string {
	return m.filePath
}

// FileName returns the base name of the file
func (m *Metadata) FileName() string {
	return filepath.Base(m.filePath)
}

// ImporterType returns the importer type inferred from directory structure.
func (m *Metadata) ImporterType() string {
	return m.importerType
}

// AccountNumber returns the account number inferred from directory structure.
func (m *Metadata) AccountNumber() string {
	return m.accountNumber
}

// DetectedAt returns the timestamp when the file was detected
func (m *Metadata) DetectedAt() time.Time {
	return m.detectedAt
}

// SetImporterType sets the importer type
func (m *Metadata) SetImporterType(importerType string) {
	m.importerType = importerType
}

// SetAccountNumber sets the account number
func (m *Metadata) SetAccountNumber(accountNumber string) {
	m.accountNumber = accountNumber
}

// MentionsNumber reports whether an account number appears in the file name
// or equals the directory account number. A nil Metadata or an empty number
// never matches.
func (m *Metadata) MentionsNumber(number string) bool {
	if m == nil || number == "" {
		return false
	}
	return m.accountNumber == number || strings.Contains(m.FileName(), number)
}
