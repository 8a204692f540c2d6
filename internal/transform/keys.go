// Package transform normalizes text coming from institutions into stable keys
// and valid ledger name components.
package transform

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonComponentChars = regexp.MustCompile(`[^A-Za-z0-9-]+`)

// NormalizeKey returns the form of a description or payee used as a mapping key.
// Unicode is NFC normalized and surrounding whitespace trimmed, so the same
// text exported with composed or decomposed accents maps to the same entry.
// Case and inner whitespace are preserved.
func NormalizeKey(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

// AccountComponent converts a name such as a security symbol into a valid
// account name component.
// Examples: "vfv.to" → "VFV-TO", "Épargne" → "Epargne"
func AccountComponent(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("name cannot be empty")
	}

	// Strip accents so the component stays ASCII
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	normalized, _, err := transform.String(t, name)
	if err != nil {
		return "", fmt.Errorf("failed to normalize %q: %w", name, err)
	}

	component := nonComponentChars.ReplaceAllString(normalized, "-")
	component = strings.Trim(component, "-")
	if component == "" {
		return "", fmt.Errorf("name %q contains no alphanumeric characters", name)
	}

	first := []rune(component)[0]
	if unicode.IsLower(first) {
		component = strings.ToUpper(component)
	}
	return component, nil
}

// ExtractLast4 returns the last 4 characters of the account number.
// If the account number has fewer than 4 characters, returns the full number.
// Examples: "12345" → "2345", "123" → "123", "" → ""
func ExtractLast4(accountNumber string) string {
	if len(accountNumber) <= 4 {
		return accountNumber
	}
	return accountNumber[len(accountNumber)-4:]
}
