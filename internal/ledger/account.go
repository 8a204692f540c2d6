package ledger

import (
	"fmt"
	"strings"
	"unicode"
)

// AccountName is a colon separated account path like "Assets:Bank:Chequing".
// Use NewAccountName to validate untrusted input.
type AccountName string

var accountTypes = map[string]struct{}{
	"Assets": {}, "Liabilities": {}, "Income": {}, "Expenses": {}, "Equity": {},
}

// NewAccountName validates and returns an account name.
func NewAccountName(name string) (AccountName, error) {
	if name == "" {
		return "", fmt.Errorf("account name cannot be empty")
	}
	parts := strings.Split(name, ":")
	if len(parts) < 2 {
		return "", fmt.Errorf("account name %q must have at least two components", name)
	}
	if _, ok := accountTypes[parts[0]]; !ok {
		return "", fmt.Errorf("account name %q has invalid type %q (must be Assets, Liabilities, Income, Expenses or Equity)", name, parts[0])
	}
	for _, part := range parts[1:] {
		if part == "" {
			return "", fmt.Errorf("account name %q has an empty component", name)
		}
		first := []rune(part)[0]
		if !unicode.IsUpper(first) && !unicode.IsDigit(first) {
			return "", fmt.Errorf("account name %q: component %q must start with an uppercase letter or digit", name, part)
		}
		if strings.ContainsAny(part, " \t") {
			return "", fmt.Errorf("account name %q: component %q contains whitespace", name, part)
		}
	}
	return AccountName(name), nil
}

// MustAccountName is NewAccountName for constants; it panics on invalid input.
func MustAccountName(name string) AccountName {
	n, err := NewAccountName(name)
	if err != nil {
		panic(err)
	}
	return n
}

func (n AccountName) String() string {
	return string(n)
}

// Parent returns the name without its last component, or "" for a top level name.
func (n AccountName) Parent() string {
	idx := strings.LastIndex(string(n), ":")
	if idx < 0 {
		return ""
	}
	return string(n[:idx])
}

// Account is an open account of the ledger with its metadata.
type Account struct {
	Name      AccountName
	Commodity string
	MetaData  map[string]string
}

// Meta returns the metadata value for key or "".
func (a Account) Meta(key string) string {
	if a.MetaData == nil {
		return ""
	}
	return a.MetaData[key]
}

// Commodity is a currency or tracked asset. The "name" metadata links a
// display name (as used by institutions) to the symbol.
type Commodity struct {
	Symbol   string
	MetaData map[string]string
}
