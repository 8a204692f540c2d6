package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rumor-ml/commons.systems/ledgerimport/internal/ledger"
)

func TestNewEngine_ValidRules(t *testing.T) {
	rulesYAML := `
rules:
  - name: "Interest"
    pattern: "INTEREST"
    match_type: "contains"
    priority: 100
    account: "Income:Interest"
    payee: "Bank"
`
	engine, err := NewEngine([]byte(rulesYAML))
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	if len(engine.rules) != 1 {
		t.Fatalf("NewEngine() rules count = %d, want 1", len(engine.rules))
	}

	rule := engine.rules[0]
	if rule.Name != "Interest" {
		t.Errorf("rule.Name = %s, want Interest", rule.Name)
	}
	if rule.Account != "Income:Interest" {
		t.Errorf("rule.Account = %s, want Income:Interest", rule.Account)
	}
	if rule.Payee != "Bank" {
		t.Errorf("rule.Payee = %s, want Bank", rule.Payee)
	}
}

func TestNewEngine_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "invalid account",
			yaml: `
rules:
  - name: "Bad"
    pattern: "x"
    match_type: "contains"
    priority: 1
    account: "food"
`,
		},
		{
			name: "priority too high",
			yaml: `
rules:
  - name: "Bad"
    pattern: "x"
    match_type: "contains"
    priority: 1000
    account: "Expenses:Food"
`,
		},
		{
			name: "invalid match type",
			yaml: `
rules:
  - name: "Bad"
    pattern: "x"
    match_type: "regex"
    priority: 1
    account: "Expenses:Food"
`,
		},
		{
			name: "empty pattern",
			yaml: `
rules:
  - name: "Bad"
    pattern: "  "
    match_type: "exact"
    priority: 1
    account: "Expenses:Food"
`,
		},
		{
			name: "invalid yaml",
			yaml: "rules: [",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewEngine([]byte(tt.yaml)); err == nil {
				t.Error("NewEngine() expected error")
			}
		})
	}
}

func TestNewRule(t *testing.T) {
	if _, err := NewRule("ok", "shop", MatchTypeContains, 10, "Expenses:Shopping", ""); err != nil {
		t.Errorf("NewRule() unexpected error: %v", err)
	}
	if _, err := NewRule("bad", "shop", MatchTypeContains, -1, "Expenses:Shopping", ""); err == nil {
		t.Error("NewRule() expected error for negative priority")
	}
}

func TestMatch(t *testing.T) {
	rulesYAML := `
rules:
  - name: "Low"
    pattern: "coffee"
    match_type: "contains"
    priority: 10
    account: "Expenses:Coffee"
  - name: "High"
    pattern: "starbucks coffee"
    match_type: "exact"
    priority: 50
    account: "Expenses:Starbucks"
    payee: "Starbucks"
  - name: "Same priority later"
    pattern: "coffee"
    match_type: "contains"
    priority: 10
    account: "Expenses:Other"
`
	engine, err := NewEngine([]byte(rulesYAML))
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	tests := []struct {
		name        string
		description string
		wantAccount ledger.AccountName
		wantPayee   string
		wantMatch   bool
	}{
		{"exact beats contains by priority", "  STARBUCKS COFFEE ", "Expenses:Starbucks", "Starbucks", true},
		{"yaml order for equal priority", "Coffee Shop", "Expenses:Coffee", "", true},
		{"no match", "Groceries", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, ok := engine.Match(tt.description)
			if ok != tt.wantMatch {
				t.Fatalf("Match(%q) matched = %v, want %v", tt.description, ok, tt.wantMatch)
			}
			if !ok {
				return
			}
			if result.Account != tt.wantAccount {
				t.Errorf("Match(%q) account = %s, want %s", tt.description, result.Account, tt.wantAccount)
			}
			if result.Payee != tt.wantPayee {
				t.Errorf("Match(%q) payee = %q, want %q", tt.description, result.Payee, tt.wantPayee)
			}
		})
	}
}

func TestMatch_NilEngine(t *testing.T) {
	var engine *Engine
	if _, ok := engine.Match("anything"); ok {
		t.Error("nil engine should never match")
	}
}

func TestLoadEmbedded(t *testing.T) {
	engine, err := LoadEmbedded()
	if err != nil {
		t.Fatalf("LoadEmbedded() error = %v", err)
	}
	if len(engine.GetRules()) != 0 {
		t.Errorf("embedded rules count = %d, want 0", len(engine.GetRules()))
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `
rules:
  - name: "Rent"
    pattern: "rent"
    match_type: "contains"
    priority: 1
    account: "Expenses:Rent"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	engine, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if len(engine.GetRules()) != 1 {
		t.Errorf("rules count = %d, want 1", len(engine.GetRules()))
	}

	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadFromFile() expected error for missing file")
	}
}
