package dedup

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rumor-ml/commons.systems/ledgerimport/internal/ledger"
)

func amount(s string) ledger.Amount {
	return ledger.NewAmount(decimal.RequireFromString(s), "CAD")
}

func TestGenerateFingerprint(t *testing.T) {
	date := ledger.Date(2025, 1, 15)
	account := ledger.AccountName("Assets:Bank")

	got := GenerateFingerprint(date, account, amount("-50.00"))
	if len(got) != 64 {
		t.Errorf("GenerateFingerprint() returned hash of length %d, want 64", len(got))
	}
	if got != GenerateFingerprint(date, account, amount("-50.00")) {
		t.Error("GenerateFingerprint() is not deterministic")
	}
	if got != GenerateFingerprint(date, account, amount("-50")) {
		t.Error("GenerateFingerprint() should ignore precision")
	}
	if got != GenerateFingerprint(time.Date(2025, 1, 15, 18, 30, 0, 0, time.UTC), account, amount("-50.00")) {
		t.Error("GenerateFingerprint() should ignore time of day")
	}
}

func TestGenerateFingerprint_Uniqueness(t *testing.T) {
	base := ledger.Date(2025, 1, 15)
	fps := []string{
		GenerateFingerprint(base, "Assets:Bank", amount("-50.00")),
		GenerateFingerprint(base.AddDate(0, 0, 1), "Assets:Bank", amount("-50.00")), // different date
		GenerateFingerprint(base, "Assets:Other", amount("-50.00")),                 // different account
		GenerateFingerprint(base, "Assets:Bank", amount("-51.00")),                  // different amount
		GenerateFingerprint(base, "Assets:Bank", ledger.NewAmount(decimal.RequireFromString("-50.00"), "USD")),
	}

	seen := make(map[string]bool)
	for _, fp := range fps {
		if seen[fp] {
			t.Errorf("Duplicate fingerprint detected: %s", fp)
		}
		seen[fp] = true
	}
}

func TestIndex_Find(t *testing.T) {
	date := ledger.Date(2020, 6, 5)
	existing := []ledger.Transaction{
		{
			MetaData: ledger.TransactionMetaData{Date: date, Narration: "first"},
			Postings: []ledger.Posting{
				{Account: "Assets:Bank", Amount: amount("-10.00")},
				{Account: "Expenses:Food", Amount: amount("10.00")},
			},
		},
		{
			MetaData: ledger.TransactionMetaData{Date: date, Narration: "second"},
			Postings: []ledger.Posting{
				{Account: "Assets:Bank", Amount: amount("-10.00")},
				{Account: "Expenses:Other", Amount: amount("10.00")},
			},
		},
	}
	idx := NewIndex(existing)

	tests := []struct {
		name      string
		date      time.Time
		account   ledger.AccountName
		amount    ledger.Amount
		narration string
	}{
		{"first match in ledger order", date, "Assets:Bank", amount("-10.00"), "first"},
		{"counter posting", date, "Expenses:Other", amount("10.00"), "second"},
		{"different date", date.AddDate(0, 0, 1), "Assets:Bank", amount("-10.00"), ""},
		{"different amount", date, "Assets:Bank", amount("-10.01"), ""},
		{"different account", date, "Assets:Savings", amount("-10.00"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := idx.Find(tt.date, tt.account, tt.amount)
			if tt.narration == "" {
				if got != nil {
					t.Errorf("Find() = %q, want nil", got.MetaData.Narration)
				}
				return
			}
			if got == nil {
				t.Fatalf("Find() = nil, want %q", tt.narration)
			}
			if got.MetaData.Narration != tt.narration {
				t.Errorf("Find() = %q, want %q", got.MetaData.Narration, tt.narration)
			}
		})
	}
}

func TestIndex_Empty(t *testing.T) {
	idx := NewIndex(nil)
	if len(idx.byFingerprint) != 0 {
		t.Errorf("got %d fingerprints, want 0", len(idx.byFingerprint))
	}
	if idx.Find(ledger.Date(2020, 1, 1), "Assets:Bank", amount("1")) != nil {
		t.Error("Find() on empty index should return nil")
	}
}
