package validate

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rumor-ml/commons.systems/ledgerimport/internal/importer"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/ledger"
)

func amount(t *testing.T, number, commodity string) ledger.Amount {
	t.Helper()
	a, err := ledger.ParseAmount(number, commodity)
	if err != nil {
		t.Fatalf("failed to parse amount: %v", err)
	}
	return a
}

func testLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	l := ledger.New()
	for _, name := range []string{"Assets:Simplii", "Expenses:Food"} {
		if err := l.AddAccount(ledger.Account{Name: ledger.AccountName(name), Commodity: "CAD"}); err != nil {
			t.Fatalf("failed to add account: %v", err)
		}
	}
	return l
}

func transaction(t *testing.T, postings ...ledger.Posting) *importer.ImportedTransaction {
	t.Helper()
	return &importer.ImportedTransaction{
		Transaction: ledger.Transaction{
			MetaData: ledger.TransactionMetaData{Date: ledger.Date(2020, 6, 5), Narration: "Groceries", Flag: ledger.FlagComplete},
			Postings: postings,
		},
		OriginalDescription: "GROCERY STORE",
	}
}

func findError(result *ValidationResult, entity, field string) bool {
	for _, e := range result.Errors {
		if e.Entity == entity && e.Field == field {
			return true
		}
	}
	return false
}

func findWarning(result *ValidationResult, entity, field string) bool {
	for _, w := range result.Warnings {
		if w.Entity == entity && w.Field == field {
			return true
		}
	}
	return false
}

func TestValidateImport_Empty(t *testing.T) {
	result := New(nil).ValidateImport(Import{})

	if !result.Valid() {
		t.Errorf("empty import should have no errors, got %d", len(result.Errors))
	}
}

func TestValidateImport_ValidImport(t *testing.T) {
	l := testLedger(t)
	txn := transaction(t,
		ledger.Posting{Account: "Assets:Simplii", Amount: amount(t, "-10.00", "CAD")},
		ledger.Posting{Account: "Expenses:Food", Amount: amount(t, "10.00", "CAD")},
	)
	price, err := ledger.NewPrice(ledger.Date(2020, 6, 5), "XEQT", amount(t, "25.10", "CAD"))
	if err != nil {
		t.Fatalf("failed to create price: %v", err)
	}

	result := New(l).ValidateImport(Import{
		Transactions: []*importer.ImportedTransaction{txn},
		Balances:     []ledger.Balance{{Date: ledger.Date(2020, 6, 6), Account: "Assets:Simplii", Amount: amount(t, "100.00", "CAD")}},
		Prices:       []ledger.Price{price},
	})

	if !result.Valid() {
		t.Errorf("valid import should have no errors, got %d:", len(result.Errors))
		for _, e := range result.Errors {
			t.Errorf("  - %s %s: %s", e.Entity, e.ID, e.Message)
		}
	}
	if len(result.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", result.Warnings)
	}
}

func TestValidateImport_Unbalanced(t *testing.T) {
	txn := transaction(t,
		ledger.Posting{Account: "Assets:Simplii", Amount: amount(t, "-10.00", "CAD")},
		ledger.Posting{Account: "Expenses:Food", Amount: amount(t, "9.00", "CAD")},
	)

	result := New(testLedger(t)).ValidateImport(Import{Transactions: []*importer.ImportedTransaction{txn}})

	if !findError(result, "transaction", "Postings") {
		t.Fatal("expected an unbalanced transaction error")
	}
	if result.Errors[0].ID != "2020-06-05 GROCERY STORE" {
		t.Errorf("unexpected error ID %q", result.Errors[0].ID)
	}
	if result.Errors[0].Value != "-1.00 CAD" {
		t.Errorf("unexpected residual %q", result.Errors[0].Value)
	}
}

func TestValidateImport_ResidualPrecision(t *testing.T) {
	txn := transaction(t,
		ledger.Posting{Account: "Assets:Simplii", Amount: amount(t, "-10.00", "CAD")},
		ledger.Posting{Account: "Expenses:Food", Amount: amount(t, "9.5", "CAD")},
	)

	result := New(testLedger(t)).ValidateImport(Import{Transactions: []*importer.ImportedTransaction{txn}})

	if len(result.Errors) != 1 {
		t.Fatalf("expected one error, got %+v", result.Errors)
	}
	if result.Errors[0].Value != "-0.50 CAD" {
		t.Errorf("residual %q should keep the widest posting precision", result.Errors[0].Value)
	}
	if result.Errors[0].Message != "transaction does not balance: residual -0.50 CAD" {
		t.Errorf("unexpected message %q", result.Errors[0].Message)
	}
}

func TestValidateImport_CostWithinTolerance(t *testing.T) {
	cost := amount(t, "25.123", "CAD")
	txn := transaction(t,
		ledger.Posting{Account: "Assets:Simplii", Amount: amount(t, "-100.00", "CAD")},
		ledger.Posting{Account: "Assets:Fund", Amount: amount(t, "3.98042", "MLF"), Cost: &cost},
	)

	result := New(nil).ValidateImport(Import{Transactions: []*importer.ImportedTransaction{txn}})
	if !result.Valid() {
		t.Errorf("expected the rounding residual to be tolerated, got %v", result.Errors)
	}

	strict := New(nil).WithTolerance(decimal.Zero).ValidateImport(Import{Transactions: []*importer.ImportedTransaction{txn}})
	if strict.Valid() {
		t.Error("expected an error with zero tolerance")
	}
}

func TestValidateImport_TotalPrice(t *testing.T) {
	total := amount(t, "50.10", "CAD")
	txn := transaction(t,
		ledger.Posting{Account: "Assets:WS:XEQT", Amount: amount(t, "2", "XEQT"), Price: &total},
		ledger.Posting{Account: "Assets:WS", Amount: amount(t, "-50.10", "CAD")},
	)

	result := New(nil).ValidateImport(Import{Transactions: []*importer.ImportedTransaction{txn}})
	if !result.Valid() {
		t.Errorf("expected a balanced purchase, got %v", result.Errors)
	}
}

func TestValidateImport_Accounts(t *testing.T) {
	tests := []struct {
		name        string
		account     ledger.AccountName
		wantError   bool
		wantWarning bool
	}{
		{"open account", "Expenses:Food", false, false},
		{"fallback account", "Expenses:TODO", false, true},
		{"unknown account", "Expenses:Travel", false, true},
		{"invalid account", "food", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := transaction(t,
				ledger.Posting{Account: "Assets:Simplii", Amount: amount(t, "-10.00", "CAD")},
				ledger.Posting{Account: tt.account, Amount: amount(t, "10.00", "CAD")},
			)
			result := New(testLedger(t)).ValidateImport(Import{Transactions: []*importer.ImportedTransaction{txn}})

			if got := findError(result, "transaction", "Account"); got != tt.wantError {
				t.Errorf("account error = %v, want %v", got, tt.wantError)
			}
			if got := findWarning(result, "transaction", "Account"); got != tt.wantWarning {
				t.Errorf("account warning = %v, want %v", got, tt.wantWarning)
			}
		})
	}
}

func TestValidateImport_PostingsAndDate(t *testing.T) {
	txn := transaction(t, ledger.Posting{Account: "Assets:Simplii", Amount: amount(t, "0.00", "CAD")})
	txn.Transaction.MetaData.Date = time.Time{}

	result := New(nil).ValidateImport(Import{Transactions: []*importer.ImportedTransaction{txn}})

	if !findError(result, "transaction", "Postings") {
		t.Error("expected a postings count error")
	}
	if !findError(result, "transaction", "Date") {
		t.Error("expected a zero date error")
	}
}

func TestValidateImport_PossibleDuplicate(t *testing.T) {
	txn := transaction(t,
		ledger.Posting{Account: "Assets:Simplii", Amount: amount(t, "-10.00", "CAD")},
		ledger.Posting{Account: "Expenses:Food", Amount: amount(t, "10.00", "CAD")},
	)
	existing := txn.Transaction
	txn.PossibleDuplicate = &existing

	result := New(testLedger(t)).ValidateImport(Import{Transactions: []*importer.ImportedTransaction{txn}})

	if !result.Valid() {
		t.Errorf("a possible duplicate is not an error, got %v", result.Errors)
	}
	if !findWarning(result, "transaction", "PossibleDuplicate") {
		t.Error("expected a possible duplicate warning")
	}
}

func TestValidateImport_Balances(t *testing.T) {
	result := New(testLedger(t)).ValidateImport(Import{Balances: []ledger.Balance{
		{Date: ledger.Date(2020, 6, 6), Account: "Assets:Unknown", Amount: amount(t, "1.00", "CAD")},
		{Date: ledger.Date(2020, 6, 6), Account: "Assets:Simplii", Amount: amount(t, "1.00", "")},
	}})

	if !findWarning(result, "balance", "Account") {
		t.Error("expected an unknown account warning")
	}
	if !findError(result, "balance", "Commodity") {
		t.Error("expected a missing commodity error")
	}
}

func TestValidateImport_Prices(t *testing.T) {
	result := New(nil).ValidateImport(Import{Prices: []ledger.Price{
		{Date: ledger.Date(2020, 6, 5), Commodity: "CAD", Amount: amount(t, "1.00", "CAD")},
		{Date: ledger.Date(2020, 6, 5), Commodity: "XEQT", Amount: amount(t, "-1.00", "CAD")},
	}})

	if !findError(result, "price", "Commodity") {
		t.Error("expected a self priced commodity error")
	}
	if !findError(result, "price", "Amount") {
		t.Error("expected a non-positive price error")
	}
}
