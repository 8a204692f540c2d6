// Package validate checks an import before it is written: transactions must
// balance and reference valid accounts, balances and prices must be well formed.
package validate

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rumor-ml/commons.systems/ledgerimport/internal/importer"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/ledger"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/settings"
)

// DefaultTolerance is the largest per commodity residual a balanced
// transaction may have. Unit amounts rounded to five digits times a cost
// rarely add up to the cent.
var DefaultTolerance = decimal.RequireFromString("0.01")

// ValidationResult contains all validation errors and warnings for an import
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// Valid reports whether no errors were found. Warnings do not count.
func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// ValidationError represents a validation error
type ValidationError struct {
	Entity  string // "transaction", "balance", "price"
	ID      string
	Field   string
	Value   string
	Message string
}

// ValidationWarning represents a non-critical validation issue
type ValidationWarning struct {
	Entity  string
	ID      string
	Field   string
	Value   string
	Message string
}

// Import is everything one importer produced.
type Import struct {
	Transactions []*importer.ImportedTransaction
	Balances     []ledger.Balance
	Prices       []ledger.Price
}

// Validator checks imports against an existing ledger. A nil ledger skips
// the account existence checks.
type Validator struct {
	ledger    *ledger.Ledger
	tolerance decimal.Decimal
}

// New creates a validator using DefaultTolerance.
func New(l *ledger.Ledger) *Validator {
	return &Validator{ledger: l, tolerance: DefaultTolerance}
}

// WithTolerance returns a copy of v with a different balancing tolerance.
func (v *Validator) WithTolerance(tolerance decimal.Decimal) *Validator {
	return &Validator{ledger: v.ledger, tolerance: tolerance.Abs()}
}

// ValidateImport validates every transaction, balance and price of imp.
func (v *Validator) ValidateImport(imp Import) *ValidationResult {
	result := &ValidationResult{
		Errors:   []ValidationError{},
		Warnings: []ValidationWarning{},
	}
	for _, t := range imp.Transactions {
		v.validateTransaction(result, t)
	}
	for _, b := range imp.Balances {
		v.validateBalance(result, b)
	}
	for _, p := range imp.Prices {
		validatePrice(result, p)
	}
	return result
}

func transactionID(t *importer.ImportedTransaction) string {
	description := t.OriginalDescription
	if description == "" {
		description = t.Transaction.MetaData.Narration
	}
	return fmt.Sprintf("%s %s", t.Transaction.MetaData.Date.Format("2006-01-02"), description)
}

func (v *Validator) validateTransaction(result *ValidationResult, t *importer.ImportedTransaction) {
	id := transactionID(t)
	addError := func(field, value, message string) {
		result.Errors = append(result.Errors, ValidationError{Entity: "transaction", ID: id, Field: field, Value: value, Message: message})
	}
	addWarning := func(field, value, message string) {
		result.Warnings = append(result.Warnings, ValidationWarning{Entity: "transaction", ID: id, Field: field, Value: value, Message: message})
	}

	if t.Transaction.MetaData.Date.IsZero() {
		addError("Date", "", "transaction date cannot be zero")
	}
	if len(t.Transaction.Postings) < 2 {
		addError("Postings", fmt.Sprintf("%d", len(t.Transaction.Postings)), "transaction needs at least two postings")
	}

	residuals := make(map[string]decimal.Decimal)
	digits := make(map[string]int)
	var commodities []string
	for _, p := range t.Transaction.Postings {
		if _, err := ledger.NewAccountName(string(p.Account)); err != nil {
			addError("Account", string(p.Account), err.Error())
		} else if p.Account == settings.FallbackAccount {
			addWarning("Account", string(p.Account), "counter account needs review")
		} else if !v.accountExists(p.Account) {
			addWarning("Account", string(p.Account), fmt.Sprintf("account %s is not open in the ledger", p.Account))
		}
		if p.Amount.Commodity == "" {
			addError("Commodity", p.Amount.String(), fmt.Sprintf("posting on %s has no commodity", p.Account))
			continue
		}

		weight := ledger.Weight(p)
		if _, seen := residuals[weight.Commodity]; !seen {
			commodities = append(commodities, weight.Commodity)
		}
		residuals[weight.Commodity] = residuals[weight.Commodity].Add(weight.Number)
		digits[weight.Commodity] = max(digits[weight.Commodity], weight.DecimalDigits)
	}
	for _, commodity := range commodities {
		residual := ledger.Amount{Number: residuals[commodity], Commodity: commodity, DecimalDigits: digits[commodity]}
		if residual.Number.Abs().GreaterThan(v.tolerance) {
			addError("Postings", residual.String(), fmt.Sprintf("transaction does not balance: residual %s", residual))
		}
	}

	if t.PossibleDuplicate != nil {
		addWarning("PossibleDuplicate", t.PossibleDuplicate.MetaData.Date.Format("2006-01-02"), "transaction may already be in the ledger")
	}
}

func (v *Validator) validateBalance(result *ValidationResult, b ledger.Balance) {
	id := fmt.Sprintf("%s %s", b.Date.Format("2006-01-02"), b.Account)
	if _, err := ledger.NewAccountName(string(b.Account)); err != nil {
		result.Errors = append(result.Errors, ValidationError{Entity: "balance", ID: id, Field: "Account", Value: string(b.Account), Message: err.Error()})
	} else if !v.accountExists(b.Account) {
		result.Warnings = append(result.Warnings, ValidationWarning{Entity: "balance", ID: id, Field: "Account", Value: string(b.Account), Message: fmt.Sprintf("account %s is not open in the ledger", b.Account)})
	}
	if b.Amount.Commodity == "" {
		result.Errors = append(result.Errors, ValidationError{Entity: "balance", ID: id, Field: "Commodity", Value: b.Amount.String(), Message: "balance has no commodity"})
	}
	if b.Date.IsZero() {
		result.Errors = append(result.Errors, ValidationError{Entity: "balance", ID: id, Field: "Date", Message: "balance date cannot be zero"})
	}
}

func validatePrice(result *ValidationResult, p ledger.Price) {
	id := fmt.Sprintf("%s %s", p.Date.Format("2006-01-02"), p.Commodity)
	if _, err := ledger.NewPrice(p.Date, p.Commodity, p.Amount); err != nil {
		result.Errors = append(result.Errors, ValidationError{Entity: "price", ID: id, Field: "Commodity", Value: p.Commodity, Message: err.Error()})
	}
	if !p.Amount.Number.IsPositive() {
		result.Errors = append(result.Errors, ValidationError{Entity: "price", ID: id, Field: "Amount", Value: p.Amount.String(), Message: "price must be positive"})
	}
}

func (v *Validator) accountExists(name ledger.AccountName) bool {
	if v.ledger == nil {
		return true
	}
	_, ok := v.ledger.Account(name)
	return ok
}
