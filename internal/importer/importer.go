// Package importer defines the import pipeline shared by all importers:
// load once, drain transactions one at a time, read balances and prices as
// snapshots. Transactions are mapped through the remembered description,
// payee and account mappings before they are handed out.
package importer

//go:generate mockgen -destination=mocks/mock_delegate.go -package=mock_importer github.com/rumor-ml/commons.systems/ledgerimport/internal/importer Delegate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rumor-ml/commons.systems/ledgerimport/internal/dedup"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/ledger"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/rules"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/settings"
)

var (
	// ErrAlreadyLoaded is returned by a second Load call.
	ErrAlreadyLoaded = errors.New("importer already loaded")
	// ErrNotLoaded is returned by NextTransaction before Load.
	ErrNotLoaded = errors.New("importer not loaded")
)

// Importer is the capability every importer variant provides.
//
// Load must be called exactly once. NextTransaction then returns one
// transaction per call and (nil, nil) once exhausted, forever after.
// BalancesToImport and PricesToImport return the same snapshot on every call.
type Importer interface {
	Type() string
	ImportName() string
	Load(ctx context.Context) error
	NextTransaction(ctx context.Context) (*ImportedTransaction, error)
	BalancesToImport() []ledger.Balance
	PricesToImport() []ledger.Price
}

// ImportedTransaction is a constructed transaction plus its provenance.
type ImportedTransaction struct {
	Transaction ledger.Transaction
	// OriginalDescription is the unmapped description from the source, the
	// key of the description and payee mappings.
	OriginalDescription string
	PossibleDuplicate   *ledger.Transaction
	// ShouldAllowUserToEdit marks transactions whose counter account,
	// narration and payee are suggestions the user should review.
	ShouldAllowUserToEdit bool
	// AccountName is the imported account of editable transactions.
	AccountName ledger.AccountName

	settings *settings.Settings
}

// SaveMapped remembers the reviewed narration, payee and counter account for
// the original description of t.
func (t *ImportedTransaction) SaveMapped(ctx context.Context, narration, payee string, account ledger.AccountName) error {
	if t.settings == nil {
		return fmt.Errorf("transaction has no settings to save the mapping to")
	}
	return t.settings.ConfirmMapping(ctx, t.OriginalDescription, narration, payee, account)
}

// Edit applies a reviewed narration, payee and counter account to an
// editable transaction. The counter account replaces every posting not on
// AccountName.
func (t *ImportedTransaction) Edit(narration, payee string, account ledger.AccountName) error {
	if !t.ShouldAllowUserToEdit {
		return fmt.Errorf("transaction %q cannot be edited", t.OriginalDescription)
	}
	if _, err := ledger.NewAccountName(string(account)); err != nil {
		return fmt.Errorf("invalid counter account: %w", err)
	}
	t.Transaction.MetaData.Narration = narration
	t.Transaction.MetaData.Payee = payee
	for i := range t.Transaction.Postings {
		if t.Transaction.Postings[i].Account != t.AccountName {
			t.Transaction.Postings[i].Account = account
		}
	}
	return nil
}

// CounterAccount returns the account of the first posting not on AccountName.
func (t *ImportedTransaction) CounterAccount() (ledger.AccountName, bool) {
	for _, p := range t.Transaction.Postings {
		if p.Account != t.AccountName {
			return p.Account, true
		}
	}
	return "", false
}

// InputKind tells the requester how to ask for a value.
type InputKind int

const (
	InputText InputKind = iota
	InputSecret
	InputOTP
	InputBool
	InputChoice
)

func (k InputKind) String() string {
	switch k {
	case InputText:
		return "text"
	case InputSecret:
		return "secret"
	case InputOTP:
		return "otp"
	case InputBool:
		return "bool"
	case InputChoice:
		return "choice"
	default:
		return fmt.Sprintf("InputKind(%d)", int(k))
	}
}

// InputRequest describes one prompt. Bool prompts answer "true" or "false";
// choice prompts answer one of Choices.
type InputRequest struct {
	Name        string
	Kind        InputKind
	Suggestions []string
	Choices     []string
}

// InputRequester asks the user for a value, blocking until it is supplied.
type InputRequester interface {
	RequestInput(ctx context.Context, request InputRequest) (string, error)
}

// ErrorSink receives errors that do not abort the caller. It must not block.
type ErrorSink interface {
	Error(err error)
}

// Delegate is the user facing collaborator of importers.
type Delegate interface {
	InputRequester
	ErrorSink
}

// Env bundles the collaborators passed to every importer.
type Env struct {
	// Ledger is the existing ledger, nil when none was supplied.
	Ledger   *ledger.Ledger
	Settings *settings.Settings
	Delegate Delegate
	// Rules suggest counter accounts when no mapping exists. May be nil.
	Rules *rules.Engine
	// Now defaults to time.Now.
	Now func() time.Time
}

func (e Env) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Today returns the current calendar date.
func (e Env) Today() time.Time {
	return ledger.Day(e.now())
}

func (e Env) transactions() []ledger.Transaction {
	if e.Ledger == nil {
		return nil
	}
	return e.Ledger.Transactions()
}

func (e Env) newIndex() *dedup.Index {
	return dedup.NewIndex(e.transactions())
}
