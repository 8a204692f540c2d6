package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/rumor-ml/commons.systems/ledgerimport/internal/dedup"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/ledger"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/logger"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/parser"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/settings"
)

const (
	// ImporterTypeKey is the account metadata key naming the importer of an account.
	ImporterTypeKey = "importer-type"
	// NumberKey is the account metadata key holding the account number.
	NumberKey = "number"
)

// AccountSetting is the default account of file and text importers.
var AccountSetting = settings.Setting{Identifier: "account", DisplayName: "Default Account"}

// Draft is the input of BuildTransaction.
type Draft struct {
	Date time.Time
	// Description is the unmapped description from the source.
	Description string
	// Payee is the payee the source itself suggests, may be empty.
	Payee  string
	Amount decimal.Decimal
	// Price is the total price of the counter posting, in its own commodity.
	Price     *ledger.Amount
	Account   ledger.AccountName
	Commodity string
	MetaData  map[string]string
}

// Base implements what every importer shares: configured account
// resolution, mapping of drafts into transactions and duplicate lookup.
type Base struct {
	importerType string
	env          Env
	meta         *parser.Metadata
	index        *dedup.Index
	runID        string
}

// NewBase creates the shared part of an importer of importerType. meta is
// optional and narrows account resolution for files.
func NewBase(importerType string, env Env, meta *parser.Metadata) *Base {
	return &Base{importerType: importerType, env: env, meta: meta}
}

// Type returns the importer type
func (b *Base) Type() string {
	return b.importerType
}

// Env returns the collaborators of the importer
func (b *Base) Env() Env {
	return b.env
}

// Begin starts a load: it assigns a run id and returns a context carrying a
// logger annotated with importer and run id.
func (b *Base) Begin(ctx context.Context) context.Context {
	b.runID = uuid.NewString()
	log := logger.FromContext(ctx).With().
		Str("importer", b.importerType).
		Str("run_id", b.runID).
		Logger()
	return logger.WithContext(ctx, log)
}

// RunID returns the id of the current load, empty before Begin.
func (b *Base) RunID() string {
	return b.runID
}

// Logger returns the logger of ctx.
func (b *Base) Logger(ctx context.Context) *zerolog.Logger {
	log := logger.FromContext(ctx)
	return &log
}

// AccountsFromLedger returns the ledger accounts configured for this importer.
// When the file metadata mentions the number of some of them, only those are
// returned.
func (b *Base) AccountsFromLedger() []ledger.AccountName {
	if b.env.Ledger == nil {
		return nil
	}
	accounts := b.env.Ledger.AccountsWithMeta(ImporterTypeKey, b.importerType)

	var numbered []ledger.AccountName
	for _, a := range accounts {
		if b.meta.MentionsNumber(a.Meta(NumberKey)) {
			numbered = append(numbered, a.Name)
		}
	}
	if len(numbered) > 0 {
		return numbered
	}

	names := make([]ledger.AccountName, 0, len(accounts))
	for _, a := range accounts {
		names = append(names, a.Name)
	}
	return names
}

// ConfiguredAccount resolves the imported account: a single ledger
// candidate, else the account setting, else the user is asked until a valid
// account name is entered.
func (b *Base) ConfiguredAccount(ctx context.Context) (ledger.AccountName, error) {
	candidates := b.AccountsFromLedger()
	if len(candidates) == 1 {
		return candidates[0], nil
	}

	if b.env.Settings != nil {
		value, ok, err := b.env.Settings.ImporterSetting(ctx, b.importerType, AccountSetting)
		if err != nil {
			return "", err
		}
		if ok && value != "" {
			name, err := ledger.NewAccountName(value)
			if err == nil {
				return name, nil
			}
			b.Logger(ctx).Warn().Err(err).Str("value", value).Msg("ignoring invalid account setting")
		}
	}

	if b.env.Delegate == nil {
		return "", fmt.Errorf("cannot determine the account for %s: %d candidates and no delegate to ask", b.importerType, len(candidates))
	}
	suggestions := make([]string, len(candidates))
	for i, c := range candidates {
		suggestions[i] = c.String()
	}
	for {
		value, err := b.env.Delegate.RequestInput(ctx, InputRequest{
			Name:        "Account",
			Kind:        InputText,
			Suggestions: suggestions,
		})
		if err != nil {
			return "", fmt.Errorf("failed to request account: %w", err)
		}
		name, err := ledger.NewAccountName(value)
		if err == nil {
			return name, nil
		}
		b.Logger(ctx).Debug().Err(err).Str("value", value).Msg("invalid account entered")
	}
}

// Commodity returns the commodity of account, else the configured fallback.
func (b *Base) Commodity(ctx context.Context, account ledger.AccountName) (string, error) {
	if b.env.Ledger != nil {
		if a, ok := b.env.Ledger.Account(account); ok && a.Commodity != "" {
			return a.Commodity, nil
		}
	}
	if b.env.Settings == nil {
		return settings.DefaultCommodity, nil
	}
	return b.env.Settings.Commodity(ctx)
}

// BuildTransaction maps a draft into an editable transaction:
//  1. narration: description mapping, else the raw description
//  2. payee: payee mapping, else the draft payee
//  3. counter account: account mapping of the payee, else a matching rule,
//     else the placeholder account
//  4. postings: the draft account with the amount, the counter account with
//     the negated amount (or the price, when set)
//  5. possible duplicate: same date, account and amount in the ledger
func (b *Base) BuildTransaction(ctx context.Context, d Draft) (*ImportedTransaction, error) {
	narration := d.Description
	payee := d.Payee
	counter := settings.FallbackAccount

	if s := b.env.Settings; s != nil {
		if mapped, ok, err := s.DescriptionMapping(ctx, d.Description); err != nil {
			return nil, err
		} else if ok {
			narration = mapped
		}
		if mapped, ok, err := s.PayeeMapping(ctx, d.Description); err != nil {
			return nil, err
		} else if ok {
			payee = mapped
		}
	}

	mapped := false
	if payee != "" && b.env.Settings != nil {
		account, ok, err := b.env.Settings.AccountMapping(ctx, payee)
		if err != nil {
			return nil, err
		}
		if ok {
			counter = account
			mapped = true
		}
	}
	if !mapped {
		if match, ok := b.env.Rules.Match(d.Description); ok {
			counter = match.Account
			if payee == "" {
				payee = match.Payee
			}
			b.Logger(ctx).Debug().Str("rule", match.RuleName).Str("description", d.Description).Msg("rule matched")
		}
	}

	amount := ledger.NewAmount(d.Amount, d.Commodity)
	postings := []ledger.Posting{
		{Account: d.Account, Amount: amount},
		counterPosting(counter, amount, d.Price),
	}

	meta := make(map[string]string, len(d.MetaData))
	for k, v := range d.MetaData {
		meta[k] = v
	}
	transaction := ledger.Transaction{
		MetaData: ledger.TransactionMetaData{
			Date:      ledger.Day(d.Date),
			Payee:     payee,
			Narration: narration,
			Flag:      ledger.FlagComplete,
			MetaData:  meta,
		},
		Postings: postings,
	}

	return &ImportedTransaction{
		Transaction:           transaction,
		OriginalDescription:   d.Description,
		PossibleDuplicate:     b.PossibleDuplicate(transaction),
		ShouldAllowUserToEdit: true,
		AccountName:           d.Account,
		settings:              b.env.Settings,
	}, nil
}

// Wrap turns a transaction built by an importer itself into a non-editable
// ImportedTransaction with duplicate lookup.
func (b *Base) Wrap(transaction ledger.Transaction, originalDescription string) ImportedTransaction {
	return ImportedTransaction{
		Transaction:         transaction,
		OriginalDescription: originalDescription,
		PossibleDuplicate:   b.PossibleDuplicate(transaction),
		settings:            b.env.Settings,
	}
}

// counterPosting balances amount on account. With a price, the posting is in
// the price commodity and carries amount as total price.
func counterPosting(account ledger.AccountName, amount ledger.Amount, price *ledger.Amount) ledger.Posting {
	if price == nil {
		return ledger.Posting{Account: account, Amount: amount.Neg()}
	}
	units := ledger.Amount{Number: price.Number.Abs(), Commodity: price.Commodity, DecimalDigits: price.DecimalDigits}
	if amount.Number.IsPositive() {
		units = units.Neg()
	}
	total := ledger.Amount{Number: amount.Number.Abs(), Commodity: amount.Commodity, DecimalDigits: amount.DecimalDigits}
	return ledger.Posting{Account: account, Amount: units, Price: &total}
}

// PossibleDuplicate looks up an existing transaction on the same date with a
// posting equal to the first posting of t. The index over the ledger is
// built on first use.
func (b *Base) PossibleDuplicate(t ledger.Transaction) *ledger.Transaction {
	if b.env.Ledger == nil || len(t.Postings) == 0 {
		return nil
	}
	if b.index == nil {
		b.index = b.env.newIndex()
	}
	first := t.Postings[0]
	return b.index.Find(t.MetaData.Date, first.Account, first.Amount)
}
