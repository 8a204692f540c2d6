package main

import (
	"context"
	"fmt"

	"github.com/rumor-ml/commons.systems/ledgerimport/internal/importer"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/ledger"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/logger"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/output"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/ui"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/validate"
)

// reviewer confirms editable transactions. A nil reviewer accepts them as built.
type reviewer interface {
	Review(ctx context.Context, t *importer.ImportedTransaction) error
}

// collect loads imp and drains it. Editable transactions go through r.
func collect(ctx context.Context, imp importer.Importer, r reviewer) (output.Result, validate.Import, error) {
	log := logger.FromContext(ctx).With().Str("import", imp.ImportName()).Logger()

	if err := imp.Load(ctx); err != nil {
		return output.Result{}, validate.Import{}, fmt.Errorf("failed to load %s: %w", imp.ImportName(), err)
	}

	var imported []*importer.ImportedTransaction
	for {
		t, err := imp.NextTransaction(ctx)
		if err != nil {
			return output.Result{}, validate.Import{}, fmt.Errorf("failed to import from %s: %w", imp.ImportName(), err)
		}
		if t == nil {
			break
		}
		if r != nil && t.ShouldAllowUserToEdit {
			if err := r.Review(ctx, t); err != nil {
				return output.Result{}, validate.Import{}, err
			}
		}
		imported = append(imported, t)
	}

	result := output.Result{
		ImportName: imp.ImportName(),
		Balances:   imp.BalancesToImport(),
		Prices:     imp.PricesToImport(),
	}
	for _, t := range imported {
		result.Transactions = append(result.Transactions, t.Transaction)
	}
	log.Info().
		Int("transactions", len(result.Transactions)).
		Int("balances", len(result.Balances)).
		Int("prices", len(result.Prices)).
		Msg("import collected")

	return result, validate.Import{Transactions: imported, Balances: result.Balances, Prices: result.Prices}, nil
}

// interactiveReview asks for narration, payee and counter account of each
// editable transaction and remembers the answers as mappings.
type interactiveReview struct {
	requester importer.InputRequester
}

func (r interactiveReview) Review(ctx context.Context, t *importer.ImportedTransaction) error {
	text, err := output.FormatTransaction(t.Transaction)
	if err != nil {
		return err
	}
	ui.BlueText(t.OriginalDescription)
	ui.Block(text)
	if t.PossibleDuplicate != nil {
		ui.Warning(fmt.Sprintf("possible duplicate of %s %q", t.PossibleDuplicate.MetaData.Date.Format("2006-01-02"), t.PossibleDuplicate.MetaData.Narration))
	}

	narration, err := r.ask(ctx, "Narration", t.Transaction.MetaData.Narration)
	if err != nil {
		return err
	}
	payee, err := r.ask(ctx, "Payee", t.Transaction.MetaData.Payee)
	if err != nil {
		return err
	}
	counter, _ := t.CounterAccount()
	var account ledger.AccountName
	for {
		value, err := r.ask(ctx, "Account", string(counter))
		if err != nil {
			return err
		}
		if account, err = ledger.NewAccountName(value); err == nil {
			break
		}
		ui.Warning(err.Error())
	}

	if err := t.Edit(narration, payee, account); err != nil {
		return err
	}
	if err := t.SaveMapped(ctx, narration, payee, account); err != nil {
		return fmt.Errorf("failed to save mapping for %q: %w", t.OriginalDescription, err)
	}
	return nil
}

func (r interactiveReview) ask(ctx context.Context, name, current string) (string, error) {
	var suggestions []string
	if current != "" {
		suggestions = []string{current}
	}
	return r.requester.RequestInput(ctx, importer.InputRequest{Name: name, Kind: importer.InputText, Suggestions: suggestions})
}

// report prints validation findings and returns whether there were errors.
func report(result *validate.ValidationResult) bool {
	for _, w := range result.Warnings {
		ui.Warning(fmt.Sprintf("%s %s: %s", w.Entity, w.ID, w.Message))
	}
	for _, e := range result.Errors {
		ui.Error(fmt.Sprintf("%s %s: %s", e.Entity, e.ID, e.Message))
	}
	return !result.Valid()
}
