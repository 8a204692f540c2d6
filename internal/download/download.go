// Package download drives authenticated multi account downloads: the
// provider logs in once, then positions and transactions of all remote
// accounts are fetched concurrently in two phases.
//
// Errors of remote calls go to the error sink of the delegate. Balances and
// prices of every successful position fetch are kept; transactions are only
// published when no account failed in either phase.
package download

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rumor-ml/commons.systems/ledgerimport/internal/importer"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/ledger"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/settings"
)

// Positions is the phase one result of an account.
type Positions struct {
	Balances []ledger.Balance
	Prices   []ledger.Price
}

// Batch is the phase two result of an account. Drafts go through the
// mapping table when drained; Transactions are taken as they are.
type Batch struct {
	Drafts       []importer.Draft
	Transactions []ledger.Transaction
	Prices       []ledger.Price
}

// Provider adapts a remote client to the orchestrator. A is the remote
// account type. Positions and Transactions are called concurrently for
// different accounts.
type Provider[A any] interface {
	// Authenticate logs in, using the session for credentials and multi
	// factor prompts.
	Authenticate(ctx context.Context, session *Session) error
	Accounts(ctx context.Context) ([]A, error)
	Positions(ctx context.Context, account A) (Positions, error)
	Transactions(ctx context.Context, account A) (Batch, error)
}

// pending is a queued transaction of a download.
type pending struct {
	draft       *importer.Draft
	transaction *ledger.Transaction
}

// Importer is an importer.Importer over a Provider.
type Importer[A any] struct {
	*importer.Base
	importName string
	provider   Provider[A]
	session    *Session
	pipeline   *importer.Pipeline[pending]
}

// NewImporter creates a download importer of importerType.
func NewImporter[A any](importerType, importName string, provider Provider[A], env importer.Env) *Importer[A] {
	var credentials *settings.Credentials
	if env.Settings != nil {
		credentials = env.Settings.Credentials()
	}
	d := &Importer[A]{
		Base:       importer.NewBase(importerType, env, nil),
		importName: importName,
		provider:   provider,
		session:    NewSession(importerType, credentials, env.Delegate),
	}
	d.pipeline = importer.NewPipeline(d.build, env.Delegate)
	return d
}

// ImportName returns the display name of the download
func (d *Importer[A]) ImportName() string {
	return d.importName
}

// Session returns the credential session
func (d *Importer[A]) Session() *Session {
	return d.session
}

// Load authenticates and downloads. It blocks until every fetch finished.
// Remote errors are reported to the error sink and do not fail Load; an
// error is returned when Load was already called or a prompt failed.
func (d *Importer[A]) Load(ctx context.Context) error {
	if err := d.pipeline.Start(); err != nil {
		return err
	}
	ctx = d.Begin(ctx)
	log := d.Logger(ctx)

	if err := d.provider.Authenticate(ctx, d.session); err != nil {
		log.Warn().Err(err).Msg("authentication failed")
		return d.session.LoginFailed(ctx, err)
	}

	accounts, err := d.provider.Accounts(ctx)
	if err != nil {
		d.session.Report(err)
		log.Warn().Err(err).Msg("failed to list accounts")
		return nil
	}
	log.Debug().Int("accounts", len(accounts)).Msg("authenticated")

	var mu sync.Mutex
	failed := false
	var balances []ledger.Balance
	var prices []ledger.Price
	fail := func(phase string, err error) {
		failed = true
		d.session.Report(err)
		log.Warn().Err(err).Str("phase", phase).Msg("account fetch failed")
	}

	positions := make([]Positions, len(accounts))
	var positionGroup errgroup.Group
	for i, account := range accounts {
		i, account := i, account
		positionGroup.Go(func() error {
			result, err := d.provider.Positions(ctx, account)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				fail("positions", err)
				return nil
			}
			positions[i] = result
			return nil
		})
	}
	_ = positionGroup.Wait()
	for _, p := range positions {
		balances = append(balances, p.Balances...)
		prices = append(prices, p.Prices...)
	}

	if failed {
		d.pipeline.Fill(nil, balances, prices)
		log.Info().Int("balances", len(balances)).Msg("positions incomplete, transactions skipped")
		return nil
	}

	batches := make([]Batch, len(accounts))
	var transactionGroup errgroup.Group
	for i, account := range accounts {
		i, account := i, account
		transactionGroup.Go(func() error {
			result, err := d.provider.Transactions(ctx, account)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				fail("transactions", err)
				return nil
			}
			batches[i] = result
			return nil
		})
	}
	_ = transactionGroup.Wait()

	var items []pending
	if !failed {
		for _, b := range batches {
			for i := range b.Drafts {
				items = append(items, pending{draft: &b.Drafts[i]})
			}
			for i := range b.Transactions {
				items = append(items, pending{transaction: &b.Transactions[i]})
			}
			prices = append(prices, b.Prices...)
		}
	}

	d.pipeline.Fill(items, balances, prices)
	log.Info().
		Int("transactions", len(items)).
		Int("balances", len(balances)).
		Int("prices", len(prices)).
		Bool("complete", !failed).
		Msg("download finished")
	return nil
}

// NextTransaction returns the next downloaded transaction.
func (d *Importer[A]) NextTransaction(ctx context.Context) (*importer.ImportedTransaction, error) {
	return d.pipeline.Next(ctx)
}

// BalancesToImport returns the balances of all accounts whose positions
// were fetched.
func (d *Importer[A]) BalancesToImport() []ledger.Balance {
	return d.pipeline.Balances()
}

// PricesToImport returns the downloaded prices
func (d *Importer[A]) PricesToImport() []ledger.Price {
	return d.pipeline.Prices()
}

func (d *Importer[A]) build(ctx context.Context, p pending) (*importer.ImportedTransaction, error) {
	if p.draft != nil {
		return d.BuildTransaction(ctx, *p.draft)
	}
	t := d.Wrap(*p.transaction, "")
	return &t, nil
}
