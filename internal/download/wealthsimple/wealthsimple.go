// Package wealthsimple downloads positions and transactions of Wealthsimple
// accounts. The API client is supplied by the caller.
package wealthsimple

//go:generate mockgen -destination=mocks/mock_client.go -package=mock_wealthsimple github.com/rumor-ml/commons.systems/ledgerimport/internal/download/wealthsimple Client

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rumor-ml/commons.systems/ledgerimport/internal/download"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/importer"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/ledger"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/settings"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/transform"
)

const (
	ImporterType = "wealthsimple"
	ImporterName = "Wealthsimple Download"
	// NumberKey is the account metadata key with the Wealthsimple account number.
	NumberKey = "number"
	// IDKey is the transaction metadata key with the Wealthsimple id.
	IDKey = "wealthsimple-id"

	defaultLookbackDays = 62
)

// LookbackSetting is how many days of transactions are downloaded.
var LookbackSetting = settings.Setting{Identifier: "lookbackDays", DisplayName: "Days of transactions to download"}

// HelpText explains the ledger configuration.
const HelpText = `Downloads positions and recent transactions from Wealthsimple.

Each account needs the metadata importer-type: "wealthsimple" and number: "XXXX" with the Wealthsimple account number. Holdings are booked on sub accounts named after the symbol.`

// TransactionType of a Wealthsimple transaction.
type TransactionType string

const (
	TypeBuy      TransactionType = "buy"
	TypeSell     TransactionType = "sell"
	TypeDividend TransactionType = "dividend"
	TypeDeposit  TransactionType = "deposit"
	TypeFee      TransactionType = "fee"
)

// Account is a Wealthsimple account.
type Account struct {
	ID       string
	Number   string
	Currency string
}

// Position is a holding. Cash is a position whose symbol is its currency.
type Position struct {
	Symbol   string
	Quantity string
	// Price is the price of one unit in Currency.
	Price    string
	Currency string
}

// Transaction is a processed account transaction.
type Transaction struct {
	ID          string
	Type        TransactionType
	Description string
	Symbol      string
	Quantity    string
	// MarketPrice is the price of one unit in MarketCurrency.
	MarketPrice    string
	MarketCurrency string
	// NetCash is the change of the cash balance, negative for buys.
	NetCash     string
	Currency    string
	ProcessDate time.Time
}

// Auth is what the client needs to log in and keep its tokens.
// *download.Session implements it.
type Auth interface {
	Credentials(ctx context.Context) (download.Credentials, error)
	OTP(ctx context.Context) (string, error)
	Read(ctx context.Context, key string) (string, bool, error)
	Save(ctx context.Context, key, value string) error
}

// Client is the Wealthsimple API.
type Client interface {
	Authenticate(ctx context.Context, auth Auth) error
	Accounts(ctx context.Context) ([]Account, error)
	Positions(ctx context.Context, account Account) ([]Position, error)
	Transactions(ctx context.Context, account Account, since time.Time) ([]Transaction, error)
}

// MappingError is returned when remote data cannot be expressed in the ledger.
type MappingError struct {
	AccountNumber string
	Reason        string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("wealthsimple account %s: %s", e.AccountNumber, e.Reason)
}

// Provider implements download.Provider for Wealthsimple.
type Provider struct {
	client   Client
	env      importer.Env
	lookback int
}

// NewProvider creates the provider.
func NewProvider(client Client, env importer.Env) *Provider {
	return &Provider{client: client, env: env}
}

// NewImporter creates the Wealthsimple download importer.
func NewImporter(client Client, env importer.Env) *download.Importer[Account] {
	return download.NewImporter[Account](ImporterType, ImporterName, NewProvider(client, env), env)
}

// Authenticate lets the client log in. Tokens are kept by the client through
// the session.
func (p *Provider) Authenticate(ctx context.Context, session *download.Session) error {
	return p.client.Authenticate(ctx, session)
}

// Accounts lists the remote accounts and settles the lookback window.
func (p *Provider) Accounts(ctx context.Context) ([]Account, error) {
	lookback, err := p.lookbackDays(ctx)
	if err != nil {
		return nil, err
	}
	p.lookback = lookback
	return p.client.Accounts(ctx)
}

// Positions maps holdings to balances dated today and a price per symbol.
func (p *Provider) Positions(ctx context.Context, account Account) (download.Positions, error) {
	name, err := p.ledgerAccount(account)
	if err != nil {
		return download.Positions{}, err
	}
	positions, err := p.client.Positions(ctx, account)
	if err != nil {
		return download.Positions{}, err
	}

	today := p.env.Today()
	var result download.Positions
	for _, position := range positions {
		quantity, err := ledger.ParseAmount(position.Quantity, position.Symbol)
		if err != nil {
			return download.Positions{}, &MappingError{AccountNumber: account.Number, Reason: fmt.Sprintf("invalid quantity of %s: %v", position.Symbol, err)}
		}
		if position.Symbol == position.Currency {
			result.Balances = append(result.Balances, ledger.Balance{Date: today, Account: name, Amount: quantity})
			continue
		}
		holding, err := p.holdingAccount(name, account, position.Symbol)
		if err != nil {
			return download.Positions{}, err
		}
		result.Balances = append(result.Balances, ledger.Balance{Date: today, Account: holding, Amount: quantity})

		unitPrice, err := ledger.ParseAmount(position.Price, position.Currency)
		if err != nil {
			return download.Positions{}, &MappingError{AccountNumber: account.Number, Reason: fmt.Sprintf("invalid price of %s: %v", position.Symbol, err)}
		}
		if price, err := ledger.NewPrice(today, position.Symbol, unitPrice); err == nil {
			result.Prices = append(result.Prices, price)
		}
	}
	return result, nil
}

// Transactions maps the transactions of the lookback window. Buys and sells
// move units between the account and its holding; everything else is booked
// against the placeholder account.
func (p *Provider) Transactions(ctx context.Context, account Account) (download.Batch, error) {
	name, err := p.ledgerAccount(account)
	if err != nil {
		return download.Batch{}, err
	}
	since := p.env.Today().AddDate(0, 0, -p.lookback)
	transactions, err := p.client.Transactions(ctx, account, since)
	if err != nil {
		return download.Batch{}, err
	}

	var batch download.Batch
	for _, t := range transactions {
		mapped, price, err := p.mapTransaction(name, account, t)
		if err != nil {
			return download.Batch{}, err
		}
		batch.Transactions = append(batch.Transactions, mapped)
		if price != nil {
			batch.Prices = append(batch.Prices, *price)
		}
	}
	return batch, nil
}

func (p *Provider) mapTransaction(name ledger.AccountName, account Account, t Transaction) (ledger.Transaction, *ledger.Price, error) {
	netCash, err := ledger.ParseAmount(t.NetCash, t.Currency)
	if err != nil {
		return ledger.Transaction{}, nil, &MappingError{AccountNumber: account.Number, Reason: fmt.Sprintf("invalid net cash of transaction %s: %v", t.ID, err)}
	}
	meta := ledger.TransactionMetaData{
		Date:      ledger.Day(t.ProcessDate),
		Narration: t.Description,
		Flag:      ledger.FlagComplete,
		MetaData:  map[string]string{IDKey: t.ID},
	}
	cash := ledger.Posting{Account: name, Amount: netCash}

	if t.Type != TypeBuy && t.Type != TypeSell {
		return ledger.Transaction{
			MetaData: meta,
			Postings: []ledger.Posting{cash, {Account: settings.FallbackAccount, Amount: netCash.Neg()}},
		}, nil, nil
	}

	holding, err := p.holdingAccount(name, account, t.Symbol)
	if err != nil {
		return ledger.Transaction{}, nil, err
	}
	units, err := ledger.ParseAmount(t.Quantity, t.Symbol)
	if err != nil {
		return ledger.Transaction{}, nil, &MappingError{AccountNumber: account.Number, Reason: fmt.Sprintf("invalid quantity of transaction %s: %v", t.ID, err)}
	}
	units.Number = units.Number.Abs()
	if t.Type == TypeSell {
		units = units.Neg()
	}
	total := ledger.Amount{Number: netCash.Number.Abs(), Commodity: netCash.Commodity, DecimalDigits: netCash.DecimalDigits}

	var price *ledger.Price
	if unitPrice, err := ledger.ParseAmount(t.MarketPrice, t.MarketCurrency); err == nil {
		if marketPrice, err := ledger.NewPrice(meta.Date, t.Symbol, unitPrice); err == nil {
			price = &marketPrice
		}
	}
	return ledger.Transaction{
		MetaData: meta,
		Postings: []ledger.Posting{{Account: holding, Amount: units, Price: &total}, cash},
	}, price, nil
}

func (p *Provider) ledgerAccount(account Account) (ledger.AccountName, error) {
	if p.env.Ledger != nil {
		for _, a := range p.env.Ledger.AccountsWithMeta(importer.ImporterTypeKey, ImporterType) {
			if a.Meta(NumberKey) == account.Number {
				return a.Name, nil
			}
		}
	}
	return "", &MappingError{AccountNumber: account.Number, Reason: "no ledger account with this number"}
}

func (p *Provider) holdingAccount(parent ledger.AccountName, account Account, symbol string) (ledger.AccountName, error) {
	component, err := transform.AccountComponent(symbol)
	if err != nil {
		return "", &MappingError{AccountNumber: account.Number, Reason: err.Error()}
	}
	name, err := ledger.NewAccountName(parent.String() + ":" + component)
	if err != nil {
		return "", &MappingError{AccountNumber: account.Number, Reason: err.Error()}
	}
	return name, nil
}

func (p *Provider) lookbackDays(ctx context.Context) (int, error) {
	if p.env.Settings == nil {
		return defaultLookbackDays, nil
	}
	value, ok, err := p.env.Settings.ImporterSetting(ctx, ImporterType, LookbackSetting)
	if err != nil {
		return 0, err
	}
	if !ok {
		return defaultLookbackDays, nil
	}
	days, err := strconv.Atoi(value)
	if err != nil || days <= 0 {
		return defaultLookbackDays, nil
	}
	return days, nil
}
