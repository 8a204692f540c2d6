// Package rogers downloads credit card activity and the current balance
// from Rogers Bank. The HTTP client itself is supplied by the caller.
package rogers

//go:generate mockgen -destination=mocks/mock_client.go -package=mock_rogers github.com/rumor-ml/commons.systems/ledgerimport/internal/download/rogers Client

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rumor-ml/commons.systems/ledgerimport/internal/download"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/importer"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/ledger"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/settings"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/transform"
)

const (
	// ImporterType is the importer-type metadata value of Rogers accounts.
	ImporterType = "rogers"
	// ImporterName is the display name.
	ImporterName = "Rogers Bank Download"
	// LastFourKey is the account metadata key with the last four card digits.
	LastFourKey = "last-four"
	// IDKey is the transaction metadata key with the bank reference number.
	IDKey = "rogers-bank-id"
	// CustomName is the name of the custom directive configuring the download.
	CustomName = "rogers-download-importer"

	statementsToLoadKey     = "statementsToLoad"
	defaultStatementsToLoad = 3
)

// StatementsSetting is the number of statements to download when no custom
// directive sets it.
var StatementsSetting = settings.Setting{Identifier: statementsToLoadKey, DisplayName: "Number of Statements to load"}

// HelpText explains the ledger configuration.
const HelpText = `Downloads transactions and the current balance from the Rogers Bank website.

The account needs the metadata importer-type: "rogers" and last-four: "XXXX" with the last four digits of the credit card number.

By default the last 3 statements are downloaded. To change this add a custom directive:
YYYY-MM-DD custom "rogers-download-importer" "statementsToLoad" "N"`

// ActivityStatus of a card activity.
type ActivityStatus string

const (
	StatusApproved ActivityStatus = "APPROVED"
	StatusPending  ActivityStatus = "PENDING"
)

// Amount is a decimal string in a currency.
type Amount struct {
	Value    string
	Currency string
}

// Account is a credit card account of the user.
type Account struct {
	ID             string
	CardLast4      string
	CurrentBalance Amount
}

// Activity is one card activity of a statement.
type Activity struct {
	ReferenceNumber string
	Status          ActivityStatus
	Amount          Amount
	Merchant        string
	CardNumber      string
	Date            time.Time
	PostedDate      *time.Time
}

// User is the result of a login.
type User struct {
	Name     string
	Accounts []Account
}

// MultiFactor is used by the client during login. *download.Session
// implements it.
type MultiFactor interface {
	SelectChannel(ctx context.Context, channels []download.Channel) (download.Channel, error)
	OTP(ctx context.Context) (string, error)
	SaveDeviceID(ctx context.Context, id string) error
}

// Client is the Rogers Bank API.
type Client interface {
	Login(ctx context.Context, credentials download.Credentials, mfa MultiFactor) (User, error)
	// Activities returns the activities of a statement, 0 being the current one.
	Activities(ctx context.Context, account Account, statement int) ([]Activity, error)
}

// MappingErrorKind tells what could not be mapped.
type MappingErrorKind int

const (
	MissingAccount MappingErrorKind = iota
	MissingActivityData
)

// MappingError is returned when remote data cannot be expressed in the ledger.
type MappingError struct {
	Kind     MappingErrorKind
	LastFour string
	// Key is the missing activity field.
	Key string
}

func (e *MappingError) Error() string {
	switch e.Kind {
	case MissingAccount:
		return fmt.Sprintf("no ledger account with importer-type %q and %s %q", ImporterType, LastFourKey, e.LastFour)
	default:
		return fmt.Sprintf("activity of card %s is missing %s", e.LastFour, e.Key)
	}
}

// Provider implements download.Provider for Rogers Bank.
type Provider struct {
	client     Client
	env        importer.Env
	user       User
	statements int
}

// NewProvider creates the provider.
func NewProvider(client Client, env importer.Env) *Provider {
	return &Provider{client: client, env: env}
}

// NewImporter creates the Rogers Bank download importer.
func NewImporter(client Client, env importer.Env) *download.Importer[Account] {
	return download.NewImporter[Account](ImporterType, ImporterName, NewProvider(client, env), env)
}

// Authenticate logs in with saved or prompted credentials and remembers
// them on success.
func (p *Provider) Authenticate(ctx context.Context, session *download.Session) error {
	credentials, err := session.Credentials(ctx)
	if err != nil {
		return err
	}
	user, err := p.client.Login(ctx, credentials, session)
	if err != nil {
		return err
	}
	p.user = user
	return session.Remember(ctx, credentials)
}

// Accounts returns the accounts of the logged in user and settles the
// number of statements to load.
func (p *Provider) Accounts(ctx context.Context) ([]Account, error) {
	statements, err := p.statementsToLoad(ctx)
	if err != nil {
		return nil, err
	}
	p.statements = statements
	return p.user.Accounts, nil
}

// Positions returns the negated current balance, dated today.
func (p *Provider) Positions(_ context.Context, account Account) (download.Positions, error) {
	name, err := p.ledgerAccount(account.CardLast4)
	if err != nil {
		return download.Positions{}, err
	}
	amount, err := ledger.ParseAmount(account.CurrentBalance.Value, account.CurrentBalance.Currency)
	if err != nil {
		return download.Positions{}, fmt.Errorf("invalid balance of card %s: %w", account.CardLast4, err)
	}
	return download.Positions{
		Balances: []ledger.Balance{{Date: p.env.Today(), Account: name, Amount: amount.Neg()}},
	}, nil
}

// Transactions fetches the configured number of statements, most recent
// first. All statements are attempted; the first error is returned.
func (p *Provider) Transactions(ctx context.Context, account Account) (download.Batch, error) {
	name, err := p.ledgerAccount(account.CardLast4)
	if err != nil {
		return download.Batch{}, err
	}

	var activities []Activity
	var firstErr error
	for statement := 0; statement < p.statements; statement++ {
		result, err := p.client.Activities(ctx, account, statement)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to download statement %d of card %s: %w", statement, account.CardLast4, err)
			}
			continue
		}
		activities = append(activities, result...)
	}
	if firstErr != nil {
		return download.Batch{}, firstErr
	}

	var batch download.Batch
	for _, activity := range activities {
		if activity.Status == StatusPending {
			continue
		}
		draft, err := toDraft(activity, name, account.CardLast4)
		if err != nil {
			return download.Batch{}, err
		}
		batch.Drafts = append(batch.Drafts, draft)
	}
	return batch, nil
}

func toDraft(activity Activity, account ledger.AccountName, lastFour string) (importer.Draft, error) {
	if activity.ReferenceNumber == "" {
		return importer.Draft{}, &MappingError{Kind: MissingActivityData, LastFour: lastFour, Key: "referenceNumber"}
	}
	if activity.PostedDate == nil {
		return importer.Draft{}, &MappingError{Kind: MissingActivityData, LastFour: lastFour, Key: "postedDate"}
	}
	amount, err := ledger.ParseNumber(activity.Amount.Value)
	if err != nil {
		return importer.Draft{}, fmt.Errorf("invalid amount of activity %s: %w", activity.ReferenceNumber, err)
	}
	return importer.Draft{
		Date:        *activity.PostedDate,
		Description: activity.Merchant,
		Amount:      amount.Neg(),
		Account:     account,
		Commodity:   activity.Amount.Currency,
		MetaData:    map[string]string{IDKey: activity.ReferenceNumber},
	}, nil
}

func (p *Provider) ledgerAccount(cardLast4 string) (ledger.AccountName, error) {
	lastFour := transform.ExtractLast4(strings.ReplaceAll(cardLast4, " ", ""))
	if p.env.Ledger != nil {
		for _, a := range p.env.Ledger.AccountsWithMeta(importer.ImporterTypeKey, ImporterType) {
			if a.Meta(LastFourKey) == lastFour {
				return a.Name, nil
			}
		}
	}
	return "", &MappingError{Kind: MissingAccount, LastFour: lastFour}
}

// statementsToLoad reads the latest custom directive, else the setting,
// else defaults to 3.
func (p *Provider) statementsToLoad(ctx context.Context) (int, error) {
	if p.env.Ledger != nil {
		if value, ok := p.env.Ledger.CustomValue(CustomName, statementsToLoadKey); ok {
			if n, err := strconv.Atoi(value); err == nil && n > 0 {
				return n, nil
			}
		}
	}
	if p.env.Settings != nil {
		value, ok, err := p.env.Settings.ImporterSetting(ctx, ImporterType, StatementsSetting)
		if err != nil {
			return 0, err
		}
		if ok {
			if n, err := strconv.Atoi(value); err == nil && n > 0 {
				return n, nil
			}
		}
	}
	return defaultStatementsToLoad, nil
}
