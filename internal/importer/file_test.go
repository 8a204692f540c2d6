package importer_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rumor-ml/commons.systems/ledgerimport/internal/importer"
	mock_importer "github.com/rumor-ml/commons.systems/ledgerimport/internal/importer/mocks"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/ledger"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/parser"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/parsers/csv"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/rules"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/settings"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/store"
)

const simpliiHeader = "Date, Transaction Details, Funds Out, Funds In\n"

var simpliiKind = importer.FileKind{Type: "simplii", ImportPrefix: "Simplii"}

var fixedNow = time.Date(2020, 6, 10, 15, 0, 0, 0, time.UTC)

func readLedger(t *testing.T, content string) *ledger.Ledger {
	t.Helper()
	l, err := ledger.Read(strings.NewReader(content))
	require.NoError(t, err)
	return l
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newEnv(l *ledger.Ledger, delegate importer.Delegate) importer.Env {
	return importer.Env{
		Ledger:   l,
		Settings: settings.New(store.NewMemory()),
		Delegate: delegate,
		Now:      func() time.Time { return fixedNow },
	}
}

func newSimplii(path string, env importer.Env) *importer.FileImporter {
	return importer.NewFileImporter(simpliiKind, csv.NewSource("Simplii", csv.Simplii{}), path, nil, env)
}

const simpliiLedger = `2017-01-01 open Assets:Simplii:Chequing CAD
  importer-type: "simplii"
`

func drain(t *testing.T, imp importer.Importer) []*importer.ImportedTransaction {
	t.Helper()
	var result []*importer.ImportedTransaction
	for {
		next, err := imp.NextTransaction(context.Background())
		require.NoError(t, err)
		if next == nil {
			return result
		}
		result = append(result, next)
	}
}

func TestFileImporter_Load(t *testing.T) {
	path := writeFile(t, "statement.csv", simpliiHeader+
		"06/12/2017,COFFEE SHOP,4.50,\n"+
		"06/10/2017,PAYROLL DEPOSIT,,123.45\n"+
		"06/11/2017,INTEREST,,0.12\n")
	imp := newSimplii(path, newEnv(readLedger(t, simpliiLedger), nil))

	assert.Equal(t, "simplii", imp.Type())
	assert.Equal(t, "Simplii File statement.csv", imp.ImportName())
	require.NoError(t, imp.Load(context.Background()))
	assert.Empty(t, imp.BalancesToImport())
	assert.Empty(t, imp.PricesToImport())

	transactions := drain(t, imp)
	require.Len(t, transactions, 3)

	var dates []string
	for _, tx := range transactions {
		dates = append(dates, tx.Transaction.MetaData.Date.Format("2006-01-02"))
	}
	assert.Equal(t, []string{"2017-06-10", "2017-06-11", "2017-06-12"}, dates, "lines are sorted by date")

	payroll := transactions[0]
	assert.True(t, payroll.ShouldAllowUserToEdit)
	assert.Equal(t, ledger.AccountName("Assets:Simplii:Chequing"), payroll.AccountName)
	assert.Equal(t, "PAYROLL DEPOSIT", payroll.OriginalDescription)
	assert.Equal(t, "PAYROLL DEPOSIT", payroll.Transaction.MetaData.Narration)
	assert.Equal(t, ledger.FlagComplete, payroll.Transaction.MetaData.Flag)
	require.Len(t, payroll.Transaction.Postings, 2)
	assert.Equal(t, "123.45 CAD", payroll.Transaction.Postings[0].Amount.String())
	assert.Equal(t, settings.FallbackAccount, payroll.Transaction.Postings[1].Account)
	assert.Equal(t, "-123.45 CAD", payroll.Transaction.Postings[1].Amount.String())

	assert.Equal(t, "Simplii", transactions[1].Transaction.MetaData.Payee)
	assert.Equal(t, "-4.50 CAD", transactions[2].Transaction.Postings[0].Amount.String())
}

func TestFileImporter_PriceInAccountCommodity(t *testing.T) {
	n26Kind := importer.FileKind{Type: "n26", ImportPrefix: "N26"}
	content := "Datum,Empfänger,Kontonummer,Transaktionstyp,Verwendungszweck,Betrag (EUR),Betrag (Fremdwährung),Fremdwährung,Wechselkurs\n" +
		"2020-04-29,Online Shop,,MasterCard Zahlung,,-79.33,-79.33,EUR,1.0\n" +
		"2019-11-19,Company,,MasterCard Zahlung,,-20.24,-22.39,USD,0.904\n"

	tests := []struct {
		name      string
		commodity string
		shopPrice string
	}{
		{"euro account drops the euro price", "EUR", ""},
		{"other account keeps the euro price", "CAD", "79.33 EUR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := readLedger(t, "2017-01-01 open Assets:N26 "+tt.commodity+"\n  importer-type: \"n26\"\n")
			path := writeFile(t, "n26.csv", content)
			imp := importer.NewFileImporter(n26Kind, csv.NewSource("N26", csv.N26{}), path, nil, newEnv(l, nil))
			require.NoError(t, imp.Load(context.Background()))

			transactions := drain(t, imp)
			require.Len(t, transactions, 2)

			company := transactions[0].Transaction.Postings[1]
			assert.Equal(t, "22.39 USD", company.Amount.String())
			require.NotNil(t, company.Price)
			assert.Equal(t, "20.24 "+tt.commodity, company.Price.String())

			shop := transactions[1].Transaction.Postings[1]
			if tt.shopPrice == "" {
				assert.Nil(t, shop.Price)
				assert.Equal(t, "79.33 EUR", shop.Amount.String())
			} else {
				require.NotNil(t, shop.Price)
				assert.Equal(t, tt.shopPrice, shop.Amount.String())
				assert.Equal(t, "79.33 CAD", shop.Price.String())
			}
		})
	}
}

func TestFileImporter_Lifecycle(t *testing.T) {
	ctx := context.Background()
	path := writeFile(t, "statement.csv", simpliiHeader+"06/10/2017,PAYROLL DEPOSIT,,123.45\n")
	imp := newSimplii(path, newEnv(readLedger(t, simpliiLedger), nil))

	_, err := imp.NextTransaction(ctx)
	assert.ErrorIs(t, err, importer.ErrNotLoaded)

	require.NoError(t, imp.Load(ctx))
	assert.ErrorIs(t, imp.Load(ctx), importer.ErrAlreadyLoaded)

	assert.Len(t, drain(t, imp), 1)
	next, err := imp.NextTransaction(ctx)
	assert.NoError(t, err)
	assert.Nil(t, next, "an exhausted importer stays exhausted")
}

func TestFileImporter_LoadErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing file", func(t *testing.T) {
		imp := newSimplii(filepath.Join(t.TempDir(), "missing.csv"), newEnv(readLedger(t, simpliiLedger), nil))
		assert.Error(t, imp.Load(ctx))
		assert.ErrorIs(t, imp.Load(ctx), importer.ErrAlreadyLoaded)
		next, err := imp.NextTransaction(ctx)
		assert.NoError(t, err)
		assert.Nil(t, next)
	})

	t.Run("malformed row", func(t *testing.T) {
		path := writeFile(t, "statement.csv", simpliiHeader+"not a date,X,,1.00\n")
		imp := newSimplii(path, newEnv(readLedger(t, simpliiLedger), nil))
		err := imp.Load(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "row 2")
		assert.Empty(t, drain(t, imp))
	})

	t.Run("no account and no delegate", func(t *testing.T) {
		path := writeFile(t, "statement.csv", simpliiHeader)
		imp := newSimplii(path, newEnv(nil, nil))
		assert.Error(t, imp.Load(ctx))
	})
}

func TestFileImporter_MappingAppliesToLaterLines(t *testing.T) {
	ctx := context.Background()
	path := writeFile(t, "statement.csv", simpliiHeader+
		"06/10/2017,PAYROLL DEPOSIT,,123.45\n"+
		"06/24/2017,PAYROLL DEPOSIT,,123.45\n")
	imp := newSimplii(path, newEnv(readLedger(t, simpliiLedger), nil))
	require.NoError(t, imp.Load(ctx))

	first, err := imp.NextTransaction(ctx)
	require.NoError(t, err)
	assert.Equal(t, settings.FallbackAccount, first.Transaction.Postings[1].Account)
	require.NoError(t, first.SaveMapped(ctx, "Salary", "Company Inc.", "Income:Salary"))

	second, err := imp.NextTransaction(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Salary", second.Transaction.MetaData.Narration)
	assert.Equal(t, "Company Inc.", second.Transaction.MetaData.Payee)
	assert.Equal(t, ledger.AccountName("Income:Salary"), second.Transaction.Postings[1].Account)
	assert.Equal(t, "PAYROLL DEPOSIT", second.OriginalDescription)
}

func TestFileImporter_PossibleDuplicate(t *testing.T) {
	l := readLedger(t, simpliiLedger+`
2017-06-10 * "Coffee"
  Assets:Simplii:Chequing  -4.50 CAD
  Expenses:Coffee           4.50 CAD
`)
	path := writeFile(t, "statement.csv", simpliiHeader+
		"06/10/2017,COFFEE SHOP,4.50,\n"+
		"06/11/2017,COFFEE SHOP,4.50,\n")
	imp := newSimplii(path, newEnv(l, nil))
	require.NoError(t, imp.Load(context.Background()))

	transactions := drain(t, imp)
	require.Len(t, transactions, 2)
	require.NotNil(t, transactions[0].PossibleDuplicate)
	assert.Equal(t, "Coffee", transactions[0].PossibleDuplicate.MetaData.Narration)
	assert.Nil(t, transactions[1].PossibleDuplicate, "different date")
}

func TestFileImporter_Rules(t *testing.T) {
	engine, err := rules.NewEngine([]byte(`
rules:
  - name: "Coffee"
    pattern: "coffee"
    match_type: "contains"
    priority: 10
    account: "Expenses:Coffee"
    payee: "Cafe"
`))
	require.NoError(t, err)

	ctx := context.Background()
	path := writeFile(t, "statement.csv", simpliiHeader+
		"06/10/2017,COFFEE SHOP,4.50,\n"+
		"06/11/2017,COFFEE SHOP,4.50,\n")
	env := newEnv(readLedger(t, simpliiLedger), nil)
	env.Rules = engine
	imp := newSimplii(path, env)
	require.NoError(t, imp.Load(ctx))

	first, err := imp.NextTransaction(ctx)
	require.NoError(t, err)
	assert.Equal(t, ledger.AccountName("Expenses:Coffee"), first.Transaction.Postings[1].Account)
	assert.Equal(t, "Cafe", first.Transaction.MetaData.Payee)

	require.NoError(t, first.SaveMapped(ctx, "Coffee", "Cafe", "Expenses:Food"))
	second, err := imp.NextTransaction(ctx)
	require.NoError(t, err)
	assert.Equal(t, ledger.AccountName("Expenses:Food"), second.Transaction.Postings[1].Account, "mappings win over rules")
}

func TestFileImporter_AccountResolution(t *testing.T) {
	ctx := context.Background()
	twoAccounts := `2017-01-01 open Assets:Simplii:Chequing CAD
  importer-type: "simplii"
  number: "11111"

2017-01-01 open Assets:Simplii:Savings USD
  importer-type: "simplii"
  number: "22222"
`
	content := simpliiHeader + "06/10/2017,PAYROLL DEPOSIT,,123.45\n"

	t.Run("number in file name", func(t *testing.T) {
		path := writeFile(t, "statement-22222.csv", content)
		imp := newSimplii(path, newEnv(readLedger(t, twoAccounts), nil))
		require.NoError(t, imp.Load(ctx))
		transactions := drain(t, imp)
		require.Len(t, transactions, 1)
		assert.Equal(t, ledger.AccountName("Assets:Simplii:Savings"), transactions[0].AccountName)
		assert.Equal(t, "123.45 USD", transactions[0].Transaction.Postings[0].Amount.String())
	})

	t.Run("account setting", func(t *testing.T) {
		path := writeFile(t, "statement.csv", content)
		env := newEnv(nil, nil)
		require.NoError(t, env.Settings.SetImporterSetting(ctx, "simplii", importer.AccountSetting, "Assets:Bank"))
		require.NoError(t, env.Settings.SetCommodity(ctx, "EUR"))
		imp := newSimplii(path, env)
		require.NoError(t, imp.Load(ctx))
		transactions := drain(t, imp)
		require.Len(t, transactions, 1)
		assert.Equal(t, ledger.AccountName("Assets:Bank"), transactions[0].AccountName)
		assert.Equal(t, "123.45 EUR", transactions[0].Transaction.Postings[0].Amount.String())
	})

	t.Run("asks until valid", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		delegate := mock_importer.NewMockDelegate(ctrl)
		gomock.InOrder(
			delegate.EXPECT().RequestInput(gomock.Any(), importer.InputRequest{
				Name:        "Account",
				Kind:        importer.InputText,
				Suggestions: []string{"Assets:Simplii:Chequing", "Assets:Simplii:Savings"},
			}).Return("not an account", nil),
			delegate.EXPECT().RequestInput(gomock.Any(), gomock.Any()).Return("Assets:Simplii:Chequing", nil),
		)

		path := writeFile(t, "statement.csv", content)
		imp := newSimplii(path, newEnv(readLedger(t, twoAccounts), delegate))
		require.NoError(t, imp.Load(ctx))
		transactions := drain(t, imp)
		require.Len(t, transactions, 1)
		assert.Equal(t, ledger.AccountName("Assets:Simplii:Chequing"), transactions[0].AccountName)
		assert.Equal(t, "123.45 CAD", transactions[0].Transaction.Postings[0].Amount.String())
	})
}

// unavailableStore fails every call, like a settings backend that went away.
type unavailableStore struct{}

var errUnavailable = errors.New("settings backend unavailable")

func (unavailableStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errUnavailable
}

func (unavailableStore) Set(context.Context, string, string) error { return errUnavailable }

func (unavailableStore) List(context.Context, string) (map[string]string, error) {
	return nil, errUnavailable
}

func (unavailableStore) Close() error { return nil }

func TestFileImporter_MappingErrorsGoToDelegate(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	delegate := mock_importer.NewMockDelegate(ctrl)
	delegate.EXPECT().Error(gomock.Any()).Do(func(err error) {
		assert.ErrorIs(t, err, errUnavailable)
	}).Times(2)

	env := newEnv(readLedger(t, simpliiLedger), delegate)
	env.Settings = settings.New(unavailableStore{})
	path := writeFile(t, "statement.csv", simpliiHeader+
		"06/10/2017,PAYROLL DEPOSIT,,123.45\n"+
		"06/12/2017,COFFEE SHOP,4.50,\n")
	imp := newSimplii(path, env)
	require.NoError(t, imp.Load(ctx))

	next, err := imp.NextTransaction(ctx)
	assert.NoError(t, err)
	assert.Nil(t, next, "lines that cannot be mapped are skipped")
}

type balanceParser struct{}

func (balanceParser) Name() string { return "balances" }

func (balanceParser) CanParse(string, []byte) bool { return true }

func (balanceParser) Parse(context.Context, io.Reader, *parser.Metadata) (*parser.Statement, error) {
	return &parser.Statement{
		Balances: []parser.StatementBalance{{Date: ledger.Date(2020, 6, 2), Amount: decimal.RequireFromString("100.00")}},
	}, nil
}

func TestFileImporter_StatementBalances(t *testing.T) {
	path := writeFile(t, "statement.ofx", "")
	imp := importer.NewFileImporter(importer.FileKind{Type: "simplii", ImportPrefix: "Simplii"}, balanceParser{}, path, nil, newEnv(readLedger(t, simpliiLedger), nil))
	require.NoError(t, imp.Load(context.Background()))

	balances := imp.BalancesToImport()
	require.Len(t, balances, 1)
	assert.Equal(t, ledger.AccountName("Assets:Simplii:Chequing"), balances[0].Account)
	assert.Equal(t, "100.00 CAD", balances[0].Amount.String())
	assert.Equal(t, ledger.Date(2020, 6, 2), balances[0].Date)
	assert.Equal(t, imp.BalancesToImport(), balances)
}
