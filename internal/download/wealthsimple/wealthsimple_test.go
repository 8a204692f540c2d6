package wealthsimple_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rumor-ml/commons.systems/ledgerimport/internal/download/wealthsimple"
	mock_wealthsimple "github.com/rumor-ml/commons.systems/ledgerimport/internal/download/wealthsimple/mocks"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/importer"
	mock_importer "github.com/rumor-ml/commons.systems/ledgerimport/internal/importer/mocks"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/ledger"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/settings"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/store"
)

const wealthsimpleLedger = `2020-01-01 open Assets:WS:TFSA CAD
  importer-type: "wealthsimple"
  number: "TFSA123"
`

var (
	now       = time.Date(2021, 9, 10, 9, 30, 0, 0, time.UTC)
	today     = ledger.Date(2021, 9, 10)
	processed = time.Date(2021, 9, 1, 14, 0, 0, 0, time.UTC)
	tfsa      = wealthsimple.Account{ID: "a1", Number: "TFSA123", Currency: "CAD"}
)

type fixture struct {
	ctx      context.Context
	client   *mock_wealthsimple.MockClient
	delegate *mock_importer.MockDelegate
	env      importer.Env
}

func newFixture(t *testing.T, ledgerText string) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	l, err := ledger.Read(strings.NewReader(ledgerText))
	require.NoError(t, err)
	delegate := mock_importer.NewMockDelegate(ctrl)
	return &fixture{
		ctx:      context.Background(),
		client:   mock_wealthsimple.NewMockClient(ctrl),
		delegate: delegate,
		env: importer.Env{
			Ledger:   l,
			Settings: settings.New(store.NewMemory()),
			Delegate: delegate,
			Now:      func() time.Time { return now },
		},
	}
}

func (f *fixture) expectAuthenticate() {
	f.client.EXPECT().Authenticate(gomock.Any(), gomock.Any()).Return(nil)
}

func TestImporter_Names(t *testing.T) {
	f := newFixture(t, "")
	imp := wealthsimple.NewImporter(f.client, f.env)
	assert.Equal(t, "wealthsimple", imp.Type())
	assert.Equal(t, "Wealthsimple Download", imp.ImportName())
}

func TestImporter_Authenticate(t *testing.T) {
	f := newFixture(t, "")
	gomock.InOrder(
		f.delegate.EXPECT().RequestInput(gomock.Any(), importer.InputRequest{Name: "Username", Kind: importer.InputText}).Return("me", nil),
		f.delegate.EXPECT().RequestInput(gomock.Any(), importer.InputRequest{Name: "Password", Kind: importer.InputSecret}).Return("secret", nil),
		f.delegate.EXPECT().RequestInput(gomock.Any(), importer.InputRequest{Name: "One Time Password", Kind: importer.InputOTP}).Return("123456", nil),
	)
	f.client.EXPECT().Authenticate(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, auth wealthsimple.Auth) error {
		credentials, err := auth.Credentials(ctx)
		require.NoError(t, err)
		assert.Equal(t, "me", credentials.Username)
		assert.Equal(t, "secret", credentials.Password)
		otp, err := auth.OTP(ctx)
		require.NoError(t, err)
		assert.Equal(t, "123456", otp)
		return auth.Save(ctx, "refreshToken", "token-1")
	})
	f.client.EXPECT().Accounts(gomock.Any()).Return(nil, nil)

	imp := wealthsimple.NewImporter(f.client, f.env)
	require.NoError(t, imp.Load(f.ctx))

	token, ok, err := f.env.Settings.Credentials().Read(f.ctx, "wealthsimple-refreshToken")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "token-1", token)
}

func TestImporter_PositionsAndTransactions(t *testing.T) {
	f := newFixture(t, wealthsimpleLedger)
	f.expectAuthenticate()
	f.client.EXPECT().Accounts(gomock.Any()).Return([]wealthsimple.Account{tfsa}, nil)
	f.client.EXPECT().Positions(gomock.Any(), tfsa).Return([]wealthsimple.Position{
		{Symbol: "XEQT", Quantity: "10", Price: "25.50", Currency: "CAD"},
		{Symbol: "CAD", Quantity: "100.00", Price: "1", Currency: "CAD"},
	}, nil)
	f.client.EXPECT().Transactions(gomock.Any(), tfsa, today.AddDate(0, 0, -62)).Return([]wealthsimple.Transaction{
		{
			ID: "t1", Type: wealthsimple.TypeBuy, Description: "Buy XEQT", Symbol: "XEQT", Quantity: "2",
			MarketPrice: "25.00", MarketCurrency: "CAD", NetCash: "-50.10", Currency: "CAD", ProcessDate: processed,
		},
		{ID: "t2", Type: wealthsimple.TypeDividend, Description: "Dividend", NetCash: "3.21", Currency: "CAD", ProcessDate: processed},
	}, nil)

	imp := wealthsimple.NewImporter(f.client, f.env)
	require.NoError(t, imp.Load(f.ctx))

	var balances []string
	for _, b := range imp.BalancesToImport() {
		assert.Equal(t, today, b.Date)
		balances = append(balances, b.Account.String()+" "+b.Amount.String())
	}
	assert.Equal(t, []string{"Assets:WS:TFSA:XEQT 10 XEQT", "Assets:WS:TFSA 100.00 CAD"}, balances)

	prices := imp.PricesToImport()
	require.Len(t, prices, 2)
	assert.Equal(t, "25.50 CAD", prices[0].Amount.String())
	assert.Equal(t, today, prices[0].Date)
	assert.Equal(t, "25.00 CAD", prices[1].Amount.String())
	assert.Equal(t, ledger.Date(2021, 9, 1), prices[1].Date)

	buy, err := imp.NextTransaction(f.ctx)
	require.NoError(t, err)
	require.NotNil(t, buy)
	assert.False(t, buy.ShouldAllowUserToEdit)
	assert.Equal(t, "t1", buy.Transaction.MetaData.MetaData["wealthsimple-id"])
	assert.Equal(t, ledger.Date(2021, 9, 1), buy.Transaction.MetaData.Date)
	require.Len(t, buy.Transaction.Postings, 2)
	holding := buy.Transaction.Postings[0]
	assert.Equal(t, ledger.AccountName("Assets:WS:TFSA:XEQT"), holding.Account)
	assert.Equal(t, "2 XEQT", holding.Amount.String())
	require.NotNil(t, holding.Price)
	assert.Equal(t, "50.10 CAD", holding.Price.String())
	assert.Equal(t, "-50.10 CAD", buy.Transaction.Postings[1].Amount.String())

	dividend, err := imp.NextTransaction(f.ctx)
	require.NoError(t, err)
	require.NotNil(t, dividend)
	assert.Equal(t, "Dividend", dividend.Transaction.MetaData.Narration)
	assert.Equal(t, settings.FallbackAccount, dividend.Transaction.Postings[1].Account)
	assert.Equal(t, "-3.21 CAD", dividend.Transaction.Postings[1].Amount.String())

	last, err := imp.NextTransaction(f.ctx)
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestImporter_LookbackSetting(t *testing.T) {
	f := newFixture(t, wealthsimpleLedger)
	require.NoError(t, f.env.Settings.SetImporterSetting(f.ctx, "wealthsimple", wealthsimple.LookbackSetting, "30"))
	f.expectAuthenticate()
	f.client.EXPECT().Accounts(gomock.Any()).Return([]wealthsimple.Account{tfsa}, nil)
	f.client.EXPECT().Positions(gomock.Any(), tfsa).Return(nil, nil)
	f.client.EXPECT().Transactions(gomock.Any(), tfsa, today.AddDate(0, 0, -30)).Return(nil, nil)

	imp := wealthsimple.NewImporter(f.client, f.env)
	require.NoError(t, imp.Load(f.ctx))
}

func TestImporter_UnknownAccount(t *testing.T) {
	f := newFixture(t, wealthsimpleLedger)
	other := wealthsimple.Account{ID: "a2", Number: "RRSP9", Currency: "CAD"}
	f.expectAuthenticate()
	f.client.EXPECT().Accounts(gomock.Any()).Return([]wealthsimple.Account{tfsa, other}, nil)
	f.client.EXPECT().Positions(gomock.Any(), tfsa).Return([]wealthsimple.Position{{Symbol: "CAD", Quantity: "5.00", Price: "1", Currency: "CAD"}}, nil)

	var reported error
	f.delegate.EXPECT().Error(gomock.Any()).Do(func(err error) { reported = err }).Times(1)

	imp := wealthsimple.NewImporter(f.client, f.env)
	require.NoError(t, imp.Load(f.ctx))

	var mappingErr *wealthsimple.MappingError
	require.ErrorAs(t, reported, &mappingErr)
	assert.Equal(t, "RRSP9", mappingErr.AccountNumber)
	assert.Len(t, imp.BalancesToImport(), 1)

	next, err := imp.NextTransaction(f.ctx)
	require.NoError(t, err)
	assert.Nil(t, next)
}
