package importer

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rumor-ml/commons.systems/ledgerimport/internal/ledger"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/settings"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/store"
)

func TestCounterPosting(t *testing.T) {
	amount := ledger.NewAmount(decimal.RequireFromString("-2.70"), "EUR")

	plain := counterPosting("Expenses:Food", amount, nil)
	assert.Equal(t, "2.70 EUR", plain.Amount.String())
	assert.Nil(t, plain.Price)

	price := ledger.NewAmount(decimal.RequireFromString("-3.00"), "USD")
	priced := counterPosting("Expenses:Food", amount, &price)
	assert.Equal(t, "3.00 USD", priced.Amount.String())
	require.NotNil(t, priced.Price)
	assert.Equal(t, "2.70 EUR", priced.Price.String())
	assert.True(t, ledger.Weight(priced).Equal(amount.Neg()))

	refund := ledger.NewAmount(decimal.RequireFromString("2.70"), "EUR")
	priced = counterPosting("Expenses:Food", refund, &price)
	assert.Equal(t, "-3.00 USD", priced.Amount.String())
}

func TestBuildTransaction_DescriptionMapping(t *testing.T) {
	ctx := context.Background()
	s := settings.New(store.NewMemory())
	require.NoError(t, s.ConfirmMapping(ctx, "AMZN MKTP", "Books", "Amazon", "Expenses:Books"))

	b := NewBase("n26", Env{Settings: s}, nil)
	tx, err := b.BuildTransaction(ctx, Draft{
		Date:        ledger.Date(2020, 1, 2),
		Description: "AMZN MKTP ",
		Payee:       "ignored",
		Amount:      decimal.RequireFromString("-12.00"),
		Account:     "Assets:N26",
		Commodity:   "EUR",
		MetaData:    map[string]string{"source": "test"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Books", tx.Transaction.MetaData.Narration)
	assert.Equal(t, "Amazon", tx.Transaction.MetaData.Payee)
	assert.Equal(t, ledger.AccountName("Expenses:Books"), tx.Transaction.Postings[1].Account)
	assert.Equal(t, "test", tx.Transaction.MetaData.MetaData["source"])
	assert.Nil(t, tx.PossibleDuplicate)
}

func TestImportedTransaction_SaveMappedWithoutSettings(t *testing.T) {
	b := NewBase("manulife", Env{}, nil)
	tx := b.Wrap(ledger.Transaction{}, "x")
	assert.False(t, tx.ShouldAllowUserToEdit)
	assert.Error(t, tx.SaveMapped(context.Background(), "n", "p", "Expenses:Food"))
}

func TestBase_Begin(t *testing.T) {
	b := NewBase("rogers", Env{}, nil)
	assert.Empty(t, b.RunID())
	ctx := b.Begin(context.Background())
	assert.NotEmpty(t, b.RunID())
	assert.NotNil(t, b.Logger(ctx))
}

func TestImportedTransaction_Edit(t *testing.T) {
	ctx := context.Background()
	b := NewBase("simplii", Env{}, nil)
	imported, err := b.BuildTransaction(ctx, Draft{
		Date:        ledger.Date(2020, 6, 5),
		Description: "SHOP 123",
		Amount:      decimal.RequireFromString("-10.00"),
		Account:     "Assets:Simplii",
		Commodity:   "CAD",
	})
	require.NoError(t, err)

	counter, ok := imported.CounterAccount()
	require.True(t, ok)
	assert.Equal(t, settings.FallbackAccount, counter)

	require.NoError(t, imported.Edit("Groceries", "Shop", "Expenses:Food"))
	assert.Equal(t, "Groceries", imported.Transaction.MetaData.Narration)
	assert.Equal(t, "Shop", imported.Transaction.MetaData.Payee)
	assert.Equal(t, ledger.AccountName("Assets:Simplii"), imported.Transaction.Postings[0].Account)
	assert.Equal(t, ledger.AccountName("Expenses:Food"), imported.Transaction.Postings[1].Account)

	assert.Error(t, imported.Edit("Groceries", "Shop", "food"))

	wrapped := b.Wrap(imported.Transaction, "SHOP 123")
	assert.Error(t, wrapped.Edit("Groceries", "Shop", "Expenses:Food"))
}
