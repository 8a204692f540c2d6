package importer

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rumor-ml/commons.systems/ledgerimport/internal/ledger"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/parsers/manulife"
)

// ManuLifeType is the importer type of the ManuLife text importer.
const ManuLifeType = "manulife"

// Account metadata keys with the share of each contribution source.
const (
	employeeBasicFractionKey     = "employee-basic-fraction"
	employerBasicFractionKey     = "employer-basic-fraction"
	employerMatchFractionKey     = "employer-match-fraction"
	employeeVoluntaryFractionKey = "employee-voluntary-fraction"
)

const (
	defaultContribution = 1.0
	unitFormat          = "%.5f"
)

// contribution is one source of units with its sub account.
type contribution struct {
	account  string
	fraction float64
}

// ManuLifeImporter imports contributions and balances copied from the
// ManuLife website. It yields at most one transaction.
type ManuLifeImporter struct {
	*Base
	transactionText string
	balanceText     string
	pipeline        *Pipeline[ImportedTransaction]
}

// NewManuLifeImporter creates the text importer for the two copied blocks.
// Either may be empty.
func NewManuLifeImporter(env Env, transactionText, balanceText string) *ManuLifeImporter {
	return &ManuLifeImporter{
		Base:            NewBase(ManuLifeType, env, nil),
		transactionText: transactionText,
		balanceText:     balanceText,
		pipeline:        NewPipeline(Ready(), env.Delegate),
	}
}

// ImportName returns "ManuLife Text"
func (m *ManuLifeImporter) ImportName() string {
	return "ManuLife Text"
}

// Load parses both texts. Balances and prices already in the ledger are dropped.
func (m *ManuLifeImporter) Load(ctx context.Context) error {
	if err := m.pipeline.Start(); err != nil {
		return err
	}
	ctx = m.Begin(ctx)

	account, err := m.ConfiguredAccount(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve account: %w", err)
	}
	commodity, err := m.Commodity(ctx, account)
	if err != nil {
		return fmt.Errorf("failed to resolve commodity: %w", err)
	}

	var symbols map[string]string
	if m.env.Ledger != nil {
		symbols = m.env.Ledger.CommoditySymbolsByName()
	}

	var transactions []ImportedTransaction
	var prices []ledger.Price
	if m.transactionText != "" {
		buys, date, ok := manulife.ParsePurchase(m.transactionText, symbols)
		if ok && len(buys) > 0 {
			transaction, buyPrices, err := m.convertPurchase(account, commodity, buys, date)
			if err != nil {
				return err
			}
			transactions = append(transactions, m.Wrap(transaction, ""))
			prices = append(prices, buyPrices...)
		}
	}

	var balances []ledger.Balance
	if m.balanceText != "" {
		parsed := manulife.ParseBalances(m.balanceText, symbols)
		balanceList, balancePrices := m.convertBalances(account, commodity, parsed)
		balances = balanceList
		prices = append(prices, balancePrices...)
	}

	balances, prices = m.filterKnown(balances, prices)
	m.pipeline.Fill(transactions, balances, prices)
	m.Logger(ctx).Info().
		Str("account", account.String()).
		Int("transactions", len(transactions)).
		Int("balances", len(balances)).
		Int("prices", len(prices)).
		Msg("text loaded")
	return nil
}

// NextTransaction returns the contribution transaction once.
func (m *ManuLifeImporter) NextTransaction(ctx context.Context) (*ImportedTransaction, error) {
	return m.pipeline.Next(ctx)
}

// BalancesToImport returns the unit balances per contribution source
func (m *ManuLifeImporter) BalancesToImport() []ledger.Balance {
	return m.pipeline.Balances()
}

// PricesToImport returns unit prices of purchases and balances
func (m *ManuLifeImporter) PricesToImport() []ledger.Price {
	return m.pipeline.Prices()
}

func (m *ManuLifeImporter) contributions(account ledger.AccountName) []contribution {
	var meta map[string]string
	if m.env.Ledger != nil {
		if a, ok := m.env.Ledger.Account(account); ok {
			meta = a.MetaData
		}
	}
	fraction := func(key string) float64 {
		value, err := strconv.ParseFloat(meta[key], 64)
		if err != nil {
			return defaultContribution
		}
		return value
	}
	return []contribution{
		{account: "Employee:Basic", fraction: fraction(employeeBasicFractionKey)},
		{account: "Employer:Basic", fraction: fraction(employerBasicFractionKey)},
		{account: "Employer:Match", fraction: fraction(employerMatchFractionKey)},
		{account: "Employee:Voluntary", fraction: fraction(employeeVoluntaryFractionKey)},
	}
}

// convertPurchase splits the units of every buy across the contribution
// sources by their fractions. The configured account pays the total.
func (m *ManuLifeImporter) convertPurchase(account ledger.AccountName, commodity string, buys []manulife.Buy, date time.Time) (ledger.Transaction, []ledger.Price, error) {
	parent := account.Parent()
	sources := m.contributions(account)
	var sum float64
	for _, c := range sources {
		sum += c.fraction
	}
	if sum == 0 {
		return ledger.Transaction{}, nil, fmt.Errorf("contribution fractions of %s sum to zero", account)
	}

	total := decimal.Zero
	var postings []ledger.Posting
	var prices []ledger.Price
	for _, buy := range buys {
		units, err := strconv.ParseFloat(buy.Units, 64)
		if err != nil {
			return ledger.Transaction{}, nil, fmt.Errorf("invalid units %q: %w", buy.Units, err)
		}
		buyTotal, err := ledger.ParseNumber(buy.Total)
		if err != nil {
			return ledger.Transaction{}, nil, fmt.Errorf("invalid total %q: %w", buy.Total, err)
		}
		total = total.Add(buyTotal)

		cost, err := ledger.ParseAmount(buy.Price, commodity)
		if err != nil {
			return ledger.Transaction{}, nil, fmt.Errorf("invalid unit price %q: %w", buy.Price, err)
		}
		unitFraction := units / sum
		for _, c := range sources {
			if c.fraction == 0 {
				continue
			}
			name, err := ledger.NewAccountName(fmt.Sprintf("%s:%s:%s", parent, c.account, buy.Commodity))
			if err != nil {
				m.env.reportf("skipping %s units of %s: %v", c.account, buy.Commodity, err)
				continue
			}
			amount, err := ledger.ParseAmount(fmt.Sprintf(unitFormat, unitFraction*c.fraction), buy.Commodity)
			if err != nil {
				return ledger.Transaction{}, nil, err
			}
			unitCost := cost
			postings = append(postings, ledger.Posting{Account: name, Amount: amount, Cost: &unitCost})
		}

		if price, err := ledger.NewPrice(date, buy.Commodity, cost); err == nil {
			prices = append(prices, price)
		}
	}

	payment := ledger.Posting{
		Account: account,
		Amount:  ledger.Amount{Number: total.Neg(), Commodity: commodity, DecimalDigits: 2},
	}
	postings = append([]ledger.Posting{payment}, postings...)

	return ledger.Transaction{
		MetaData: ledger.TransactionMetaData{
			Date: ledger.Day(date),
			Flag: ledger.FlagComplete,
		},
		Postings: postings,
	}, prices, nil
}

// convertBalances creates today's unit balances per contribution source and
// a price per fund from its unit value.
func (m *ManuLifeImporter) convertBalances(account ledger.AccountName, commodity string, parsed []manulife.Balance) ([]ledger.Balance, []ledger.Price) {
	parent := account.Parent()
	today := m.env.Today()

	var balances []ledger.Balance
	var prices []ledger.Price
	for _, p := range parsed {
		units := []struct {
			account string
			value   string
		}{
			{"Employee:Basic", p.EmployeeBasic},
			{"Employer:Basic", p.EmployerBasic},
			{"Employer:Match", p.EmployerMatch},
			{"Employee:Voluntary", p.EmployeeVoluntary},
		}
		for _, u := range units {
			if u.value == "" {
				continue
			}
			name, err := ledger.NewAccountName(fmt.Sprintf("%s:%s:%s", parent, u.account, p.Commodity))
			if err != nil {
				m.env.reportf("skipping %s balance of %s: %v", u.account, p.Commodity, err)
				continue
			}
			amount, err := ledger.ParseAmount(u.value, p.Commodity)
			if err != nil {
				m.env.reportf("skipping %s balance of %s: %v", u.account, p.Commodity, err)
				continue
			}
			balances = append(balances, ledger.Balance{Date: today, Account: name, Amount: amount})
		}

		unitValue, err := ledger.ParseAmount(p.UnitValue, commodity)
		if err != nil {
			continue
		}
		if price, err := ledger.NewPrice(today, p.Commodity, unitValue); err == nil {
			prices = append(prices, price)
		}
	}
	return balances, prices
}

func (m *ManuLifeImporter) filterKnown(balances []ledger.Balance, prices []ledger.Price) ([]ledger.Balance, []ledger.Price) {
	if m.env.Ledger == nil {
		return balances, prices
	}
	var newBalances []ledger.Balance
	for _, b := range balances {
		if !m.env.Ledger.HasBalance(b) {
			newBalances = append(newBalances, b)
		}
	}
	var newPrices []ledger.Price
	for _, p := range prices {
		if !m.env.Ledger.HasPrice(p) {
			newPrices = append(newPrices, p)
		}
	}
	return newBalances, newPrices
}

// reportf sends a non fatal problem to the error sink, if any.
func (e Env) reportf(format string, args ...any) {
	if e.Delegate == nil {
		return
	}
	e.Delegate.Error(fmt.Errorf(format, args...))
}

