// Package ledger contains the read-only ledger model importers use for context:
// accounts and their metadata, commodities, existing transactions, balances,
// prices and custom directives.
package ledger

import (
	"fmt"
	"sort"
)

// Ledger is an existing ledger. It is populated once (usually by Read) and
// then only read by importers, so it is safe for concurrent reads.
type Ledger struct {
	accounts     []Account
	accountIndex map[AccountName]int
	commodities  []Commodity
	transactions []Transaction
	balances     []Balance
	prices       []Price
	custom       []Custom
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		accounts:     []Account{},
		accountIndex: make(map[AccountName]int),
		commodities:  []Commodity{},
		transactions: []Transaction{},
		balances:     []Balance{},
		prices:       []Price{},
		custom:       []Custom{},
	}
}

// AddAccount adds an account, rejecting duplicates.
func (l *Ledger) AddAccount(account Account) error {
	if _, err := NewAccountName(string(account.Name)); err != nil {
		return fmt.Errorf("invalid account: %w", err)
	}
	if _, exists := l.accountIndex[account.Name]; exists {
		return fmt.Errorf("account %s already exists", account.Name)
	}
	meta := make(map[string]string, len(account.MetaData))
	for k, v := range account.MetaData {
		meta[k] = v
	}
	account.MetaData = meta
	l.accountIndex[account.Name] = len(l.accounts)
	l.accounts = append(l.accounts, account)
	return nil
}

// Account looks up an account by name.
func (l *Ledger) Account(name AccountName) (Account, bool) {
	idx, ok := l.accountIndex[name]
	if !ok {
		return Account{}, false
	}
	return l.accounts[idx], true
}

// Accounts returns all accounts in the order they were added.
func (l *Ledger) Accounts() []Account {
	result := make([]Account, len(l.accounts))
	copy(result, l.accounts)
	return result
}

// AccountsWithMeta returns the accounts whose metadata key equals value.
func (l *Ledger) AccountsWithMeta(key, value string) []Account {
	var result []Account
	for _, a := range l.accounts {
		if a.Meta(key) == value {
			result = append(result, a)
		}
	}
	return result
}

// AddCommodity adds a commodity, rejecting duplicate symbols.
func (l *Ledger) AddCommodity(commodity Commodity) error {
	if commodity.Symbol == "" {
		return fmt.Errorf("commodity symbol cannot be empty")
	}
	for _, c := range l.commodities {
		if c.Symbol == commodity.Symbol {
			return fmt.Errorf("commodity %s already exists", commodity.Symbol)
		}
	}
	l.commodities = append(l.commodities, commodity)
	return nil
}

// Commodities returns all commodities.
func (l *Ledger) Commodities() []Commodity {
	result := make([]Commodity, len(l.commodities))
	copy(result, l.commodities)
	return result
}

// CommoditySymbolsByName maps the "name" metadata of commodities to their symbols.
func (l *Ledger) CommoditySymbolsByName() map[string]string {
	result := make(map[string]string)
	for _, c := range l.commodities {
		if name, ok := c.MetaData["name"]; ok {
			result[name] = c.Symbol
		}
	}
	return result
}

// AddTransaction appends a transaction. Transactions need at least one posting.
func (l *Ledger) AddTransaction(transaction Transaction) error {
	if len(transaction.Postings) == 0 {
		return fmt.Errorf("transaction on %s has no postings", transaction.MetaData.Date.Format("2006-01-02"))
	}
	l.transactions = append(l.transactions, transaction)
	return nil
}

// Transactions returns all transactions.
func (l *Ledger) Transactions() []Transaction {
	result := make([]Transaction, len(l.transactions))
	copy(result, l.transactions)
	return result
}

// AddBalance appends a balance assertion.
func (l *Ledger) AddBalance(balance Balance) {
	l.balances = append(l.balances, balance)
}

// Balances returns all balance assertions.
func (l *Ledger) Balances() []Balance {
	result := make([]Balance, len(l.balances))
	copy(result, l.balances)
	return result
}

// HasBalance reports whether an equal balance assertion exists.
func (l *Ledger) HasBalance(balance Balance) bool {
	for _, b := range l.balances {
		if b.Equal(balance) {
			return true
		}
	}
	return false
}

// AddPrice appends a price, rejecting an identical price on the same day.
func (l *Ledger) AddPrice(price Price) error {
	if l.HasPrice(price) {
		return fmt.Errorf("price for %s on %s already exists", price.Commodity, price.Date.Format("2006-01-02"))
	}
	l.prices = append(l.prices, price)
	return nil
}

// Prices returns all prices.
func (l *Ledger) Prices() []Price {
	result := make([]Price, len(l.prices))
	copy(result, l.prices)
	return result
}

// HasPrice reports whether an equal price exists.
func (l *Ledger) HasPrice(price Price) bool {
	for _, p := range l.prices {
		if p.Equal(price) {
			return true
		}
	}
	return false
}

// AddCustom appends a custom directive.
func (l *Ledger) AddCustom(custom Custom) {
	l.custom = append(l.custom, custom)
}

// Custom returns the custom directives with the given name, sorted by date.
func (l *Ledger) Custom(name string) []Custom {
	var result []Custom
	for _, c := range l.custom {
		if c.Name == name {
			result = append(result, c)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})
	return result
}

// CustomValue returns the value of the latest (by date) custom directive
// named name whose values are [key, value]. Older directives are superseded.
func (l *Ledger) CustomValue(name, key string) (string, bool) {
	directives := l.Custom(name)
	for i := len(directives) - 1; i >= 0; i-- {
		values := directives[i].Values
		if len(values) >= 2 && values[0] == key {
			return values[1], true
		}
	}
	return "", false
}
