package ledger

import (
	"fmt"
	"time"
)

// Flag marks a transaction as complete or still needing attention.
type Flag string

const (
	FlagComplete   Flag = "*"
	FlagIncomplete Flag = "!"
)

// Posting is one account/amount line of a transaction.
//
// Cost is a per unit cost (written as {...}); Price is a total price
// (written as @@ ...). Both are optional.
type Posting struct {
	Account AccountName
	Amount  Amount
	Cost    *Amount
	Price   *Amount
}

// TransactionMetaData holds everything of a transaction except its postings.
type TransactionMetaData struct {
	Date      time.Time
	Payee     string
	Narration string
	Flag      Flag
	Tags      []string
	MetaData  map[string]string
}

// Transaction is a dated, double-entry transaction.
type Transaction struct {
	MetaData TransactionMetaData
	Postings []Posting
}

// HasPosting reports whether the transaction has a posting on account with
// exactly amount.
func (t Transaction) HasPosting(account AccountName, amount Amount) bool {
	for _, p := range t.Postings {
		if p.Account == account && p.Amount.Equal(amount) {
			return true
		}
	}
	return false
}

// Balance asserts the balance of an account at the start of a date.
type Balance struct {
	Date    time.Time
	Account AccountName
	Amount  Amount
}

// Equal compares date (by day), account and amount.
func (b Balance) Equal(o Balance) bool {
	return SameDay(b.Date, o.Date) && b.Account == o.Account && b.Amount.Equal(o.Amount)
}

// Price records the value of one unit of Commodity in Amount.Commodity.
type Price struct {
	Date      time.Time
	Commodity string
	Amount    Amount
}

// NewPrice validates that the commodity is not priced in itself.
func NewPrice(date time.Time, commodity string, amount Amount) (Price, error) {
	if commodity == "" {
		return Price{}, fmt.Errorf("price commodity cannot be empty")
	}
	if commodity == amount.Commodity {
		return Price{}, fmt.Errorf("commodity %s cannot be priced in itself", commodity)
	}
	return Price{Date: date, Commodity: commodity, Amount: amount}, nil
}

// Equal compares date (by day), commodity and amount.
func (p Price) Equal(o Price) bool {
	return SameDay(p.Date, o.Date) && p.Commodity == o.Commodity && p.Amount.Equal(o.Amount)
}

// Custom is a custom directive, used for per importer configuration.
type Custom struct {
	Date   time.Time
	Name   string
	Values []string
}

// Date returns the calendar date as UTC midnight.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Day drops the time of day from t, keeping the calendar date of t's location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return Date(y, m, d)
}

// SameDay reports whether a and b fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	return Day(a).Equal(Day(b))
}
