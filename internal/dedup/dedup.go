// Package dedup finds existing ledger transactions an imported transaction may duplicate.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/rumor-ml/commons.systems/ledgerimport/internal/ledger"
)

// GenerateFingerprint creates a SHA256 hash of date, account and amount.
// Format: SHA256("{date}|{account}|{number} {commodity}")
// The number is formatted without trailing zeros so 10.5 and 10.50 match.
func GenerateFingerprint(date time.Time, account ledger.AccountName, amount ledger.Amount) string {
	input := fmt.Sprintf("%s|%s|%s %s", ledger.Day(date).Format("2006-01-02"), account, amount.Number.String(), amount.Commodity)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])
}

// Index maps posting fingerprints to the transactions containing them.
// Building it once per import replaces a scan of the whole ledger per
// imported transaction; matching criteria are unchanged (same date, account
// and amount on any posting).
type Index struct {
	transactions  []ledger.Transaction
	byFingerprint map[string][]int
}

// NewIndex indexes every posting of the given transactions.
func NewIndex(transactions []ledger.Transaction) *Index {
	idx := &Index{
		transactions:  transactions,
		byFingerprint: make(map[string][]int),
	}
	for i, t := range transactions {
		for _, p := range t.Postings {
			fp := GenerateFingerprint(t.MetaData.Date, p.Account, p.Amount)
			positions := idx.byFingerprint[fp]
			if len(positions) > 0 && positions[len(positions)-1] == i {
				continue
			}
			idx.byFingerprint[fp] = append(positions, i)
		}
	}
	return idx
}

// Find returns the first indexed transaction (in ledger order) with a posting
// on account for amount on date, or nil.
func (idx *Index) Find(date time.Time, account ledger.AccountName, amount ledger.Amount) *ledger.Transaction {
	positions := idx.byFingerprint[GenerateFingerprint(date, account, amount)]
	if len(positions) == 0 {
		return nil
	}
	t := idx.transactions[positions[0]]
	return &t
}
