package ledger

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ReadFile reads a ledger from a beancount file. See Read for the supported subset.
func ReadFile(path string) (*Ledger, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger %s: %w", path, err)
	}
	defer f.Close()

	l, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger %s: %w", path, err)
	}
	return l, nil
}

// Read parses the subset of the beancount syntax importers need: open and
// commodity directives with metadata, price, balance and custom directives, and
// transactions (with metadata, tags, costs and prices). Other directives and
// options are skipped.
func Read(r io.Reader) (*Ledger, error) {
	l := New()
	rd := &reader{ledger: l}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		if err := rd.line(scanner.Text()); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNumber, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan ledger: %w", err)
	}
	if err := rd.flush(); err != nil {
		return nil, fmt.Errorf("line %d: %w", lineNumber, err)
	}
	return l, nil
}

type blockKind int

const (
	blockNone blockKind = iota
	blockAccount
	blockCommodity
	blockTransaction
	blockSkip
)

type reader struct {
	ledger      *Ledger
	kind        blockKind
	account     Account
	commodity   Commodity
	transaction Transaction
	elided      int // index of the posting without amount, or -1
}

func (rd *reader) line(raw string) error {
	line := stripComment(raw)
	if strings.TrimSpace(line) == "" {
		return nil
	}
	if line[0] == ' ' || line[0] == '\t' {
		return rd.indented(strings.TrimSpace(line))
	}
	if err := rd.flush(); err != nil {
		return err
	}
	return rd.directive(line)
}

func (rd *reader) directive(line string) error {
	tokens, err := tokenize(line)
	if err != nil {
		return err
	}
	if len(tokens) < 2 {
		rd.kind = blockSkip
		return nil
	}
	date, err := time.Parse("2006-01-02", tokens[0].text)
	if err != nil {
		// option, include, plugin and friends
		rd.kind = blockSkip
		return nil
	}

	switch keyword := tokens[1].text; {
	case keyword == "open":
		if len(tokens) < 3 {
			return fmt.Errorf("open directive without account")
		}
		name, err := NewAccountName(tokens[2].text)
		if err != nil {
			return err
		}
		rd.kind = blockAccount
		rd.account = Account{Name: name, MetaData: map[string]string{}}
		if len(tokens) > 3 {
			rd.account.Commodity = strings.Split(tokens[3].text, ",")[0]
		}
	case keyword == "commodity":
		if len(tokens) < 3 {
			return fmt.Errorf("commodity directive without symbol")
		}
		rd.kind = blockCommodity
		rd.commodity = Commodity{Symbol: tokens[2].text, MetaData: map[string]string{}}
	case keyword == "price":
		if len(tokens) < 5 {
			return fmt.Errorf("price directive needs commodity, number and currency")
		}
		amount, err := ParseAmount(tokens[3].text, tokens[4].text)
		if err != nil {
			return err
		}
		price, err := NewPrice(date, tokens[2].text, amount)
		if err != nil {
			return err
		}
		if err := rd.ledger.AddPrice(price); err != nil {
			return err
		}
		rd.kind = blockSkip
	case keyword == "balance":
		if len(tokens) < 5 {
			return fmt.Errorf("balance directive needs account, number and currency")
		}
		name, err := NewAccountName(tokens[2].text)
		if err != nil {
			return err
		}
		amount, err := ParseAmount(tokens[3].text, tokens[4].text)
		if err != nil {
			return err
		}
		rd.ledger.AddBalance(Balance{Date: date, Account: name, Amount: amount})
		rd.kind = blockSkip
	case keyword == "custom":
		if len(tokens) < 3 {
			return fmt.Errorf("custom directive without name")
		}
		values := make([]string, 0, len(tokens)-3)
		for _, t := range tokens[3:] {
			values = append(values, t.text)
		}
		rd.ledger.AddCustom(Custom{Date: date, Name: tokens[2].text, Values: values})
		rd.kind = blockSkip
	case keyword == "*" || keyword == "!" || keyword == "txn":
		flag := FlagComplete
		if keyword == "!" {
			flag = FlagIncomplete
		}
		rd.kind = blockTransaction
		rd.elided = -1
		rd.transaction = Transaction{MetaData: TransactionMetaData{Date: date, Flag: flag, MetaData: map[string]string{}}}
		var strs []string
		for _, t := range tokens[2:] {
			switch {
			case t.quoted:
				strs = append(strs, t.text)
			case strings.HasPrefix(t.text, "#"):
				rd.transaction.MetaData.Tags = append(rd.transaction.MetaData.Tags, t.text[1:])
			}
		}
		switch len(strs) {
		case 0:
		case 1:
			rd.transaction.MetaData.Narration = strs[0]
		default:
			rd.transaction.MetaData.Payee = strs[0]
			rd.transaction.MetaData.Narration = strs[1]
		}
	default:
		rd.kind = blockSkip
	}
	return nil
}

func (rd *reader) indented(line string) error {
	if key, value, ok := metadataLine(line); ok {
		switch rd.kind {
		case blockAccount:
			rd.account.MetaData[key] = value
		case blockCommodity:
			rd.commodity.MetaData[key] = value
		case blockTransaction:
			// metadata after the first posting belongs to that posting and is dropped
			if len(rd.transaction.Postings) == 0 {
				rd.transaction.MetaData.MetaData[key] = value
			}
		}
		return nil
	}
	if rd.kind != blockTransaction {
		return nil
	}
	posting, hasAmount, err := parsePosting(line)
	if err != nil {
		return err
	}
	if !hasAmount {
		if rd.elided >= 0 {
			return fmt.Errorf("transaction has more than one posting without amount")
		}
		rd.elided = len(rd.transaction.Postings)
	}
	rd.transaction.Postings = append(rd.transaction.Postings, posting)
	return nil
}

func (rd *reader) flush() error {
	kind := rd.kind
	rd.kind = blockNone
	switch kind {
	case blockAccount:
		return rd.ledger.AddAccount(rd.account)
	case blockCommodity:
		return rd.ledger.AddCommodity(rd.commodity)
	case blockTransaction:
		if rd.elided >= 0 {
			if err := fillElided(&rd.transaction, rd.elided); err != nil {
				return err
			}
		}
		return rd.ledger.AddTransaction(rd.transaction)
	}
	return nil
}

// fillElided sets the missing posting amount so the transaction balances.
// Only single commodity residuals can be inferred.
func fillElided(t *Transaction, idx int) error {
	residual := make(map[string]decimal.Decimal)
	digits := make(map[string]int)
	for i, p := range t.Postings {
		if i == idx {
			continue
		}
		weight := Weight(p)
		residual[weight.Commodity] = residual[weight.Commodity].Add(weight.Number)
		if weight.DecimalDigits > digits[weight.Commodity] {
			digits[weight.Commodity] = weight.DecimalDigits
		}
	}
	var nonZero []string
	for commodity, sum := range residual {
		if !sum.IsZero() {
			nonZero = append(nonZero, commodity)
		}
	}
	if len(nonZero) > 1 {
		return fmt.Errorf("cannot infer posting amount for %s: residual in %d commodities", t.Postings[idx].Account, len(nonZero))
	}
	if len(nonZero) == 0 {
		return fmt.Errorf("cannot infer posting amount for %s: transaction already balances", t.Postings[idx].Account)
	}
	commodity := nonZero[0]
	t.Postings[idx].Amount = Amount{Number: residual[commodity].Neg(), Commodity: commodity, DecimalDigits: digits[commodity]}
	return nil
}

// Weight returns the amount a posting contributes to the transaction balance:
// the total price if set, else units times cost, else the amount itself.
func Weight(p Posting) Amount {
	switch {
	case p.Price != nil:
		number := p.Price.Number.Abs()
		if p.Amount.Number.IsNegative() {
			number = number.Neg()
		}
		return Amount{Number: number, Commodity: p.Price.Commodity, DecimalDigits: p.Price.DecimalDigits}
	case p.Cost != nil:
		return Amount{Number: p.Amount.Number.Mul(p.Cost.Number), Commodity: p.Cost.Commodity, DecimalDigits: p.Cost.DecimalDigits}
	default:
		return p.Amount
	}
}

func parsePosting(line string) (Posting, bool, error) {
	tokens, err := tokenize(line)
	if err != nil {
		return Posting{}, false, err
	}
	// optional posting flag
	if len(tokens) > 0 && (tokens[0].text == "*" || tokens[0].text == "!") {
		tokens = tokens[1:]
	}
	if len(tokens) == 0 {
		return Posting{}, false, fmt.Errorf("empty posting")
	}
	name, err := NewAccountName(tokens[0].text)
	if err != nil {
		return Posting{}, false, err
	}
	posting := Posting{Account: name}
	if len(tokens) == 1 {
		return posting, false, nil
	}
	if len(tokens) < 3 {
		return Posting{}, false, fmt.Errorf("posting for %s needs number and commodity", name)
	}
	amount, err := ParseAmount(tokens[1].text, tokens[2].text)
	if err != nil {
		return Posting{}, false, err
	}
	posting.Amount = amount

	rest := tokens[3:]
	for len(rest) > 0 {
		switch {
		case strings.HasPrefix(rest[0].text, "{"):
			costTokens := []string{}
			for len(rest) > 0 {
				tok := strings.Trim(rest[0].text, "{}")
				if tok != "" {
					costTokens = append(costTokens, strings.TrimSuffix(tok, ","))
				}
				done := strings.HasSuffix(rest[0].text, "}")
				rest = rest[1:]
				if done {
					break
				}
			}
			if len(costTokens) >= 2 {
				cost, err := ParseAmount(costTokens[0], costTokens[1])
				if err != nil {
					return Posting{}, false, fmt.Errorf("invalid cost: %w", err)
				}
				posting.Cost = &cost
			}
		case rest[0].text == "@@" || rest[0].text == "@":
			if len(rest) < 3 {
				return Posting{}, false, fmt.Errorf("price for %s needs number and commodity", name)
			}
			price, err := ParseAmount(rest[1].text, rest[2].text)
			if err != nil {
				return Posting{}, false, fmt.Errorf("invalid price: %w", err)
			}
			if rest[0].text == "@" {
				price.Number = price.Number.Mul(amount.Number.Abs())
			}
			posting.Price = &price
			rest = rest[3:]
		default:
			rest = rest[1:]
		}
	}
	return posting, true, nil
}

type token struct {
	text   string
	quoted bool
}

// tokenize splits on whitespace, keeping double quoted strings together.
func tokenize(line string) ([]token, error) {
	var tokens []token
	var current strings.Builder
	inQuote := false
	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, token{text: current.String()})
			current.Reset()
		}
	}
	for _, r := range line {
		switch {
		case inQuote && r == '"':
			tokens = append(tokens, token{text: current.String(), quoted: true})
			current.Reset()
			inQuote = false
		case inQuote:
			current.WriteRune(r)
		case r == '"':
			flush()
			inQuote = true
		case r == ' ' || r == '\t':
			flush()
		default:
			current.WriteRune(r)
		}
	}
	if inQuote {
		return nil, fmt.Errorf("unterminated string")
	}
	flush()
	return tokens, nil
}

func metadataLine(line string) (string, string, bool) {
	idx := strings.Index(line, ":")
	if idx <= 0 || idx == len(line)-1 || line[idx+1] != ' ' {
		return "", "", false
	}
	key := line[:idx]
	if key[0] < 'a' || key[0] > 'z' {
		return "", "", false
	}
	for _, r := range key {
		if !(r >= 'a' && r <= 'z') && !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') && r != '-' && r != '_' {
			return "", "", false
		}
	}
	value := strings.TrimSpace(line[idx+1:])
	return key, strings.Trim(value, `"`), true
}

func stripComment(line string) string {
	inQuote := false
	for i, r := range line {
		switch {
		case r == '"':
			inQuote = !inQuote
		case r == ';' && !inQuote:
			return line[:i]
		}
	}
	return line
}
