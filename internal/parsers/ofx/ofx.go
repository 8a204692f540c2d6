// Package ofx provides OFX/QFX statement parsing
package ofx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"

	"github.com/rumor-ml/commons.systems/ledgerimport/internal/ledger"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/parser"
)

// amountPrecision is the number of decimal places kept from OFX amounts.
const amountPrecision = 2

// Parser implements OFX/QFX parsing. It is stateless and safe for concurrent use.
type Parser struct{}

var parserInstance = &Parser{}

// NewParser returns the shared OFX parser instance.
func NewParser() *Parser {
	return parserInstance
}

// getFileInfo returns a formatted file path string for error messages
func getFileInfo(meta *parser.Metadata) string {
	if meta != nil && meta.FilePath() != "" {
		return fmt.Sprintf(" from %s", meta.FilePath())
	}
	return ""
}

// Name returns the parser identifier
func (p *Parser) Name() string {
	return "ofx"
}

// CanParse checks if this parser can handle the file based on extension and header
func (p *Parser) CanParse(path string, header []byte) bool {
	// Check file extension (.ofx or .qfx, case-insensitive)
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".ofx" && ext != ".qfx" {
		return false
	}

	headerUpper := strings.ToUpper(string(header))

	// Look for OFX header markers (both v1 SGML and v2 XML formats)
	return strings.Contains(headerUpper, "OFXHEADER") ||
		strings.Contains(headerUpper, "<?OFX") ||
		strings.Contains(headerUpper, "<OFX>")
}

// Parse extracts the lines and the ledger balance of an OFX/QFX file
func (p *Parser) Parse(ctx context.Context, r io.Reader, meta *parser.Metadata) (*parser.Statement, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX content%s: %w", getFileInfo(meta), err)
	}

	// ofxgo.ParseResponse does not support cancellation
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	response, err := ofxgo.ParseResponse(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file%s (%d bytes): %w", getFileInfo(meta), len(content), err)
	}

	// Route to appropriate handler based on statement type
	if len(response.CreditCard) > 0 {
		return p.parseCreditCard(response)
	}

	if len(response.Bank) > 0 {
		return p.parseBank(response)
	}

	if len(response.InvStmt) > 0 {
		return p.parseInvestment(response)
	}

	return nil, fmt.Errorf("no supported statement type found in OFX file%s. Expected at least one of: credit card (CREDITCARDMSGSRSV1), bank (BANKMSGSRSV1), or investment (INVSTMTMSGSRSV1) statement",
		getFileInfo(meta))
}

// parseCreditCard parses credit card statement
func (p *Parser) parseCreditCard(resp *ofxgo.Response) (*parser.Statement, error) {
	ccStmt, ok := resp.CreditCard[0].(*ofxgo.CCStatementResponse)
	if !ok {
		return nil, fmt.Errorf("failed to type assert credit card statement: expected *ofxgo.CCStatementResponse, got %T", resp.CreditCard[0])
	}
	if ccStmt.BankTranList == nil {
		return nil, fmt.Errorf("missing transaction list in credit card statement")
	}

	lines, err := parseTransactions(ccStmt.BankTranList.Transactions)
	if err != nil {
		return nil, fmt.Errorf("failed to parse transactions: %w", err)
	}

	return &parser.Statement{
		Lines:    lines,
		Balances: ledgerBalance(ccStmt.BalAmt, ccStmt.DtAsOf),
	}, nil
}

// parseBank parses bank account statement
func (p *Parser) parseBank(resp *ofxgo.Response) (*parser.Statement, error) {
	bankStmt, ok := resp.Bank[0].(*ofxgo.StatementResponse)
	if !ok {
		return nil, fmt.Errorf("failed to type assert bank statement: expected *ofxgo.StatementResponse, got %T", resp.Bank[0])
	}
	if bankStmt.BankTranList == nil {
		return nil, fmt.Errorf("missing transaction list in bank statement")
	}

	lines, err := parseTransactions(bankStmt.BankTranList.Transactions)
	if err != nil {
		return nil, fmt.Errorf("failed to parse transactions: %w", err)
	}

	return &parser.Statement{
		Lines:    lines,
		Balances: ledgerBalance(bankStmt.BalAmt, bankStmt.DtAsOf),
	}, nil
}

// parseInvestment parses the cash movements of an investment statement.
// Security transactions need cost basis information and are rejected.
func (p *Parser) parseInvestment(resp *ofxgo.Response) (*parser.Statement, error) {
	invStmt, ok := resp.InvStmt[0].(*ofxgo.InvStatementResponse)
	if !ok {
		return nil, fmt.Errorf("failed to type assert investment statement: expected *ofxgo.InvStatementResponse, got %T", resp.InvStmt[0])
	}
	if invStmt.InvTranList == nil {
		return nil, fmt.Errorf("missing transaction list in investment statement")
	}
	if count := len(invStmt.InvTranList.InvTransactions); count > 0 {
		return nil, fmt.Errorf("investment statement contains %d security transactions which are not supported, only cash movements can be imported", count)
	}

	var lines []parser.Line
	for _, bankTxn := range invStmt.InvTranList.BankTransactions {
		parsed, err := parseTransactions(bankTxn.Transactions)
		if err != nil {
			return nil, fmt.Errorf("failed to parse investment transactions: %w", err)
		}
		lines = append(lines, parsed...)
	}

	return &parser.Statement{Lines: lines}, nil
}

func parseTransactions(transactions []ofxgo.Transaction) ([]parser.Line, error) {
	lines := make([]parser.Line, 0, len(transactions))
	for i, txn := range transactions {
		line, err := extractLine(txn)
		if err != nil {
			return nil, fmt.Errorf("failed to parse transaction at index %d: %w", i, err)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// extractLine converts one STMTTRN, dated by DTPOSTED. ofxgo rejects
// transactions without it while parsing. The name is preferred over the memo.
func extractLine(txn ofxgo.Transaction) (parser.Line, error) {
	id := txn.FiTID.String()
	date := txn.DtPosted.Time

	description := strings.TrimSpace(txn.Name.String())
	if description == "" {
		description = strings.TrimSpace(txn.Memo.String())
	}
	if description == "" {
		return parser.Line{}, fmt.Errorf("transaction %s missing both name and memo fields", id)
	}

	return parser.Line{
		Date:        ledger.Day(date),
		Description: description,
		Amount:      toDecimal(txn.TrnAmt),
	}, nil
}

// ledgerBalance converts LEDGERBAL. The balance holds at the end of DTASOF,
// so it is asserted at the start of the following day.
func ledgerBalance(amount ofxgo.Amount, asOf ofxgo.Date) []parser.StatementBalance {
	if asOf.IsZero() {
		return nil
	}
	return []parser.StatementBalance{{
		Date:   ledger.Day(asOf.Time).AddDate(0, 0, 1),
		Amount: toDecimal(amount),
	}}
}

func toDecimal(amount ofxgo.Amount) decimal.Decimal {
	return decimal.NewFromBigRat(&amount.Rat, amountPrecision)
}
